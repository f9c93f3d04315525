package testutil

import (
	"context"
	"sync"
)

// SentOTP is one SendOTP call captured by FakeMailer.
type SentOTP struct {
	To, Code, Purpose string
}

// SentAttachment is one SendAttachment call captured by FakeMailer.
type SentAttachment struct {
	To, Subject, Body, Filename string
	Data                        []byte
}

// FakeMailer records outbound mail. Err, when set, fails every send.
type FakeMailer struct {
	mu          sync.Mutex
	Err         error
	OTPs        []SentOTP
	Attachments []SentAttachment
}

func (m *FakeMailer) SendOTP(_ context.Context, to, code, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.OTPs = append(m.OTPs, SentOTP{To: to, Code: code, Purpose: purpose})
	return nil
}

func (m *FakeMailer) SendAttachment(_ context.Context, to, subject, body, filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Attachments = append(m.Attachments, SentAttachment{To: to, Subject: subject, Body: body, Filename: filename, Data: data})
	return nil
}

// LastOTP returns the most recent code mailed, or "".
func (m *FakeMailer) LastOTP() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.OTPs) == 0 {
		return ""
	}
	return m.OTPs[len(m.OTPs)-1].Code
}

// SentAttachments returns a copy of the attachments mailed so far.
func (m *FakeMailer) SentAttachments() []SentAttachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentAttachment(nil), m.Attachments...)
}
