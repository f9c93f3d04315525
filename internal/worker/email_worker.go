package worker

// email_worker.go
// Renders a company's sales export and mails it as an attachment.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/repository"

	"github.com/rs/zerolog/log"
)

// ExportEmailPayload is the job body sent to QueueEmail.
type ExportEmailPayload struct {
	To      string `json:"to"`
	Company string `json:"company"`
	Format  string `json:"format"`
}

// EmailWorker turns export mail jobs into SMTP sends.
type EmailWorker struct {
	sales    repository.SaleRepository
	mailer   infra.MailSender
	currency string
	now      func() time.Time
}

func NewEmailWorker(sales repository.SaleRepository, mailer infra.MailSender, currency string) *EmailWorker {
	return &EmailWorker{sales: sales, mailer: mailer, currency: currency, now: time.Now}
}

// Process is the pool handler for JobExportEmail.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ExportEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %v: %w", err, ErrPermanent)
	}
	return w.Deliver(ctx, payload)
}

// EnqueueExportEmail sends inline. Used when no Redis queue is configured.
func (w *EmailWorker) EnqueueExportEmail(ctx context.Context, payload ExportEmailPayload) error {
	return w.Deliver(ctx, payload)
}

// Deliver renders the export and mails it.
func (w *EmailWorker) Deliver(ctx context.Context, p ExportEmailPayload) error {
	if p.To == "" {
		return fmt.Errorf("email_worker: empty recipient: %w", ErrPermanent)
	}
	sales, err := w.sales.ListByCompany(ctx, p.Company)
	if err != nil {
		return fmt.Errorf("email_worker: load sales: %w", err)
	}

	var buf bytes.Buffer
	if err := infra.WriteSales(&buf, p.Format, p.Company, sales, w.currency, w.now()); err != nil {
		return fmt.Errorf("email_worker: render %s: %v: %w", p.Format, err, ErrPermanent)
	}

	subject := fmt.Sprintf("%s sales export", p.Company)
	body := fmt.Sprintf("Attached: %d sales for %s.\n", len(sales), p.Company)
	if err := w.mailer.SendAttachment(ctx, p.To, subject, body, infra.ExportFileName(p.Company, p.Format), buf.Bytes()); err != nil {
		return err
	}
	log.Info().Str("to", p.To).Str("company", p.Company).Str("format", p.Format).Msg("email_worker: export sent")
	return nil
}
