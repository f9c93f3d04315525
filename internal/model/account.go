package model

import "time"

// Roles an account can hold within a company.
const (
	RoleAdmin  = "Admin"
	RoleViewer = "Viewer"
)

// OTP purposes.
const (
	OTPPurposeRegister = "register"
	OTPPurposeReset    = "reset"
)

// AccountState is the registration state derived from an account row.
type AccountState string

const (
	StateUnregistered AccountState = "unregistered"
	StateOTPPending   AccountState = "otp_pending"
	StateVerified     AccountState = "verified"
)

// Account is one identity scoped to a company and a role.
// (email, role, company) is unique; rows are never deleted.
type Account struct {
	ID      uint   `gorm:"primaryKey"`
	Email   string `gorm:"type:varchar(254);not null;uniqueIndex:idx_accounts_identity"`
	Role    string `gorm:"type:varchar(20);not null;uniqueIndex:idx_accounts_identity"`
	Company string `gorm:"type:varchar(200);not null;uniqueIndex:idx_accounts_identity;index"`

	PasswordHash string `gorm:"not null;default:''"`
	// PendingPasswordHash is applied once the registration OTP is verified.
	PendingPasswordHash string `gorm:"not null;default:''"`

	// OTPHash is nil when no code is outstanding.
	OTPHash      *string
	OTPExpiresAt *time.Time
	OTPPurpose   string `gorm:"type:varchar(20);not null;default:''"`

	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Account) TableName() string { return "accounts" }

// State reports where the account is in the registration flow.
func (a *Account) State() AccountState {
	if a == nil || a.ID == 0 {
		return StateUnregistered
	}
	if a.VerifiedAt == nil {
		return StateOTPPending
	}
	return StateVerified
}

// HasPendingOTP reports whether a code is outstanding for the given purpose.
func (a *Account) HasPendingOTP(purpose string) bool {
	return a.OTPHash != nil && a.OTPPurpose == purpose
}

// ClearOTP drops the outstanding code.
func (a *Account) ClearOTP() {
	a.OTPHash = nil
	a.OTPExpiresAt = nil
	a.OTPPurpose = ""
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}
