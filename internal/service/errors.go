package service

import (
	"errors"

	"github.com/bharathmeg/InsightHub/internal/infra"
)

var (
	ErrInvalidRole        = errors.New("role must be Admin or Viewer")
	ErrInvalidCompany     = errors.New("company must not be blank")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrAdminExists        = errors.New("an admin already exists for this company")
	ErrOTPDelivery        = errors.New("could not send verification code")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrUnsupportedFormat  = infra.ErrUnsupportedFormat
)

var (
	ErrForbidden         = errors.New("admin role required")
	ErrInvalidSale       = errors.New("product is required and revenue and quantity must not be negative")
	ErrExportUnavailable = errors.New("export mail is not configured")
)
