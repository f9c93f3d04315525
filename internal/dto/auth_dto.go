package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// Identity fields are shared by every auth request: an account is the
// (email, role, company) triple.

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"     validate:"required,oneof=Admin Viewer"`
	Company  string `json:"company"  validate:"required,min=1,max=200"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email"   validate:"required,email"`
	Role    string `json:"role"    validate:"required,oneof=Admin Viewer"`
	Company string `json:"company" validate:"required,min=1,max=200"`
	Code    string `json:"code"    validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=Admin Viewer"`
	Company  string `json:"company"  validate:"required,min=1,max=200"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CompaniesQuery is bound from the query string of GET /v1/auth/companies.
type CompaniesQuery struct {
	Email string `form:"email" validate:"required,email"`
	Role  string `form:"role"  validate:"required,oneof=Admin Viewer"`
}

type ForgotPasswordRequest struct {
	Email   string `json:"email"   validate:"required,email"`
	Role    string `json:"role"    validate:"required,oneof=Admin Viewer"`
	Company string `json:"company" validate:"required,min=1,max=200"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	Role        string `json:"role"         validate:"required,oneof=Admin Viewer"`
	Company     string `json:"company"      validate:"required,min=1,max=200"`
	Code        string `json:"code"         validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AccountResponse struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Verified bool   `json:"verified"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // seconds
	Account      AccountResponse `json:"account"`
}

type CompaniesResponse struct {
	Companies []string `json:"companies"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
