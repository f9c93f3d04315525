package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/bharathmeg/InsightHub/internal/config"
	"github.com/bharathmeg/InsightHub/internal/dto"
	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.MessageResponse, error)
	VerifyOTP(ctx context.Context, req dto.VerifyOTPRequest) (*dto.AccountResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	ListCompanies(ctx context.Context, email, role string) ([]string, error)
	RequestPasswordReset(ctx context.Context, req dto.ForgotPasswordRequest) (*dto.MessageResponse, error)
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
}

type authService struct {
	repo   repository.AccountRepository
	mailer infra.MailSender
	cfg    *config.Config
	otp    func() (string, error)
	now    func() time.Time
}

func NewAuthService(repo repository.AccountRepository, mailer infra.MailSender, cfg *config.Config) AuthService {
	return &authService{repo: repo, mailer: mailer, cfg: cfg, otp: GenerateOTP, now: time.Now}
}

// GenerateOTP returns a uniformly random code in 100000-999999.
const maxPasswordBytes = 72

func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeIdentity(email, company string) (string, string) {
	return strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(company)
}

// ── Register / Verify ─────────────────────────────────────────────────────────

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.MessageResponse, error) {
	email, company := normalizeIdentity(req.Email, req.Company)
	if !model.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}
	if company == "" {
		return nil, ErrInvalidCompany
	}
	if req.Role == model.RoleAdmin {
		exists, err := s.repo.AdminExists(ctx, company, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAdminExists
		}
	}

	pwHash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.issueOTP(ctx, &model.Account{
		Email:               email,
		Role:                req.Role,
		Company:             company,
		PendingPasswordHash: string(pwHash),
	}, model.OTPPurposeRegister); err != nil {
		return nil, err
	}

	log.Info().Str("email", email).Str("role", req.Role).Str("company", company).Msg("registration otp sent")
	return &dto.MessageResponse{Message: "OTP sent"}, nil
}

// issueOTP mails a fresh code and, only once the send succeeded, stores its
// hash on the account.
func (s *authService) issueOTP(ctx context.Context, a *model.Account, purpose string) error {
	code, err := s.otp()
	if err != nil {
		return err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(ctx, a.Email, code, purpose); err != nil {
		log.Warn().Err(err).Str("email", a.Email).Msg("otp delivery failed")
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}

	hash := string(codeHash)
	expires := s.now().Add(time.Duration(s.cfg.OTPTTLMinutes) * time.Minute)
	a.OTPHash = &hash
	a.OTPExpiresAt = &expires
	a.OTPPurpose = purpose
	if a.ID != 0 {
		return s.repo.Update(ctx, a)
	}
	return s.repo.UpsertPending(ctx, a)
}

// checkOTP validates code against the outstanding code for purpose.
// The stored code is left untouched on failure.
func (s *authService) checkOTP(a *model.Account, code, purpose string) error {
	if !a.HasPendingOTP(purpose) {
		return ErrInvalidOTP
	}
	if a.OTPExpiresAt != nil && s.now().After(*a.OTPExpiresAt) {
		return ErrOTPExpired
	}
	if bcrypt.CompareHashAndPassword([]byte(*a.OTPHash), []byte(code)) != nil {
		return ErrInvalidOTP
	}
	return nil
}

func (s *authService) find(ctx context.Context, email, role, company string) (*model.Account, error) {
	email, company = normalizeIdentity(email, company)
	a, err := s.repo.FindByIdentity(ctx, email, role, company)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return a, err
}

func (s *authService) VerifyOTP(ctx context.Context, req dto.VerifyOTPRequest) (*dto.AccountResponse, error) {
	a, err := s.find(ctx, req.Email, req.Role, req.Company)
	if err != nil {
		return nil, err
	}
	if err := s.checkOTP(a, req.Code, model.OTPPurposeRegister); err != nil {
		return nil, err
	}

	now := s.now()
	a.PasswordHash = a.PendingPasswordHash
	a.PendingPasswordHash = ""
	a.VerifiedAt = &now
	a.ClearOTP()
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	log.Info().Str("email", a.Email).Str("company", a.Company).Msg("account verified")
	return accountToResponse(a), nil
}

// ── Login / Refresh ───────────────────────────────────────────────────────────

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	a, err := s.find(ctx, req.Email, req.Role, req.Company)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if a.VerifiedAt == nil {
		return nil, ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(a)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenRefresh {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	company, _ := claims["company"].(string)
	if email == "" || role == "" || company == "" {
		return nil, ErrInvalidToken
	}

	a, err := s.repo.FindByIdentity(ctx, email, role, company)
	if err != nil || a.VerifiedAt == nil {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(a)
}

func (s *authService) issueTokens(a *model.Account) (*dto.LoginResponse, error) {
	accessToken, err := s.generateToken(a, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(a, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		Account:      *accountToResponse(a),
	}, nil
}

func (s *authService) generateToken(a *model.Account, typ string, duration time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"email":   a.Email,
		"role":    a.Role,
		"company": a.Company,
		"typ":     typ,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ── Companies / password reset ────────────────────────────────────────────────

func (s *authService) ListCompanies(ctx context.Context, email, role string) ([]string, error) {
	if !model.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	email, _ = normalizeIdentity(email, "")
	companies, err := s.repo.ListCompanies(ctx, email, role)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []string{}
	}
	return companies, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, req dto.ForgotPasswordRequest) (*dto.MessageResponse, error) {
	a, err := s.find(ctx, req.Email, req.Role, req.Company)
	if err != nil {
		return nil, err
	}
	if a.VerifiedAt == nil {
		return nil, ErrNotVerified
	}
	if err := s.issueOTP(ctx, a, model.OTPPurposeReset); err != nil {
		return nil, err
	}
	return &dto.MessageResponse{Message: "OTP sent"}, nil
}

func (s *authService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	a, err := s.find(ctx, req.Email, req.Role, req.Company)
	if err != nil {
		return err
	}
	if err := s.checkOTP(a, req.Code, model.OTPPurposeReset); err != nil {
		return err
	}
	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	a.ClearOTP()
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	log.Info().Str("email", a.Email).Str("company", a.Company).Msg("password reset")
	return nil
}

// hashPassword rejects passwords bcrypt would refuse. The DTO max=72 counts
// runes, bcrypt's limit is in bytes.
func (s *authService) hashPassword(pw string) ([]byte, error) {
	if len(pw) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(pw), s.cfg.BcryptCost)
}

func accountToResponse(a *model.Account) *dto.AccountResponse {
	return &dto.AccountResponse{
		Email:    a.Email,
		Role:     a.Role,
		Company:  a.Company,
		Verified: a.VerifiedAt != nil,
	}
}
