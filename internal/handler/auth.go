package handler

import (
	"net/http"

	"github.com/bharathmeg/InsightHub/internal/dto"
	"github.com/bharathmeg/InsightHub/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Register godoc
// @Summary      Start registration
// @Description  Mails a 6-digit code. Nothing is stored when the mail cannot be sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body     dto.RegisterRequest true "Account identity and password"
// @Success      202  {object} dto.MessageResponse
// @Failure      409  {object} apierror.APIError
// @Failure      502  {object} apierror.APIError
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Verify godoc
// @Summary      Verify registration code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body     dto.VerifyOTPRequest true "Identity and code"
// @Success      200  {object} dto.AccountResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Login godoc
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body     dto.LoginRequest true "Credentials"
// @Success      200  {object} dto.LoginResponse
// @Failure      401  {object} apierror.APIError
// @Failure      403  {object} apierror.APIError
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Companies godoc
// @Summary      Companies available to an email and role
// @Tags         auth
// @Produce      json
// @Param        email query    string true "Email"
// @Param        role  query    string true "Admin or Viewer"
// @Success      200   {object} dto.CompaniesResponse
// @Router       /v1/auth/companies [get]
func (h *AuthHandler) Companies(c *gin.Context) {
	var q dto.CompaniesQuery
	if !bindQueryAndValidate(c, &q) {
		return
	}
	companies, err := h.svc.ListCompanies(c.Request.Context(), q.Email, q.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CompaniesResponse{Companies: companies})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RequestPasswordReset(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
