package handler

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/bharathmeg/InsightHub/internal/apierror"
	"github.com/bharathmeg/InsightHub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so tags like min=0 work
	// instead of panicking with "Bad field type decimal.Decimal".
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller should return
// immediately.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQueryAndValidate is bindAndValidate for query strings.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid query: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// errorStatus maps service sentinel errors to HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidCompany, http.StatusBadRequest},
	{service.ErrPasswordTooLong, http.StatusBadRequest},
	{service.ErrInvalidOTP, http.StatusBadRequest},
	{service.ErrOTPExpired, http.StatusBadRequest},
	{service.ErrInvalidSale, http.StatusBadRequest},
	{service.ErrUnsupportedFormat, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrNotVerified, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrAccountNotFound, http.StatusNotFound},
	{service.ErrAdminExists, http.StatusConflict},
	{service.ErrOTPDelivery, http.StatusBadGateway},
	{service.ErrExportUnavailable, http.StatusServiceUnavailable},
}

// respondError writes the envelope for a known service error. Anything else
// is handed to middleware.ErrorHandler as a 500.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, apierror.New(e.err.Error()))
			return
		}
	}
	_ = c.Error(err)
}
