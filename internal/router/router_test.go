package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bharathmeg/InsightHub/internal/dto"
	"github.com/bharathmeg/InsightHub/internal/infra"
	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	t      *testing.T
	engine *gin.Engine
	mailer *testutil.FakeMailer
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mailer := &testutil.FakeMailer{}
	engine := New(ctx, testutil.Config(), testutil.NewDB(t), nil, mailer, infra.NoopPublisher{})
	return &apiFixture{t: t, engine: engine, mailer: mailer}
}

func (a *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// signup registers, verifies and logs in, returning the access token.
func (a *apiFixture) signup(email, role, company string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: email, Password: "s3cret-pw", Role: role, Company: company})
	require.Equal(a.t, http.StatusAccepted, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/auth/verify", "", dto.VerifyOTPRequest{Email: email, Role: role, Company: company, Code: a.mailer.LastOTP()})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: email, Password: "s3cret-pw", Role: role, Company: company})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var login dto.LoginResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &login))
	return login.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func sale(product, revenue string, qty int) map[string]interface{} {
	return map[string]interface{}{"product": product, "revenue": revenue, "quantity": qty}
}

func TestHealth_RedisDisabled(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"db":"connected","redis":"disabled"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRegisterVerifyLogin(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "ana@acme.io", Password: "s3cret-pw", Role: "Admin", Company: "Acme"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "ana@acme.io", Password: "s3cret-pw", Role: "Admin", Company: "Acme"})
	assert.Equal(t, http.StatusForbidden, w.Code, "unverified accounts cannot log in")

	wrong := "000000"
	if a.mailer.LastOTP() == wrong {
		wrong = "111111"
	}
	w = a.do(http.MethodPost, "/v1/auth/verify", "", dto.VerifyOTPRequest{Email: "ana@acme.io", Role: "Admin", Company: "Acme", Code: wrong})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := a.signupExisting("ana@acme.io", "Admin", "Acme")
	assert.NotEmpty(t, token)

	w = a.do(http.MethodGet, "/v1/auth/companies?email=ana@acme.io&role=Admin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"companies":["Acme"]}`, w.Body.String())
}

// signupExisting finishes a registration already started with register.
func (a *apiFixture) signupExisting(email, role, company string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/verify", "", dto.VerifyOTPRequest{Email: email, Role: role, Company: company, Code: a.mailer.LastOTP()})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: email, Password: "s3cret-pw", Role: role, Company: company})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.LoginResponse](a.t, w).AccessToken
}

func TestRegister_ErrorsMapToStatus(t *testing.T) {
	a := newAPI(t)
	a.signup("ana@acme.io", "Admin", "Acme")

	w := a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "bo@acme.io", Password: "s3cret-pw", Role: "Admin", Company: "Acme"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "bo@acme.io", Password: "s3cret-pw", Role: "Owner", Company: "Acme"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"Role":"oneof"`)

	w = a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "bo@acme.io", Password: "s3cret-pw", Role: "Viewer", Company: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "bo@acme.io", Password: strings.Repeat("é", 40), Role: "Viewer", Company: "Acme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	a.mailer.Err = errors.New("smtp: 535 auth failed")
	w = a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "cy@acme.io", Password: "s3cret-pw", Role: "Viewer", Company: "Acme"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "535")
}

func TestSales_AddUndoScenario(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	for i := 0; i < 2; i++ {
		w := a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "9.99", 3))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := a.do(http.MethodPost, "/v1/sales/undo", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	undo := decode[dto.UndoResponse](t, w)
	assert.True(t, undo.Undone)
	assert.Equal(t, "add", undo.Action)

	w = a.do(http.MethodGet, "/v1/sales", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.SaleListResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Widget", list.Data[0].Product)
	assert.Equal(t, 3, list.Data[0].Quantity)

	w = a.do(http.MethodGet, "/v1/ledger", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.LedgerListResponse](t, w).Data, 1)
}

func TestSales_UndoWithEmptyLedger(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	w := a.do(http.MethodPost, "/v1/sales/undo", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"undone":false,"message":"nothing to undo"}`, w.Body.String())
}

func TestSales_DeleteMissingIs204(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/sales/424242", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodDelete, "/v1/sales/abc", token, nil).Code)
}

func TestSales_DeleteThenUndo(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	w := a.do(http.MethodPost, "/v1/sales", token, sale("Gadget", "12.50", 2))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.SaleResponse](t, w)

	w = a.do(http.MethodDelete, "/v1/sales/"+strconv.FormatUint(uint64(created.ID), 10), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodPost, "/v1/sales/undo", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "delete", decode[dto.UndoResponse](t, w).Action)

	list := decode[dto.SaleListResponse](t, a.do(http.MethodGet, "/v1/sales", token, nil))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Gadget", list.Data[0].Product)
	assert.Equal(t, "12.5", list.Data[0].Revenue.String())
}

func TestSales_Validation(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	w := a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "-1", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/sales", token, sale("", "1", 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "1", -2))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/sales", token, sale("Freebie", "0", 0))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSales_ViewerIsReadOnly(t *testing.T) {
	a := newAPI(t)
	admin := a.signup("ana@acme.io", "Admin", "Acme")
	viewer := a.signup("bo@acme.io", "Viewer", "Acme")

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/sales", admin, sale("Widget", "1", 1)).Code)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/sales", viewer, sale("Widget", "1", 1)).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, "/v1/sales/1", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/sales/undo", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/v1/ledger", viewer, nil).Code)

	w := a.do(http.MethodGet, "/v1/sales", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[dto.SaleListResponse](t, w).Total)
}

func TestSales_RequiresToken(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/sales", "", nil).Code)
}

func TestSales_CompaniesAreIsolated(t *testing.T) {
	a := newAPI(t)
	acme := a.signup("ana@acme.io", "Admin", "Acme")
	globex := a.signup("ana@acme.io", "Admin", "Globex")

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/sales", acme, sale("Widget", "1", 1)).Code)

	list := decode[dto.SaleListResponse](t, a.do(http.MethodGet, "/v1/sales", globex, nil))
	assert.Zero(t, list.Total)

	w := a.do(http.MethodPost, "/v1/sales/undo", globex, nil)
	assert.False(t, decode[dto.UndoResponse](t, w).Undone)
}

func TestAnalytics_RevenueByProduct(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")
	a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "10", 3))
	a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "5.5", 2))

	w := a.do(http.MethodGet, "/v1/analytics/revenue-by-product", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.RevenueByProductResponse](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "$15.50", resp.Data[0].Display)
	assert.Equal(t, int64(2), resp.Data[0].Sales)
}

func TestExport_CSV(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")

	w := a.do(http.MethodGet, "/v1/sales/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID,Company,Product,Revenue,Quantity,Timestamp\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sales_Acme.csv")
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))

	a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "9.99", 3))
	w = a.do(http.MethodGet, "/v1/sales/export?format=csv", token, nil)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",Acme,Widget,9.99,3,")
}

func TestExport_OtherFormats(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Admin", "Acme")
	a.do(http.MethodPost, "/v1/sales", token, sale("Widget", "9.99", 3))

	w := a.do(http.MethodGet, "/v1/sales/export?format=pdf", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = a.do(http.MethodGet, "/v1/sales/export?format=xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = a.do(http.MethodGet, "/v1/sales/export?format=docx", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExport_EmailSentInlineWithoutRedis(t *testing.T) {
	a := newAPI(t)
	token := a.signup("ana@acme.io", "Viewer", "Acme")

	w := a.do(http.MethodPost, "/v1/sales/export/email", token, dto.EmailExportRequest{Format: "xlsx"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, a.mailer.Attachments, 1)
	assert.Equal(t, "ana@acme.io", a.mailer.Attachments[0].To)
	assert.Equal(t, "sales_Acme.xlsx", a.mailer.Attachments[0].Filename)

	w = a.do(http.MethodPost, "/v1/sales/export/email", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "csv", decode[dto.EmailExportResponse](t, w).Format)
}

func TestPasswordResetFlow(t *testing.T) {
	a := newAPI(t)
	a.signup("ana@acme.io", "Viewer", "Acme")

	w := a.do(http.MethodPost, "/v1/auth/password/forgot", "", dto.ForgotPasswordRequest{Email: "ana@acme.io", Role: model.RoleViewer, Company: "Acme"})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/password/reset", "", dto.ResetPasswordRequest{
		Email: "ana@acme.io", Role: model.RoleViewer, Company: "Acme", Code: a.mailer.LastOTP(), NewPassword: "brand-new-pw",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "ana@acme.io", Password: "brand-new-pw", Role: model.RoleViewer, Company: "Acme"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	a := newAPI(t)
	a.signup("ana@acme.io", "Viewer", "Acme")
	w := a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "ana@acme.io", Password: "s3cret-pw", Role: "Viewer", Company: "Acme"})
	login := decode[dto.LoginResponse](t, w)

	w = a.do(http.MethodPost, "/v1/auth/refresh", "", dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	// refresh tokens are not accepted as bearer tokens
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/sales", login.RefreshToken, nil).Code)
}
