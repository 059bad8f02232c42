package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"weconnect-crm/internal/config"
	"weconnect-crm/internal/infra"
	"weconnect-crm/internal/metrics"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	engine *gin.Engine
	token  string
	userID string
}

func newAPIEnv(t *testing.T, role string) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := infra.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, infra.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	ctx := context.Background()
	reg := repository.NewRegistryRepository(db)
	require.NoError(t, reg.UpsertCurrency(ctx, &model.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsActive: true, IsDefault: true}))
	require.NoError(t, reg.UpsertCurrency(ctx, &model.Currency{Code: "INR", Name: "Indian Rupee", Symbol: "₹", ExchangeRate: decimal.RequireFromString("83.1"), IsActive: true}))

	hash, err := service.HashPassword("s3cret-pass")
	require.NoError(t, err)
	user := &model.User{Email: "ops@weconnect.test", Name: "Ops", PasswordHash: hash, Role: role}
	require.NoError(t, repository.NewUserRepository(db).Create(ctx, user))

	cfg := &config.Config{Env: "test", JWTSecret: "router-test-secret", JWTExpirationHours: 1, JWTRefreshHours: 24, TrashSweepBatch: 50}
	e := &apiEnv{engine: New(cfg, db, nil, metrics.New()), userID: user.ID.String()}

	w := e.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": user.Email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	e.token = login.AccessToken
	return e
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func quotationBody() map[string]any {
	return map[string]any{
		"subject":       "Cold room lease",
		"party":         map[string]any{"name": "Acme Corp", "email": "buyer@acme.test"},
		"currency_code": "INR",
		"items": []map[string]any{
			{"name": "Design", "quantity": "2", "unit_price": "100", "tax_rate": "10"},
			{"name": "Hosting", "quantity": "1", "unit_price": "50", "discount_rate": "10"},
		},
		// computed fields from the client are ignored
		"total": "1",
	}
}

func TestDocumentFlowOverHTTP(t *testing.T) {
	e := newAPIEnv(t, RoleSales)

	w := e.do(t, http.MethodPost, "/v1/quotations", quotationBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	q := decode(t, w)
	assert.Equal(t, "QUO-000001", q["number"])
	assert.Equal(t, "265", q["total"])
	assert.Equal(t, "₹265.00", q["formatted_total"])
	assert.Equal(t, e.userID, q["created_by"])
	id := q["id"].(string)

	w = e.do(t, http.MethodPost, "/v1/quotations/"+id+"/transition", map[string]any{"status": "ACCEPTED", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, w)["code"])

	w = e.do(t, http.MethodPost, "/v1/quotations/"+id+"/transition", map[string]any{"status": "SENT", "version": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "SENT", decode(t, w)["status"])

	update := quotationBody()
	update["version"] = 1
	w = e.do(t, http.MethodPut, "/v1/quotations/"+id, update)
	assert.Equal(t, http.StatusConflict, w.Code, "stale version")
	assert.Equal(t, "CONCURRENT_MODIFICATION", decode(t, w)["code"])

	update["version"] = 2
	w = e.do(t, http.MethodPut, "/v1/quotations/"+id, update)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "financial edits need DRAFT")

	w = e.do(t, http.MethodPatch, "/v1/quotations/"+id+"/notes", map[string]any{"notes": "Call Friday", "version": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1/quotations/"+id+"/convert", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode(t, w)
	assert.Equal(t, "INV-000001", inv["number"])
	assert.Equal(t, id, inv["source_quotation_id"])

	w = e.do(t, http.MethodGet, "/v1/quotations/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 4)

	w = e.do(t, http.MethodGet, "/v1/invoices/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "a quotation id is not an invoice")

	w = e.do(t, http.MethodGet, "/v1/numbering/invoice/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "INV-000002", decode(t, w)["number"])
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	e := newAPIEnv(t, RoleSales)
	body := quotationBody()
	body["currency_code"] = "US"
	body["items"] = []map[string]any{{"name": "x", "quantity": "1", "unit_price": "-5"}}

	w := e.do(t, http.MethodPost, "/v1/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Contains(t, fields, "currency_code")
	assert.Contains(t, fields, "items[0].unit_price")

	body = quotationBody()
	body["currency_code"] = "XYZ"
	w = e.do(t, http.MethodPost, "/v1/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_CURRENCY_OR_TAX", decode(t, w)["code"])
}

func TestTrashOverHTTP(t *testing.T) {
	e := newAPIEnv(t, RoleSales)
	w := e.do(t, http.MethodPost, "/v1/quotations", quotationBody())
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = e.do(t, http.MethodDelete, "/v1/quotations/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/v1/trash?kind=quotations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = e.do(t, http.MethodDelete, "/v1/trash/quotation/"+id+"/purge", nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "only admins purge")

	w = e.do(t, http.MethodPost, "/v1/trash/quotation/"+id+"/restore", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodPost, "/v1/trash/quotation/"+id+"/restore", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_IN_TRASH", decode(t, w)["code"])

	w = e.do(t, http.MethodDelete, "/v1/trash/user/"+e.userID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminPurgeAndSweep(t *testing.T) {
	e := newAPIEnv(t, RoleAdmin)
	w := e.do(t, http.MethodPost, "/v1/invoices", quotationBody())
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = e.do(t, http.MethodDelete, "/v1/trash/user/"+e.userID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "admins cannot trash themselves")

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/v1/trash/invoice/"+id, nil).Code)
	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/v1/trash/invoice/"+id+"/purge", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/invoices/"+id, nil).Code)

	w = e.do(t, http.MethodPost, "/v1/trash/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])
}

func TestPublicEndpoints(t *testing.T) {
	e := newAPIEnv(t, RoleSales)
	token := e.token
	e.token = ""

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/v1/quotations", nil).Code)

	w := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disabled", decode(t, w)["redis"])

	w = e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "weconnect_http_requests_total")

	e.token = token
	w = e.do(t, http.MethodGet, "/v1/registry/currencies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var currencies []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &currencies))
	assert.Len(t, currencies, 2)
}

func TestComposerEndpoints(t *testing.T) {
	e := newAPIEnv(t, RoleManager)

	w := e.do(t, http.MethodPost, "/v1/pricing/preview", map[string]any{
		"currency_code": "USD",
		"items":         quotationBody()["items"],
		"adjustment":    "-300",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode(t, w)
	assert.Equal(t, "0", preview["total"])
	assert.Equal(t, "-35", preview["gross_total"])
	assert.Equal(t, true, preview["total_clamped"])

	w = e.do(t, http.MethodGet, "/v1/numbering/quotation/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "QUO-000001", decode(t, w)["number"])

	w = e.do(t, http.MethodGet, "/v1/prefill?source_kind=LEAD&source_id="+uuid.NewString()+"&document_type=QUOTATION", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/v1/prefill?source_kind=LEAD&source_id=nope&document_type=QUOTATION", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodGet, "/v1/products/"+uuid.NewString()+"/line-item", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
