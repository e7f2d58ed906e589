package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"barbook/backend/internal/blob/memory"
	"barbook/backend/internal/domain"
	"barbook/backend/internal/ledger"
	"barbook/backend/internal/service"
)

// newTestAPI builds a full API over an in-memory blob store with a real
// AuthManager and Service so handler tests exercise the complete request
// path. Two accounts are seeded: admin/admin123 and staff/staff123.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	store, err := ledger.New(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	store.SeedUsers([]domain.UserAccount{
		{Username: "admin", Password: mustHashPassword(t, "admin123"), Role: domain.RoleAdmin, Active: true, CreatedAt: time.Now().UTC()},
		{Username: "staff", Password: mustHashPassword(t, "staff123"), Role: domain.RoleStaff, Active: true, CreatedAt: time.Now().UTC()},
	})

	svc := service.New(store)
	auth := NewAuthManager("test-secret-key", time.Hour, store)
	return New(svc, auth, "*")
}

func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: got %d (body: %s)", username, rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("no access token in %v", body)
	}
	return token
}

func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token: got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf body: %v", err)
	}
	token, _ := body["csrf_token"].(string)
	return token
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrongpassword"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	// The loginLimiter allows 5 attempts per minute from one address.
	payload, _ := json.Marshal(map[string]string{"username": "admin", "password": "badpass"})

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after 6 attempts, got %d", lastCode)
	}
}

func TestDepositsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deposits", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMutationWithoutCSRFTokenIsRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "staff", "staff123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/deposits", token, "", map[string]any{
		"date": "2026-02-02", "bank": "HNB", "amount": 100,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDepositLifecycle(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "staff", "staff123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/deposits", token, csrf, map[string]any{
		"date": "2026-02-02", "bank": "HNB", "amount": "1200.50",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Deposit domain.Deposit `json:"deposit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Deposit.Amount != 1200.50 {
		t.Fatalf("string amount not coerced: %v", created.Deposit.Amount)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/deposits/"+created.Deposit.ID, token, csrf, map[string]any{
		"amount": 1500,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/deposits/"+created.Deposit.ID, token, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/deposits/"+created.Deposit.ID, token, csrf, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d", rec.Code)
	}
}

func TestCategoryAndStockSalesFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "staff", "staff123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/categories", token, csrf, map[string]any{"name": "Beer"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var catResp struct {
		Category domain.LiquorCategory `json:"category"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&catResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	catID := catResp.Category.ID

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/categories/"+catID+"/liquors", token, csrf, map[string]any{
		"name": "Lager", "ml": 625, "dozen": 12, "quantity_fields": []any{2, "3"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create liquor: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var subResp struct {
		Liquor domain.SubLiquor `json:"liquor"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&subResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	subID := subResp.Liquor.ID

	rec = doJSON(t, handler, http.MethodPut, fmt.Sprintf("/api/v1/categories/%s/liquors/%s/stock", catID, subID), token, csrf, map[string]any{
		"buying_price": 80, "selling_price": 100, "in_stock": 10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set stock: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/categories/"+catID+"/stock-sales", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var reportResp struct {
		Report domain.StockSalesReport `json:"report"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&reportResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	row := reportResp.Report.Rows[0]
	if row.PurchasingStockTotal != 60 || row.SoldItems != 50 || row.Sale != 5000 || row.InStockBalance != 1000 {
		t.Fatalf("report figures: %+v", row)
	}
}

func TestCloseWeekForbiddenForStaff(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	csrf := csrfToken(t, handler)

	staffToken := loginAs(t, handler, "staff", "staff123")
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/weeks/close", staffToken, csrf, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff close: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	adminToken := loginAs(t, handler, "admin", "admin123")
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/weeks/close", adminToken, csrf, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin close: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/records", adminToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("records: got %d", rec.Code)
	}
	var recordsResp struct {
		Records []domain.WeeklyRecord `json:"records"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&recordsResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recordsResp.Records) != 1 {
		t.Fatalf("records: %d", len(recordsResp.Records))
	}
}

func TestSummaryEndpoint(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "staff", "staff123")
	csrf := csrfToken(t, handler)

	for _, amount := range []float64{100, 250} {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/deposits", token, csrf, map[string]any{
			"date": "2026-02-02", "bank": "HNB", "amount": amount,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("deposit: got %d", rec.Code)
		}
	}
	rec := doJSON(t, handler, http.MethodPut, "/api/v1/summary/salary", token, csrf, map[string]any{"amount": 200})
	if rec.Code != http.StatusOK {
		t.Fatalf("salary: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/summary", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: got %d", rec.Code)
	}
	var sumResp struct {
		Summary domain.Summary `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&sumResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sumResp.Summary.TotalDeposit != 350 || sumResp.Summary.Salary != 200 {
		t.Fatalf("summary: %+v", sumResp.Summary)
	}
	if sumResp.Summary.FinalProfit != -200 {
		t.Fatalf("final profit: got %v want -200", sumResp.Summary.FinalProfit)
	}
}

func TestStaffManagementAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	csrf := csrfToken(t, handler)

	staffToken := loginAs(t, handler, "staff", "staff123")
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/users/staff", staffToken, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff listing users: got %d", rec.Code)
	}

	adminToken := loginAs(t, handler, "admin", "admin123")
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/users/staff", adminToken, csrf, map[string]any{
		"username": "nimal", "password": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create staff: got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// The freshly created account can log in right away.
	loginAs(t, handler, "nimal", "secret123")
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "staff", "staff123")
	csrf := csrfToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/expenses", token, csrf, map[string]any{
		"date": "2026-02-02", "amount": 50, "surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
