package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pasalsathi/backend/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api, _ := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{PIN: "9999"})

	for i := 0; i < 9; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 8 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 8 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 9 expected 429, got %d", res.Code)
		}
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	api, token := newTestAPI(t)
	huge := strings.Repeat("a", (12<<20)+1024)
	body := `{"image_base64":"` + huge + `","mode":"quick"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", res.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api, _ := newTestAPI(t)

	paths := []string{
		"/api/v1/products",
		"/api/v1/sales",
		"/api/v1/users",
		"/api/v1/dashboard/stats",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		api.Handler().ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s expected 401 without token, got %d", path, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer garbage-token")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", res.Code)
	}
}

func TestCashierDeniedRestrictedRoutes(t *testing.T) {
	api, ownerToken := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/users", ownerToken, domain.UserCreateRequest{
		Name: "Hari", PIN: "5678", Role: domain.RoleCashier,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{PIN: "5678"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cashier login expected 200, got %d", rec.Code)
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	restricted := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/purchases"},
		{http.MethodGet, "/api/v1/audit-logs"},
		{http.MethodPost, "/api/v1/scan/update-stock"},
	}
	for _, route := range restricted {
		rec := doJSON(t, api, route.method, route.path, login.AccessToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s expected 403 for cashier, got %d", route.method, route.path, rec.Code)
		}
	}

	// Selling stays open to cashiers.
	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales", login.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cashier sales listing expected 200, got %d", rec.Code)
	}
}

func TestDeactivatedAccountTokenRejected(t *testing.T) {
	api, ownerToken := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/users", ownerToken, domain.UserCreateRequest{
		Name: "Hari", PIN: "5678", Role: domain.RoleCashier,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier expected 201, got %d", rec.Code)
	}
	var created struct {
		User domain.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode user: %v", err)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{PIN: "5678"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cashier login expected 200, got %d", rec.Code)
	}
	var login domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/users/"+created.User.ID, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate expected 200, got %d", rec.Code)
	}

	// The token is still cryptographically valid but the account is gone.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", login.AccessToken, domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{{ProductID: "prod-x", Quantity: 1}},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for deactivated account's token, got %d", rec.Code)
	}
}

func TestPINHashNeverSerialized(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/users", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "$2a$") || strings.Contains(body, "$2b$") || strings.Contains(body, "pin_hash") {
		t.Fatalf("user listing leaked PIN hash material: %s", body)
	}
}
