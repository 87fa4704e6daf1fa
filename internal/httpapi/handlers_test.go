package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pasalsathi/backend/internal/domain"
	"pasalsathi/backend/internal/service"
	"pasalsathi/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
// The returned token belongs to the shop owner created during setup.
func newTestAPI(t *testing.T) (*API, string) {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil, 0)
	auth := NewAuthManager("test-secret-key", time.Hour)
	api := New(svc, auth, "*")

	body, _ := json.Marshal(domain.SetupRequest{
		ShopName:  "Test Pasal",
		OwnerName: "Sita",
		PIN:       "1234",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/setup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Auth domain.LoginResponse `json:"auth"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode setup response: %v", err)
	}
	if resp.Auth.AccessToken == "" {
		t.Fatalf("expected access token from setup")
	}
	return api, resp.Auth.AccessToken
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
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

func TestAuthCheckReflectsSetup(t *testing.T) {
	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil, 0)
	api := New(svc, NewAuthManager("test-secret-key", time.Hour), "*")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/auth/check", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["configured"] != false {
		t.Fatalf("expected configured:false before setup")
	}
}

func TestSetupThenLoginFlow(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{PIN: "1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Role != domain.RoleOwner || resp.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{PIN: "9999"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong pin expected 401, got %d", rec.Code)
	}
}

func TestSecondSetupRefused(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/setup", "", domain.SetupRequest{
		ShopName: "Other", OwnerName: "Ram", PIN: "5678",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second setup, got %d", rec.Code)
	}
}

func TestProductLifecycleOverHTTP(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		NameEN:            "Steel Plate",
		CategoryID:        "steel",
		LocationID:        "shelf_top",
		CostPrice:         80,
		SellingPrice:      120,
		Quantity:          10,
		LowStockThreshold: 3,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	rec = doJSON(t, api, http.MethodPut, "/api/v1/products/"+created.Product.ID+"/stock", token, domain.StockSetRequest{Quantity: 25})
	if rec.Code != http.StatusOK {
		t.Fatalf("set stock expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products/"+created.Product.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product expected 200, got %d", rec.Code)
	}
	var fetched struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if fetched.Product.Quantity != 25 {
		t.Fatalf("expected quantity 25 after set, got %d", fetched.Product.Quantity)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/products/"+created.Product.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete product expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, "/api/v1/products", token, nil)
	var listing struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
		t.Fatalf("decode products: %v", err)
	}
	if len(listing.Products) != 0 {
		t.Fatalf("expected deactivated product hidden from listing, got %d", len(listing.Products))
	}
}

func TestCategoryDeleteConflictOverHTTP(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		NameEN:     "Steel Karai",
		CategoryID: "steel",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/categories/steel", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while category referenced, got %d", rec.Code)
	}
}

func TestSupplierLifecycleOverHTTP(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/suppliers", token, domain.SupplierCreateRequest{
		Name:  "Thamel Traders",
		Phone: "9800000000",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create supplier expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Supplier domain.Supplier `json:"supplier"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode supplier: %v", err)
	}

	phone := "9811111111"
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/suppliers/"+created.Supplier.ID, token, domain.SupplierUpdateRequest{Phone: &phone})
	if rec.Code != http.StatusOK {
		t.Fatalf("update supplier expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Supplier domain.Supplier `json:"supplier"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode supplier: %v", err)
	}
	if updated.Supplier.Phone != phone {
		t.Fatalf("expected phone updated, got %q", updated.Supplier.Phone)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/suppliers/"+created.Supplier.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete supplier expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodGet, "/api/v1/suppliers", token, nil)
	var listing struct {
		Suppliers []domain.Supplier `json:"suppliers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
		t.Fatalf("decode suppliers: %v", err)
	}
	if len(listing.Suppliers) != 0 {
		t.Fatalf("expected deleted supplier hidden from listing, got %d", len(listing.Suppliers))
	}
}

func TestSaleEndpointRecordsAndLists(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		NameEN: "Brass Diyo", CategoryID: "brass", SellingPrice: 50, Quantity: 5,
	})
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{
		Items: []domain.SaleItemRequest{{ProductID: created.Product.ID, Quantity: 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.SaleCreateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if resp.Sale.Total != 100 {
		t.Fatalf("expected total 100, got %.2f", resp.Sale.Total)
	}
	if len(resp.StockResults) != 1 || !resp.StockResults[0].Applied {
		t.Fatalf("expected stock decrement applied: %+v", resp.StockResults)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/sales/today", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("today sales expected 200, got %d", rec.Code)
	}
	var today struct {
		Sales []domain.Sale `json:"sales"`
		Total float64       `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&today); err != nil {
		t.Fatalf("decode today sales: %v", err)
	}
	if len(today.Sales) != 1 || today.Total != 100 {
		t.Fatalf("expected one sale totalling 100, got %d / %.2f", len(today.Sales), today.Total)
	}
}

func TestScanUpdateStockEndpoint(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		NameEN: "Steel Plate", CategoryID: "steel", Quantity: 4,
	})
	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	seven := 7
	rec = doJSON(t, api, http.MethodPost, "/api/v1/scan/update-stock", token, domain.StockUpdateRequest{
		Updates: []domain.StockUpdateEntry{
			{ProductID: created.Product.ID, NewQuantity: &seven},
			{ProductID: "", NewQuantity: &seven},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update stock expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.StockUpdateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UpdatedCount != 1 || len(resp.UpdatedIDs) != 1 {
		t.Fatalf("expected exactly one update applied, got %+v", resp)
	}
}

func TestScanAnalyzeWithoutModelReturns502(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/scan/analyze", token, domain.ScanAnalyzeRequest{
		ImageBase64: "aGVsbG8=",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 with no vision model configured, got %d", rec.Code)
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	api, token := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/dashboard/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats expected 200, got %d", rec.Code)
	}
	var stats domain.DashboardStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.GeneratedAt == "" {
		t.Fatalf("expected generated_at to be set")
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	api, token := newTestAPI(t)

	body := []byte(`{"name_en":"X","bogus_field":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
