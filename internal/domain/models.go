package domain

import (
	"strings"
	"time"
)

type ShopConfig struct {
	ID        string    `json:"id"`
	ShopName  string    `json:"shop_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is the persistence model for a shop staff account. PINHash is
// never serialized.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PINHash   string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
	Role string `json:"role"`
}

type UserUpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	PIN    *string `json:"pin,omitempty"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type SetupRequest struct {
	ShopName  string `json:"shop_name"`
	OwnerName string `json:"owner_name"`
	PIN       string `json:"pin"`
}

type LoginRequest struct {
	PIN string `json:"pin"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// Actor identifies the authenticated user on a request.
type Actor struct {
	UserID string
	ShopID string
	Role   string
}

type Product struct {
	ID                string    `json:"id"`
	NameEN            string    `json:"name_en"`
	NameNP            string    `json:"name_np"`
	CategoryID        string    `json:"category_id"`
	LocationID        string    `json:"location_id"`
	CostPrice         float64   `json:"cost_price"`
	SellingPrice      float64   `json:"selling_price"`
	Quantity          int       `json:"quantity"`
	QuantityType      string    `json:"quantity_type"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	SupplierID        string    `json:"supplier_id,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LowStock reports whether the product is at or below its threshold.
// Quantity may be negative, which still counts as low.
func (p Product) LowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}

// MatchesName reports whether the detected label and either product name
// contain one another, case-insensitively.
func (p Product) MatchesName(label string) bool {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return false
	}
	for _, name := range []string{p.NameEN, p.NameNP} {
		candidate := strings.ToLower(name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return true
		}
	}
	return false
}

type ProductCreateRequest struct {
	NameEN            string  `json:"name_en"`
	NameNP            string  `json:"name_np"`
	CategoryID        string  `json:"category_id"`
	LocationID        string  `json:"location_id"`
	CostPrice         float64 `json:"cost_price"`
	SellingPrice      float64 `json:"selling_price"`
	Quantity          int     `json:"quantity"`
	QuantityType      string  `json:"quantity_type"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	SupplierID        string  `json:"supplier_id,omitempty"`
}

type ProductUpdateRequest struct {
	NameEN            *string  `json:"name_en,omitempty"`
	NameNP            *string  `json:"name_np,omitempty"`
	CategoryID        *string  `json:"category_id,omitempty"`
	LocationID        *string  `json:"location_id,omitempty"`
	CostPrice         *float64 `json:"cost_price,omitempty"`
	SellingPrice      *float64 `json:"selling_price,omitempty"`
	QuantityType      *string  `json:"quantity_type,omitempty"`
	LowStockThreshold *int     `json:"low_stock_threshold,omitempty"`
	SupplierID        *string  `json:"supplier_id,omitempty"`
	Active            *bool    `json:"active,omitempty"`
}

type StockSetRequest struct {
	Quantity int `json:"quantity"`
}

type Category struct {
	ID        string    `json:"id"`
	NameEN    string    `json:"name_en"`
	NameNP    string    `json:"name_np"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryCreateRequest struct {
	NameEN string `json:"name_en"`
	NameNP string `json:"name_np"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
}

type Location struct {
	ID        string    `json:"id"`
	NameEN    string    `json:"name_en"`
	NameNP    string    `json:"name_np"`
	Icon      string    `json:"icon"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LocationCreateRequest struct {
	NameEN string `json:"name_en"`
	NameNP string `json:"name_np"`
	Icon   string `json:"icon"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type SupplierUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type SaleItem struct {
	ProductID string  `json:"product_id"`
	NameEN    string  `json:"name_en"`
	NameNP    string  `json:"name_np"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type Sale struct {
	ID            string     `json:"id"`
	Items         []SaleItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Discount      float64    `json:"discount"`
	Total         float64    `json:"total"`
	PaymentType   string     `json:"payment_type"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Note          string     `json:"note,omitempty"`
	SoldBy        string     `json:"sold_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

type SaleItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type SaleCreateRequest struct {
	Items         []SaleItemRequest `json:"items"`
	Discount      float64           `json:"discount"`
	PaymentType   string            `json:"payment_type"`
	CustomerName  string            `json:"customer_name,omitempty"`
	CustomerPhone string            `json:"customer_phone,omitempty"`
	Note          string            `json:"note,omitempty"`
}

// SaleLineOutcome reports whether the stock decrement for one sale line
// was applied. The sale itself is committed either way.
type SaleLineOutcome struct {
	ProductID string `json:"product_id"`
	Applied   bool   `json:"applied"`
	Reason    string `json:"reason,omitempty"`
}

type SaleCreateResponse struct {
	Sale         Sale              `json:"sale"`
	StockResults []SaleLineOutcome `json:"stock_results"`
}

type Purchase struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"supplier_id"`
	SupplierName string    `json:"supplier_name"`
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	UnitCost     float64   `json:"unit_cost"`
	TotalCost    float64   `json:"total_cost"`
	Note         string    `json:"note,omitempty"`
	RecordedBy   string    `json:"recorded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type PurchaseCreateRequest struct {
	SupplierID string  `json:"supplier_id"`
	ProductID  string  `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitCost   float64 `json:"unit_cost"`
	Note       string  `json:"note,omitempty"`
}

type DashboardStats struct {
	TodaySalesTotal float64 `json:"today_sales_total"`
	TodaySalesCount int     `json:"today_sales_count"`
	WeekSalesTotal  float64 `json:"week_sales_total"`
	ProductCount    int     `json:"product_count"`
	LowStockCount   int     `json:"low_stock_count"`
	InventoryValue  float64 `json:"inventory_value"`
	GeneratedAt     string  `json:"generated_at"`
}

// DetectedItem is one item the vision model reported on a shelf photo.
// NameNP and LocationHint are best-effort extras the model may omit.
type DetectedItem struct {
	Label        string `json:"label"`
	NameNP       string `json:"name_np,omitempty"`
	Count        int    `json:"count"`
	Category     string `json:"category"`
	Confidence   string `json:"confidence"`
	LocationHint string `json:"location_hint,omitempty"`
}

// ItemMatch is a detected item after catalog reconciliation. Matched is
// false when no product name contained the label; Difference is
// detected count minus current stock and only meaningful when matched.
type ItemMatch struct {
	DetectedItem
	Matched      bool   `json:"matched"`
	ProductID    string `json:"product_id,omitempty"`
	ProductName  string `json:"product_name,omitempty"`
	CurrentStock int    `json:"current_stock"`
	Difference   int    `json:"difference"`
}

type ScanResult struct {
	ID           string      `json:"id"`
	Mode         string      `json:"mode"`
	Items        []ItemMatch `json:"items"`
	TotalCounted int         `json:"total_counted"`
	Notes        string      `json:"notes,omitempty"`
	ScannedBy    string      `json:"scanned_by"`
	CreatedAt    time.Time   `json:"created_at"`
}

type ScanAnalyzeRequest struct {
	ImageBase64 string `json:"image_base64"`
	Mode        string `json:"mode"`
}

type StockUpdateEntry struct {
	ProductID   string `json:"product_id"`
	NewQuantity *int   `json:"new_quantity"`
}

type StockUpdateRequest struct {
	Updates []StockUpdateEntry `json:"updates"`
}

type StockUpdateResponse struct {
	UpdatedCount int      `json:"updated_count"`
	UpdatedIDs   []string `json:"updated_ids"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

const (
	PaymentCash   = "cash"
	PaymentCredit = "credit"
)

const (
	ScanModeQuick = "quick"
	ScanModeSmart = "smart"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// A product's quantity type marks whether its count is a trusted exact
// number or a shopkeeper's estimate; it is not a unit of measure.
const (
	QuantityExact       = "exact"
	QuantityApproximate = "approximate"
)

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleCashier:
		return true
	}
	return false
}

// ValidQuantityType reports whether qt is a known count-trust marker.
func ValidQuantityType(qt string) bool {
	switch qt {
	case QuantityExact, QuantityApproximate:
		return true
	}
	return false
}
