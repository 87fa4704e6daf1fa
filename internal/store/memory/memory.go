package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"pasalsathi/backend/internal/domain"
	"pasalsathi/backend/internal/store"
	"pasalsathi/backend/internal/xid"
)

type Store struct {
	mu            sync.RWMutex
	shopConfig    *domain.ShopConfig
	usersByID     map[string]domain.User
	productsByID  map[string]domain.Product
	categories    map[string]domain.Category
	locations     map[string]domain.Location
	suppliersByID map[string]domain.Supplier
	salesByID     map[string]domain.Sale
	purchasesByID map[string]domain.Purchase
	scansByID     map[string]domain.ScanResult
	auditLogs     []domain.AuditLog
}

func New() *Store {
	return &Store{
		usersByID:     make(map[string]domain.User),
		productsByID:  make(map[string]domain.Product),
		categories:    make(map[string]domain.Category),
		locations:     make(map[string]domain.Location),
		suppliersByID: make(map[string]domain.Supplier),
		salesByID:     make(map[string]domain.Sale),
		purchasesByID: make(map[string]domain.Purchase),
		scansByID:     make(map[string]domain.ScanResult),
		auditLogs:     make([]domain.AuditLog, 0, 128),
	}
}

// NewSeeded returns a store preloaded with the default category and
// location sets a fresh shop starts with.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, c := range defaultCategories(now) {
		s.categories[c.ID] = c
	}
	for _, l := range defaultLocations(now) {
		s.locations[l.ID] = l
	}
	return s
}

func defaultCategories(now time.Time) []domain.Category {
	return []domain.Category{
		{ID: "steel", NameEN: "Steel Utensils", NameNP: "स्टिल भाँडा", Icon: "pot-steaming", Color: "#6B7280", Active: true, CreatedAt: now},
		{ID: "brass", NameEN: "Brass & Religious", NameNP: "पीतल/पूजा सामान", Icon: "lamp", Color: "#D4AF37", Active: true, CreatedAt: now},
		{ID: "plastic", NameEN: "Plastic Items", NameNP: "प्लास्टिक सामान", Icon: "cup-soda", Color: "#3B82F6", Active: true, CreatedAt: now},
		{ID: "electric", NameEN: "Electric Items", NameNP: "बिजुली सामान", Icon: "zap", Color: "#F59E0B", Active: true, CreatedAt: now},
		{ID: "cleaning", NameEN: "Cleaning Tools", NameNP: "सफाई सामान", Icon: "brush", Color: "#10B981", Active: true, CreatedAt: now},
		{ID: "boxed", NameEN: "Boxed Items", NameNP: "बक्स सामान", Icon: "package", Color: "#8B5CF6", Active: true, CreatedAt: now},
		{ID: "other", NameEN: "Other Items", NameNP: "अन्य सामान", Icon: "grid-3x3", Color: "#6B7280", Active: true, CreatedAt: now},
	}
}

func defaultLocations(now time.Time) []domain.Location {
	return []domain.Location{
		{ID: "hanging", NameEN: "Hanging", NameNP: "झुण्डिएको", Active: true, CreatedAt: now},
		{ID: "shelf_top", NameEN: "Top Shelf", NameNP: "माथि शेल्फ", Active: true, CreatedAt: now},
		{ID: "shelf_bottom", NameEN: "Bottom Shelf", NameNP: "तल शेल्फ", Active: true, CreatedAt: now},
		{ID: "front_display", NameEN: "Front Display", NameNP: "अगाडि राखेको", Active: true, CreatedAt: now},
		{ID: "storage", NameEN: "Storage Room", NameNP: "गोदाम", Active: true, CreatedAt: now},
		{ID: "counter", NameEN: "Counter", NameNP: "काउन्टर", Active: true, CreatedAt: now},
	}
}

func (s *Store) GetShopConfig(_ context.Context) (*domain.ShopConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shopConfig == nil {
		return nil, store.ErrNotFound
	}
	cfg := *s.shopConfig
	return &cfg, nil
}

func (s *Store) CreateShopConfig(_ context.Context, cfg domain.ShopConfig) (*domain.ShopConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shopConfig != nil {
		return nil, store.ErrInvalid
	}
	if cfg.ID == "" {
		cfg.ID = xid.New("shop")
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	cfg.UpdatedAt = cfg.CreatedAt
	saved := cfg
	s.shopConfig = &saved
	result := cfg
	return &result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Name == "" || user.PINHash == "" {
		return nil, store.ErrInvalid
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if _, exists := s.usersByID[user.ID]; exists {
		return nil, store.ErrInvalid
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	created := user
	return &created, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return users, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Name == "" || user.PINHash == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.usersByID[user.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.usersByID[user.ID] = user
	updated := user
	return &updated, nil
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !includeInactive && !p.Active {
			continue
		}
		products = append(products, p)
	}
	sortProductsByName(products)
	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.productsByID[product.ID]; exists {
		return nil, store.ErrInvalid
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true
	s.productsByID[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) SetProductQuantity(_ context.Context, id string, quantity int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Quantity = quantity
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[id] = product
	updated := product
	return &updated, nil
}

// AdjustProductQuantity applies a signed delta with no floor. Sales can
// drive the on-hand count negative; reconciliation corrects it later.
func (s *Store) AdjustProductQuantity(_ context.Context, id string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Quantity += delta
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[id] = product
	updated := product
	return &updated, nil
}

// ApplyPurchaseToProduct increments quantity and overwrites the cost
// price with the latest purchase cost.
func (s *Store) ApplyPurchaseToProduct(_ context.Context, id string, qty int, unitCost float64) (*domain.Product, error) {
	if qty < 1 || unitCost < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Quantity += qty
	product.CostPrice = unitCost
	product.UpdatedAt = time.Now().UTC()
	s.productsByID[id] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListLowStockProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 16)
	for _, p := range s.productsByID {
		if !p.Active || !p.LowStock() {
			continue
		}
		products = append(products, p)
	}
	sortProductsByName(products)
	return products, nil
}

func (s *Store) CountActiveProductsByCategory(_ context.Context, categoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.productsByID {
		if p.Active && p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountActiveProductsByLocation(_ context.Context, locationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.productsByID {
		if p.Active && p.LocationID == locationID {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !c.Active {
			continue
		}
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.NameEN, b.NameEN)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if _, exists := s.categories[category.ID]; exists {
		return nil, store.ErrInvalid
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.Active = true
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) DeactivateCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists || !category.Active {
		return store.ErrNotFound
	}
	category.Active = false
	s.categories[id] = category
	return nil
}

func (s *Store) ListLocations(_ context.Context) ([]domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locations := make([]domain.Location, 0, len(s.locations))
	for _, l := range s.locations {
		if !l.Active {
			continue
		}
		locations = append(locations, l)
	}
	slices.SortFunc(locations, func(a, b domain.Location) int {
		return cmpString(a.NameEN, b.NameEN)
	})
	return locations, nil
}

func (s *Store) CreateLocation(_ context.Context, location domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if location.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	if _, exists := s.locations[location.ID]; exists {
		return nil, store.ErrInvalid
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}
	location.Active = true
	s.locations[location.ID] = location
	created := location
	return &created, nil
}

func (s *Store) DeactivateLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	location, exists := s.locations[id]
	if !exists || !location.Active {
		return store.ErrNotFound
	}
	location.Active = false
	s.locations[id] = location
	return nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrInvalid
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	supplier.Active = true
	s.suppliersByID[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID))
	for _, supplier := range s.suppliersByID {
		if !supplier.Active {
			continue
		}
		suppliers = append(suppliers, supplier)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return cmpString(a.Name, b.Name)
	})
	return suppliers, nil
}

func (s *Store) GetSupplierByID(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, exists := s.suppliersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySupplier := supplier
	return &copySupplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.Name == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.suppliersByID[supplier.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.suppliersByID[supplier.ID] = supplier
	updated := supplier
	return &updated, nil
}

func (s *Store) DeactivateSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier, exists := s.suppliersByID[id]
	if !exists || !supplier.Active {
		return store.ErrNotFound
	}
	supplier.Active = false
	s.suppliersByID[id] = supplier
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	s.salesByID[sale.ID] = cloneSale(sale)
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if !from.IsZero() && sale.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.CreatedAt.Before(to) {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ProductID == "" || purchase.Quantity < 1 {
		return nil, store.ErrInvalid
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	s.purchasesByID[purchase.ID] = purchase
	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(_ context.Context, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Purchase, 0, len(s.purchasesByID))
	for _, purchase := range s.purchasesByID {
		result = append(result, purchase)
	}
	slices.SortFunc(result, func(a, b domain.Purchase) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateScanResult(_ context.Context, scan domain.ScanResult) (*domain.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scan.ID == "" {
		scan.ID = xid.New("scan")
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}
	s.scansByID[scan.ID] = cloneScanResult(scan)
	created := cloneScanResult(scan)
	return &created, nil
}

func (s *Store) ListScanResults(_ context.Context, limit int) ([]domain.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ScanResult, 0, len(s.scansByID))
	for _, scan := range s.scansByID {
		result = append(result, cloneScanResult(scan))
	}
	slices.SortFunc(result, func(a, b domain.ScanResult) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, len(s.auditLogs))
	copy(result, s.auditLogs)
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// sortProductsByName yields the stable catalog order reconciliation
// matching depends on.
func sortProductsByName(products []domain.Product) {
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.NameEN == b.NameEN {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.NameEN, b.NameEN)
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}

func cloneScanResult(src domain.ScanResult) domain.ScanResult {
	dup := src
	items := make([]domain.ItemMatch, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}
