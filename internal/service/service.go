package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pasalsathi/backend/internal/cache"
	"pasalsathi/backend/internal/domain"
	"pasalsathi/backend/internal/reconcile"
	"pasalsathi/backend/internal/store"
	"pasalsathi/backend/internal/vision"
	"pasalsathi/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	analyzer vision.Analyzer
	stats    cache.StatsCache
	statsTTL time.Duration
}

func New(repo store.Repository, analyzer vision.Analyzer, statsCache cache.StatsCache, statsTTL time.Duration) *Service {
	if statsCache == nil {
		statsCache = cache.NoopStatsCache{}
	}
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}

	return &Service{
		repo:     repo,
		analyzer: analyzer,
		stats:    statsCache,
		statsTTL: statsTTL,
	}
}

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

func validPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

func hashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ShopConfigured reports whether first-run setup has completed.
func (s *Service) ShopConfigured(ctx context.Context) (bool, *domain.ShopConfig, error) {
	cfg, err := s.repo.GetShopConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return true, cfg, nil
}

// SetupShop creates the shop config and the first owner account in one
// step. Refused once the shop is configured.
func (s *Service) SetupShop(ctx context.Context, req domain.SetupRequest) (*domain.ShopConfig, *domain.User, error) {
	req.ShopName = strings.TrimSpace(req.ShopName)
	req.OwnerName = strings.TrimSpace(req.OwnerName)
	if req.ShopName == "" || req.OwnerName == "" {
		return nil, nil, fmt.Errorf("%w: shop name and owner name are required", store.ErrInvalid)
	}
	if !validPIN(req.PIN) {
		return nil, nil, fmt.Errorf("%w: pin must be 4 to 6 digits", store.ErrInvalid)
	}

	if configured, _, err := s.ShopConfigured(ctx); err != nil {
		return nil, nil, err
	} else if configured {
		return nil, nil, fmt.Errorf("%w: shop already configured", store.ErrInvalid)
	}

	cfg, err := s.repo.CreateShopConfig(ctx, domain.ShopConfig{
		ID:       xid.New("shop"),
		ShopName: req.ShopName,
	})
	if err != nil {
		return nil, nil, err
	}

	pinHash, err := hashPIN(req.PIN)
	if err != nil {
		return nil, nil, err
	}
	owner, err := s.repo.CreateUser(ctx, domain.User{
		ID:      xid.New("user"),
		Name:    req.OwnerName,
		PINHash: pinHash,
		Role:    domain.RoleOwner,
		Active:  true,
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[service] shop %q configured with owner %s", cfg.ShopName, owner.ID)
	return cfg, owner, nil
}

// Login verifies a PIN against every active account and returns the
// first match. Comparison always runs through bcrypt so a failed login
// costs the same as a successful one.
func (s *Service) Login(ctx context.Context, pin string) (*domain.User, error) {
	if !validPIN(pin) {
		return nil, ErrInvalidCredentials
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, user := range users {
		if !user.Active {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(pin)) == nil {
			matched := user
			return &matched, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (*domain.User, error) {
	actor, err := s.authorize(ctx, OpManageUsers)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", store.ErrInvalid)
	}
	if !domain.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrInvalid, req.Role)
	}
	if !validPIN(req.PIN) {
		return nil, fmt.Errorf("%w: pin must be 4 to 6 digits", store.ErrInvalid)
	}

	pinHash, err := hashPIN(req.PIN)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		ID:      xid.New("user"),
		Name:    req.Name,
		PINHash: pinHash,
		Role:    req.Role,
		Active:  true,
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "user_create", "user", created.ID, fmt.Sprintf("name=%s,role=%s,by=%s", created.Name, created.Role, actor.UserID))
	return created, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := s.authorize(ctx, OpListUsers); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (*domain.User, error) {
	actor, err := s.authorize(ctx, OpManageUsers)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", store.ErrInvalid)
		}
		updated.Name = name
	}
	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", store.ErrInvalid, *req.Role)
		}
		updated.Role = *req.Role
	}
	if req.PIN != nil {
		if !validPIN(*req.PIN) {
			return nil, fmt.Errorf("%w: pin must be 4 to 6 digits", store.ErrInvalid)
		}
		pinHash, err := hashPIN(*req.PIN)
		if err != nil {
			return nil, err
		}
		updated.PINHash = pinHash
	}
	if req.Active != nil {
		if !*req.Active && actor.UserID == id {
			return nil, fmt.Errorf("%w: cannot deactivate own account", ErrPermissionDenied)
		}
		updated.Active = *req.Active
	}

	// Demoting or deactivating an owner must leave another active owner.
	losesOwner := existing.Active && existing.Role == domain.RoleOwner &&
		(!updated.Active || updated.Role != domain.RoleOwner)
	if losesOwner {
		if err := s.ensureAnotherActiveOwner(ctx, id); err != nil {
			return nil, err
		}
	}

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "user_update", "user", saved.ID, fmt.Sprintf("role=%s,active=%t", saved.Role, saved.Active))
	return saved, nil
}

// DeactivateUser soft-deletes an account. Self-deactivation is always
// denied, and the last active owner can never be removed.
func (s *Service) DeactivateUser(ctx context.Context, id string) error {
	actor, err := s.authorize(ctx, OpManageUsers)
	if err != nil {
		return err
	}
	if actor.UserID == id {
		return fmt.Errorf("%w: cannot deactivate own account", ErrPermissionDenied)
	}

	existing, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Active && existing.Role == domain.RoleOwner {
		if err := s.ensureAnotherActiveOwner(ctx, id); err != nil {
			return err
		}
	}

	updated := *existing
	updated.Active = false
	if _, err := s.repo.UpdateUser(ctx, updated); err != nil {
		return err
	}
	s.logAudit(ctx, "user_deactivate", "user", id, "")
	return nil
}

func (s *Service) ensureAnotherActiveOwner(ctx context.Context, excludeID string) error {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, user := range users {
		if user.ID == excludeID {
			continue
		}
		if user.Active && user.Role == domain.RoleOwner {
			return nil
		}
	}
	return fmt.Errorf("%w: shop must keep at least one active owner", store.ErrInvalid)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.authorize(ctx, OpViewCatalog); err != nil {
		return nil, err
	}
	return s.repo.ListProducts(ctx, false)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := s.authorize(ctx, OpViewCatalog); err != nil {
		return nil, err
	}
	return s.repo.GetProductByID(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	actor, err := s.authorize(ctx, OpManageCatalog)
	if err != nil {
		return nil, err
	}

	req.NameEN = strings.TrimSpace(req.NameEN)
	req.NameNP = strings.TrimSpace(req.NameNP)
	if req.NameEN == "" {
		return nil, fmt.Errorf("%w: english name is required", store.ErrInvalid)
	}
	if req.CostPrice < 0 || req.SellingPrice < 0 {
		return nil, fmt.Errorf("%w: prices cannot be negative", store.ErrInvalid)
	}
	if req.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: low stock threshold cannot be negative", store.ErrInvalid)
	}
	if req.QuantityType == "" {
		req.QuantityType = domain.QuantityExact
	}
	if !domain.ValidQuantityType(req.QuantityType) {
		return nil, fmt.Errorf("%w: unknown quantity type %q", store.ErrInvalid, req.QuantityType)
	}
	if err := s.checkCategoryAndLocation(ctx, req.CategoryID, req.LocationID); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:                xid.New("prod"),
		NameEN:            req.NameEN,
		NameNP:            req.NameNP,
		CategoryID:        req.CategoryID,
		LocationID:        req.LocationID,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		Quantity:          req.Quantity,
		QuantityType:      req.QuantityType,
		LowStockThreshold: req.LowStockThreshold,
		SupplierID:        req.SupplierID,
		Active:            true,
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,qty=%d,by=%s", created.NameEN, created.Quantity, actor.UserID))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.NameEN != nil {
		name := strings.TrimSpace(*req.NameEN)
		if name == "" {
			return nil, fmt.Errorf("%w: english name is required", store.ErrInvalid)
		}
		updated.NameEN = name
	}
	if req.NameNP != nil {
		updated.NameNP = strings.TrimSpace(*req.NameNP)
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.LocationID != nil {
		updated.LocationID = *req.LocationID
	}
	if req.CategoryID != nil || req.LocationID != nil {
		if err := s.checkCategoryAndLocation(ctx, updated.CategoryID, updated.LocationID); err != nil {
			return nil, err
		}
	}
	if req.CostPrice != nil {
		if *req.CostPrice < 0 {
			return nil, fmt.Errorf("%w: prices cannot be negative", store.ErrInvalid)
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return nil, fmt.Errorf("%w: prices cannot be negative", store.ErrInvalid)
		}
		updated.SellingPrice = *req.SellingPrice
	}
	if req.QuantityType != nil {
		if !domain.ValidQuantityType(*req.QuantityType) {
			return nil, fmt.Errorf("%w: unknown quantity type %q", store.ErrInvalid, *req.QuantityType)
		}
		updated.QuantityType = *req.QuantityType
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("%w: low stock threshold cannot be negative", store.ErrInvalid)
		}
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	if req.SupplierID != nil {
		updated.SupplierID = *req.SupplierID
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t", saved.Active))
	return saved, nil
}

func (s *Service) DeactivateProduct(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, domain.ProductUpdateRequest{Active: &inactive})
	return err
}

func (s *Service) checkCategoryAndLocation(ctx context.Context, categoryID string, locationID string) error {
	if categoryID != "" {
		categories, err := s.repo.ListCategories(ctx)
		if err != nil {
			return err
		}
		if !containsCategory(categories, categoryID) {
			return fmt.Errorf("%w: unknown category %q", store.ErrInvalid, categoryID)
		}
	}
	if locationID != "" {
		locations, err := s.repo.ListLocations(ctx)
		if err != nil {
			return err
		}
		if !containsLocation(locations, locationID) {
			return fmt.Errorf("%w: unknown location %q", store.ErrInvalid, locationID)
		}
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if _, err := s.authorize(ctx, OpViewCatalog); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (*domain.Category, error) {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return nil, err
	}
	req.NameEN = strings.TrimSpace(req.NameEN)
	if req.NameEN == "" {
		return nil, fmt.Errorf("%w: english name is required", store.ErrInvalid)
	}
	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:     xid.New("cat"),
		NameEN: req.NameEN,
		NameNP: strings.TrimSpace(req.NameNP),
		Color:  req.Color,
		Icon:   req.Icon,
		Active: true,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, created.NameEN)
	return created, nil
}

// DeleteCategory soft-deletes a category. Refused while any active
// product still references it.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return err
	}
	count, err := s.repo.CountActiveProductsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d active products still use this category", store.ErrInUse, count)
	}
	if err := s.repo.DeactivateCategory(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "category_delete", "category", id, "")
	return nil
}

func (s *Service) ListLocations(ctx context.Context) ([]domain.Location, error) {
	if _, err := s.authorize(ctx, OpViewCatalog); err != nil {
		return nil, err
	}
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateLocation(ctx context.Context, req domain.LocationCreateRequest) (*domain.Location, error) {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return nil, err
	}
	req.NameEN = strings.TrimSpace(req.NameEN)
	if req.NameEN == "" {
		return nil, fmt.Errorf("%w: english name is required", store.ErrInvalid)
	}
	created, err := s.repo.CreateLocation(ctx, domain.Location{
		ID:     xid.New("loc"),
		NameEN: req.NameEN,
		NameNP: strings.TrimSpace(req.NameNP),
		Icon:   req.Icon,
		Active: true,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "location_create", "location", created.ID, created.NameEN)
	return created, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return err
	}
	count, err := s.repo.CountActiveProductsByLocation(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d active products still use this location", store.ErrInUse, count)
	}
	if err := s.repo.DeactivateLocation(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "location_delete", "location", id, "")
	return nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: supplier name is required", store.ErrInvalid)
	}
	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		ID:      xid.New("sup"),
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Active:  true,
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "supplier_create", "supplier", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	if _, err := s.authorize(ctx, OpViewCatalog); err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierUpdateRequest) (*domain.Supplier, error) {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: supplier name is required", store.ErrInvalid)
		}
		updated.Name = name
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "supplier_update", "supplier", saved.ID, saved.Name)
	return saved, nil
}

// DeleteSupplier soft-deletes a supplier. Products referencing it keep
// the id; purchases carry their own name snapshot.
func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, OpManageCatalog); err != nil {
		return err
	}
	if err := s.repo.DeactivateSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "supplier_delete", "supplier", id, "")
	return nil
}

// RecordSale persists the sale first, then applies per-line stock
// decrements best effort. A failed decrement never rolls back the sale
// or blocks other lines, and there is no negative-stock guard; the
// count is corrected later by a shelf scan or a manual set.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.SaleCreateResponse, error) {
	actor, err := s.authorize(ctx, OpRecordSale)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale needs at least one item", store.ErrInvalid)
	}
	if req.PaymentType == "" {
		req.PaymentType = domain.PaymentCash
	}
	if req.PaymentType != domain.PaymentCash && req.PaymentType != domain.PaymentCredit {
		return nil, fmt.Errorf("%w: unknown payment type %q", store.ErrInvalid, req.PaymentType)
	}
	if req.Discount < 0 {
		return nil, fmt.Errorf("%w: discount cannot be negative", store.ErrInvalid)
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	subtotal := 0.0
	for _, line := range req.Items {
		if line.ProductID == "" || line.Quantity < 1 {
			return nil, fmt.Errorf("%w: each line needs a product and a positive quantity", store.ErrInvalid)
		}
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %s is inactive", store.ErrInvalid, product.ID)
		}
		unitPrice := line.UnitPrice
		if unitPrice <= 0 {
			unitPrice = product.SellingPrice
		}
		lineTotal := unitPrice * float64(line.Quantity)
		items = append(items, domain.SaleItem{
			ProductID: product.ID,
			NameEN:    product.NameEN,
			NameNP:    product.NameNP,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		subtotal += lineTotal
	}
	if req.Discount > subtotal {
		return nil, fmt.Errorf("%w: discount exceeds subtotal", store.ErrInvalid)
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		ID:            xid.New("sale"),
		Items:         items,
		Subtotal:      subtotal,
		Discount:      req.Discount,
		Total:         subtotal - req.Discount,
		PaymentType:   req.PaymentType,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Note:          strings.TrimSpace(req.Note),
		SoldBy:        actor.UserID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.SaleLineOutcome, 0, len(items))
	for _, item := range items {
		outcome := domain.SaleLineOutcome{ProductID: item.ProductID, Applied: true}
		if _, err := s.repo.AdjustProductQuantity(ctx, item.ProductID, -item.Quantity); err != nil {
			log.Printf("[service] WARN: stock decrement failed sale=%s product=%s: %v", sale.ID, item.ProductID, err)
			outcome.Applied = false
			outcome.Reason = "stock update failed"
		}
		outcomes = append(outcomes, outcome)
	}

	s.logAudit(ctx, "sale_record", "sale", sale.ID, fmt.Sprintf("items=%d,total=%.2f,payment=%s", len(items), sale.Total, sale.PaymentType))
	return &domain.SaleCreateResponse{Sale: *sale, StockResults: outcomes}, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if _, err := s.authorize(ctx, OpViewReports); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSales(ctx, time.Time{}, time.Time{}, limit)
}

func (s *Service) TodaySales(ctx context.Context) ([]domain.Sale, error) {
	if _, err := s.authorize(ctx, OpViewReports); err != nil {
		return nil, err
	}
	from := startOfDayUTC(time.Now().UTC())
	return s.repo.ListSales(ctx, from, from.Add(24*time.Hour), 0)
}

// RecordPurchase writes the purchase row, then bumps product quantity
// and overwrites cost price with the latest unit cost. A failure on the
// product update is logged but the purchase row is kept; the gap shows
// up in purchase history and gets fixed by a stock set.
func (s *Service) RecordPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	actor, err := s.authorize(ctx, OpRecordPurchase)
	if err != nil {
		return nil, err
	}

	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive", store.ErrInvalid)
	}
	if req.UnitCost < 0 {
		return nil, fmt.Errorf("%w: unit cost cannot be negative", store.ErrInvalid)
	}

	supplier, err := s.repo.GetSupplierByID(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	purchase, err := s.repo.CreatePurchase(ctx, domain.Purchase{
		ID:           xid.New("pur"),
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		ProductID:    product.ID,
		ProductName:  product.NameEN,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		TotalCost:    req.UnitCost * float64(req.Quantity),
		Note:         strings.TrimSpace(req.Note),
		RecordedBy:   actor.UserID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.ApplyPurchaseToProduct(ctx, product.ID, req.Quantity, req.UnitCost); err != nil {
		log.Printf("[service] WARN: product update failed purchase=%s product=%s: %v", purchase.ID, product.ID, err)
	}

	s.logAudit(ctx, "purchase_record", "purchase", purchase.ID, fmt.Sprintf("product=%s,qty=%d,cost=%.2f", product.ID, req.Quantity, req.UnitCost))
	return purchase, nil
}

func (s *Service) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if _, err := s.authorize(ctx, OpRecordPurchase); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListPurchases(ctx, limit)
}

// SetStock overwrites the on-hand quantity of one product. Negative
// values are allowed; the count is whatever the shopkeeper says it is.
func (s *Service) SetStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	if _, err := s.authorize(ctx, OpSetStock); err != nil {
		return nil, err
	}
	updated, err := s.repo.SetProductQuantity(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "stock_set", "product", productID, fmt.Sprintf("qty=%d", quantity))
	return updated, nil
}

func (s *Service) LowStockProducts(ctx context.Context) ([]domain.Product, error) {
	if _, err := s.authorize(ctx, OpViewReports); err != nil {
		return nil, err
	}
	return s.repo.ListLowStockProducts(ctx)
}

const statsCacheKey = "pasal:stats:dashboard"

func (s *Service) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if _, err := s.authorize(ctx, OpViewReports); err != nil {
		return nil, err
	}
	if cached, ok, err := s.stats.Get(ctx, statsCacheKey); err == nil && ok {
		return cached, nil
	}

	now := time.Now().UTC()
	dayStart := startOfDayUTC(now)
	weekStart := dayStart.Add(-6 * 24 * time.Hour)

	todaySales, err := s.repo.ListSales(ctx, dayStart, dayStart.Add(24*time.Hour), 0)
	if err != nil {
		return nil, err
	}
	weekSales, err := s.repo.ListSales(ctx, weekStart, dayStart.Add(24*time.Hour), 0)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}

	stats := domain.DashboardStats{
		TodaySalesCount: len(todaySales),
		GeneratedAt:     now.Format(time.RFC3339),
	}
	for _, sale := range todaySales {
		stats.TodaySalesTotal += sale.Total
	}
	for _, sale := range weekSales {
		stats.WeekSalesTotal += sale.Total
	}
	for _, product := range products {
		stats.ProductCount++
		if product.LowStock() {
			stats.LowStockCount++
		}
		stats.InventoryValue += float64(product.Quantity) * product.CostPrice
	}

	if err := s.stats.Set(ctx, statsCacheKey, &stats, s.statsTTL); err != nil {
		log.Printf("[service] WARN: stats cache write failed: %v", err)
	}
	return &stats, nil
}

// AnalyzeScan sends a shelf photo to the vision model, reconciles the
// detected items against the catalog, and stores the result. Nothing
// touches stock here; that waits for ApplyScanUpdates.
func (s *Service) AnalyzeScan(ctx context.Context, req domain.ScanAnalyzeRequest) (*domain.ScanResult, error) {
	actor, err := s.authorize(ctx, OpScanShelf)
	if err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, vision.ErrUnavailable
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		return nil, fmt.Errorf("%w: image is required", store.ErrInvalid)
	}
	if req.Mode == "" {
		req.Mode = domain.ScanModeQuick
	}
	if req.Mode != domain.ScanModeQuick && req.Mode != domain.ScanModeSmart {
		return nil, fmt.Errorf("%w: unknown scan mode %q", store.ErrInvalid, req.Mode)
	}

	analysis, err := s.analyzer.AnalyzeImage(ctx, req.ImageBase64, req.Mode)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}

	scan, err := s.repo.CreateScanResult(ctx, domain.ScanResult{
		ID:           xid.New("scan"),
		Mode:         req.Mode,
		Items:        reconcile.MatchItems(analysis.Items, products),
		TotalCounted: analysis.TotalCounted,
		Notes:        analysis.Notes,
		ScannedBy:    actor.UserID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "scan_analyze", "scan", scan.ID, fmt.Sprintf("mode=%s,items=%d", scan.Mode, len(scan.Items)))
	return scan, nil
}

func (s *Service) ListScans(ctx context.Context, limit int) ([]domain.ScanResult, error) {
	if _, err := s.authorize(ctx, OpScanShelf); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 20
	}
	return s.repo.ListScanResults(ctx, limit)
}

// ApplyScanUpdates is the explicit confirm step after a scan: nothing
// changes stock until the user sends the new counts back. Entries
// missing a product id or quantity are skipped, and a failed entry
// never blocks the rest of the batch; the response reports exactly
// which products changed.
func (s *Service) ApplyScanUpdates(ctx context.Context, req domain.StockUpdateRequest) (*domain.StockUpdateResponse, error) {
	if _, err := s.authorize(ctx, OpSetStock); err != nil {
		return nil, err
	}

	resp := domain.StockUpdateResponse{UpdatedIDs: make([]string, 0, len(req.Updates))}
	for _, update := range req.Updates {
		if update.ProductID == "" || update.NewQuantity == nil {
			continue
		}
		if _, err := s.repo.SetProductQuantity(ctx, update.ProductID, *update.NewQuantity); err != nil {
			log.Printf("[service] WARN: scan update skipped product=%s: %v", update.ProductID, err)
			continue
		}
		resp.UpdatedIDs = append(resp.UpdatedIDs, update.ProductID)
	}
	resp.UpdatedCount = len(resp.UpdatedIDs)

	if resp.UpdatedCount > 0 {
		s.logAudit(ctx, "scan_apply", "scan", "", fmt.Sprintf("updated=%d", resp.UpdatedCount))
	}
	return &resp, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if _, err := s.authorize(ctx, OpViewAuditLog); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:         xid.New("audit"),
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}

func startOfDayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func containsCategory(categories []domain.Category, id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func containsLocation(locations []domain.Location, id string) bool {
	for _, l := range locations {
		if l.ID == id {
			return true
		}
	}
	return false
}
