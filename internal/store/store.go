package store

import (
	"context"
	"errors"
	"time"

	"pasalsathi/backend/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
	ErrInUse    = errors.New("still referenced")
)

type Repository interface {
	GetShopConfig(ctx context.Context) (*domain.ShopConfig, error)
	CreateShopConfig(ctx context.Context, cfg domain.ShopConfig) (*domain.ShopConfig, error)

	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)

	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	SetProductQuantity(ctx context.Context, id string, quantity int) (*domain.Product, error)
	AdjustProductQuantity(ctx context.Context, id string, delta int) (*domain.Product, error)
	ApplyPurchaseToProduct(ctx context.Context, id string, qty int, unitCost float64) (*domain.Product, error)
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)
	CountActiveProductsByCategory(ctx context.Context, categoryID string) (int, error)
	CountActiveProductsByLocation(ctx context.Context, locationID string) (int, error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeactivateCategory(ctx context.Context, id string) error

	ListLocations(ctx context.Context) ([]domain.Location, error)
	CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error)
	DeactivateLocation(ctx context.Context, id string) error

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeactivateSupplier(ctx context.Context, id string) error

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error)

	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error)

	CreateScanResult(ctx context.Context, scan domain.ScanResult) (*domain.ScanResult, error)
	ListScanResults(ctx context.Context, limit int) ([]domain.ScanResult, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
