package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pasalsathi/backend/internal/domain"
	"pasalsathi/backend/internal/store"
	"pasalsathi/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetShopConfig(ctx context.Context) (*domain.ShopConfig, error) {
	var cfg domain.ShopConfig
	err := s.db.QueryRowContext(ctx, `
		SELECT id, shop_name, created_at, updated_at
		FROM shop_config
		ORDER BY created_at
		LIMIT 1
	`).Scan(&cfg.ID, &cfg.ShopName, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	cfg.CreatedAt = cfg.CreatedAt.UTC()
	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return &cfg, nil
}

func (s *Store) CreateShopConfig(ctx context.Context, cfg domain.ShopConfig) (*domain.ShopConfig, error) {
	if cfg.ID == "" {
		cfg.ID = xid.New("shop")
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	cfg.UpdatedAt = cfg.CreatedAt

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shop_config)`).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrInvalid
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_config (id, shop_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4)
	`, cfg.ID, cfg.ShopName, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created := cfg
	return &created, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.Name == "" || user.PINHash == "" {
		return nil, store.ErrInvalid
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, pin_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Name, user.PINHash, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, pin_hash, role, active, created_at
		FROM users
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.PINHash, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, pin_hash, role, active, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.PINHash, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.Name == "" || user.PINHash == "" {
		return nil, store.ErrInvalid
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, pin_hash = $3, role = $4, active = $5
		WHERE id = $1
	`, user.ID, user.Name, user.PINHash, user.Role, user.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := user
	return &updated, nil
}

const productColumns = `
	id, name_en, name_np, category_id, location_id, cost_price, selling_price,
	quantity, quantity_type, low_stock_threshold, supplier_id, active, created_at, updated_at
`

func scanProduct(scanner interface{ Scan(dest ...any) error }) (domain.Product, error) {
	var p domain.Product
	var supplierID sql.NullString
	err := scanner.Scan(
		&p.ID, &p.NameEN, &p.NameNP, &p.CategoryID, &p.LocationID,
		&p.CostPrice, &p.SellingPrice, &p.Quantity, &p.QuantityType,
		&p.LowStockThreshold, &supplierID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	if supplierID.Valid {
		p.SupplierID = supplierID.String
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active = true ORDER BY name_en, id`
	if includeInactive {
		query = `SELECT ` + productColumns + ` FROM products ORDER BY name_en, id`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name_en, name_np, category_id, location_id, cost_price, selling_price,
			quantity, quantity_type, low_stock_threshold, supplier_id, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, product.ID, product.NameEN, product.NameNP, product.CategoryID, product.LocationID,
		product.CostPrice, product.SellingPrice, product.Quantity, product.QuantityType,
		product.LowStockThreshold, nullIfEmpty(product.SupplierID), product.Active,
		product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.NameEN == "" {
		return nil, store.ErrInvalid
	}
	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name_en = $2, name_np = $3, category_id = $4, location_id = $5,
			cost_price = $6, selling_price = $7, quantity_type = $8,
			low_stock_threshold = $9, supplier_id = $10, active = $11, updated_at = $12
		WHERE id = $1
	`, product.ID, product.NameEN, product.NameNP, product.CategoryID, product.LocationID,
		product.CostPrice, product.SellingPrice, product.QuantityType,
		product.LowStockThreshold, nullIfEmpty(product.SupplierID), product.Active, product.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) SetProductQuantity(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, quantity)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) AdjustProductQuantity(ctx context.Context, id string, delta int) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, delta)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ApplyPurchaseToProduct(ctx context.Context, id string, qty int, unitCost float64) (*domain.Product, error) {
	if qty < 1 || unitCost < 0 {
		return nil, store.ErrInvalid
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET quantity = quantity + $2, cost_price = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, id, qty, unitCost)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND quantity <= low_stock_threshold
		ORDER BY name_en, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CountActiveProductsByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE active = true AND category_id = $1
	`, categoryID).Scan(&count)
	return count, err
}

func (s *Store) CountActiveProductsByLocation(ctx context.Context, locationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE active = true AND location_id = $1
	`, locationID).Scan(&count)
	return count, err
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name_en, name_np, color, icon, active, created_at
		FROM categories
		WHERE active = true
		ORDER BY name_en
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.NameEN, &c.NameNP, &c.Color, &c.Icon, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	category.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name_en, name_np, color, icon, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, category.ID, category.NameEN, category.NameNP, category.Color, category.Icon, category.Active, category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := category
	return &created, nil
}

func (s *Store) DeactivateCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET active = false WHERE id = $1 AND active = true
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name_en, name_np, icon, active, created_at
		FROM locations
		WHERE active = true
		ORDER BY name_en
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]domain.Location, 0, 8)
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.NameEN, &l.NameNP, &l.Icon, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.CreatedAt = l.CreatedAt.UTC()
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return locations, nil
}

func (s *Store) CreateLocation(ctx context.Context, location domain.Location) (*domain.Location, error) {
	if location.NameEN == "" {
		return nil, store.ErrInvalid
	}
	if location.ID == "" {
		location.ID = xid.New("loc")
	}
	if location.CreatedAt.IsZero() {
		location.CreatedAt = time.Now().UTC()
	}
	location.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, name_en, name_np, icon, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, location.ID, location.NameEN, location.NameNP, location.Icon, location.Active, location.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}
	created := location
	return &created, nil
}

func (s *Store) DeactivateLocation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE locations SET active = false WHERE id = $1 AND active = true
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, phone, address, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, supplier.ID, supplier.Name, supplier.Phone, supplier.Address, supplier.Active, supplier.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, active, created_at
		FROM suppliers
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var supplier domain.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Phone, &supplier.Address, &supplier.Active, &supplier.CreatedAt); err != nil {
			return nil, err
		}
		supplier.CreatedAt = supplier.CreatedAt.UTC()
		suppliers = append(suppliers, supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalid
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, phone = $3, address = $4, active = $5
		WHERE id = $1
	`, supplier.ID, supplier.Name, supplier.Phone, supplier.Address, supplier.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := supplier
	return &updated, nil
}

func (s *Store) DeactivateSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers SET active = false WHERE id = $1 AND active = true
	`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSupplierByID(ctx context.Context, id string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, address, active, created_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&supplier.ID, &supplier.Name, &supplier.Phone, &supplier.Address, &supplier.Active, &supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	supplier.CreatedAt = supplier.CreatedAt.UTC()
	return &supplier, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (
			id, items, subtotal, discount, total, payment_type,
			customer_name, customer_phone, note, sold_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sale.ID, itemsJSON, sale.Subtotal, sale.Discount, sale.Total, sale.PaymentType,
		nullIfEmpty(sale.CustomerName), nullIfEmpty(sale.CustomerPhone), nullIfEmpty(sale.Note), sale.SoldBy, sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, items, subtotal, discount, total, payment_type, customer_name, customer_phone, note, sold_by, created_at
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, nullTimeValue(from), nullTimeValue(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		var sale domain.Sale
		var itemsRaw []byte
		var customerName sql.NullString
		var customerPhone sql.NullString
		var note sql.NullString
		if err := rows.Scan(&sale.ID, &itemsRaw, &sale.Subtotal, &sale.Discount, &sale.Total, &sale.PaymentType, &customerName, &customerPhone, &note, &sale.SoldBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		if customerName.Valid {
			sale.CustomerName = customerName.String
		}
		if customerPhone.Valid {
			sale.CustomerPhone = customerPhone.String
		}
		if note.Valid {
			sale.Note = note.String
		}
		if len(itemsRaw) > 0 {
			if err := json.Unmarshal(itemsRaw, &sale.Items); err != nil {
				return nil, err
			}
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.ProductID == "" || purchase.Quantity < 1 {
		return nil, store.ErrInvalid
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (
			id, supplier_id, supplier_name, product_id, product_name,
			quantity, unit_cost, total_cost, note, recorded_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, purchase.ID, purchase.SupplierID, purchase.SupplierName, purchase.ProductID, purchase.ProductName,
		purchase.Quantity, purchase.UnitCost, purchase.TotalCost, nullIfEmpty(purchase.Note), purchase.RecordedBy, purchase.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) ListPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, supplier_name, product_id, product_name,
			quantity, unit_cost, total_cost, note, recorded_by, created_at
		FROM purchases
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, limit)
	for rows.Next() {
		var purchase domain.Purchase
		var note sql.NullString
		if err := rows.Scan(&purchase.ID, &purchase.SupplierID, &purchase.SupplierName, &purchase.ProductID, &purchase.ProductName,
			&purchase.Quantity, &purchase.UnitCost, &purchase.TotalCost, &note, &purchase.RecordedBy, &purchase.CreatedAt); err != nil {
			return nil, err
		}
		if note.Valid {
			purchase.Note = note.String
		}
		purchase.CreatedAt = purchase.CreatedAt.UTC()
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) CreateScanResult(ctx context.Context, scan domain.ScanResult) (*domain.ScanResult, error) {
	if scan.ID == "" {
		scan.ID = xid.New("scan")
	}
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}
	itemsJSON, err := json.Marshal(scan.Items)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (id, mode, items, total_counted, notes, scanned_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, scan.ID, scan.Mode, itemsJSON, scan.TotalCounted, nullIfEmpty(scan.Notes), scan.ScannedBy, scan.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := scan
	return &created, nil
}

func (s *Store) ListScanResults(ctx context.Context, limit int) ([]domain.ScanResult, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, items, total_counted, notes, scanned_by, created_at
		FROM scans
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := make([]domain.ScanResult, 0, limit)
	for rows.Next() {
		var scan domain.ScanResult
		var itemsRaw []byte
		var notes sql.NullString
		if err := rows.Scan(&scan.ID, &scan.Mode, &itemsRaw, &scan.TotalCounted, &notes, &scan.ScannedBy, &scan.CreatedAt); err != nil {
			return nil, err
		}
		if notes.Valid {
			scan.Notes = notes.String
		}
		if len(itemsRaw) > 0 {
			if err := json.Unmarshal(itemsRaw, &scan.Items); err != nil {
				return nil, err
			}
		}
		scan.CreatedAt = scan.CreatedAt.UTC()
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scans, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorID, entry.ActorRole, entry.Action, entry.EntityType, nullIfEmpty(entry.EntityID), entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var entityID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action, &entry.EntityType, &entityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if entityID.Valid {
			entry.EntityID = entityID.String
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTimeValue(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
