package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
	"brandstore/backend/internal/xid"
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

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(barcode,''), price_cents, cost_cents, stock, active, created_at, updated_at
		FROM products
		WHERE ($1 OR active = true)
		ORDER BY category, name
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.PriceCents, &p.CostCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.UpdatedAt = p.UpdatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.ProductID()
	}
	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, barcode, price_cents, cost_cents, stock, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, product.ID, product.Name, product.Category, nullIfEmpty(product.Barcode), product.PriceCents, product.CostCents, product.Stock, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.getProduct(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	if strings.TrimSpace(barcode) == "" {
		return nil, store.ErrNotFound
	}
	return s.getProduct(ctx, `WHERE barcode = $1 AND active = true`, barcode)
}

func (s *Store) getProduct(ctx context.Context, where string, arg any) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, COALESCE(barcode,''), price_cents, cost_cents, stock, active, created_at, updated_at
		FROM products
	`+where, arg).Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.PriceCents, &p.CostCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 {
		return nil, store.ErrInvalidInput
	}

	product.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, barcode = $4, price_cents = $5, cost_cents = $6, updated_at = $7
		WHERE id = $1
	`, product.ID, product.Name, product.Category, nullIfEmpty(product.Barcode), product.PriceCents, product.CostCents, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

// DeactivateProduct tombstones the product. The row survives so past sales
// keep a resolvable product reference; the barcode is released for reuse.
func (s *Store) DeactivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET active = false, barcode = NULL, updated_at = now()
		WHERE id = $1
		RETURNING id, name, category, '', price_cents, cost_cents, stock, active, created_at, updated_at
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.PriceCents, &p.CostCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// AdjustStock applies a manual delta, clamping the resulting quantity at zero.
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = GREATEST(stock + $2, 0), updated_at = now()
		WHERE id = $1
		RETURNING id, name, category, COALESCE(barcode,''), price_cents, cost_cents, stock, active, created_at, updated_at
	`, id, delta).Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.PriceCents, &p.CostCents, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		return nil, store.ErrInvalidInput
	}
	if sale.Kind != domain.SaleKindService && len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.UpdatedAt = sale.CreatedAt

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND active = true AND stock >= $2
		`, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var exists bool
			if err := pgTx.QueryRowContext(ctx, `
				SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND active = true)
			`, item.ProductID).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInsufficientStock
		}
	}

	serviceJSON, err := marshalServiceDetail(sale.Service)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO sales (
			id, kind, user_id, username, customer_id, subtotal_cents, tax_cents,
			total_cents, profit_cents, status, payment_method, service_detail,
			note, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, sale.ID, sale.Kind, sale.UserID, sale.Username, nullIfEmpty(sale.CustomerID),
		sale.SubtotalCents, sale.TaxCents, sale.TotalCents, sale.ProfitCents,
		sale.Status, sale.PaymentMethod, serviceJSON, sale.Note, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	for _, item := range sale.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, name, qty, unit_price_cents, unit_cost_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, item.ProductID, item.Name, item.Quantity, item.UnitPriceCents, item.UnitCostCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, kind, user_id, username, COALESCE(customer_id,''), subtotal_cents,
			tax_cents, total_cents, profit_cents, status, payment_method,
			service_detail, note, created_at, updated_at
		FROM sales
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	items, err := s.loadSaleItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

// SetSaleStatus updates the ledger status. Stock is restored only on the
// transition into rejected; a sale already rejected restores nothing more.
func (s *Store) SetSaleStatus(ctx context.Context, id string, status string, at time.Time) (*domain.Sale, error) {
	if !domain.ValidSaleStatus(status) {
		return nil, store.ErrInvalidInput
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var current string
	err = pgTx.QueryRowContext(ctx, `
		SELECT status FROM sales WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE sales SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, at)
	if err != nil {
		return nil, err
	}

	if status == domain.SaleStatusRejected && current != domain.SaleStatusRejected {
		itemRows, err := pgTx.QueryContext(ctx, `
			SELECT product_id, qty FROM sale_items WHERE sale_id = $1
		`, id)
		if err != nil {
			return nil, err
		}
		type restock struct {
			productID string
			qty       int
		}
		restocks := make([]restock, 0, 8)
		for itemRows.Next() {
			var r restock
			if err := itemRows.Scan(&r.productID, &r.qty); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			restocks = append(restocks, r)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()

		for _, r := range restocks {
			_, err := pgTx.ExecContext(ctx, `
				UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1
			`, r.productID, r.qty)
			if err != nil {
				return nil, err
			}
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, id)
}

func (s *Store) ListSales(ctx context.Context, userID string, admin bool, filter domain.SaleFilter) ([]domain.Sale, error) {
	// LIMIT NULL means unlimited in postgres, matching the memory store's
	// treatment of a non-positive limit.
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(filter.Search)

	// seq is a bigserial assigned at insert; ordering by it keeps the
	// listing in insertion order even when timestamps collide.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, user_id, username, COALESCE(customer_id,''), subtotal_cents,
			tax_cents, total_cents, profit_cents, status, payment_method,
			service_detail, note, created_at, updated_at
		FROM sales
		WHERE ($1 OR user_id = $2)
			AND ($3 = '' OR kind = $3)
			AND ($4 = '' OR status = $4)
			AND ($5 = '' OR id ILIKE '%' || $5 || '%' OR note ILIKE '%' || $5 || '%')
		ORDER BY seq DESC
		LIMIT $6 OFFSET $7
	`, admin, userID, filter.Kind, filter.Status, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		itemsBySale, err := s.loadSaleItemsBulk(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range sales {
			sales[i].Items = itemsBySale[sales[i].ID]
		}
	}

	return sales, nil
}

func (s *Store) loadSaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, qty, unit_price_cents, unit_cost_cents
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents, &item.UnitCostCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) loadSaleItemsBulk(ctx context.Context, saleIDs []string) (map[string][]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, name, qty, unit_price_cents, unit_cost_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id ASC
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.SaleItem, len(saleIDs))
	for rows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents, &item.UnitCostCents); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, address, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, customer.ID, customer.Name, customer.Phone, customer.Address, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, address, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, address, created_at
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4
		WHERE id = $1
	`, customer.ID, customer.Name, customer.Phone, customer.Address)
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
	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
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

// CustomerTotalSpent derives lifetime spend from the ledger instead of a
// stored counter, so rejected sales never inflate it.
func (s *Store) CustomerTotalSpent(ctx context.Context, customerID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents), 0)
		FROM sales
		WHERE customer_id = $1 AND status <> $2
	`, customerID, domain.SaleStatusRejected).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if strings.TrimSpace(expense.Description) == "" || expense.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, category, amount_cents, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Description, expense.Category, expense.AmountCents, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, category, amount_cents, created_at
		FROM expenses
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC
	`, nullIfZeroTime(from), nullIfZeroTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Description, &e.Category, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
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

// GetSettings reads the single settings row. A fresh database gets the
// built-in defaults without requiring a seed step.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	var profitsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT store_name, currency, tax_rate_percent, service_profits
		FROM settings
		WHERE id = 1
	`).Scan(&settings.StoreName, &settings.Currency, &settings.TaxRatePercent, &profitsRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := defaultSettings()
			return &defaults, nil
		}
		return nil, err
	}

	settings.ServiceProfits = make(map[string]domain.ProfitRate)
	if len(profitsRaw) > 0 {
		if err := json.Unmarshal(profitsRaw, &settings.ServiceProfits); err != nil {
			return nil, fmt.Errorf("decode service profits: %w", err)
		}
	}
	if len(settings.ServiceProfits) == 0 {
		settings.ServiceProfits = defaultServiceProfits()
	}
	return &settings, nil
}

func (s *Store) UpdateSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error) {
	if strings.TrimSpace(settings.StoreName) == "" || len(settings.Currency) != 3 {
		return nil, store.ErrInvalidInput
	}

	profitsRaw, err := json.Marshal(settings.ServiceProfits)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, store_name, currency, tax_rate_percent, service_profits, updated_at)
		VALUES (1,$1,$2,$3,$4,now())
		ON CONFLICT (id)
		DO UPDATE SET store_name = EXCLUDED.store_name, currency = EXCLUDED.currency,
			tax_rate_percent = EXCLUDED.tax_rate_percent, service_profits = EXCLUDED.service_profits,
			updated_at = now()
	`, settings.StoreName, settings.Currency, settings.TaxRatePercent, profitsRaw)
	if err != nil {
		return nil, err
	}

	saved := settings
	return &saved, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.Status == "" {
		user.Status = domain.UserStatusPendingInfo
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, password, role, status, phone, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, user.ID, user.Username, user.Password, user.Role, user.Status, user.Phone, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, status, COALESCE(phone,''), active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Status, &user.Phone, &user.Active, &user.CreatedAt); err != nil {
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

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
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

func (s *Store) UpdateUserStatus(ctx context.Context, username string, status string) (*domain.UserAccount, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, store.ErrInvalidInput
	}

	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		UPDATE app_users
		SET status = $2, updated_at = now()
		WHERE username = $1
		RETURNING id, username, password, role, status, COALESCE(phone,''), active, created_at
	`, username, status).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Status, &user.Phone, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, nullIfZeroTime(from), nullIfZeroTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	var serviceRaw []byte
	err := row.Scan(
		&sale.ID,
		&sale.Kind,
		&sale.UserID,
		&sale.Username,
		&sale.CustomerID,
		&sale.SubtotalCents,
		&sale.TaxCents,
		&sale.TotalCents,
		&sale.ProfitCents,
		&sale.Status,
		&sale.PaymentMethod,
		&serviceRaw,
		&sale.Note,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	if len(serviceRaw) > 0 {
		var detail domain.ServiceDetail
		if err := json.Unmarshal(serviceRaw, &detail); err != nil {
			return nil, fmt.Errorf("decode service detail: %w", err)
		}
		sale.Service = &detail
	}
	return &sale, nil
}

func marshalServiceDetail(detail *domain.ServiceDetail) (any, error) {
	if detail == nil {
		return nil, nil
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func defaultServiceProfits() map[string]domain.ProfitRate {
	return map[string]domain.ProfitRate{
		"installments": {Percentage: 5, FixedCents: 0},
		"electricity":  {Percentage: 0, FixedCents: 1000},
		"water":        {Percentage: 0, FixedCents: 500},
		"gas":          {Percentage: 0, FixedCents: 500},
		"deposit":      {Percentage: 0, FixedCents: 0},
		"recharge":     {Percentage: 0, FixedCents: 0},
		"bill":         {Percentage: 0, FixedCents: 500},
		"wallet":       {Percentage: 0, FixedCents: 500},
		"instapay":     {Percentage: 0, FixedCents: 0},
	}
}

func defaultSettings() domain.Settings {
	return domain.Settings{
		StoreName:      "Brand Store",
		Currency:       "EGP",
		TaxRatePercent: 14,
		ServiceProfits: defaultServiceProfits(),
	}
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

func nullIfZeroTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
