package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
	"brandstore/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	barcodes        map[string]string
	sales           []*domain.Sale
	salesByID       map[string]*domain.Sale
	customersByID   map[string]domain.Customer
	expensesByID    map[string]domain.Expense
	settings        domain.Settings
	usersByUsername map[string]domain.UserAccount
	auditLogs       []domain.AuditLog
}

// DefaultServiceProfits is the commission schedule applied until an admin
// edits it. Fixed fees are in cents.
func DefaultServiceProfits() map[string]domain.ProfitRate {
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
		ServiceProfits: DefaultServiceProfits(),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// The admin password is read from SEED_ADMIN_PASSWORD; if unset a hardcoded
// dev default is used with a warning. These credentials are never used in
// production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD to override.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPwd), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	now := time.Now().UTC()
	return map[string]domain.UserAccount{
		"admin": {
			ID:        uuid.NewString(),
			Username:  "admin",
			Password:  string(hash),
			Role:      domain.RoleAdmin,
			Status:    domain.UserStatusVerified,
			Active:    true,
			CreatedAt: now,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		barcodes:        make(map[string]string),
		sales:           make([]*domain.Sale, 0, 128),
		salesByID:       make(map[string]*domain.Sale),
		customersByID:   make(map[string]domain.Customer),
		expensesByID:    make(map[string]domain.Expense),
		settings:        defaultSettings(),
		usersByUsername: seedUsers(),
		auditLogs:       make([]domain.AuditLog, 0, 128),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "PRD-1", Name: "Standard Widget", Category: "Hardware", Barcode: "123456", PriceCents: 2500, CostCents: 1500, Stock: 100, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "PRD-2", Name: "Premium Gadget", Category: "Electronics", Barcode: "789012", PriceCents: 12000, CostCents: 8000, Stock: 50, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range products {
		s.products[p.ID] = p
		s.barcodes[p.Barcode] = p.ID
	}
	return s
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active && !includeInactive {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.ProductID()
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrDuplicate
	}
	if product.Barcode != "" {
		if other, taken := s.barcodes[product.Barcode]; taken && s.products[other].Active {
			return nil, store.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	if product.Barcode != "" {
		s.barcodes[product.Barcode] = product.ID
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.barcodes[barcode]
	if !exists {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	if !product.Active {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.PriceCents < 1 || product.CostCents < 0 {
		return nil, store.ErrInvalidInput
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Barcode != "" && product.Barcode != existing.Barcode {
		if other, taken := s.barcodes[product.Barcode]; taken && other != product.ID && s.products[other].Active {
			return nil, store.ErrDuplicate
		}
		delete(s.barcodes, existing.Barcode)
		s.barcodes[product.Barcode] = product.ID
	}

	product.Stock = existing.Stock
	product.Active = existing.Active
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

// DeactivateProduct tombstones the product so historical sales keep a valid
// reference. The barcode is released for reuse.
func (s *Store) DeactivateProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Active = false
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	if product.Barcode != "" {
		delete(s.barcodes, product.Barcode)
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) AdjustStock(_ context.Context, id string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	product.Stock += delta
	if product.Stock < 0 {
		product.Stock = 0
	}
	product.UpdatedAt = time.Now().UTC()
	s.products[id] = product
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || sale.Kind == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrDuplicate
	}
	if sale.Kind != domain.SaleKindService && len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	// A cart may repeat a product across lines; the stock check runs against
	// the summed quantity so the decrement never crosses zero.
	wanted := make(map[string]int, len(sale.Items))
	for _, item := range sale.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		product, exists := s.products[item.ProductID]
		if !exists || !product.Active {
			return nil, store.ErrNotFound
		}
		wanted[item.ProductID] += item.Quantity
		if product.Stock < wanted[item.ProductID] {
			return nil, store.ErrInsufficientStock
		}
	}
	for id, qty := range wanted {
		product := s.products[id]
		product.Stock -= qty
		product.UpdatedAt = time.Now().UTC()
		s.products[id] = product
	}

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.UpdatedAt = sale.CreatedAt

	stored := sale
	// Newest sale sits at the head; listing replays insertion order.
	s.sales = append([]*domain.Sale{&stored}, s.sales...)
	s.salesByID[stored.ID] = &stored
	cloned := stored
	return &cloned, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := *sale
	cloned.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &cloned, nil
}

// SetSaleStatus transitions the sale and restores stock exactly once: only
// when moving into rejected from a non-rejected status. Rejecting an already
// rejected sale changes nothing.
func (s *Store) SetSaleStatus(_ context.Context, id string, status string, at time.Time) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.ValidSaleStatus(status) {
		return nil, store.ErrInvalidInput
	}
	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if status == domain.SaleStatusRejected && sale.Status != domain.SaleStatusRejected {
		for _, item := range sale.Items {
			product, exists := s.products[item.ProductID]
			if !exists {
				continue
			}
			product.Stock += item.Quantity
			product.UpdatedAt = at
			s.products[item.ProductID] = product
		}
	}

	sale.Status = status
	sale.UpdatedAt = at

	cloned := *sale
	cloned.Items = append([]domain.SaleItem(nil), sale.Items...)
	return &cloned, nil
}

func (s *Store) ListSales(_ context.Context, userID string, admin bool, filter domain.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	skipped := 0
	for _, sale := range s.sales {
		if !admin && sale.UserID != userID {
			continue
		}
		if filter.Kind != "" && sale.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !saleMatches(sale, filter.Search) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		cloned := *sale
		cloned.Items = append([]domain.SaleItem(nil), sale.Items...)
		out = append(out, cloned)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// saleMatches searches the sale id and note, the same columns the SQL
// store filters on. Service requests carry their rendered display note
// in Note, so service details are searchable through it.
func saleMatches(sale *domain.Sale, query string) bool {
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(sale.ID), query) ||
		strings.Contains(strings.ToLower(sale.Note), query)
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	existing, ok := s.customersByID[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.customersByID, id)
	return nil
}

// CustomerTotalSpent derives lifetime spend from the ledger instead of
// maintaining a counter that drifts on rejections.
func (s *Store) CustomerTotalSpent(_ context.Context, customerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.customersByID[customerID]; !ok {
		return 0, store.ErrNotFound
	}
	var total int64
	for _, sale := range s.sales {
		if sale.CustomerID != customerID || sale.Status == domain.SaleStatusRejected {
			continue
		}
		total += sale.TotalCents
	}
	return total, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.Description == "" || expense.AmountCents < 1 {
		return nil, store.ErrInvalidInput
	}
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expensesByID))
	for _, e := range s.expensesByID {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && e.CreatedAt.After(to) {
			continue
		}
		expenses = append(expenses, e)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return expenses, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expensesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings := s.settings
	settings.ServiceProfits = cloneSchedule(s.settings.ServiceProfits)
	return &settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, settings domain.Settings) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.TaxRatePercent < 0 || settings.TaxRatePercent > 100 {
		return nil, store.ErrInvalidInput
	}
	settings.ServiceProfits = cloneSchedule(settings.ServiceProfits)
	s.settings = settings

	updated := s.settings
	updated.ServiceProfits = cloneSchedule(s.settings.ServiceProfits)
	return &updated, nil
}

func cloneSchedule(in map[string]domain.ProfitRate) map[string]domain.ProfitRate {
	out := make(map[string]domain.ProfitRate, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) UpdateUserStatus(_ context.Context, username string, status string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	user.Status = status
	s.usersByUsername[username] = user
	copyUser := user
	return &copyUser, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}
