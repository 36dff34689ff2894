package domain

import (
	"strings"
	"time"
)

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Barcode    string    `json:"barcode"`
	PriceCents int64     `json:"price_cents"`
	CostCents  int64     `json:"cost_cents"`
	Stock      int       `json:"stock"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Barcode    string `json:"barcode"`
	PriceCents int64  `json:"price_cents"`
	CostCents  int64  `json:"cost_cents"`
	Stock      int    `json:"stock"`
}

type ProductUpdateRequest struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	Barcode    *string `json:"barcode,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	CostCents  *int64  `json:"cost_cents,omitempty"`
}

type StockAdjustment struct {
	Delta int `json:"delta"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CustomerDetail carries the ledger-derived spend so callers never see a
// stale stored counter.
type CustomerDetail struct {
	Customer
	TotalSpentCents int64 `json:"total_spent_cents"`
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SaleItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	UnitCostCents  int64  `json:"unit_cost_cents"`
}

// ServiceDetail describes a micro-finance service request in structured
// fields. The old clients packed all of this into a single free-text note.
type ServiceDetail struct {
	Kind            string `json:"kind"`
	Provider        string `json:"provider,omitempty"`
	SubService      string `json:"sub_service,omitempty"`
	Package         string `json:"package,omitempty"`
	IdentifierLabel string `json:"identifier_label,omitempty"`
	Identifier      string `json:"identifier,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// DisplayNote renders the legacy receipt line from the structured fields.
func (d ServiceDetail) DisplayNote() string {
	parts := make([]string, 0, 4)
	if d.Provider != "" {
		parts = append(parts, d.Provider)
	}
	if d.SubService != "" {
		parts = append(parts, d.SubService)
	}
	if d.Package != "" {
		parts = append(parts, "("+d.Package+")")
	}
	if d.Identifier != "" {
		label := d.IdentifierLabel
		if label == "" {
			label = "ID"
		}
		parts = append(parts, label+": "+d.Identifier)
	}
	if d.Notes != "" {
		parts = append(parts, d.Notes)
	}
	return strings.Join(parts, " | ")
}

type Sale struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	CustomerID    string         `json:"customer_id,omitempty"`
	Items         []SaleItem     `json:"items,omitempty"`
	SubtotalCents int64          `json:"subtotal_cents"`
	TaxCents      int64          `json:"tax_cents"`
	TotalCents    int64          `json:"total_cents"`
	ProfitCents   int64          `json:"profit_cents"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"payment_method"`
	Service       *ServiceDetail `json:"service,omitempty"`
	Note          string         `json:"note,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type POSSaleRequest struct {
	CustomerID    string     `json:"customer_id,omitempty"`
	PaymentMethod string     `json:"payment_method"`
	Lines         []CartLine `json:"lines"`
	Note          string     `json:"note,omitempty"`
}

type OrderRequest struct {
	CustomerID    string     `json:"customer_id,omitempty"`
	PaymentMethod string     `json:"payment_method"`
	Lines         []CartLine `json:"lines"`
	Note          string     `json:"note,omitempty"`
}

type ServiceRequestInput struct {
	CustomerID    string        `json:"customer_id,omitempty"`
	AmountCents   int64         `json:"amount_cents"`
	PaymentMethod string        `json:"payment_method"`
	Service       ServiceDetail `json:"service"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type SaleFilter struct {
	Kind   string
	Status string
	Search string
	Limit  int
	Offset int
}

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
}

type ProfitRate struct {
	Percentage float64 `json:"percentage"`
	FixedCents int64   `json:"fixed_cents"`
}

type Settings struct {
	StoreName      string                `json:"store_name"`
	Currency       string                `json:"currency"`
	TaxRatePercent float64               `json:"tax_rate_percent"`
	ServiceProfits map[string]ProfitRate `json:"service_profits"`
}

type SettingsUpdateRequest struct {
	StoreName      *string               `json:"store_name,omitempty"`
	Currency       *string               `json:"currency,omitempty"`
	TaxRatePercent *float64              `json:"tax_rate_percent,omitempty"`
	ServiceProfits map[string]ProfitRate `json:"service_profits,omitempty"`
}

type ProfitReport struct {
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	ServiceProfitCents  int64     `json:"service_profit_cents"`
	ProductProfitCents  int64     `json:"product_profit_cents"`
	ExpenseCents        int64     `json:"expense_cents"`
	NetProfitCents      int64     `json:"net_profit_cents"`
	SaleCount           int       `json:"sale_count"`
	RevenueCents        int64     `json:"revenue_cents"`
	GeneratedAt         time.Time `json:"generated_at"`
	FromCache           bool      `json:"from_cache,omitempty"`
	CurrencyDisplayCode string    `json:"currency"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Username    string `json:"username"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	ID       string
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserStatusUpdateRequest struct {
	Status string `json:"status"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	Status    string
	Phone     string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	SaleKindPOS     = "pos"
	SaleKindOrder   = "order"
	SaleKindService = "service"
)

const (
	SaleStatusPending    = "pending"
	SaleStatusProcessing = "processing"
	SaleStatusSuccess    = "success"
	SaleStatusRejected   = "rejected"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleGuest = "guest"
)

const (
	UserStatusPendingInfo   = "pending_info"
	UserStatusPendingReview = "pending_review"
	UserStatusVerified      = "verified"
	UserStatusRejected      = "rejected"
)

// ValidSaleStatus reports whether s is a known ledger status.
func ValidSaleStatus(s string) bool {
	switch s {
	case SaleStatusPending, SaleStatusProcessing, SaleStatusSuccess, SaleStatusRejected:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is accepted for product sales.
func ValidPaymentMethod(m string) bool {
	switch m {
	case "cash", "card", "mixed", "vodafone", "instapay", "orange", "etisalat", "deposit", "recharge":
		return true
	}
	return false
}

// ValidServicePayment reports whether m is accepted for service requests.
func ValidServicePayment(m string) bool {
	switch m {
	case "cash", "deposit", "recharge":
		return true
	}
	return false
}
