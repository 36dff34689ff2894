package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"brandstore/backend/internal/domain"
	"brandstore/backend/internal/store"
)

func TestCreateSaleDecrementsStockOnce(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ID:     "INV-AAAAAA",
		Kind:   domain.SaleKindPOS,
		UserID: "u1",
		Status: domain.SaleStatusSuccess,
		Items: []domain.SaleItem{
			{ProductID: "PRD-1", Name: "Standard Widget", Quantity: 3, UnitPriceCents: 2500, UnitCostCents: 1500},
		},
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	product, err := s.GetProductByID(ctx, "PRD-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 97 {
		t.Fatalf("expected stock 97, got %d", product.Stock)
	}
}

func TestCreateSaleRejectsOversell(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.AdjustStock(ctx, "PRD-1", -99); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	sale := domain.Sale{
		ID:     "INV-BBBBBB",
		Kind:   domain.SaleKindPOS,
		UserID: "u1",
		Status: domain.SaleStatusSuccess,
		Items:  []domain.SaleItem{{ProductID: "PRD-1", Quantity: 2, UnitPriceCents: 2500}},
	}
	if _, err := s.CreateSale(ctx, sale); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, _ := s.GetProductByID(ctx, "PRD-1")
	if product.Stock != 1 {
		t.Fatalf("expected stock untouched at 1, got %d", product.Stock)
	}
}

func TestCreateSaleSumsDuplicateLinesAgainstStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.AdjustStock(ctx, "PRD-1", -97); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	// Two lines of 2 each fit individually but sum to 4 against stock 3.
	sale := domain.Sale{
		ID:     "INV-EEEEEE",
		Kind:   domain.SaleKindPOS,
		UserID: "u1",
		Status: domain.SaleStatusSuccess,
		Items: []domain.SaleItem{
			{ProductID: "PRD-1", Quantity: 2, UnitPriceCents: 2500},
			{ProductID: "PRD-1", Quantity: 2, UnitPriceCents: 2500},
		},
	}
	if _, err := s.CreateSale(ctx, sale); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	product, _ := s.GetProductByID(ctx, "PRD-1")
	if product.Stock != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", product.Stock)
	}

	// A duplicate-line cart that fits decrements the summed quantity, and a
	// rejection restores exactly that amount.
	sale.ID = "INV-FFFFFF"
	sale.Items = []domain.SaleItem{
		{ProductID: "PRD-1", Quantity: 1, UnitPriceCents: 2500},
		{ProductID: "PRD-1", Quantity: 2, UnitPriceCents: 2500},
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	product, _ = s.GetProductByID(ctx, "PRD-1")
	if product.Stock != 0 {
		t.Fatalf("expected stock 0 after selling 3, got %d", product.Stock)
	}

	if _, err := s.SetSaleStatus(ctx, "INV-FFFFFF", domain.SaleStatusRejected, time.Now().UTC()); err != nil {
		t.Fatalf("reject: %v", err)
	}
	product, _ = s.GetProductByID(ctx, "PRD-1")
	if product.Stock != 3 {
		t.Fatalf("expected stock conserved at 3 after reject, got %d", product.Stock)
	}
}

func TestRejectRestoresStockExactlyOnce(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ID:     "ORD-CCCCCC",
		Kind:   domain.SaleKindOrder,
		UserID: "u1",
		Status: domain.SaleStatusPending,
		Items:  []domain.SaleItem{{ProductID: "PRD-2", Quantity: 5, UnitPriceCents: 12000}},
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}
	product, _ := s.GetProductByID(ctx, "PRD-2")
	if product.Stock != 45 {
		t.Fatalf("expected stock 45 after sale, got %d", product.Stock)
	}

	now := time.Now().UTC()
	if _, err := s.SetSaleStatus(ctx, "ORD-CCCCCC", domain.SaleStatusRejected, now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	product, _ = s.GetProductByID(ctx, "PRD-2")
	if product.Stock != 50 {
		t.Fatalf("expected stock restored to 50, got %d", product.Stock)
	}

	// Rejecting again must not restock a second time.
	if _, err := s.SetSaleStatus(ctx, "ORD-CCCCCC", domain.SaleStatusRejected, now); err != nil {
		t.Fatalf("repeat reject: %v", err)
	}
	product, _ = s.GetProductByID(ctx, "PRD-2")
	if product.Stock != 50 {
		t.Fatalf("expected stock still 50 after repeated reject, got %d", product.Stock)
	}
}

func TestRejectAfterSuccessRestoresStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ID:     "INV-DDDDDD",
		Kind:   domain.SaleKindPOS,
		UserID: "u1",
		Status: domain.SaleStatusSuccess,
		Items:  []domain.SaleItem{{ProductID: "PRD-1", Quantity: 10, UnitPriceCents: 2500}},
	}
	if _, err := s.CreateSale(ctx, sale); err != nil {
		t.Fatalf("create sale: %v", err)
	}

	if _, err := s.SetSaleStatus(ctx, "INV-DDDDDD", domain.SaleStatusRejected, time.Now().UTC()); err != nil {
		t.Fatalf("reject: %v", err)
	}
	product, _ := s.GetProductByID(ctx, "PRD-1")
	if product.Stock != 100 {
		t.Fatalf("expected stock back to 100, got %d", product.Stock)
	}
}

func TestListSalesInsertionOrderNewestFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"INV-000001", "INV-000002", "INV-000003"} {
		sale := domain.Sale{
			ID:     id,
			Kind:   domain.SaleKindPOS,
			UserID: "u1",
			Status: domain.SaleStatusSuccess,
			Items:  []domain.SaleItem{{ProductID: "PRD-1", Quantity: 1, UnitPriceCents: 2500}},
			// Deliberately out-of-order timestamps: listing must follow
			// insertion order, not timestamps.
			CreatedAt: base.Add(time.Duration(-i) * time.Hour),
		}
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale %s: %v", id, err)
		}
	}

	sales, err := s.ListSales(ctx, "u1", true, domain.SaleFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("expected 3 sales, got %d", len(sales))
	}
	want := []string{"INV-000003", "INV-000002", "INV-000001"}
	for i, id := range want {
		if sales[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sales[i].ID)
		}
	}
}

func TestListSalesNonAdminSeesOnlyOwn(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for _, tc := range []struct{ id, user string }{
		{"INV-E00001", "alice"},
		{"INV-E00002", "bob"},
		{"INV-E00003", "alice"},
	} {
		sale := domain.Sale{
			ID:     tc.id,
			Kind:   domain.SaleKindPOS,
			UserID: tc.user,
			Status: domain.SaleStatusSuccess,
			Items:  []domain.SaleItem{{ProductID: "PRD-1", Quantity: 1, UnitPriceCents: 2500}},
		}
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}

	own, err := s.ListSales(ctx, "alice", false, domain.SaleFilter{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("expected 2 sales for alice, got %d", len(own))
	}
	for _, sale := range own {
		if sale.UserID != "alice" {
			t.Fatalf("leaked sale %s owned by %s", sale.ID, sale.UserID)
		}
	}

	all, _ := s.ListSales(ctx, "alice", true, domain.SaleFilter{})
	if len(all) != 3 {
		t.Fatalf("expected admin to see 3 sales, got %d", len(all))
	}
}

func TestListSalesSearchMatchesIDAndNote(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sales := []domain.Sale{
		{ID: "INV-SRCH01", Kind: domain.SaleKindPOS, UserID: "u1", Status: domain.SaleStatusSuccess,
			Items: []domain.SaleItem{{ProductID: "PRD-1", Quantity: 1, UnitPriceCents: 2500}}},
		{ID: "PAY-SRCH02", Kind: domain.SaleKindService, UserID: "u1", Status: domain.SaleStatusPending,
			Note: "Electricity | North Cairo | Meter: 4411"},
	}
	for _, sale := range sales {
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale %s: %v", sale.ID, err)
		}
	}

	byID, err := s.ListSales(ctx, "u1", false, domain.SaleFilter{Search: "srch01"})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(byID) != 1 || byID[0].ID != "INV-SRCH01" {
		t.Fatalf("expected id match for INV-SRCH01, got %+v", byID)
	}

	byNote, err := s.ListSales(ctx, "u1", false, domain.SaleFilter{Search: "north cairo"})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(byNote) != 1 || byNote[0].ID != "PAY-SRCH02" {
		t.Fatalf("expected note match for PAY-SRCH02, got %+v", byNote)
	}
}

func TestBarcodeUniquenessAmongActive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{Name: "Clone", PriceCents: 100, Barcode: "123456"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for taken barcode, got %v", err)
	}

	// Tombstoning the holder releases the barcode.
	if _, err := s.DeactivateProduct(ctx, "PRD-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{Name: "Clone", PriceCents: 100, Barcode: "123456"}); err != nil {
		t.Fatalf("expected barcode reuse after tombstone, got %v", err)
	}
}

func TestDeactivateProductKeepsRecord(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.DeactivateProduct(ctx, "PRD-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	product, err := s.GetProductByID(ctx, "PRD-1")
	if err != nil {
		t.Fatalf("expected tombstoned product to stay readable, got %v", err)
	}
	if product.Active {
		t.Fatalf("expected product inactive")
	}

	active, _ := s.ListProducts(ctx, false)
	for _, p := range active {
		if p.ID == "PRD-1" {
			t.Fatalf("tombstoned product still listed as active")
		}
	}
	all, _ := s.ListProducts(ctx, true)
	found := false
	for _, p := range all {
		if p.ID == "PRD-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tombstoned product missing from full listing")
	}
}

func TestAdjustStockClampsAtZero(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.AdjustStock(ctx, "PRD-2", -500)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if product.Stock != 0 {
		t.Fatalf("expected stock clamped at 0, got %d", product.Stock)
	}
}

func TestCustomerTotalSpentSkipsRejected(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Mona"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	for _, tc := range []struct {
		id     string
		total  int64
		status string
	}{
		{"INV-F00001", 2500, domain.SaleStatusSuccess},
		{"INV-F00002", 5000, domain.SaleStatusRejected},
	} {
		sale := domain.Sale{
			ID:         tc.id,
			Kind:       domain.SaleKindPOS,
			UserID:     "u1",
			CustomerID: customer.ID,
			Status:     tc.status,
			TotalCents: tc.total,
			Items:      []domain.SaleItem{{ProductID: "PRD-1", Quantity: 1, UnitPriceCents: 2500}},
		}
		if _, err := s.CreateSale(ctx, sale); err != nil {
			t.Fatalf("create sale: %v", err)
		}
	}

	total, err := s.CustomerTotalSpent(ctx, customer.ID)
	if err != nil {
		t.Fatalf("total spent: %v", err)
	}
	if total != 2500 {
		t.Fatalf("expected 2500, got %d", total)
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.CreateUser(ctx, domain.UserAccount{Username: "admin", Password: "x", Role: domain.RoleUser})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}
