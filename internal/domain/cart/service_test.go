// internal/domain/cart/service_test.go
package cart

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&product.Variant{},
		&Cart{},
		&CartItem{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewService(db, &config.Config{}), db
}

func seedProduct(t *testing.T, db *gorm.DB, price int64, stock int) *product.Product {
	t.Helper()

	p := &product.Product{
		ShopID:         1,
		Name:           "Ceramic Mug",
		BasePrice:      price,
		Stock:          stock,
		IsActive:       true,
		ApprovalStatus: product.ApprovalApproved,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return p
}

func TestGetCartCreatesOnFirstUse(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GetCart(1)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if !resp.Cart.IsEmpty() {
		t.Error("expected a fresh empty cart")
	}
	if resp.Subtotal != 0 {
		t.Errorf("expected zero subtotal, got %d", resp.Subtotal)
	}
}

func TestAddItemMergesLines(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, 1500, 10)

	if _, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	resp, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if len(resp.Cart.Items) != 1 {
		t.Fatalf("expected merged line, got %d items", len(resp.Cart.Items))
	}
	if resp.Cart.Items[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", resp.Cart.Items[0].Quantity)
	}
	if resp.Subtotal != 5*1500 {
		t.Errorf("expected subtotal 7500, got %d", resp.Subtotal)
	}
}

func TestAddItemVariantHandling(t *testing.T) {
	svc, db := newTestService(t)

	p := &product.Product{
		ShopID:         1,
		Name:           "T-Shirt",
		BasePrice:      2000,
		IsActive:       true,
		ApprovalStatus: product.ApprovalApproved,
		Variants: []product.Variant{
			{SKU: "TS-M", Price: 2100, Stock: 4},
		},
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	// Variant products require a SKU.
	_, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 1})
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error without SKU, got %v", err)
	}

	_, err = svc.AddItem(1, &AddItemRequest{ProductID: p.ID, VariantSKU: "TS-XL", Quantity: 1})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for unknown SKU, got %v", err)
	}

	resp, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, VariantSKU: "TS-M", Quantity: 2})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if resp.Cart.Items[0].Price != 2100 {
		t.Errorf("expected variant price snapshot 2100, got %d", resp.Cart.Items[0].Price)
	}

	// Distinct SKUs get distinct lines, so a plain SKU on a flat product fails.
	flat := seedProduct(t, db, 1000, 5)
	_, err = svc.AddItem(1, &AddItemRequest{ProductID: flat.ID, VariantSKU: "TS-M", Quantity: 1})
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for SKU on flat product, got %v", err)
	}
}

func TestAddItemStockAdvisory(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, 1500, 3)

	if _, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	// Merging past the available stock is rejected.
	_, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 2})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict over stock, got %v", err)
	}
}

func TestAddItemRejectsUnapprovedProduct(t *testing.T) {
	svc, db := newTestService(t)

	p := &product.Product{
		ShopID:         1,
		Name:           "Hidden",
		BasePrice:      1000,
		Stock:          5,
		IsActive:       true,
		ApprovalStatus: product.ApprovalPending,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	_, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 1})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for unapproved product, got %v", err)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, 1500, 10)

	resp, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	itemID := resp.Cart.Items[0].ID

	resp, err = svc.UpdateItem(1, itemID, &UpdateItemRequest{Quantity: 4})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if resp.Cart.Items[0].Quantity != 4 {
		t.Errorf("expected quantity 4, got %d", resp.Cart.Items[0].Quantity)
	}

	// Another buyer cannot touch this line.
	if _, err := svc.UpdateItem(2, itemID, &UpdateItemRequest{Quantity: 1}); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for foreign cart item, got %v", err)
	}

	resp, err = svc.RemoveItem(1, itemID)
	if err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if !resp.Cart.IsEmpty() {
		t.Error("expected empty cart after removal")
	}
}

func TestClearCart(t *testing.T) {
	svc, db := newTestService(t)
	p := seedProduct(t, db, 1500, 10)

	if _, err := svc.AddItem(1, &AddItemRequest{ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}

	if err := svc.Clear(1); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	resp, err := svc.GetCart(1)
	if err != nil {
		t.Fatalf("GetCart failed: %v", err)
	}
	if !resp.Cart.IsEmpty() {
		t.Error("expected empty cart after clear")
	}
}
