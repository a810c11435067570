// internal/domain/checkout/service_test.go
package checkout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/shop"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeGateway records checkout session requests instead of calling Stripe.
type fakeGateway struct {
	lastParams *payment.CheckoutSessionParams
	err        error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, params *payment.CheckoutSessionParams) (*payment.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastParams = params
	return &payment.CheckoutSession{ID: "cs_test_1", URL: "https://pay.example.com/cs_test_1"}, nil
}

func (f *fakeGateway) CreateAccount(ctx context.Context, country, email string) (*payment.ConnectedAccount, error) {
	return &payment.ConnectedAccount{ID: "acct_test"}, nil
}

func (f *fakeGateway) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	return "https://connect.example.com/onboard", nil
}

func (f *fakeGateway) GetAccount(ctx context.Context, accountID string) (*payment.ConnectedAccount, error) {
	return &payment.ConnectedAccount{ID: accountID}, nil
}

func (f *fakeGateway) RegisterPrice(ctx context.Context, name string, unitAmount int64) (*payment.RegisteredPrice, error) {
	return &payment.RegisteredPrice{ProductID: "prod_test", PriceID: "price_test"}, nil
}

func (f *fakeGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	return nil, errors.New("not implemented")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&shop.Shop{},
		&product.Category{},
		&product.Product{},
		&product.Variant{},
		&order.Order{},
		&order.OrderItem{},
		&event.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestService(t *testing.T) (*Service, *fakeGateway, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	gateway := &fakeGateway{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Platform: config.PlatformConfig{
			CommissionRate: 0.10,
			Currency:       "usd",
			RootURL:        "http://localhost:8080",
		},
	}

	return NewService(db, cfg, gateway, logger), gateway, db
}

func seedPayableShop(t *testing.T, db *gorm.DB, userID uint) *shop.Shop {
	t.Helper()

	sh := &shop.Shop{
		UserID:          userID,
		Name:            "Payable Shop",
		Country:         "US",
		Status:          shop.StatusApproved,
		StripeAccountID: "acct_123",
	}
	if err := db.Create(sh).Error; err != nil {
		t.Fatalf("failed to seed shop: %v", err)
	}
	return sh
}

func seedPricedProduct(t *testing.T, db *gorm.DB, shopID uint, priceID string) *product.Product {
	t.Helper()

	p := &product.Product{
		ShopID:         shopID,
		Name:           "Ceramic Mug",
		BasePrice:      1500,
		Stock:          10,
		IsActive:       true,
		ApprovalStatus: product.ApprovalApproved,
		StripePriceID:  priceID,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return p
}

func seedPendingOrder(t *testing.T, db *gorm.DB, userID uint, items []order.OrderItem, subtotal, shippingFee int64) *order.Order {
	t.Helper()

	o := &order.Order{
		UserID:      userID,
		Items:       items,
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Total:       subtotal + shippingFee,
		Status:      order.StatusPending,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return o
}

func TestCreateSessionRoutesToShopAccount(t *testing.T) {
	svc, gateway, db := newTestService(t)
	sh := seedPayableShop(t, db, 2)
	p := seedPricedProduct(t, db, sh.ID, "price_mug")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 2},
	}, 3000, 200)

	resp, err := svc.CreateSession(context.Background(), 1, o.ID)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if resp.SessionID != "cs_test_1" || resp.URL == "" {
		t.Errorf("unexpected session response: %+v", resp)
	}

	params := gateway.lastParams
	if params == nil {
		t.Fatal("gateway was not called")
	}
	if params.DestinationAccount != "acct_123" {
		t.Errorf("expected destination acct_123, got %s", params.DestinationAccount)
	}
	if params.ApplicationFee != 300 {
		t.Errorf("expected application fee 300, got %d", params.ApplicationFee)
	}
	if params.ShippingFee != 200 {
		t.Errorf("expected shipping fee 200, got %d", params.ShippingFee)
	}
	if got := params.Metadata[payment.MetadataOrderID]; got == "" {
		t.Error("expected order id metadata on the session")
	}
	if len(params.LineItems) != 1 || params.LineItems[0].PriceID != "price_mug" || params.LineItems[0].Quantity != 2 {
		t.Errorf("unexpected line items: %+v", params.LineItems)
	}
}

func TestCreateSessionRejectsMultipleShops(t *testing.T) {
	svc, _, db := newTestService(t)
	first := seedPayableShop(t, db, 2)

	second := &shop.Shop{
		UserID:          3,
		Name:            "Second Shop",
		Country:         "US",
		Status:          shop.StatusApproved,
		StripeAccountID: "acct_456",
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatalf("failed to seed shop: %v", err)
	}

	p1 := seedPricedProduct(t, db, first.ID, "price_1")
	p2 := seedPricedProduct(t, db, second.ID, "price_2")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p1.ID, Title: "A", Price: 1000, Quantity: 1},
		{ProductID: p2.ID, Title: "B", Price: 1000, Quantity: 1},
	}, 2000, 0)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for multi-shop order, got %v", err)
	}
}

func TestCreateSessionRequiresRegisteredPrice(t *testing.T) {
	svc, _, db := newTestService(t)
	sh := seedPayableShop(t, db, 2)
	p := seedPricedProduct(t, db, sh.ID, "")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 1},
	}, 1500, 0)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for unregistered price, got %v", err)
	}
}

func TestCreateSessionUsesVariantPrice(t *testing.T) {
	svc, gateway, db := newTestService(t)
	sh := seedPayableShop(t, db, 2)

	p := &product.Product{
		ShopID:         sh.ID,
		Name:           "T-Shirt",
		BasePrice:      2000,
		IsActive:       true,
		ApprovalStatus: product.ApprovalApproved,
		StripePriceID:  "price_base",
		Variants: []product.Variant{
			{SKU: "TS-M", Price: 2100, Stock: 4, StripePriceID: "price_variant"},
		},
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, VariantSKU: "TS-M", Title: "T-Shirt (TS-M)", Price: 2100, Quantity: 1},
	}, 2100, 0)

	if _, err := svc.CreateSession(context.Background(), 1, o.ID); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if gateway.lastParams.LineItems[0].PriceID != "price_variant" {
		t.Errorf("expected variant price id, got %s", gateway.lastParams.LineItems[0].PriceID)
	}
}

func TestCreateSessionRequiresPendingOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	sh := seedPayableShop(t, db, 2)
	p := seedPricedProduct(t, db, sh.ID, "price_mug")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 1},
	}, 1500, 0)
	db.Model(&order.Order{}).Where("id = ?", o.ID).Update("status", order.StatusConfirmed)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for confirmed order, got %v", err)
	}
}

func TestCreateSessionRequiresPayableShop(t *testing.T) {
	svc, _, db := newTestService(t)

	sh := &shop.Shop{UserID: 2, Name: "Unboarded Shop", Country: "US", Status: shop.StatusApproved}
	if err := db.Create(sh).Error; err != nil {
		t.Fatalf("failed to seed shop: %v", err)
	}
	p := seedPricedProduct(t, db, sh.ID, "price_mug")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 1},
	}, 1500, 0)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for shop without connected account, got %v", err)
	}
}

func TestCreateSessionForeignOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	sh := seedPayableShop(t, db, 2)
	p := seedPricedProduct(t, db, sh.ID, "price_mug")

	o := seedPendingOrder(t, db, 42, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 1},
	}, 1500, 0)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	svc, gateway, db := newTestService(t)
	gateway.err = errors.New("processor unavailable")

	sh := seedPayableShop(t, db, 2)
	p := seedPricedProduct(t, db, sh.ID, "price_mug")

	o := seedPendingOrder(t, db, 1, []order.OrderItem{
		{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 1},
	}, 1500, 0)

	_, err := svc.CreateSession(context.Background(), 1, o.ID)
	if !apperrors.IsKind(err, apperrors.KindExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestApplicationFee(t *testing.T) {
	cases := []struct {
		subtotal int64
		rate     float64
		expected int64
	}{
		{0, 0.10, 0},
		{10000, 0.10, 1000},
		{9999, 0.10, 1000},
		{105, 0.10, 11},
		{1, 0.10, 0},
		{12345, 0.15, 1852},
		{5000, 0, 0},
	}

	for _, tc := range cases {
		if got := ApplicationFee(tc.subtotal, tc.rate); got != tc.expected {
			t.Errorf("ApplicationFee(%d, %v) = %d, expected %d", tc.subtotal, tc.rate, got, tc.expected)
		}
	}
}
