// internal/domain/payment/reconciler_test.go
package payment_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// verifyGateway stubs webhook verification with a canned event or error.
type verifyGateway struct {
	event *payment.WebhookEvent
	err   error
}

func (g *verifyGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.event, nil
}

func (g *verifyGateway) CreateCheckoutSession(ctx context.Context, params *payment.CheckoutSessionParams) (*payment.CheckoutSession, error) {
	return nil, errors.New("not implemented")
}

func (g *verifyGateway) CreateAccount(ctx context.Context, country, email string) (*payment.ConnectedAccount, error) {
	return nil, errors.New("not implemented")
}

func (g *verifyGateway) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	return "", errors.New("not implemented")
}

func (g *verifyGateway) GetAccount(ctx context.Context, accountID string) (*payment.ConnectedAccount, error) {
	return nil, errors.New("not implemented")
}

func (g *verifyGateway) RegisterPrice(ctx context.Context, name string, unitAmount int64) (*payment.RegisteredPrice, error) {
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

func newReconciler(t *testing.T, gateway payment.Gateway) (*payment.Reconciler, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{Platform: config.PlatformConfig{CommissionRate: 0.10}}
	return payment.NewReconciler(db, cfg, gateway, logger), db
}

func sellerEarningEntries(hook *logrustest.Hook) []*logrus.Entry {
	var entries []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Seller earning" {
			entries = append(entries, e)
		}
	}
	return entries
}

func paymentEvent(orderID string) *payment.WebhookEvent {
	return &payment.WebhookEvent{
		ID:       "evt_1",
		Type:     payment.EventPaymentSucceeded,
		ObjectID: "pi_1",
		Metadata: map[string]string{payment.MetadataOrderID: orderID},
	}
}

func TestHandleWebhookConfirmsPendingOrder(t *testing.T) {
	rec, db := newReconciler(t, &verifyGateway{event: paymentEvent("1")})

	o := &order.Order{UserID: 1, Subtotal: 1500, Total: 1500, Status: order.StatusPending}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	var after order.Order
	db.First(&after, o.ID)
	if after.Status != order.StatusConfirmed {
		t.Errorf("expected ORDER_CONFIRMED, got %s", after.Status)
	}
	if after.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	var events int64
	db.Model(&event.OutboxEvent{}).Where("type = ?", event.OrderStatusUpdated).Count(&events)
	if events != 1 {
		t.Errorf("expected 1 status event, got %d", events)
	}
}

func TestHandleWebhookIdempotentRedelivery(t *testing.T) {
	rec, db := newReconciler(t, &verifyGateway{event: paymentEvent("1")})

	o := &order.Order{UserID: 1, Subtotal: 1500, Total: 1500, Status: order.StatusPending}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("redelivery should be acknowledged, got %v", err)
	}

	var after order.Order
	db.First(&after, o.ID)
	if after.Status != order.StatusConfirmed {
		t.Errorf("expected ORDER_CONFIRMED, got %s", after.Status)
	}

	// The guarded update matched nothing the second time, so no duplicate event.
	var events int64
	db.Model(&event.OutboxEvent{}).Where("type = ?", event.OrderStatusUpdated).Count(&events)
	if events != 1 {
		t.Errorf("expected 1 status event after redelivery, got %d", events)
	}
}

func TestHandleWebhookLogsSellerEarnings(t *testing.T) {
	db := newTestDB(t)
	logger, hook := logrustest.NewNullLogger()
	cfg := &config.Config{Platform: config.PlatformConfig{CommissionRate: 0.10}}
	rec := payment.NewReconciler(db, cfg, &verifyGateway{event: paymentEvent("1")}, logger)

	p := &product.Product{ShopID: 7, Name: "Ceramic Mug", BasePrice: 1500, Stock: 5}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	o := &order.Order{
		UserID:   1,
		Subtotal: 3000,
		Total:    3000,
		Status:   order.StatusPending,
		Items: []order.OrderItem{
			{ProductID: p.ID, Title: "Ceramic Mug", Price: 1500, Quantity: 2},
		},
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("HandleWebhook failed: %v", err)
	}

	earnings := sellerEarningEntries(hook)
	if len(earnings) != 1 {
		t.Fatalf("expected 1 earnings entry after confirmation, got %d", len(earnings))
	}
	entry := earnings[0]
	if entry.Data["shop_id"] != p.ShopID {
		t.Errorf("expected shop_id %d, got %v", p.ShopID, entry.Data["shop_id"])
	}
	if entry.Data["gross"] != int64(3000) {
		t.Errorf("expected gross 3000, got %v", entry.Data["gross"])
	}
	if entry.Data["net"] != int64(2700) {
		t.Errorf("expected net 2700 at 10%% commission, got %v", entry.Data["net"])
	}

	// A redelivered event finds no PENDING row, so nothing is re-recorded.
	hook.Reset()
	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("redelivery should be acknowledged, got %v", err)
	}
	if len(sellerEarningEntries(hook)) != 0 {
		t.Error("expected no earnings entries on redelivery")
	}
}

func TestHandleWebhookDoesNotRegressShippedOrder(t *testing.T) {
	rec, db := newReconciler(t, &verifyGateway{event: paymentEvent("1")})

	o := &order.Order{UserID: 1, Subtotal: 1500, Total: 1500, Status: order.StatusShipped}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("late delivery should be acknowledged, got %v", err)
	}

	var after order.Order
	db.First(&after, o.ID)
	if after.Status != order.StatusShipped {
		t.Errorf("expected SHIPPED to survive late payment event, got %s", after.Status)
	}
}

func TestHandleWebhookMissingOrderMetadata(t *testing.T) {
	evt := &payment.WebhookEvent{ID: "evt_1", Type: payment.EventPaymentSucceeded, ObjectID: "pi_1"}
	rec, db := newReconciler(t, &verifyGateway{event: evt})

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("event without metadata should be acknowledged, got %v", err)
	}

	var events int64
	db.Model(&event.OutboxEvent{}).Count(&events)
	if events != 0 {
		t.Errorf("expected no events, got %d", events)
	}
}

func TestHandleWebhookMalformedOrderMetadata(t *testing.T) {
	rec, _ := newReconciler(t, &verifyGateway{event: paymentEvent("not-a-number")})

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("malformed metadata should be acknowledged, got %v", err)
	}
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	rec, _ := newReconciler(t, &verifyGateway{event: paymentEvent("9999")})

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("unknown order should be acknowledged, got %v", err)
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	rec, _ := newReconciler(t, &verifyGateway{err: errors.New("signature mismatch")})

	err := rec.HandleWebhook([]byte(`{}`), "bad-sig")
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestHandleWebhookAcknowledgesPayoutEvents(t *testing.T) {
	for _, eventType := range []string{payment.EventPayoutPaid, payment.EventPayoutFailed} {
		evt := &payment.WebhookEvent{ID: "evt_po", Type: eventType, ObjectID: "po_1"}
		rec, _ := newReconciler(t, &verifyGateway{event: evt})

		if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
			t.Errorf("%s should be acknowledged, got %v", eventType, err)
		}
	}
}

func TestHandleWebhookIgnoresUnrelatedEvents(t *testing.T) {
	evt := &payment.WebhookEvent{ID: "evt_x", Type: "customer.created", ObjectID: "cus_1"}
	rec, _ := newReconciler(t, &verifyGateway{event: evt})

	if err := rec.HandleWebhook([]byte(`{}`), "sig"); err != nil {
		t.Fatalf("unrelated event should be acknowledged, got %v", err)
	}
}
