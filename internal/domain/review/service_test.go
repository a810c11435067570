// internal/domain/review/service_test.go
package review

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/your-org/marketplace-backend/internal/domain/event"
	"github.com/your-org/marketplace-backend/internal/domain/order"
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
		&order.Order{},
		&order.OrderItem{},
		&Review{},
		&event.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewService(db), db
}

func seedDeliveredOrder(t *testing.T, db *gorm.DB, userID, productID uint) *order.Order {
	t.Helper()

	o := &order.Order{
		UserID:   userID,
		Items:    []order.OrderItem{{ProductID: productID, Title: "Ceramic Mug", Price: 1500, Quantity: 1}},
		Subtotal: 1500,
		Total:    1500,
		Status:   order.StatusDelivered,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return o
}

func TestCreateReview(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 1, 10)

	r, err := svc.CreateReview(1, &CreateReviewRequest{
		OrderID:   o.ID,
		ProductID: 10,
		Rating:    5,
		Comment:   "Great mug",
	})
	if err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}
	if r.Rating != 5 || r.UserID != 1 {
		t.Errorf("unexpected review: %+v", r)
	}

	var events int64
	db.Model(&event.OutboxEvent{}).Where("type = ?", event.OrderReviewed).Count(&events)
	if events != 1 {
		t.Errorf("expected 1 ORDER_REVIEWED event, got %d", events)
	}
}

func TestCreateReviewRequiresDelivery(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 1, 10)
	db.Model(&order.Order{}).Where("id = ?", o.ID).Update("status", order.StatusShipped)

	_, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: 4})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for undelivered order, got %v", err)
	}
}

func TestCreateReviewProductMustBeOnOrder(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 1, 10)

	_, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 99, Rating: 4})
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for off-order product, got %v", err)
	}
}

func TestCreateReviewForeignOrder(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 42, 10)

	_, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: 4})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 1, 10)

	if _, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: 5}); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	_, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: 1})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for duplicate review, got %v", err)
	}
}

func TestListProductReviewsAverage(t *testing.T) {
	svc, db := newTestService(t)

	for i, rating := range []int{5, 4, 4} {
		o := seedDeliveredOrder(t, db, uint(i+1), 10)
		if _, err := svc.CreateReview(uint(i+1), &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: rating}); err != nil {
			t.Fatalf("CreateReview failed: %v", err)
		}
	}

	resp, err := svc.ListProductReviews(10)
	if err != nil {
		t.Fatalf("ListProductReviews failed: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("expected 3 reviews, got %d", resp.Count)
	}
	// 13/3 = 4.333..., rounded to one decimal.
	if resp.AverageRating != 4.3 {
		t.Errorf("expected average 4.3, got %v", resp.AverageRating)
	}

	empty, err := svc.ListProductReviews(999)
	if err != nil {
		t.Fatalf("ListProductReviews failed: %v", err)
	}
	if empty.Count != 0 || empty.AverageRating != 0 {
		t.Errorf("expected empty aggregate, got %+v", empty)
	}
}

func TestDeleteReview(t *testing.T) {
	svc, db := newTestService(t)
	o := seedDeliveredOrder(t, db, 1, 10)

	r, err := svc.CreateReview(1, &CreateReviewRequest{OrderID: o.ID, ProductID: 10, Rating: 5})
	if err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	// Only the author can delete.
	if err := svc.DeleteReview(2, r.ID); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for foreign review, got %v", err)
	}
	if err := svc.DeleteReview(1, r.ID); err != nil {
		t.Fatalf("DeleteReview failed: %v", err)
	}
}
