// internal/domain/product/category_service_test.go
package product

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newCategoryService(t *testing.T) *CategoryService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&Category{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewCategoryService(db)
}

func TestCreateCategorySlugConflict(t *testing.T) {
	svc := newCategoryService(t)

	c, err := svc.CreateCategory(&CreateCategoryRequest{Name: "Home & Living"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if c.Slug != "home--living" {
		t.Errorf("unexpected slug %q", c.Slug)
	}

	// Same name slugifies to the same value.
	_, err = svc.CreateCategory(&CreateCategoryRequest{Name: "Home & Living"})
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict for duplicate slug, got %v", err)
	}
}

func TestCreateCategoryParentChecks(t *testing.T) {
	svc := newCategoryService(t)

	missing := uint(99)
	_, err := svc.CreateCategory(&CreateCategoryRequest{Name: "Mugs", ParentID: &missing})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}

	parent, err := svc.CreateCategory(&CreateCategoryRequest{Name: "Kitchen"})
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := svc.CreateCategory(&CreateCategoryRequest{Name: "Mugs", ParentID: &parent.ID}); err != nil {
		t.Fatalf("CreateCategory with parent failed: %v", err)
	}

	// Listing returns roots with children attached.
	roots, err := svc.ListCategories()
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(roots) != 1 || len(roots[0].Children) != 1 {
		t.Fatalf("unexpected category tree: %+v", roots)
	}
}

func TestGetCategoryBySlug(t *testing.T) {
	svc := newCategoryService(t)

	if _, err := svc.CreateCategory(&CreateCategoryRequest{Name: "Jewelry"}); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	c, err := svc.GetCategoryBySlug("jewelry")
	if err != nil {
		t.Fatalf("GetCategoryBySlug failed: %v", err)
	}
	if c.Name != "Jewelry" {
		t.Errorf("unexpected category %q", c.Name)
	}

	if _, err := svc.GetCategoryBySlug("nope"); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
