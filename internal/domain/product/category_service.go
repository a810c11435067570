// internal/domain/product/category_service.go
package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// CategoryService handles category management
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// CreateCategoryRequest represents category creation data
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=255"`
	Description string `json:"description" binding:"max=500"`
	ParentID    *uint  `json:"parent_id"`
}

// CreateCategory creates a category (admin operation)
func (s *CategoryService) CreateCategory(req *CreateCategoryRequest) (*Category, error) {
	slug := slugify(req.Name)

	var existing Category
	err := s.db.Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("category %q already exists", req.Name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check category: %w", err)
	}

	if req.ParentID != nil {
		var parent Category
		if err := s.db.First(&parent, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("parent category %d not found", *req.ParentID)
			}
			return nil, fmt.Errorf("failed to get parent category: %w", err)
		}
	}

	category := Category{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return &category, nil
}

// ListCategories returns all active categories with their children
func (s *CategoryService) ListCategories() ([]Category, error) {
	var categories []Category
	err := s.db.Preload("Children").
		Where("is_active = ? AND parent_id IS NULL", true).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a category by its slug
func (s *CategoryService) GetCategoryBySlug(slug string) (*Category, error) {
	var category Category
	err := s.db.Preload("Children").Where("slug = ?", slug).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("category %q not found", slug)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// DeleteCategory soft deletes a category (admin operation). Products keep
// their category_id until reassigned.
func (s *CategoryService) DeleteCategory(categoryID uint) error {
	result := s.db.Delete(&Category{}, categoryID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("category %d not found", categoryID)
	}
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
