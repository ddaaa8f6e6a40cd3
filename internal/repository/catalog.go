package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spiresync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProductNotFound = errors.New("product not found")

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindByExternalID returns nil, nil when no product carries the id.
func (r *CatalogRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		Order("created_at ASC").
		Limit(1).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find product by external id: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

func (r *CatalogRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *CatalogRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// FindMediaByTitle matches titles case-insensitively. Returns nil, nil when
// there is no such asset.
func (r *CatalogRepository) FindMediaByTitle(ctx context.Context, title string) (*models.MediaAsset, error) {
	var assets []models.MediaAsset
	err := r.db.WithContext(ctx).
		Where("LOWER(title) = LOWER(?)", title).
		Order("created_at ASC").
		Limit(1).
		Find(&assets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find media by title: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (r *CatalogRepository) CreateMedia(ctx context.Context, asset *models.MediaAsset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("failed to create media asset: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Image").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &product, nil
}

type ListOptions struct {
	Page   int
	Limit  int
	Status string
	Search string
}

func (r *CatalogRepository) List(ctx context.Context, opts ListOptions) ([]models.Product, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 20
	}

	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Product{})
		if opts.Status != "" {
			query = query.Where("status = ?", opts.Status)
		}
		if search := strings.TrimSpace(opts.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(title) LIKE ? OR LOWER(sku) LIKE ? OR external_id = ?", like, like, search)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := scoped().Order("created_at ASC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}
