// Package woocommerce applies Spire inventory records to the product catalog.
package woocommerce

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/services/spire"
)

var ErrMissingExternalID = errors.New("record has no external id")

// Catalog is the product store the writer reads and writes.
type Catalog interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	FindMediaByTitle(ctx context.Context, title string) (*models.MediaAsset, error)
}

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

type Writer struct {
	catalog     Catalog
	transformer *spire.Transformer
	logger      *logger.Logger
}

func New(catalog Catalog, logger *logger.Logger) *Writer {
	return &Writer{
		catalog:     catalog,
		transformer: spire.NewTransformer(),
		logger:      logger,
	}
}

// Apply creates or updates the catalog product matched by the record id.
// It writes at most one product and never deletes.
func (w *Writer) Apply(ctx context.Context, rec *spire.InventoryRecord) (Outcome, error) {
	if rec.ID == "" {
		return "", ErrMissingExternalID
	}

	fields := w.transformer.TransformRecord(rec)

	existing, err := w.catalog.FindByExternalID(ctx, fields.ExternalID)
	if err != nil {
		return "", err
	}

	imageID, err := w.ResolveImage(ctx, fields.ImageURL)
	if err != nil {
		return "", err
	}

	if existing != nil {
		w.logger.Info("Updating product ID %s for Spire record ID %s.", existing.ID, fields.ExternalID)

		existing.Title = fields.Title
		existing.RegularPrice = fields.Price
		if fields.Weight != nil {
			existing.Weight = *fields.Weight
		}
		if fields.SKU != "" {
			existing.SKU = fields.SKU
		}
		existing.ImageID = imageID
		existing.Image = nil
		existing.Metadata = mergeMetadata(existing.Metadata, rec)

		if err := w.catalog.Update(ctx, existing); err != nil {
			return "", err
		}
		return OutcomeUpdated, nil
	}

	w.logger.Info("Creating new product for Spire record ID %s.", fields.ExternalID)

	product := &models.Product{
		ExternalID:   fields.ExternalID,
		SKU:          fields.SKU,
		Title:        fields.Title,
		Status:       models.ProductStatusPublished,
		RegularPrice: fields.Price,
		ImageID:      imageID,
		Metadata:     mergeMetadata(nil, rec),
	}
	if fields.Weight != nil {
		product.Weight = *fields.Weight
	}

	if err := w.catalog.Create(ctx, product); err != nil {
		return "", err
	}
	return OutcomeCreated, nil
}

// ResolveImage links an image URL to an existing media asset by file name.
// A nil id means the product should carry no image.
func (w *Writer) ResolveImage(ctx context.Context, imageURL string) (*string, error) {
	title, ok := ImageTitle(imageURL)
	if !ok {
		return nil, nil
	}

	asset, err := w.catalog.FindMediaByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image %q: %w", title, err)
	}
	if asset == nil {
		w.logger.Debug("No media asset titled %q", title)
		return nil, nil
	}

	id := asset.ID
	return &id, nil
}

// ImageTitle extracts the file name without extension from an absolute URL.
func ImageTitle(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return "", false
	}

	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		return "", false
	}
	return name, true
}

func mergeMetadata(existing map[string]interface{}, rec *spire.InventoryRecord) map[string]interface{} {
	out := make(map[string]interface{}, len(existing)+2)
	for k, v := range existing {
		out[k] = v
	}
	if rec.PartNo != "" {
		out["spire_part_no"] = rec.PartNo
	}
	if rec.Whse != "" {
		out["spire_whse"] = rec.Whse
	}
	return out
}
