package spire

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductFields are the catalog fields derived from one inventory record.
type ProductFields struct {
	ExternalID string
	SKU        string
	Title      string
	Price      decimal.Decimal
	// Weight is nil when the record carries none; updates then leave the
	// stored weight untouched.
	Weight   *string
	ImageURL string
}

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// TransformRecord maps an inventory record onto catalog fields. Missing or
// malformed data falls back to defaults and never fails.
func (t *Transformer) TransformRecord(rec *InventoryRecord) ProductFields {
	fields := ProductFields{
		ExternalID: rec.ID,
		SKU:        rec.PartNo,
		Title:      "Product " + rec.ID,
		Price:      decimal.Zero,
		ImageURL:   rec.FeaturedImage(),
	}

	if rec.Description != nil {
		fields.Title = *rec.Description
	}

	if len(rec.SellPrices) > 0 {
		fields.Price = parsePrice(rec.SellPrices[0])
	}

	if len(rec.Weight) > 0 {
		w := scalarText(rec.Weight)
		fields.Weight = &w
	}

	return fields
}

func parsePrice(raw json.RawMessage) decimal.Decimal {
	text := strings.TrimSpace(scalarText(raw))
	if text == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return price
}

func scalarText(raw json.RawMessage) string {
	var f FlexString
	if err := json.Unmarshal(raw, &f); err != nil {
		return ""
	}
	return f.String()
}
