package spire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string, number or boolean into its text form.
// Spire is not consistent about quoting ids and counts.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	switch data[0] {
	case '{', '[':
		return fmt.Errorf("spire: cannot decode %s into a scalar", data[:1])
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

func (f FlexString) Int() (int, error) {
	if n, err := strconv.Atoi(string(f)); err == nil {
		return n, nil
	}
	fl, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, err
	}
	return int(fl), nil
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Records  []T  `json:"records"`
	Count    int  `json:"count"`
	HasCount bool `json:"-"`
}

// ListParams are the query parameters shared by list endpoints. Filter must
// be a JSON object when set.
type ListParams struct {
	Start  int
	Limit  int
	Filter string
	UDF    bool
	Fields []string
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// InventoryRecord is a Spire inventory item. Only the fields the sync reads
// are typed; the full record is kept in Raw.
type InventoryRecord struct {
	ID          string
	PartNo      string
	Whse        string
	Description *string
	SellPrices  []json.RawMessage
	Weight      json.RawMessage
	UDF         map[string]interface{}
	Raw         json.RawMessage
}

func (r *InventoryRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID          FlexString             `json:"id"`
		PartNo      FlexString             `json:"partNo"`
		Whse        FlexString             `json:"whse"`
		Description *string                `json:"description"`
		Pricing     json.RawMessage        `json:"pricing"`
		UOM         json.RawMessage        `json:"uom"`
		UDF         map[string]interface{} `json:"udf"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.ID = strings.TrimSpace(aux.ID.String())
	r.PartNo = aux.PartNo.String()
	r.Whse = aux.Whse.String()
	r.Description = aux.Description
	r.UDF = aux.UDF
	r.Raw = append(json.RawMessage(nil), data...)

	r.SellPrices = nil
	if !isNull(aux.Pricing) {
		var pricing struct {
			SellPrice json.RawMessage `json:"sellPrice"`
		}
		if json.Unmarshal(aux.Pricing, &pricing) == nil {
			var prices []json.RawMessage
			if json.Unmarshal(pricing.SellPrice, &prices) == nil {
				r.SellPrices = prices
			}
		}
	}

	r.Weight = nil
	if !isNull(aux.UOM) {
		var uom struct {
			Weight json.RawMessage `json:"weight"`
		}
		if json.Unmarshal(aux.UOM, &uom) == nil && !isNull(uom.Weight) {
			r.Weight = uom.Weight
		}
	}

	return nil
}

func (r InventoryRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(map[string]interface{}{"id": r.ID})
}

// FeaturedImage returns udf.featured_image when it is a non-empty string.
func (r *InventoryRecord) FeaturedImage() string {
	if r.UDF == nil {
		return ""
	}
	if s, ok := r.UDF["featured_image"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

type InventoryPage struct {
	Records  []InventoryRecord `json:"records"`
	Count    int               `json:"count"`
	HasCount bool              `json:"-"`
	// Skipped counts list entries that could not be decoded at all.
	Skipped int `json:"-"`
}

type Company struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

type Warehouse struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	ProvState  string `json:"provState,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Customer struct {
	ID         FlexString `json:"id"`
	CustomerNo string     `json:"customerNo"`
	Name       string     `json:"name"`
	Status     FlexString `json:"status,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Address    *Address   `json:"address,omitempty"`
}

type Contact struct {
	Name  string     `json:"name"`
	Email string     `json:"email,omitempty"`
	Phone FlexString `json:"phone,omitempty"`
}

type PaymentMethod struct {
	ID          FlexString `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
}

type SalesOrderItem struct {
	InventoryID FlexString `json:"inventory_id,omitempty"`
	PartNo      string     `json:"partNo,omitempty"`
	Whse        string     `json:"whse,omitempty"`
	Description string     `json:"description,omitempty"`
	OrderQty    FlexString `json:"orderQty,omitempty"`
	SellPrice   FlexString `json:"sellPrice,omitempty"`
}

type SalesOrder struct {
	ID         FlexString       `json:"id,omitempty"`
	OrderNo    string           `json:"orderNo,omitempty"`
	Customer   *Customer        `json:"customer,omitempty"`
	Status     FlexString       `json:"status,omitempty"`
	OrderDate  string           `json:"orderDate,omitempty"`
	ShipDate   string           `json:"shipDate,omitempty"`
	Items      []SalesOrderItem `json:"items,omitempty"`
	Total      FlexString       `json:"total,omitempty"`
	Reference  string           `json:"referenceNo,omitempty"`
	ShippingID FlexString       `json:"shipVia,omitempty"`
}

type ShippingMethod struct {
	ID          FlexString `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
}

type Territory struct {
	ID          FlexString `json:"id"`
	Code        string     `json:"code"`
	Description string     `json:"description"`
}
