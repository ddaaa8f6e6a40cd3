package spire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
)

func (c *Client) list(ctx context.Context, endpoint string, params ListParams) (json.RawMessage, error) {
	query, err := params.Query()
	if err != nil {
		return nil, err
	}
	return c.call(ctx, http.MethodGet, endpoint, query, nil)
}

func decodePage[T any](data json.RawMessage, shape Shape) (*Page[T], error) {
	page := &Page[T]{}
	if isNull(data) {
		return page, nil
	}

	if err := json.Unmarshal(Unwrap(shape, data), &page.Records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", shape, err)
	}
	page.Count, page.HasCount = count(data)
	return page, nil
}

func decodeOne[T any](data json.RawMessage) (*T, error) {
	var out T
	if isNull(data) {
		return &out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// TestConnection issues an authenticated GET on the API root.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "", nil, nil)
	return err
}

func (c *Client) GetCompanies(ctx context.Context) ([]Company, error) {
	data, err := c.call(ctx, http.MethodGet, "companies", nil, nil)
	if err != nil {
		return nil, err
	}
	page, err := decodePage[Company](data, ShapeCompanies)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

// GetInventoryItems fetches one page of inventory. Entries that do not
// decode are counted in Skipped and dropped.
func (c *Client) GetInventoryItems(ctx context.Context, params ListParams) (*InventoryPage, error) {
	data, err := c.list(ctx, c.companyPath("inventory/items"), params)
	if err != nil {
		return nil, err
	}

	page := &InventoryPage{}
	if isNull(data) {
		return page, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(Unwrap(ShapeRecords, data), &raws); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	page.Records = make([]InventoryRecord, 0, len(raws))
	for _, raw := range raws {
		var rec InventoryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("Skipping undecodable inventory record: %v", err)
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, rec)
	}
	page.Count, page.HasCount = count(data)
	return page, nil
}

func (c *Client) GetInventoryItem(ctx context.Context, id string) (*InventoryRecord, error) {
	data, err := c.call(ctx, http.MethodGet, c.companyPath("inventory/items/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[InventoryRecord](data)
}

// GetWarehouses lists warehouses with an empty code dropped, ordered by code.
func (c *Client) GetWarehouses(ctx context.Context) ([]Warehouse, error) {
	data, err := c.call(ctx, http.MethodGet, c.companyPath("inventory/warehouses"), nil, nil)
	if err != nil {
		return nil, err
	}
	page, err := decodePage[Warehouse](data, ShapeRecords)
	if err != nil {
		return nil, err
	}
	return SortWarehouses(page.Records), nil
}

// SortWarehouses drops entries without a code and sorts the rest by code,
// comparing bytes.
func SortWarehouses(in []Warehouse) []Warehouse {
	out := make([]Warehouse, 0, len(in))
	for _, w := range in {
		if w.Code != "" {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

func (c *Client) GetCustomers(ctx context.Context, params ListParams) (*Page[Customer], error) {
	data, err := c.list(ctx, c.companyPath("customers"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[Customer](data, ShapeRecords)
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	data, err := c.call(ctx, http.MethodGet, c.companyPath("customers/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[Customer](data)
}

func (c *Client) GetCustomerContacts(ctx context.Context, customerID string, params ListParams) (*Page[Contact], error) {
	data, err := c.list(ctx, c.companyPath("customers/"+url.PathEscape(customerID)+"/contacts"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[Contact](data, ShapeRecords)
}

func (c *Client) GetPaymentMethods(ctx context.Context, params ListParams) (*Page[PaymentMethod], error) {
	data, err := c.list(ctx, c.companyPath("payment_methods"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[PaymentMethod](data, ShapeRecords)
}

func (c *Client) GetSalesOrders(ctx context.Context, params ListParams) (*Page[SalesOrder], error) {
	data, err := c.list(ctx, c.companyPath("sales/orders"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[SalesOrder](data, ShapeRecords)
}

func (c *Client) GetSalesOrder(ctx context.Context, id string) (*SalesOrder, error) {
	data, err := c.call(ctx, http.MethodGet, c.companyPath("sales/orders/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[SalesOrder](data)
}

func (c *Client) CreateSalesOrder(ctx context.Context, order interface{}) (*SalesOrder, error) {
	data, err := c.call(ctx, http.MethodPost, c.companyPath("sales/orders"), nil, order)
	if err != nil {
		return nil, err
	}
	return decodeOne[SalesOrder](data)
}

func (c *Client) UpdateSalesOrder(ctx context.Context, id string, order interface{}) (*SalesOrder, error) {
	data, err := c.call(ctx, http.MethodPut, c.companyPath("sales/orders/"+url.PathEscape(id)), nil, order)
	if err != nil {
		return nil, err
	}
	return decodeOne[SalesOrder](data)
}

func (c *Client) GetShippingMethods(ctx context.Context, params ListParams) (*Page[ShippingMethod], error) {
	data, err := c.list(ctx, c.companyPath("shipping_methods"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[ShippingMethod](data, ShapeRecords)
}

func (c *Client) GetTerritories(ctx context.Context, params ListParams) (*Page[Territory], error) {
	data, err := c.list(ctx, c.companyPath("territories"), params)
	if err != nil {
		return nil, err
	}
	return decodePage[Territory](data, ShapeRecords)
}

func (c *Client) GetTerritory(ctx context.Context, id string) (*Territory, error) {
	data, err := c.call(ctx, http.MethodGet, c.companyPath("territories/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeOne[Territory](data)
}
