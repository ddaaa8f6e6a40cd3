package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/services/spire"

	"github.com/gin-gonic/gin"
)

// ERPClient is the set of Spire calls exposed through the API.
type ERPClient interface {
	GetCompanies(ctx context.Context) ([]spire.Company, error)
	GetInventoryItems(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error)
	GetInventoryItem(ctx context.Context, id string) (*spire.InventoryRecord, error)
	GetWarehouses(ctx context.Context) ([]spire.Warehouse, error)
	GetCustomers(ctx context.Context, params spire.ListParams) (*spire.Page[spire.Customer], error)
	GetCustomer(ctx context.Context, id string) (*spire.Customer, error)
	GetCustomerContacts(ctx context.Context, customerID string, params spire.ListParams) (*spire.Page[spire.Contact], error)
	GetPaymentMethods(ctx context.Context, params spire.ListParams) (*spire.Page[spire.PaymentMethod], error)
	GetSalesOrders(ctx context.Context, params spire.ListParams) (*spire.Page[spire.SalesOrder], error)
	GetSalesOrder(ctx context.Context, id string) (*spire.SalesOrder, error)
	CreateSalesOrder(ctx context.Context, order interface{}) (*spire.SalesOrder, error)
	UpdateSalesOrder(ctx context.Context, id string, order interface{}) (*spire.SalesOrder, error)
	GetShippingMethods(ctx context.Context, params spire.ListParams) (*spire.Page[spire.ShippingMethod], error)
	GetTerritories(ctx context.Context, params spire.ListParams) (*spire.Page[spire.Territory], error)
	GetTerritory(ctx context.Context, id string) (*spire.Territory, error)
}

type ERPClientFactory func(s *models.SyncSettings) ERPClient

type SettingsLoader interface {
	Load(ctx context.Context) (*models.SyncSettings, error)
}

// SpireHandler proxies read and order endpoints of the ERP using the
// stored credentials.
type SpireHandler struct {
	settings  SettingsLoader
	newClient ERPClientFactory
	logger    *logger.Logger
}

func NewSpireHandler(settings SettingsLoader, newClient ERPClientFactory, logger *logger.Logger) *SpireHandler {
	return &SpireHandler{
		settings:  settings,
		newClient: newClient,
		logger:    logger,
	}
}

func (h *SpireHandler) client(c *gin.Context) (ERPClient, bool) {
	settings, err := h.settings.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load settings"})
		return nil, false
	}
	if !settings.HasCredentials() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": userMessage(inventory.ErrMissingCredentials)})
		return nil, false
	}
	return h.newClient(settings), true
}

func listParams(c *gin.Context) spire.ListParams {
	params := spire.ListParams{
		Filter: c.Query("filter"),
	}
	params.Start, _ = strconv.Atoi(c.Query("start"))
	params.Limit, _ = strconv.Atoi(c.Query("limit"))
	if udf := c.Query("udf"); udf != "" {
		params.UDF, _ = strconv.ParseBool(udf)
	}
	if fields := c.Query("fields"); fields != "" {
		params.Fields = strings.Split(fields, ",")
	}
	return params
}

// respond writes the {success, data|error} body the admin UI expects.
func (h *SpireHandler) respond(c *gin.Context, data interface{}, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
		return
	}

	var apiErr *spire.APIError
	switch {
	case errors.Is(err, spire.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": userMessage(err)})
	case spire.IsTransport(err):
		h.logger.Warn("Spire request failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": apiErr.Error()})
	default:
		h.logger.Error("Spire request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

func (h *SpireHandler) Companies(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	companies, err := client.GetCompanies(c.Request.Context())
	h.respond(c, companies, err)
}

func (h *SpireHandler) InventoryItems(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetInventoryItems(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) InventoryItem(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	item, err := client.GetInventoryItem(c.Request.Context(), c.Param("id"))
	h.respond(c, item, err)
}

func (h *SpireHandler) Warehouses(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	warehouses, err := client.GetWarehouses(c.Request.Context())
	h.respond(c, warehouses, err)
}

func (h *SpireHandler) Customers(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetCustomers(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) Customer(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	customer, err := client.GetCustomer(c.Request.Context(), c.Param("id"))
	h.respond(c, customer, err)
}

func (h *SpireHandler) CustomerContacts(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetCustomerContacts(c.Request.Context(), c.Param("id"), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) PaymentMethods(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetPaymentMethods(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) SalesOrders(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetSalesOrders(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) SalesOrder(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	order, err := client.GetSalesOrder(c.Request.Context(), c.Param("id"))
	h.respond(c, order, err)
}

func (h *SpireHandler) CreateSalesOrder(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}
	order, err := client.CreateSalesOrder(c.Request.Context(), body)
	h.respond(c, order, err)
}

func (h *SpireHandler) UpdateSalesOrder(c *gin.Context) {
	var body json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	client, ok := h.client(c)
	if !ok {
		return
	}
	order, err := client.UpdateSalesOrder(c.Request.Context(), c.Param("id"), body)
	h.respond(c, order, err)
}

func (h *SpireHandler) ShippingMethods(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetShippingMethods(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) Territories(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	page, err := client.GetTerritories(c.Request.Context(), listParams(c))
	h.respond(c, page, err)
}

func (h *SpireHandler) Territory(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	territory, err := client.GetTerritory(c.Request.Context(), c.Param("id"))
	h.respond(c, territory, err)
}
