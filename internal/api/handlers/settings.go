package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"spiresync/internal/encryption"
	"spiresync/internal/inventory"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/repository"

	"github.com/gin-gonic/gin"
)

type SettingsStore interface {
	Get(ctx context.Context) (*models.SyncSettings, error)
	Load(ctx context.Context) (*models.SyncSettings, error)
	Save(ctx context.Context, s *models.SyncSettings) error
}

// Connector is the slice of the ERP client used to verify credentials.
type Connector interface {
	TestConnection(ctx context.Context) error
}

type ConnectorFactory func(s *models.SyncSettings) Connector

type SettingsHandler struct {
	store     SettingsStore
	cipher    *encryption.Cipher
	newClient ConnectorFactory
	logger    *logger.Logger
}

func NewSettingsHandler(store SettingsStore, cipher *encryption.Cipher, newClient ConnectorFactory, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:     store,
		cipher:    cipher,
		newClient: newClient,
		logger:    logger,
	}
}

// Get returns the stored settings. The password is never sent back.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.store.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": false, "message": userMessage(err)})
			return
		}
		h.logger.Error("Failed to load settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	settings.APIPassword = ""
	c.JSON(http.StatusOK, gin.H{"success": true, "data": settings})
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var input repository.SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := repository.Sanitize(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": userMessage(err)})
		return
	}

	if err := h.store.Save(c.Request.Context(), settings); err != nil {
		h.logger.Error("Failed to save settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	h.logger.Info("Spire settings updated for company %s", settings.CompanyName)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings saved successfully."})
}

type connectionRequest struct {
	BaseURL     string `json:"base_url"`
	CompanyName string `json:"company_name"`
	APIUsername string `json:"api_username"`
	APIPassword string `json:"api_password"`
}

// TestConnection checks credentials against the ERP root. Fields left out of
// the request body fall back to the stored settings.
func (h *SettingsHandler) TestConnection(c *gin.Context) {
	var req connectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	stored, err := h.store.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	candidate := *stored
	overlay(&candidate.BaseURL, req.BaseURL)
	overlay(&candidate.CompanyName, req.CompanyName)
	overlay(&candidate.APIUsername, req.APIUsername)
	overlay(&candidate.APIPassword, req.APIPassword)

	if candidate.BaseURL == "" || candidate.APIUsername == "" || candidate.APIPassword == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": userMessage(inventory.ErrMissingCredentials)})
		return
	}

	if err := h.newClient(&candidate).TestConnection(c.Request.Context()); err != nil {
		h.logger.Warn("Spire connection test failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection successful."})
}

func overlay(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

type encryptRequest struct {
	Data string `json:"data"`
}

func (h *SettingsHandler) Encrypt(c *gin.Context) {
	var req encryptRequest
	_ = c.ShouldBindJSON(&req)
	if req.Data == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Data is required"})
		return
	}

	encrypted, err := h.cipher.Encrypt(req.Data)
	if err != nil {
		h.logger.Error("Failed to encrypt data: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encrypt data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": encrypted})
}
