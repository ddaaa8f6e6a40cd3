package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spiresync/internal/encryption"
	"spiresync/internal/filter"
	"spiresync/internal/models"

	"gorm.io/gorm"
)

var ErrSettingsNotFound = errors.New("no settings found")

// ValidationError lists the required settings fields that were left empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + e.FieldList()
}

// FieldList renders the missing fields as "a, b, or c".
func (e *ValidationError) FieldList() string {
	return joinFields(e.Missing)
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", or " + fields[len(fields)-1]
	}
}

// SettingsInput is the unsanitized form submitted by admins or a settings
// file.
type SettingsInput struct {
	BaseURL         string                 `json:"base_url" yaml:"base_url"`
	CompanyName     string                 `json:"company_name" yaml:"company_name"`
	APIUsername     string                 `json:"api_username" yaml:"api_username"`
	APIPassword     string                 `json:"api_password" yaml:"api_password"`
	Conditions      []models.SyncCondition `json:"conditions" yaml:"conditions"`
	MatchType       string                 `json:"match_type" yaml:"match_type"`
	WarehouseFilter string                 `json:"warehouse_filter" yaml:"warehouse_filter"`
	CategoryFilter  string                 `json:"category_filter" yaml:"category_filter"`
	SyncInterval    string                 `json:"sync_interval" yaml:"sync_interval"`
}

// Sanitize validates required credentials and coerces enums to their
// defaults: operator to equals, match type to all, interval to hourly.
// Conditions on unknown fields are dropped.
func Sanitize(in SettingsInput) (*models.SyncSettings, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"base_url", in.BaseURL},
		{"company_name", in.CompanyName},
		{"api_username", in.APIUsername},
		{"api_password", in.APIPassword},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	conditions := make([]models.SyncCondition, 0, len(in.Conditions))
	for _, c := range in.Conditions {
		key := strings.TrimSpace(c.Key)
		if !filter.ValidKey(key) {
			continue
		}
		conditions = append(conditions, models.SyncCondition{
			Key:      key,
			Operator: filter.NormalizeOperator(string(c.Operator)),
			Value:    strings.TrimSpace(c.Value),
		})
	}

	s := &models.SyncSettings{
		Name:            models.SettingsKey,
		BaseURL:         strings.TrimRight(strings.TrimSpace(in.BaseURL), "/"),
		CompanyName:     strings.TrimSpace(in.CompanyName),
		APIUsername:     strings.TrimSpace(in.APIUsername),
		APIPassword:     in.APIPassword,
		MatchType:       filter.NormalizeMatchType(in.MatchType),
		WarehouseFilter: strings.TrimSpace(in.WarehouseFilter),
		CategoryFilter:  strings.TrimSpace(in.CategoryFilter),
		SyncInterval:    normalizeInterval(in.SyncInterval),
	}
	s.SetConditions(conditions)
	return s, nil
}

func normalizeInterval(v string) models.SyncInterval {
	switch i := models.SyncInterval(strings.TrimSpace(v)); i {
	case models.IntervalHourly, models.IntervalDaily, models.IntervalWeekly:
		return i
	default:
		return models.IntervalHourly
	}
}

// SettingsRepository persists the single canonical settings row. The API
// password is encrypted on write and decrypted on read.
type SettingsRepository struct {
	db     *gorm.DB
	cipher *encryption.Cipher
}

func NewSettingsRepository(db *gorm.DB, cipher *encryption.Cipher) *SettingsRepository {
	return &SettingsRepository{db: db, cipher: cipher}
}

func (r *SettingsRepository) Get(ctx context.Context) (*models.SyncSettings, error) {
	var s models.SyncSettings
	if err := r.db.WithContext(ctx).Where("name = ?", models.SettingsKey).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if s.APIPassword != "" {
		plain, err := r.cipher.Decrypt(s.APIPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt api password: %w", err)
		}
		s.APIPassword = plain
	}
	return &s, nil
}

// Load returns the stored settings, or the defaults when none were saved.
func (r *SettingsRepository) Load(ctx context.Context) (*models.SyncSettings, error) {
	s, err := r.Get(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		return models.DefaultSyncSettings(), nil
	}
	return s, err
}

// Save upserts the settings row. s keeps its plaintext password.
func (r *SettingsRepository) Save(ctx context.Context, s *models.SyncSettings) error {
	row := *s
	row.Name = models.SettingsKey

	if row.APIPassword != "" {
		enc, err := r.cipher.Encrypt(row.APIPassword)
		if err != nil {
			return fmt.Errorf("failed to encrypt api password: %w", err)
		}
		row.APIPassword = enc
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SyncSettings
		err := tx.Where("name = ?", models.SettingsKey).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("failed to update settings: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			row.ID = ""
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create settings: %w", err)
			}
		default:
			return fmt.Errorf("failed to load settings: %w", err)
		}

		s.ID = row.ID
		s.Name = row.Name
		s.CreatedAt = row.CreatedAt
		s.UpdatedAt = row.UpdatedAt
		return nil
	})
}
