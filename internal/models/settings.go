package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettingsKey names the single canonical settings row.
const SettingsKey = "spire_sync_settings"

type MatchType string

const (
	MatchAll MatchType = "all"
	MatchAny MatchType = "any"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

type SyncInterval string

const (
	IntervalHourly SyncInterval = "hourly"
	IntervalDaily  SyncInterval = "daily"
	IntervalWeekly SyncInterval = "weekly"
)

// ConditionKeys lists the inventory fields a condition may filter on.
var ConditionKeys = []string{
	"upload", "status", "whse", "category", "type", "active", "price",
	"stock", "min_stock", "max_stock", "taxable", "weight", "length",
	"width", "height",
}

type SyncCondition struct {
	Key      string   `json:"key" yaml:"key"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    string   `json:"value" yaml:"value"`
}

// SyncSettings is the stored ERP connection and filter configuration.
// APIPassword is encrypted at rest; repositories hand out decrypted copies.
type SyncSettings struct {
	ID              string                              `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string                              `json:"-" gorm:"uniqueIndex;not null"`
	BaseURL         string                              `json:"base_url"`
	CompanyName     string                              `json:"company_name"`
	APIUsername     string                              `json:"api_username"`
	APIPassword     string                              `json:"api_password,omitempty"`
	Conditions      datatypes.JSONType[[]SyncCondition] `json:"conditions"`
	MatchType       MatchType                           `json:"match_type"`
	WarehouseFilter string                              `json:"warehouse_filter"`
	CategoryFilter  string                              `json:"category_filter"`
	SyncInterval    SyncInterval                        `json:"sync_interval"`
	CreatedAt       time.Time                           `json:"created_at"`
	UpdatedAt       time.Time                           `json:"updated_at"`
}

func (s *SyncSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Name == "" {
		s.Name = SettingsKey
	}
	return nil
}

// ConditionList returns the stored conditions.
func (s *SyncSettings) ConditionList() []SyncCondition {
	return s.Conditions.Data()
}

func (s *SyncSettings) SetConditions(conditions []SyncCondition) {
	s.Conditions = datatypes.NewJSONType(conditions)
}

// HasCredentials reports whether enough is configured to reach the ERP.
func (s *SyncSettings) HasCredentials() bool {
	return s.BaseURL != "" && s.CompanyName != "" && s.APIUsername != "" && s.APIPassword != ""
}

// DefaultSyncSettings mirrors a fresh install: only uploadable, active items.
func DefaultSyncSettings() *SyncSettings {
	s := &SyncSettings{
		Name:         SettingsKey,
		MatchType:    MatchAll,
		SyncInterval: IntervalHourly,
	}
	s.SetConditions([]SyncCondition{
		{Key: "upload", Operator: OpEquals, Value: "true"},
		{Key: "status", Operator: OpEquals, Value: "0"},
	})
	return s
}
