package repository

import (
	"context"
	"path/filepath"
	"testing"

	"spiresync/internal/database"
	"spiresync/internal/encryption"
	"spiresync/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New("sqlite://" + filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func validInput() SettingsInput {
	return SettingsInput{
		BaseURL:     "https://spire.example.com/api/v2/",
		CompanyName: "acme",
		APIUsername: "sync",
		APIPassword: "s3cret",
	}
}

func TestSanitize_MissingFields(t *testing.T) {
	_, err := Sanitize(SettingsInput{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "missing required fields: base_url, company_name, api_username, or api_password", err.Error())

	in := validInput()
	in.APIPassword = "  "
	_, err = Sanitize(in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"api_password"}, verr.Missing)
}

func TestSanitize_Coercion(t *testing.T) {
	in := validInput()
	in.MatchType = "either"
	in.SyncInterval = "monthly"
	in.Conditions = []models.SyncCondition{
		{Key: "whse", Operator: "equals", Value: " 01 "},
		{Key: "price", Operator: "between", Value: "10"},
		{Key: "userDef1", Operator: "equals", Value: "acme"},
		{Key: "category", Operator: "contains", Value: "tools"},
	}

	s, err := Sanitize(in)
	require.NoError(t, err)

	assert.Equal(t, "https://spire.example.com/api/v2", s.BaseURL)
	assert.Equal(t, models.MatchAll, s.MatchType)
	assert.Equal(t, models.IntervalHourly, s.SyncInterval)
	assert.Equal(t, []models.SyncCondition{
		{Key: "whse", Operator: models.OpEquals, Value: "01"},
		{Key: "price", Operator: models.OpEquals, Value: "10"},
		{Key: "category", Operator: models.OpContains, Value: "tools"},
	}, s.ConditionList())

	in.MatchType = "any"
	in.SyncInterval = "weekly"
	s, err = Sanitize(in)
	require.NoError(t, err)
	assert.Equal(t, models.MatchAny, s.MatchType)
	assert.Equal(t, models.IntervalWeekly, s.SyncInterval)
}

func TestSettingsRepository_SaveGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingsRepository(db, encryption.New("test-key"))
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	defaults, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, defaults.ConditionList(), 2)

	s, err := Sanitize(validInput())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "s3cret", s.APIPassword)

	var raw models.SyncSettings
	require.NoError(t, db.First(&raw).Error)
	assert.NotEqual(t, "s3cret", raw.APIPassword)
	assert.NotEmpty(t, raw.APIPassword)

	loaded, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", loaded.APIPassword)
	assert.Equal(t, "acme", loaded.CompanyName)

	// Saving again updates the same row.
	in := validInput()
	in.CompanyName = "globex"
	s2, err := Sanitize(in)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, s2))
	assert.Equal(t, s.ID, s2.ID)

	var rows int64
	require.NoError(t, db.Model(&models.SyncSettings{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	loaded, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "globex", loaded.CompanyName)
}

func TestSettingsRepository_WrongKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s, err := Sanitize(validInput())
	require.NoError(t, err)
	require.NoError(t, NewSettingsRepository(db, encryption.New("key-one")).Save(ctx, s))

	loaded, err := NewSettingsRepository(db, encryption.New("key-two")).Get(ctx)
	if err == nil {
		assert.NotEqual(t, "s3cret", loaded.APIPassword)
	}
}

func TestCatalogRepository_FindCreateUpdate(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	found, err := repo.FindByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Nil(t, found)

	p := &models.Product{ExternalID: "42", Title: "Widget", Status: models.ProductStatusPublished, RegularPrice: decimal.RequireFromString("9.99")}
	require.NoError(t, repo.Create(ctx, p))

	found, err = repo.FindByExternalID(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, p.ID, found.ID)

	found.RegularPrice = decimal.RequireFromString("12.50")
	require.NoError(t, repo.Update(ctx, found))

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(again.RegularPrice))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogRepository_DuplicateExternalID(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Product{ExternalID: "42", Title: "Widget"}))
	assert.Error(t, repo.Create(ctx, &models.Product{ExternalID: "42", Title: "Widget copy"}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCatalogRepository_FindMediaByTitle(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateMedia(ctx, &models.MediaAsset{Title: "Widget-Front", URL: "https://cdn.example.com/Widget-Front.png"}))

	asset, err := repo.FindMediaByTitle(ctx, "widget-front")
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, "Widget-Front", asset.Title)

	asset, err = repo.FindMediaByTitle(ctx, "widget")
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestCatalogRepository_List(t *testing.T) {
	repo := NewCatalogRepository(newTestDB(t))
	ctx := context.Background()

	for _, p := range []models.Product{
		{ExternalID: "1", Title: "Hammer", SKU: "HT-1", Status: models.ProductStatusPublished},
		{ExternalID: "2", Title: "Drill", SKU: "PT-2", Status: models.ProductStatusPublished},
		{ExternalID: "3", Title: "Claw Hammer", SKU: "HT-3", Status: models.ProductStatusDraft},
	} {
		p := p
		require.NoError(t, repo.Create(ctx, &p))
	}

	products, total, err := repo.List(ctx, ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, products, 2)

	products, total, err = repo.List(ctx, ListOptions{Search: "hammer"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 2)

	products, total, err = repo.List(ctx, ListOptions{Status: "draft"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "3", products[0].ExternalID)
}
