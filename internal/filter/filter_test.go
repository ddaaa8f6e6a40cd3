package filter

import (
	"encoding/json"
	"testing"

	"spiresync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cond(key, op, value string) models.SyncCondition {
	return models.SyncCondition{Key: key, Operator: models.Operator(op), Value: value}
}

func encode(t *testing.T, e Expression) string {
	t.Helper()
	s, err := e.JSON()
	require.NoError(t, err)
	return s
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		conditions []models.SyncCondition
		matchType  models.MatchType
		want       string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:       "single equals",
			conditions: []models.SyncCondition{cond("whse", "equals", "01")},
			matchType:  models.MatchAll,
			want:       `{"whse":"01"}`,
		},
		{
			name:       "numeric key",
			conditions: []models.SyncCondition{cond("status", "equals", "0")},
			want:       `{"status":0}`,
		},
		{
			name: "all",
			conditions: []models.SyncCondition{
				cond("upload", "equals", "TRUE"),
				cond("price", "greater_than", "9.5"),
			},
			matchType: models.MatchAll,
			want:      `{"$and":[{"upload":"TRUE"},{"price":{"$gt":9.5}}]}`,
		},
		{
			name: "any",
			conditions: []models.SyncCondition{
				cond("category", "contains", "tool"),
				cond("stock", "less_than", "5"),
				cond("type", "not_equals", "S"),
			},
			matchType: models.MatchAny,
			want:      `{"$or":[{"category":{"$like":"%tool%"}},{"stock":{"$lt":5}},{"type":{"$ne":"S"}}]}`,
		},
		{
			name:       "unknown operator falls back to equals",
			conditions: []models.SyncCondition{cond("whse", "between", "01")},
			want:       `{"whse":"01"}`,
		},
		{
			name: "unknown match type falls back to all",
			conditions: []models.SyncCondition{
				cond("whse", "equals", "01"),
				cond("type", "equals", "N"),
			},
			matchType: "some",
			want:      `{"$and":[{"whse":"01"},{"type":"N"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encode(t, Build(tt.conditions, tt.matchType))
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestAnd(t *testing.T) {
	assert.Nil(t, And(nil, nil))

	base := Expression{"whse": "01"}
	assert.Equal(t, base, And(nil, base))

	got := encode(t, And(base, Build([]models.SyncCondition{cond("type", "equals", "N")}, models.MatchAll)))
	assert.JSONEq(t, `{"$and":[{"whse":"01"},{"type":"N"}]}`, got)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, models.OpContains, NormalizeOperator("contains"))
	assert.Equal(t, models.OpEquals, NormalizeOperator("LIKE"))
	assert.Equal(t, models.OpEquals, NormalizeOperator(""))
	assert.Equal(t, models.MatchAny, NormalizeMatchType("any"))
	assert.Equal(t, models.MatchAll, NormalizeMatchType("ANY"))
	assert.True(t, ValidKey("min_stock"))
	assert.False(t, ValidKey("userDef1"))
}

func records(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","whse":"01","category":"Hand Tools","price":5,"stock":10,"upload":"TRUE","type":"N"},
		{"id":"2","whse":"02","category":"Power Tools","price":150.5,"stock":0,"upload":"TRUE","type":"S"},
		{"id":"3","whse":"01","category":"Fasteners","price":0.25,"stock":5000,"upload":"FALSE","type":"N"},
		{"id":"4","whse":"01","price":"12.50","upload":true}
	]`), &out))
	return out
}

func ids(rs []map[string]interface{}) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r["id"].(string))
	}
	return out
}

func TestMatch_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		conditions []models.SyncCondition
		matchType  models.MatchType
		want       []string
	}{
		{"no conditions", nil, models.MatchAll, []string{"1", "2", "3", "4"}},
		{"equals", []models.SyncCondition{cond("whse", "equals", "01")}, models.MatchAll, []string{"1", "3", "4"}},
		{"equals case-insensitive", []models.SyncCondition{cond("upload", "equals", "true")}, models.MatchAll, []string{"1", "2", "4"}},
		{"not equals includes missing", []models.SyncCondition{cond("type", "not_equals", "N")}, models.MatchAll, []string{"2", "4"}},
		{"contains", []models.SyncCondition{cond("category", "contains", "tools")}, models.MatchAll, []string{"1", "2"}},
		{"greater than numeric", []models.SyncCondition{cond("price", "greater_than", "10")}, models.MatchAll, []string{"2", "4"}},
		{"less than numeric", []models.SyncCondition{cond("stock", "less_than", "10")}, models.MatchAll, []string{"2"}},
		{
			"all",
			[]models.SyncCondition{cond("whse", "equals", "01"), cond("type", "equals", "N")},
			models.MatchAll,
			[]string{"1", "3"},
		},
		{
			"any",
			[]models.SyncCondition{cond("whse", "equals", "02"), cond("price", "less_than", "1")},
			models.MatchAny,
			[]string{"2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Select(tt.conditions, tt.matchType, records(t)))
			assert.Equal(t, tt.want, got)

			// Each selected record satisfies the per-condition combination.
			for _, r := range Select(tt.conditions, tt.matchType, records(t)) {
				hits := 0
				for _, c := range tt.conditions {
					if Match([]models.SyncCondition{c}, models.MatchAll, r) {
						hits++
					}
				}
				if len(tt.conditions) == 0 {
					continue
				}
				if tt.matchType == models.MatchAny {
					assert.Greater(t, hits, 0)
				} else {
					assert.Equal(t, len(tt.conditions), hits)
				}
			}
		})
	}
}
