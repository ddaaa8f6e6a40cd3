// Package filter turns stored sync conditions into Spire filter expressions
// and evaluates the same conditions against decoded records.
//
// A predicate is one of:
//
//	{"key": value}                 equals
//	{"key": {"$ne": value}}        not_equals
//	{"key": {"$like": "%value%"}}  contains
//	{"key": {"$gt": value}}        greater_than
//	{"key": {"$lt": value}}        less_than
//
// Several predicates are combined with {"$and": [...]} or {"$or": [...]}.
package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"spiresync/internal/models"
)

// Expression is a Spire filter object. A nil Expression means no filter.
type Expression map[string]interface{}

// numericKeys are sent to Spire as numbers when the value parses as one.
var numericKeys = map[string]bool{
	"status":    true,
	"price":     true,
	"stock":     true,
	"min_stock": true,
	"max_stock": true,
	"weight":    true,
	"length":    true,
	"width":     true,
	"height":    true,
}

// NormalizeOperator falls back to equals for anything unknown.
func NormalizeOperator(op string) models.Operator {
	switch o := models.Operator(strings.TrimSpace(op)); o {
	case models.OpEquals, models.OpNotEquals, models.OpContains, models.OpGreaterThan, models.OpLessThan:
		return o
	default:
		return models.OpEquals
	}
}

// NormalizeMatchType falls back to all for anything unknown.
func NormalizeMatchType(mt string) models.MatchType {
	if models.MatchType(strings.TrimSpace(mt)) == models.MatchAny {
		return models.MatchAny
	}
	return models.MatchAll
}

// ValidKey reports whether key is one of the filterable inventory fields.
func ValidKey(key string) bool {
	for _, k := range models.ConditionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Predicate builds the filter clause for one condition.
func Predicate(c models.SyncCondition) Expression {
	value := typedValue(c.Key, c.Value)

	switch NormalizeOperator(string(c.Operator)) {
	case models.OpNotEquals:
		return Expression{c.Key: map[string]interface{}{"$ne": value}}
	case models.OpContains:
		return Expression{c.Key: map[string]interface{}{"$like": "%" + c.Value + "%"}}
	case models.OpGreaterThan:
		return Expression{c.Key: map[string]interface{}{"$gt": value}}
	case models.OpLessThan:
		return Expression{c.Key: map[string]interface{}{"$lt": value}}
	default:
		return Expression{c.Key: value}
	}
}

// Build combines the conditions under the match type. It returns nil for an
// empty condition list.
func Build(conditions []models.SyncCondition, matchType models.MatchType) Expression {
	if len(conditions) == 0 {
		return nil
	}

	preds := make([]Expression, 0, len(conditions))
	for _, c := range conditions {
		preds = append(preds, Predicate(c))
	}

	if len(preds) == 1 {
		return preds[0]
	}
	if NormalizeMatchType(string(matchType)) == models.MatchAny {
		return Expression{"$or": preds}
	}
	return Expression{"$and": preds}
}

// And conjoins expressions, ignoring nil ones.
func And(exprs ...Expression) Expression {
	var parts []Expression
	for _, e := range exprs {
		if len(e) > 0 {
			parts = append(parts, e)
		}
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return Expression{"$and": parts}
	}
}

// JSON encodes the expression for the filter query parameter. A nil
// expression encodes to the empty string.
func (e Expression) JSON() (string, error) {
	if len(e) == 0 {
		return "", nil
	}
	out, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(out), nil
}

func typedValue(key, value string) interface{} {
	if !numericKeys[key] {
		return value
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
