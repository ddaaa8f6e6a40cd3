package filter

import (
	"fmt"
	"strconv"
	"strings"

	"spiresync/internal/models"
)

// Match reports whether a decoded record satisfies the conditions under the
// same semantics Build encodes for Spire. An empty condition list matches
// everything.
func Match(conditions []models.SyncCondition, matchType models.MatchType, record map[string]interface{}) bool {
	if len(conditions) == 0 {
		return true
	}

	disjunct := NormalizeMatchType(string(matchType)) == models.MatchAny
	for _, c := range conditions {
		ok := matchOne(c, record)
		if disjunct && ok {
			return true
		}
		if !disjunct && !ok {
			return false
		}
	}
	return !disjunct
}

// Select returns the records that satisfy the conditions, in order.
func Select(conditions []models.SyncCondition, matchType models.MatchType, records []map[string]interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, r := range records {
		if Match(conditions, matchType, r) {
			out = append(out, r)
		}
	}
	return out
}

func matchOne(c models.SyncCondition, record map[string]interface{}) bool {
	raw, present := record[c.Key]
	if !present || raw == nil {
		return NormalizeOperator(string(c.Operator)) == models.OpNotEquals
	}
	actual := text(raw)

	switch NormalizeOperator(string(c.Operator)) {
	case models.OpNotEquals:
		return !equal(actual, c.Value)
	case models.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case models.OpGreaterThan:
		return compare(actual, c.Value) > 0
	case models.OpLessThan:
		return compare(actual, c.Value) < 0
	default:
		return equal(actual, c.Value)
	}
}

func equal(a, b string) bool {
	if fa, fb, ok := numbers(a, b); ok {
		return fa == fb
	}
	return strings.EqualFold(a, b)
}

func compare(a, b string) int {
	if fa, fb, ok := numbers(a, b); ok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func numbers(a, b string) (float64, float64, bool) {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	return fa, fb, errA == nil && errB == nil
}

func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
