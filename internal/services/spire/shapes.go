package spire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the normalized result of every ERP call.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

func failure(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}

// Normalize turns a raw HTTP status and body into an Envelope. A body that
// carries an "error" or "message" key is a failure whatever the status.
func Normalize(status int, body []byte) Envelope {
	trimmed := bytes.TrimSpace(body)
	ok := status >= 200 && status < 300

	if len(trimmed) == 0 {
		if ok {
			return Envelope{Success: true}
		}
		return failure(fmt.Sprintf("API request failed with status %d", status))
	}

	if !json.Valid(trimmed) {
		if ok {
			return failure("invalid JSON in ERP response")
		}
		return failure(fmt.Sprintf("API request failed with status %d: %s", status, truncate(string(trimmed), 200)))
	}

	if msg, found := payloadError(trimmed); found {
		return failure(msg)
	}

	if !ok {
		return failure(fmt.Sprintf("API request failed with status %d", status))
	}

	return Envelope{Success: true, Data: json.RawMessage(trimmed)}
}

func payloadError(body []byte) (string, bool) {
	if body[0] != '{' {
		return "", false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", false
	}

	for _, key := range []string{"error", "message"} {
		raw, present := obj[key]
		if !present || string(raw) == "null" {
			continue
		}
		return stringify(raw), true
	}
	return "", false
}

func stringify(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Shape names where an endpoint keeps its payload.
type Shape int

const (
	ShapeBare Shape = iota
	ShapeItems
	ShapeRecords
	ShapeCompanies
)

func (s Shape) Key() string {
	switch s {
	case ShapeItems:
		return "items"
	case ShapeRecords:
		return "records"
	case ShapeCompanies:
		return "companies"
	default:
		return ""
	}
}

func (s Shape) String() string {
	if k := s.Key(); k != "" {
		return k
	}
	return "bare"
}

// Unwrap returns the value under the shape's key when the data is an object
// holding it, and the data itself otherwise.
func Unwrap(shape Shape, data json.RawMessage) json.RawMessage {
	key := shape.Key()
	trimmed := bytes.TrimSpace(data)
	if key == "" || len(trimmed) == 0 || trimmed[0] != '{' {
		return data
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return data
	}
	if inner, ok := obj[key]; ok {
		return inner
	}
	return data
}

// count reads an explicit "count" field from list responses.
func count(data json.RawMessage) (int, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return 0, false
	}

	var meta struct {
		Count *FlexString `json:"count"`
	}
	if err := json.Unmarshal(trimmed, &meta); err != nil || meta.Count == nil {
		return 0, false
	}

	n, err := meta.Count.Int()
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isNull(raw json.RawMessage) bool {
	t := strings.TrimSpace(string(raw))
	return t == "" || t == "null"
}
