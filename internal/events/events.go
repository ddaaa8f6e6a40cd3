package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeSyncRequested = "inventory.sync.requested"

	SourceAPI = "spire-sync-api"
	SourceCLI = "spirectl"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	RunKey    string                 `json:"run_key"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func NewSyncRequested(runKey, source string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeSyncRequested,
		Source:    source,
		RunKey:    runKey,
		Timestamp: time.Now().UTC(),
	}
}
