package models

import "time"

type SyncState string

const (
	SyncStateScheduled  SyncState = "scheduled"
	SyncStateFetching   SyncState = "fetching"
	SyncStateProcessing SyncState = "processing"
	SyncStateComplete   SyncState = "complete"
	SyncStateError      SyncState = "error"
)

// SyncRun is the progress snapshot of one inventory sync for a run key.
// Status is what admins poll: "scheduled", a running line such as
// "Processed 3 of 10 records for brand acme...", "complete" or
// "Error: <message>". State is the machine readable phase and Message
// always carries a full sentence.
type SyncRun struct {
	RunKey    string    `json:"run_key"`
	State     SyncState `json:"state"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Failed    int       `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Terminal reports whether the run has finished, successfully or not.
func (r *SyncRun) Terminal() bool {
	return r.State == SyncStateComplete || r.State == SyncStateError
}
