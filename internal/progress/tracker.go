// Package progress stores the latest SyncRun snapshot per run key with a
// time to live. Writes overwrite; expired snapshots read as not found.
package progress

import (
	"context"
	"errors"
	"time"

	"spiresync/internal/models"
)

const (
	KeyPrefix  = "spire_sync_progress_"
	DefaultTTL = 5 * time.Minute
)

var ErrNotFound = errors.New("no progress found")

type Tracker interface {
	Set(ctx context.Context, run models.SyncRun, ttl time.Duration) error
	Get(ctx context.Context, runKey string) (*models.SyncRun, error)
}

// Key returns the storage key for a run.
func Key(runKey string) string {
	return KeyPrefix + runKey
}

func stamp(run *models.SyncRun, now time.Time, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	run.UpdatedAt = now
	run.ExpiresAt = now.Add(ttl)
}
