package processors

import (
	"context"
	"errors"
	"testing"

	"spiresync/internal/events"
	"spiresync/internal/logger"
	"spiresync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	settings *models.SyncSettings
	err      error
}

func (m *mockLoader) Load(ctx context.Context) (*models.SyncSettings, error) {
	return m.settings, m.err
}

type mockRunner struct {
	runKeys []string
	ctxErr  error
	err     error

	failed  []string
	failErr error
}

func (m *mockRunner) Run(ctx context.Context, settings *models.SyncSettings, runKey string) error {
	m.runKeys = append(m.runKeys, runKey)
	m.ctxErr = ctx.Err()
	return m.err
}

func (m *mockRunner) Fail(ctx context.Context, runKey string, err error) {
	m.failed = append(m.failed, runKey)
	m.failErr = err
}

func TestProcess_SyncRequested(t *testing.T) {
	runner := &mockRunner{}
	ep := NewEventProcessor(&mockLoader{settings: models.DefaultSyncSettings()}, runner, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ep.Process(ctx, events.NewSyncRequested("acme", events.SourceAPI))
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, runner.runKeys)
	assert.NoError(t, runner.ctxErr, "runs must not inherit cancellation")
}

func TestProcess_UnknownTypeIgnored(t *testing.T) {
	runner := &mockRunner{}
	ep := NewEventProcessor(&mockLoader{}, runner, logger.Discard())

	err := ep.Process(context.Background(), events.Event{ID: "x", Type: "product.deleted"})
	assert.NoError(t, err)
	assert.Empty(t, runner.runKeys)
}

func TestProcess_Errors(t *testing.T) {
	t.Run("missing run key", func(t *testing.T) {
		ep := NewEventProcessor(&mockLoader{}, &mockRunner{}, logger.Discard())
		err := ep.Process(context.Background(), events.Event{ID: "x", Type: events.TypeSyncRequested})
		assert.Error(t, err)
	})

	t.Run("settings failure", func(t *testing.T) {
		runner := &mockRunner{}
		ep := NewEventProcessor(&mockLoader{err: errors.New("db down")}, runner, logger.Discard())
		err := ep.Process(context.Background(), events.NewSyncRequested("acme", events.SourceAPI))
		assert.ErrorContains(t, err, "db down")
		assert.Empty(t, runner.runKeys)
		assert.Equal(t, []string{"acme"}, runner.failed)
		assert.ErrorContains(t, runner.failErr, "failed to load settings")
	})

	t.Run("run rejected", func(t *testing.T) {
		runner := &mockRunner{err: errors.New("missing required spire api credentials")}
		ep := NewEventProcessor(&mockLoader{settings: models.DefaultSyncSettings()}, runner, logger.Discard())
		err := ep.Process(context.Background(), events.NewSyncRequested("acme", events.SourceAPI))
		assert.ErrorContains(t, err, "credentials")
		assert.Equal(t, []string{"acme"}, runner.failed)
		assert.Equal(t, runner.err, runner.failErr)
	})
}
