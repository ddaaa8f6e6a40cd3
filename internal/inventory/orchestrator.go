// Package inventory drives Spire inventory syncs into the catalog.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spiresync/internal/connectors/woocommerce"
	"spiresync/internal/filter"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/progress"
	"spiresync/internal/services/spire"
)

var (
	ErrMissingCredentials = errors.New("missing required spire api credentials")
	ErrMissingRunKey      = errors.New("no brand selected")
)

// maxPages stops a sync against a server that keeps returning full pages.
const maxPages = 1000

// DefaultFields are the inventory fields requested from Spire.
var DefaultFields = []string{
	"id", "whse", "partNo", "userDef1", "description", "alternatePartNo",
	"manufactureCountry", "pricing.sellPrice", "uom.weight",
}

type InventorySource interface {
	GetInventoryItems(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error)
}

type RecordWriter interface {
	Apply(ctx context.Context, rec *spire.InventoryRecord) (woocommerce.Outcome, error)
}

// SourceFactory builds an ERP source from the settings of one run.
type SourceFactory func(settings *models.SyncSettings) InventorySource

// SpireSource returns a factory producing real Spire clients.
func SpireSource(timeout time.Duration, log *logger.Logger) SourceFactory {
	return func(s *models.SyncSettings) InventorySource {
		return spire.NewClient(Credentials(s), timeout, log)
	}
}

// Credentials extracts the ERP credentials from settings.
func Credentials(s *models.SyncSettings) spire.Credentials {
	return spire.Credentials{
		BaseURL:     s.BaseURL,
		CompanyName: s.CompanyName,
		Username:    s.APIUsername,
		Password:    s.APIPassword,
	}
}

type Options struct {
	PageSize         int
	DefaultWarehouse string
	ProgressTTL      time.Duration
	Fields           []string
}

type Orchestrator struct {
	newSource SourceFactory
	writer    RecordWriter
	tracker   progress.Tracker
	logger    *logger.Logger
	opts      Options
}

func NewOrchestrator(newSource SourceFactory, writer RecordWriter, tracker progress.Tracker, logger *logger.Logger, opts Options) *Orchestrator {
	if opts.PageSize <= 0 {
		opts.PageSize = spire.DefaultLimit
	}
	// The client never requests more than MaxLimit, so a larger page size
	// would make every full page look short.
	if opts.PageSize > spire.MaxLimit {
		opts.PageSize = spire.MaxLimit
	}
	if opts.DefaultWarehouse == "" {
		opts.DefaultWarehouse = "01"
	}
	if opts.ProgressTTL <= 0 {
		opts.ProgressTTL = progress.DefaultTTL
	}
	if len(opts.Fields) == 0 {
		opts.Fields = DefaultFields
	}
	return &Orchestrator{
		newSource: newSource,
		writer:    writer,
		tracker:   tracker,
		logger:    logger,
		opts:      opts,
	}
}

// Validate checks the configuration needed before any network call.
func Validate(settings *models.SyncSettings, runKey string) error {
	if strings.TrimSpace(runKey) == "" {
		return ErrMissingRunKey
	}
	if settings == nil || !settings.HasCredentials() {
		return ErrMissingCredentials
	}
	return nil
}

// BuildFilter conjoins the mandatory constraints for a run with the
// configured conditions.
func (o *Orchestrator) BuildFilter(settings *models.SyncSettings, runKey string) filter.Expression {
	whse := settings.WarehouseFilter
	if whse == "" {
		whse = o.opts.DefaultWarehouse
	}

	base := filter.Expression{
		"whse":     whse,
		"status":   0,
		"upload":   "TRUE",
		"userDef1": runKey,
	}
	if settings.CategoryFilter != "" {
		base["category"] = settings.CategoryFilter
	}

	return filter.And(base, filter.Build(settings.ConditionList(), settings.MatchType))
}

// Run performs one sync for runKey. Only configuration errors are returned;
// ERP failures end up in the progress snapshot and per-record failures are
// counted and skipped.
func (o *Orchestrator) Run(ctx context.Context, settings *models.SyncSettings, runKey string) error {
	runKey = strings.TrimSpace(runKey)
	if err := Validate(settings, runKey); err != nil {
		return err
	}

	log := o.logger.WithField("run_key", runKey)
	run := models.SyncRun{RunKey: runKey}

	run.State = models.SyncStateScheduled
	run.Status = string(models.SyncStateScheduled)
	run.Message = fmt.Sprintf("Sync scheduled for brand %s.", runKey)
	o.save(ctx, log, run)

	run.State = models.SyncStateFetching
	run.Status = string(models.SyncStateFetching)
	run.Message = fmt.Sprintf("Fetching inventory for brand %s from Spire.", runKey)
	o.save(ctx, log, run)

	records, total, err := o.fetch(ctx, settings, runKey)
	if err != nil {
		log.Error("Inventory fetch failed: %v", err)
		run.State = models.SyncStateError
		run.Status = "Error: " + errorMessage(err)
		run.Message = run.Status
		run.Processed = 0
		run.Total = 0
		o.save(ctx, log, run)
		return nil
	}

	log.Info("Total records received: %d.", total)

	run.State = models.SyncStateProcessing
	run.Total = total
	run.Status = fmt.Sprintf("Received %d product records for brand %s from Spire.", total, runKey)
	run.Message = run.Status
	o.save(ctx, log, run)

	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			log.Debug("Skipping record without an id")
			continue
		}

		if _, err := o.writer.Apply(ctx, rec); err != nil {
			run.Failed++
			log.Error("Failed to sync Spire record ID %s: %v", rec.ID, err)
		}

		run.Processed++
		run.Status = fmt.Sprintf("Processed %d of %d records for brand %s...", run.Processed, total, runKey)
		run.Message = run.Status
		o.save(ctx, log, run)
	}

	run.State = models.SyncStateComplete
	run.Status = string(models.SyncStateComplete)
	run.Message = fmt.Sprintf("Sync complete for brand %s.", runKey)
	if run.Failed > 0 {
		run.Message = fmt.Sprintf("Sync complete for brand %s with %d failed records.", runKey, run.Failed)
	}
	o.save(ctx, log, run)

	log.Info("Product sync complete for brand %s: Processed %d records.", runKey, run.Processed)
	return nil
}

// fetch pages through the inventory and returns the records in ERP order
// with the run total.
func (o *Orchestrator) fetch(ctx context.Context, settings *models.SyncSettings, runKey string) ([]spire.InventoryRecord, int, error) {
	filterJSON, err := o.BuildFilter(settings, runKey).JSON()
	if err != nil {
		return nil, 0, err
	}

	source := o.newSource(settings)

	var (
		records  []spire.InventoryRecord
		count    int
		hasCount bool
		start    int
	)

	for page := 0; page < maxPages; page++ {
		result, err := source.GetInventoryItems(ctx, spire.ListParams{
			Start:  start,
			Limit:  o.opts.PageSize,
			Filter: filterJSON,
			UDF:    true,
			Fields: o.opts.Fields,
		})
		if err != nil {
			return nil, 0, err
		}

		if result.HasCount && !hasCount {
			count, hasCount = result.Count, true
		}
		records = append(records, result.Records...)

		received := len(result.Records) + result.Skipped
		start += received

		if received == 0 || received < o.opts.PageSize {
			break
		}
		if hasCount && start >= count {
			break
		}
		if page == maxPages-1 {
			o.logger.Warn("Stopping inventory fetch for %s after %d pages", runKey, maxPages)
		}
	}

	total := len(records)
	if hasCount && count >= total {
		total = count
	}
	return records, total, nil
}

// Fail records a terminal error snapshot for a run that could not start,
// so the run does not stay at scheduled until its snapshot expires.
func (o *Orchestrator) Fail(ctx context.Context, runKey string, err error) {
	runKey = strings.TrimSpace(runKey)
	if runKey == "" {
		return
	}
	status := "Error: " + errorMessage(err)
	o.save(ctx, o.logger.WithField("run_key", runKey), models.SyncRun{
		RunKey:  runKey,
		State:   models.SyncStateError,
		Status:  status,
		Message: status,
	})
}

func (o *Orchestrator) save(ctx context.Context, log *logger.Logger, run models.SyncRun) {
	if err := o.tracker.Set(ctx, run, o.opts.ProgressTTL); err != nil {
		log.Warn("Failed to write sync progress: %v", err)
	}
}

func errorMessage(err error) string {
	var apiErr *spire.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
