package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"spiresync/internal/connectors/woocommerce"
	"spiresync/internal/database"
	"spiresync/internal/logger"
	"spiresync/internal/models"
	"spiresync/internal/progress"
	"spiresync/internal/repository"
	"spiresync/internal/services/spire"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTracker keeps every snapshot written, in order.
type recordingTracker struct {
	mu     sync.Mutex
	inner  *progress.MemoryTracker
	writes []models.SyncRun
	err    error
}

func newRecordingTracker() *recordingTracker {
	return &recordingTracker{inner: progress.NewMemoryTracker()}
}

func (r *recordingTracker) Set(ctx context.Context, run models.SyncRun, ttl time.Duration) error {
	r.mu.Lock()
	r.writes = append(r.writes, run)
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.inner.Set(ctx, run, ttl)
}

func (r *recordingTracker) Get(ctx context.Context, runKey string) (*models.SyncRun, error) {
	return r.inner.Get(ctx, runKey)
}

func (r *recordingTracker) snapshots() []models.SyncRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.SyncRun(nil), r.writes...)
}

func (r *recordingTracker) last() models.SyncRun {
	s := r.snapshots()
	return s[len(s)-1]
}

type mockSource struct {
	getInventoryItemsFunc func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error)
}

func (m *mockSource) GetInventoryItems(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
	return m.getInventoryItemsFunc(ctx, params)
}

type mockWriter struct {
	mu        sync.Mutex
	applied   []string
	applyFunc func(ctx context.Context, rec *spire.InventoryRecord) (woocommerce.Outcome, error)
}

func (m *mockWriter) Apply(ctx context.Context, rec *spire.InventoryRecord) (woocommerce.Outcome, error) {
	m.mu.Lock()
	m.applied = append(m.applied, rec.ID)
	m.mu.Unlock()
	if m.applyFunc != nil {
		return m.applyFunc(ctx, rec)
	}
	return woocommerce.OutcomeCreated, nil
}

func testSettings(baseURL string) *models.SyncSettings {
	s := models.DefaultSyncSettings()
	s.BaseURL = baseURL
	s.CompanyName = "inspire"
	s.APIUsername = "sync"
	s.APIPassword = "secret"
	return s
}

func records(t *testing.T, body string) []spire.InventoryRecord {
	t.Helper()
	var out []spire.InventoryRecord
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func assertMonotonic(t *testing.T, writes []models.SyncRun) {
	t.Helper()
	prev := 0
	for _, w := range writes {
		assert.GreaterOrEqual(t, w.Processed, prev)
		prev = w.Processed
	}
	final := writes[len(writes)-1]
	assert.LessOrEqual(t, final.Processed, final.Total)
}

type spireFake struct {
	mu       sync.Mutex
	response string
	delay    time.Duration
	requests []*http.Request
}

func (f *spireFake) set(body string) {
	f.mu.Lock()
	f.response = body
	f.mu.Unlock()
}

func (f *spireFake) setDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *spireFake) received() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func (f *spireFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	body, delay := f.response, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

type harness struct {
	fake         *spireFake
	server       *httptest.Server
	catalog      *repository.CatalogRepository
	tracker      *recordingTracker
	orchestrator *Orchestrator
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()

	fake := &spireFake{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	db, err := database.New("sqlite://" + filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := repository.NewCatalogRepository(db.DB)
	tracker := newRecordingTracker()
	log := logger.Discard()

	return &harness{
		fake:         fake,
		server:       server,
		catalog:      catalog,
		tracker:      tracker,
		orchestrator: NewOrchestrator(SpireSource(timeout, log), woocommerce.New(catalog, log), tracker, log, Options{}),
	}
}

func TestRun_CreatesProduct(t *testing.T) {
	h := newHarness(t, time.Second)
	h.fake.set(`{"records":[{"id":"42","description":"Widget","pricing":{"sellPrice":[9.99]}}],"count":1}`)

	require.NoError(t, h.orchestrator.Run(context.Background(), testSettings(h.server.URL), "acme"))

	final := h.tracker.last()
	assert.Equal(t, "complete", final.Status)
	assert.Equal(t, models.SyncStateComplete, final.State)
	assert.Equal(t, 1, final.Processed)
	assert.Equal(t, 1, final.Total)
	assert.Equal(t, "Sync complete for brand acme.", final.Message)

	p, err := h.catalog.FindByExternalID(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Widget", p.Title)
	assert.True(t, decimal.RequireFromString("9.99").Equal(p.RegularPrice))
	assert.Equal(t, models.ProductStatusPublished, p.Status)

	writes := h.tracker.snapshots()
	assert.Equal(t, "scheduled", writes[0].Status)
	assert.Equal(t, models.SyncStateFetching, writes[1].State)
	assert.Equal(t, "Received 1 product records for brand acme from Spire.", writes[2].Status)
	assert.Equal(t, "Processed 1 of 1 records for brand acme...", writes[3].Status)
	assertMonotonic(t, writes)

	stored, err := h.tracker.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "complete", stored.Status)
}

func TestRun_SendsRunScopedFilter(t *testing.T) {
	h := newHarness(t, time.Second)
	h.fake.set(`{"records":[],"count":0}`)

	settings := testSettings(h.server.URL)
	settings.WarehouseFilter = "05"
	require.NoError(t, h.orchestrator.Run(context.Background(), settings, "acme"))

	requests := h.fake.received()
	require.Len(t, requests, 1)
	r := requests[0]
	assert.Equal(t, "/companies/inspire/inventory/items", r.URL.Path)
	assert.Equal(t, "1", r.URL.Query().Get("udf"))
	assert.Equal(t, "100", r.URL.Query().Get("limit"))

	var f map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filter")), &f))
	parts := f["$and"].([]interface{})
	base := parts[0].(map[string]interface{})
	assert.Equal(t, "05", base["whse"])
	assert.Equal(t, "acme", base["userDef1"])
	assert.Equal(t, "TRUE", base["upload"])
	assert.Equal(t, float64(0), base["status"])

	final := h.tracker.last()
	assert.Equal(t, "complete", final.Status)
	assert.Equal(t, 0, final.Total)
}

func TestRun_TimeoutWritesErrorAndNoProducts(t *testing.T) {
	h := newHarness(t, 50*time.Millisecond)
	h.fake.set(`{"records":[{"id":"42"}],"count":1}`)
	h.fake.setDelay(time.Second)

	require.NoError(t, h.orchestrator.Run(context.Background(), testSettings(h.server.URL), "acme"))

	final := h.tracker.last()
	assert.True(t, strings.HasPrefix(final.Status, "Error: "), final.Status)
	assert.Contains(t, final.Status, "Timeout")
	assert.Equal(t, models.SyncStateError, final.State)
	assert.Equal(t, 0, final.Processed)
	assert.Equal(t, 0, final.Total)

	n, err := h.catalog.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRun_ErrorPayloadIsTerminal(t *testing.T) {
	h := newHarness(t, time.Second)
	h.fake.set(`{"error":"Invalid company"}`)

	require.NoError(t, h.orchestrator.Run(context.Background(), testSettings(h.server.URL), "acme"))

	final := h.tracker.last()
	assert.Equal(t, "Error: Invalid company", final.Status)
	assert.Equal(t, 0, final.Processed)
	assert.Equal(t, 0, final.Total)
}

func TestRun_RerunUpdatesInPlace(t *testing.T) {
	h := newHarness(t, time.Second)
	ctx := context.Background()
	settings := testSettings(h.server.URL)

	h.fake.set(`{"records":[{"id":"42","description":"Widget","pricing":{"sellPrice":[9.99]}}],"count":1}`)
	require.NoError(t, h.orchestrator.Run(ctx, settings, "acme"))

	first, err := h.catalog.FindByExternalID(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, first)

	h.fake.set(`{"records":[{"id":"42","description":"Widget","pricing":{"sellPrice":[12.50]}}],"count":1}`)
	require.NoError(t, h.orchestrator.Run(ctx, settings, "acme"))

	n, err := h.catalog.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	second, err := h.catalog.FindByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, decimal.RequireFromString("12.50").Equal(second.RegularPrice))

	// Same input again leaves the catalog unchanged.
	require.NoError(t, h.orchestrator.Run(ctx, settings, "acme"))
	n, err = h.catalog.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRun_SkipsRecordsWithoutID(t *testing.T) {
	tracker := newRecordingTracker()
	writer := &mockWriter{}
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		return &spire.InventoryPage{
			Records:  records(t, `[{"id":"1"},{"description":"no id"},{"id":""},{"id":"2"},{"id":null}]`),
			Count:    5,
			HasCount: true,
		}, nil
	}}

	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, writer, tracker, logger.Discard(), Options{})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	assert.Equal(t, []string{"1", "2"}, writer.applied)

	final := tracker.last()
	assert.Equal(t, 2, final.Processed)
	assert.Equal(t, 5, final.Total)
	assertMonotonic(t, tracker.snapshots())

	// One snapshot per processed record, none for skipped ones.
	var perRecord int
	for _, w := range tracker.snapshots() {
		if strings.HasPrefix(w.Status, "Processed ") {
			perRecord++
		}
	}
	assert.Equal(t, 2, perRecord)
}

func TestRun_RecordFailuresDoNotAbort(t *testing.T) {
	tracker := newRecordingTracker()
	writer := &mockWriter{applyFunc: func(ctx context.Context, rec *spire.InventoryRecord) (woocommerce.Outcome, error) {
		if rec.ID == "2" {
			return "", errors.New("database is locked")
		}
		return woocommerce.OutcomeUpdated, nil
	}}
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		return &spire.InventoryPage{Records: records(t, `[{"id":"1"},{"id":"2"},{"id":"3"}]`)}, nil
	}}

	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, writer, tracker, logger.Discard(), Options{})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	assert.Equal(t, []string{"1", "2", "3"}, writer.applied)
	final := tracker.last()
	assert.Equal(t, "complete", final.Status)
	assert.Equal(t, 3, final.Processed)
	assert.Equal(t, 3, final.Total)
	assert.Equal(t, 1, final.Failed)
	assert.Equal(t, "Sync complete for brand acme with 1 failed records.", final.Message)
}

func TestRun_Paginates(t *testing.T) {
	const totalRecords = 5
	var starts []int
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		starts = append(starts, params.Start)
		assert.Equal(t, 2, params.Limit)

		var recs []string
		for i := params.Start; i < params.Start+params.Limit && i < totalRecords; i++ {
			recs = append(recs, fmt.Sprintf(`{"id":"%d"}`, i+1))
		}
		return &spire.InventoryPage{
			Records:  records(t, "["+strings.Join(recs, ",")+"]"),
			Count:    totalRecords,
			HasCount: true,
		}, nil
	}}

	writer := &mockWriter{}
	tracker := newRecordingTracker()
	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, writer, tracker, logger.Discard(), Options{PageSize: 2})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	assert.Equal(t, []int{0, 2, 4}, starts)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, writer.applied)
	assert.Equal(t, 5, tracker.last().Total)
	assertMonotonic(t, tracker.snapshots())
}

func TestRun_PageSizeAboveClientLimit(t *testing.T) {
	const totalRecords = 2500

	var (
		mu     sync.Mutex
		limits []int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		mu.Lock()
		limits = append(limits, limit)
		mu.Unlock()

		recs := make([]string, 0, limit)
		for i := start; i < start+limit && i < totalRecords; i++ {
			recs = append(recs, fmt.Sprintf(`{"id":"%d"}`, i+1))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"records":[%s],"count":%d}`, strings.Join(recs, ","), totalRecords)
	}))
	t.Cleanup(server.Close)

	writer := &mockWriter{}
	tracker := newRecordingTracker()
	o := NewOrchestrator(SpireSource(time.Second, logger.Discard()), writer, tracker, logger.Discard(), Options{PageSize: 2000})
	require.NoError(t, o.Run(context.Background(), testSettings(server.URL), "acme"))

	assert.Len(t, writer.applied, totalRecords)
	final := tracker.last()
	assert.Equal(t, models.SyncStateComplete, final.State)
	assert.Equal(t, totalRecords, final.Processed)
	assert.Equal(t, totalRecords, final.Total)

	require.NotEmpty(t, limits)
	for _, limit := range limits {
		assert.LessOrEqual(t, limit, spire.MaxLimit)
	}
}

func TestRun_PageErrorAfterFirstPage(t *testing.T) {
	calls := 0
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		calls++
		if calls == 2 {
			return nil, &spire.APIError{StatusCode: 502, Message: "Bad gateway"}
		}
		return &spire.InventoryPage{Records: records(t, `[{"id":"1"},{"id":"2"}]`), Count: 4, HasCount: true}, nil
	}}

	writer := &mockWriter{}
	tracker := newRecordingTracker()
	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, writer, tracker, logger.Discard(), Options{PageSize: 2})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	assert.Empty(t, writer.applied)
	assert.Equal(t, "Error: Bad gateway", tracker.last().Status)
}

func TestRun_CountSmallerThanRecords(t *testing.T) {
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		return &spire.InventoryPage{Records: records(t, `[{"id":"1"},{"id":"2"}]`), Count: 1, HasCount: true}, nil
	}}

	tracker := newRecordingTracker()
	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, &mockWriter{}, tracker, logger.Discard(), Options{})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	final := tracker.last()
	assert.Equal(t, 2, final.Total)
	assert.Equal(t, 2, final.Processed)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	tracker := newRecordingTracker()
	o := NewOrchestrator(func(*models.SyncSettings) InventorySource {
		t.Fatal("no source may be built without configuration")
		return nil
	}, &mockWriter{}, tracker, logger.Discard(), Options{})

	err := o.Run(context.Background(), models.DefaultSyncSettings(), "acme")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	err = o.Run(context.Background(), testSettings("http://unused"), "  ")
	assert.ErrorIs(t, err, ErrMissingRunKey)

	err = o.Run(context.Background(), nil, "acme")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	assert.Empty(t, tracker.snapshots())
}

func TestRun_TrackerFailureDoesNotAbort(t *testing.T) {
	tracker := newRecordingTracker()
	tracker.err = errors.New("redis down")
	writer := &mockWriter{}
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		return &spire.InventoryPage{Records: records(t, `[{"id":"1"},{"id":"2"}]`)}, nil
	}}

	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, writer, tracker, logger.Discard(), Options{})
	require.NoError(t, o.Run(context.Background(), testSettings("http://unused"), "acme"))

	assert.Equal(t, []string{"1", "2"}, writer.applied)
	assert.Equal(t, "complete", tracker.last().Status)
}

func TestFail_WritesTerminalError(t *testing.T) {
	tracker := newRecordingTracker()
	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return &mockSource{} }, &mockWriter{}, tracker, logger.Discard(), Options{})

	o.Fail(context.Background(), "  ", errors.New("ignored"))
	assert.Empty(t, tracker.snapshots())

	o.Fail(context.Background(), " acme ", errors.New("db closed"))
	final := tracker.last()
	assert.Equal(t, "acme", final.RunKey)
	assert.Equal(t, models.SyncStateError, final.State)
	assert.Equal(t, "Error: db closed", final.Status)
	assert.True(t, final.Terminal())
}

func TestBuildFilter(t *testing.T) {
	o := NewOrchestrator(nil, nil, nil, logger.Discard(), Options{DefaultWarehouse: "01"})

	settings := testSettings("http://unused")
	settings.SetConditions(nil)
	f, err := o.BuildFilter(settings, "acme").JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"whse":"01","status":0,"upload":"TRUE","userDef1":"acme"}`, f)

	settings.CategoryFilter = "TOOLS"
	settings.MatchType = models.MatchAny
	settings.SetConditions([]models.SyncCondition{
		{Key: "type", Operator: models.OpEquals, Value: "N"},
		{Key: "stock", Operator: models.OpGreaterThan, Value: "0"},
	})
	f, err = o.BuildFilter(settings, "acme").JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"$and":[
		{"whse":"01","status":0,"upload":"TRUE","userDef1":"acme","category":"TOOLS"},
		{"$or":[{"type":"N"},{"stock":{"$gt":0}}]}
	]}`, f)
}

func TestRun_ConcurrentRunKeysIndependent(t *testing.T) {
	tracker := newRecordingTracker()
	source := &mockSource{getInventoryItemsFunc: func(ctx context.Context, params spire.ListParams) (*spire.InventoryPage, error) {
		var f map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(params.Filter), &f))
		brand := f["$and"].([]interface{})[0].(map[string]interface{})["userDef1"].(string)
		n, _ := strconv.Atoi(strings.TrimPrefix(brand, "brand-"))

		var recs []string
		for i := 0; i < n; i++ {
			recs = append(recs, fmt.Sprintf(`{"id":"%s-%d"}`, brand, i))
		}
		return &spire.InventoryPage{Records: records(t, "["+strings.Join(recs, ",")+"]")}, nil
	}}

	o := NewOrchestrator(func(*models.SyncSettings) InventorySource { return source }, &mockWriter{}, tracker, logger.Discard(), Options{})

	var wg sync.WaitGroup
	for _, n := range []int{1, 3, 5} {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, o.Run(context.Background(), testSettings("http://unused"), fmt.Sprintf("brand-%d", n)))
		}(n)
	}
	wg.Wait()

	for _, n := range []int{1, 3, 5} {
		run, err := tracker.Get(context.Background(), fmt.Sprintf("brand-%d", n))
		require.NoError(t, err)
		assert.Equal(t, "complete", run.Status)
		assert.Equal(t, n, run.Processed)
		assert.Equal(t, n, run.Total)
	}
}
