package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type switchableSource struct {
	data  []byte
	err   error
	calls int
}

func (s *switchableSource) Name() string { return "switchable" }

func (s *switchableSource) Fetch(_ context.Context) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

// contextSource fails the way a network source does once its context ends.
type contextSource struct {
	data  []byte
	calls int
}

func (s *contextSource) Name() string { return "context" }

func (s *contextSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}
	return s.data, nil
}

type recordingPublisher struct {
	batches [][]domain.Alert
	err     error
}

func (r *recordingPublisher) PublishAlerts(_ context.Context, alerts []domain.Alert) error {
	r.batches = append(r.batches, alerts)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(sources pipeline.Sources, alerts pipeline.AlertPublisher, clock clockwork.Clock) *pipeline.Pipeline {
	metrics := observability.NewMetricsForTesting()
	loader := roster.NewLoader(discardLogger(), metrics)
	engine := ranking.NewEngine(nil, discardLogger(), metrics)
	return pipeline.New(sources, loader, engine, alerts, 10*time.Minute, clock, discardLogger(), metrics)
}

func ids(inds []domain.Individual) []domain.ID {
	out := make([]domain.ID, len(inds))
	for i, ind := range inds {
		out[i] = ind.ID
	}
	return out
}

// --- tests ---

func TestPipeline_Snapshot_FromFixture(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 8, 12, 14, 0, 0, 0, time.UTC))
	p := newTestPipeline(pipeline.Sources{
		Roster:  roster.FileSource{Path: "testdata/roster.json"},
		Hazards: roster.FileSource{Path: "testdata/hazards.json"},
	}, nil, clock)

	require.Error(t, p.CheckReadiness(context.Background()))

	snap := p.Snapshot(context.Background())

	assert.Equal(t, roster.StatusOK, snap.Status)
	assert.Equal(t, "local", snap.Provider)
	assert.Equal(t, clock.Now(), snap.LoadedAt)
	assert.Equal(t, []domain.ID{"101", "104", "102", "103", "106"}, ids(snap.Individuals), "record without coordinates is dropped")
	assert.Equal(t, domain.Critical, snap.Individuals[0].RiskCategory)
	assert.Equal(t, domain.High, snap.Individuals[2].RiskCategory)
	require.Len(t, snap.HazardZones, 1)
	assert.Equal(t, "1", snap.HazardZones[0].ID)
	require.NoError(t, p.CheckReadiness(context.Background()))

	found, ok := snap.Find("104")
	require.True(t, ok)
	assert.Equal(t, "Nikos Georgiou", found.FullName())
	_, ok = snap.Find(domain.None)
	assert.False(t, ok)
}

func TestPipeline_Snapshot_ReusedWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":2,"danger_level":80}]`)}
	p := newTestPipeline(pipeline.Sources{Roster: src}, nil, clock)

	p.Snapshot(context.Background())
	clock.Advance(9 * time.Minute)
	p.Snapshot(context.Background())
	assert.Equal(t, 1, src.calls)

	clock.Advance(2 * time.Minute)
	p.Snapshot(context.Background())
	assert.Equal(t, 2, src.calls)

	p.Refresh(context.Background())
	assert.Equal(t, 3, src.calls)
}

func TestPipeline_NoData(t *testing.T) {
	src := &switchableSource{err: errors.New("connection refused")}
	p := newTestPipeline(pipeline.Sources{Roster: src}, nil, clockwork.NewFakeClock())

	snap := p.Snapshot(context.Background())

	assert.Equal(t, roster.StatusNoData, snap.Status)
	assert.Contains(t, snap.Reason, "connection refused")
	assert.Empty(t, snap.Individuals)
	assert.Empty(t, snap.Provider)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_PublishesNewlyCriticalOnly(t *testing.T) {
	src := &switchableSource{data: []byte(`[
		{"id":"A","lat":1,"lon":1,"danger_level":90},
		{"id":"B","lat":2,"lon":2,"danger_level":60}
	]`)}
	pub := &recordingPublisher{}
	p := newTestPipeline(pipeline.Sources{Roster: src}, pub, clockwork.NewFakeClock())

	p.Refresh(context.Background())
	require.Len(t, pub.batches, 1)
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, domain.ID("A"), pub.batches[0][0].IndividualID)

	// Unchanged roster: nothing new to report.
	p.Refresh(context.Background())
	assert.Len(t, pub.batches, 1)

	src.data = []byte(`[
		{"id":"A","lat":1,"lon":1,"danger_level":90},
		{"id":"B","lat":2,"lon":2,"danger_level":95}
	]`)
	p.Refresh(context.Background())
	require.Len(t, pub.batches, 2)
	require.Len(t, pub.batches[1], 1)
	assert.Equal(t, domain.ID("B"), pub.batches[1][0].IndividualID)
}

func TestPipeline_AlertFailureIsNotFatal(t *testing.T) {
	src := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":90}]`)}
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := newTestPipeline(pipeline.Sources{Roster: src}, pub, clockwork.NewFakeClock())

	snap := p.Refresh(context.Background())

	assert.Equal(t, roster.StatusOK, snap.Status)
	assert.Len(t, snap.Individuals, 1)
	assert.Len(t, pub.batches, 1)
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RecoversAfterNoData(t *testing.T) {
	src := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":20}]`)}
	p := newTestPipeline(pipeline.Sources{Roster: src}, nil, clockwork.NewFakeClock())

	require.Equal(t, roster.StatusOK, p.Refresh(context.Background()).Status)

	src.err = errors.New("timeout")
	snap := p.Refresh(context.Background())
	assert.Equal(t, roster.StatusNoData, snap.Status, "operator sees no data rather than a stale roster")
	require.NoError(t, p.CheckReadiness(context.Background()))

	src.err = nil
	assert.Equal(t, roster.StatusOK, p.Refresh(context.Background()).Status)
}

func TestPipeline_Snapshot_DetachedFromCallerContext(t *testing.T) {
	src := &contextSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":40}]`)}
	p := newTestPipeline(pipeline.Sources{Roster: src}, nil, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := p.Snapshot(ctx)

	assert.Equal(t, roster.StatusOK, snap.Status)
	assert.Equal(t, []domain.ID{"A"}, ids(snap.Individuals))

	snap = p.Snapshot(context.Background())
	assert.Equal(t, roster.StatusOK, snap.Status)
	assert.Equal(t, 1, src.calls, "snapshot from the cancelled caller is cached")
}

func TestPipeline_KeepsSnapshotWhenLoadTimesOut(t *testing.T) {
	src := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":40}]`)}
	p := newTestPipeline(pipeline.Sources{Roster: src}, nil, clockwork.NewFakeClock())

	first := p.Refresh(context.Background())
	require.Equal(t, roster.StatusOK, first.Status)

	src.err = fmt.Errorf("get object: %w", context.DeadlineExceeded)
	snap := p.Refresh(context.Background())

	assert.Equal(t, roster.StatusOK, snap.Status)
	assert.Equal(t, ids(first.Individuals), ids(snap.Individuals))
	assert.Equal(t, first.LoadedAt, snap.LoadedAt)
}

func TestPipeline_RetriesAlertsAfterPublishFailure(t *testing.T) {
	src := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":90}]`)}
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := newTestPipeline(pipeline.Sources{Roster: src}, pub, clockwork.NewFakeClock())

	p.Refresh(context.Background())
	require.Len(t, pub.batches, 1)

	pub.err = nil
	p.Refresh(context.Background())
	require.Len(t, pub.batches, 2)
	require.Len(t, pub.batches[1], 1)
	assert.Equal(t, domain.ID("A"), pub.batches[1][0].IndividualID)

	// Delivered: the baseline moves on.
	p.Refresh(context.Background())
	assert.Len(t, pub.batches, 2)
}

func TestPipeline_RefreshPurgesCachedSource(t *testing.T) {
	inner := &switchableSource{data: []byte(`[{"id":"A","lat":1,"lon":1,"danger_level":40}]`)}
	cached := roster.NewCachedSource(inner, time.Hour, observability.NewMetricsForTesting())
	clock := clockwork.NewFakeClock()
	p := newTestPipeline(pipeline.Sources{Roster: cached}, nil, clock)

	p.Snapshot(context.Background())
	require.Equal(t, 1, inner.calls)

	inner.data = []byte(`[
		{"id":"A","lat":1,"lon":1,"danger_level":40},
		{"id":"B","lat":2,"lon":2,"danger_level":50}
	]`)

	// TTL expiry alone still reads the cached payload.
	clock.Advance(11 * time.Minute)
	snap := p.Snapshot(context.Background())
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, snap.Individuals, 1)

	snap = p.Refresh(context.Background())
	assert.Equal(t, 2, inner.calls)
	assert.ElementsMatch(t, []domain.ID{"A", "B"}, ids(snap.Individuals))
}
