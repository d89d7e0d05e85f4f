package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
	"github.com/jonboulle/clockwork"
)

// RosterLoader turns sources into individuals and hazard zones.
type RosterLoader interface {
	Load(ctx context.Context, src roster.Source) roster.LoadResult
	LoadHazardZones(ctx context.Context, src roster.Source) []domain.HazardZone
}

// Ranker orders individuals by triage priority.
type Ranker interface {
	Rank(ctx context.Context, individuals []domain.Individual) ranking.Result
}

// AlertPublisher delivers critical alerts downstream.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Purger is implemented by sources that cache payloads. Refresh purges them
// so a forced reload reads through to the origin.
type Purger interface {
	Purge()
}

// Sources names where the roster and the optional hazard perimeters come from.
type Sources struct {
	Roster  roster.Source
	Hazards roster.Source
}

// Snapshot is one ranked view of the roster.
type Snapshot struct {
	Individuals []domain.Individual
	HazardZones []domain.HazardZone
	Status      roster.Status
	Reason      string
	Provider    string
	LoadedAt    time.Time
}

// Find returns the individual with id from the snapshot.
func (s Snapshot) Find(id domain.ID) (domain.Individual, bool) {
	if id == domain.None {
		return domain.Individual{}, false
	}
	for _, ind := range s.Individuals {
		if ind.ID == id {
			return ind, true
		}
	}
	return domain.Individual{}, false
}

// Pipeline loads, ranks and caches the roster snapshot, reloading it on
// demand once it is older than the TTL.
type Pipeline struct {
	sources Sources
	loader  RosterLoader
	ranker  Ranker
	alerts  AlertPublisher
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	current    *Snapshot
	lastRanked []domain.Individual
	ready      atomic.Bool
}

// New creates a Pipeline. alerts may be nil to disable alert publishing and
// a nil clock uses the real one.
func New(sources Sources, loader RosterLoader, ranker Ranker, alerts AlertPublisher, ttl time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		sources: sources,
		loader:  loader,
		ranker:  ranker,
		alerts:  alerts,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a refresh has produced data.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no roster snapshot with data has been loaded yet")
	}
	return nil
}

// Snapshot returns the cached snapshot, refreshing it first when it is
// missing or older than the TTL.
func (p *Pipeline) Snapshot(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.clock.Since(p.current.LoadedAt) < p.ttl {
		return *p.current
	}
	return p.refreshLocked(ctx)
}

// Refresh reloads the snapshot regardless of its age, dropping any payloads
// cached by the sources first.
func (p *Pipeline) Refresh(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	purge(p.sources.Roster)
	purge(p.sources.Hazards)
	return p.refreshLocked(ctx)
}

func purge(src roster.Source) {
	if c, ok := src.(Purger); ok {
		c.Purge()
	}
}

// refreshLocked rebuilds the snapshot. The snapshot is shared by every
// session, so the work is detached from the cancellation of the request
// that triggered it. A load that was cut short by a deadline keeps the
// previous snapshot.
func (p *Pipeline) refreshLocked(ctx context.Context) Snapshot {
	ctx = context.WithoutCancel(ctx)
	start := p.clock.Now()

	res := p.loader.Load(ctx, p.sources.Roster)
	if res.Status != roster.StatusOK && p.current != nil && interrupted(res.Err) {
		p.logger.Warn("snapshot refresh interrupted, keeping previous snapshot", "error", res.Err)
		return *p.current
	}
	zones := p.loader.LoadHazardZones(ctx, p.sources.Hazards)

	snap := Snapshot{
		HazardZones: zones,
		Status:      res.Status,
		Reason:      res.Reason,
		LoadedAt:    start,
	}

	if res.Status == roster.StatusOK {
		ranked := p.ranker.Rank(ctx, res.Individuals)
		snap.Individuals = ranked.Individuals
		snap.Provider = ranked.Provider
		p.publishAlerts(ctx, ranked.Individuals)
		p.ready.Store(true)
	}

	p.current = &snap
	p.record(snap)
	p.logger.Info("snapshot refreshed",
		"status", snap.Status,
		"individuals", len(snap.Individuals),
		"hazard_zones", len(snap.HazardZones),
		"provider", snap.Provider,
		"duration", p.clock.Since(start),
	)
	return snap
}

// publishAlerts notifies downstream of individuals that became CRITICAL
// since the last snapshot whose alerts were delivered. Failures are logged,
// never returned, and leave the baseline in place so the next refresh
// retries them.
func (p *Pipeline) publishAlerts(ctx context.Context, ranked []domain.Individual) {
	if p.alerts == nil {
		p.lastRanked = ranked
		return
	}

	alerts := domain.NewCriticalAlerts(p.lastRanked, ranked)
	if len(alerts) == 0 {
		p.lastRanked = ranked
		return
	}
	if err := p.alerts.PublishAlerts(ctx, alerts); err != nil {
		p.metrics.AlertPublishErrs.Inc()
		p.logger.Error("publish critical alerts failed", "count", len(alerts), "error", err)
		return
	}
	p.metrics.AlertsPublished.Add(float64(len(alerts)))
	p.lastRanked = ranked
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (p *Pipeline) record(snap Snapshot) {
	p.metrics.SnapshotRefreshes.WithLabelValues(string(snap.Status)).Inc()
	p.metrics.SnapshotIndividuals.Set(float64(len(snap.Individuals)))
	critical := 0
	for _, ind := range snap.Individuals {
		if ind.RiskCategory == domain.Critical {
			critical++
		}
	}
	p.metrics.SnapshotCritical.Set(float64(critical))
}
