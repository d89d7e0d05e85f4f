package ranking

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
)

// Result is a ranked copy of the input plus the provider that scored it.
type Result struct {
	Individuals []domain.Individual
	Provider    string
}

// Engine ranks individuals using a remote provider when one is configured
// and succeeds, and local thresholds otherwise.
type Engine struct {
	remote  ScoreProvider
	local   LocalThresholdScoreProvider
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine. remote may be nil, in which case every run
// uses local scoring.
func NewEngine(remote ScoreProvider, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{remote: remote, logger: logger, metrics: metrics}
}

// Rank scores and sorts a copy of individuals by category rank, then urgency
// score, both descending. Ties keep input order. The input is not modified.
func (e *Engine) Rank(ctx context.Context, individuals []domain.Individual) Result {
	start := time.Now()
	ranked := slices.Clone(individuals)

	provider := e.applyScores(ctx, ranked)

	slices.SortStableFunc(ranked, compare)

	e.metrics.RankingRuns.WithLabelValues(provider).Inc()
	e.metrics.RankingDuration.Observe(time.Since(start).Seconds())
	return Result{Individuals: ranked, Provider: provider}
}

func (e *Engine) applyScores(ctx context.Context, ranked []domain.Individual) string {
	if e.remote != nil && len(ranked) > 0 {
		scores, err := e.remote.Scores(ctx, ranked)
		if err == nil {
			for i := range ranked {
				// A record with no remote match, including one with no ID,
				// is treated as LOW rather than locally scored.
				s, ok := scores[ranked[i].ID]
				if ranked[i].ID == domain.None || !ok {
					s = Score{Category: domain.Low}
				}
				ranked[i].RiskCategory = s.Category
				ranked[i].UrgencyScore = s.Value
			}
			return e.remote.Name()
		}
		e.logger.Warn("remote ranking unavailable, using local thresholds", "provider", e.remote.Name(), "error", err)
	}

	for i := range ranked {
		s := e.local.Score(ranked[i])
		ranked[i].RiskCategory = s.Category
		ranked[i].UrgencyScore = s.Value
	}
	return e.local.Name()
}

func compare(a, b domain.Individual) int {
	if ra, rb := a.RiskCategory.Rank(), b.RiskCategory.Rank(); ra != rb {
		return rb - ra
	}
	switch {
	case a.UrgencyScore > b.UrgencyScore:
		return -1
	case a.UrgencyScore < b.UrgencyScore:
		return 1
	default:
		return 0
	}
}
