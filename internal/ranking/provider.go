package ranking

import (
	"context"
	"errors"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
)

// ErrNoRemoteData is wrapped by every remote failure that should fall back
// to local scoring.
var ErrNoRemoteData = errors.New("no usable remote ranking data")

// Score is one provider's verdict for an individual.
type Score struct {
	Category domain.RiskCategory
	Value    float64
}

// Assessment maps canonical IDs to scores.
type Assessment map[domain.ID]Score

// ScoreProvider assigns a category and urgency score to individuals.
type ScoreProvider interface {
	Name() string
	Scores(ctx context.Context, individuals []domain.Individual) (Assessment, error)
}

// LocalThresholdScoreProvider derives scores from each record's own
// danger_level. It never fails and scores per record, so records without an
// ID or sharing one are covered too.
type LocalThresholdScoreProvider struct{}

func (LocalThresholdScoreProvider) Name() string { return "local" }

// Score returns the local verdict for one individual: danger_level above 75
// is CRITICAL, above 50 HIGH, otherwise LOW, with urgency equal to the
// danger level. A missing danger level scores 0/LOW.
func (LocalThresholdScoreProvider) Score(ind domain.Individual) Score {
	if ind.DangerLevel == nil {
		return Score{Category: domain.Low}
	}
	level := *ind.DangerLevel
	return Score{Category: domain.CategoryForDangerLevel(level), Value: level}
}
