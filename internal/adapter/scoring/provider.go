package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
)

// maxBodyBytes bounds how much of a ranking response is read.
const maxBodyBytes = 8 << 20

// RemoteScoreProvider implements ranking.ScoreProvider against a remote ranking endpoint
// that returns a JSON array of {id, risk_category, ai_score}.
type RemoteScoreProvider struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewRemoteScoreProvider creates a remote ranking client. An empty url makes every call
// fail with ranking.ErrNoRemoteData.
func NewRemoteScoreProvider(url string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *RemoteScoreProvider {
	return &RemoteScoreProvider{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

func (c *RemoteScoreProvider) Name() string { return "remote" }

// Scores fetches the remote ranking. The request carries no roster data;
// the remote service ranks its own copy and results are joined by ID.
func (c *RemoteScoreProvider) Scores(ctx context.Context, _ []domain.Individual) (ranking.Assessment, error) {
	if c.url == "" {
		return nil, fmt.Errorf("ranking endpoint not configured: %w", ranking.ErrNoRemoteData)
	}

	start := time.Now()
	scores, err := c.fetch(ctx)
	c.metrics.RemoteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.RemoteScoring.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.RemoteScoring.WithLabelValues("success").Inc()
	c.logger.Debug("remote ranking fetched", "count", len(scores))
	return scores, nil
}

func (c *RemoteScoreProvider) fetch(ctx context.Context) (ranking.Assessment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %v: %w", err, ranking.ErrNoRemoteData)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ranking request: %v: %w", err, ranking.ErrNoRemoteData)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read ranking response: %v: %w", err, ranking.ErrNoRemoteData)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ranking API error: status %d: %s: %w", resp.StatusCode, truncate(body, 200), ranking.ErrNoRemoteData)
	}

	return parseAssessment(body)
}

// parseAssessment decodes the remote payload. The first occurrence of a
// duplicate ID wins. Items without an ID are skipped; a payload where no
// item has one cannot be joined and counts as no data.
func parseAssessment(body []byte) (ranking.Assessment, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("ranking payload is not a list: %w", ranking.ErrNoRemoteData)
	}

	out := make(ranking.Assessment, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ranking item %d is not an object: %w", i, ranking.ErrNoRemoteData)
		}
		id, ok := domain.CanonicalID(obj["id"])
		if !ok {
			continue
		}
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = ranking.Score{
			Category: category(obj["risk_category"]),
			Value:    number(obj["ai_score"]),
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("ranking payload has no identifiers: %w", ranking.ErrNoRemoteData)
	}
	return out, nil
}

func category(v any) domain.RiskCategory {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return domain.Low
	}
	return domain.NormalizeCategory(s)
}

func number(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		n := json.Number(strings.TrimSpace(t))
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
