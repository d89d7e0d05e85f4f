package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
)

// ErrMalformed reports a payload that is not a JSON array of objects.
var ErrMalformed = errors.New("roster payload is not an array of objects")

// Status describes whether a load produced usable data.
type Status string

const (
	StatusOK     Status = "ok"
	StatusNoData Status = "no_data"
)

// LoadResult is the outcome of loading a roster. Individuals is empty when
// Status is StatusNoData, and Reason says why. Err is the underlying failure
// for StatusNoData so callers can tell a cancelled fetch from an outage.
type LoadResult struct {
	Individuals []domain.Individual
	Status      Status
	Reason      string
	Err         error
	Dropped     int
}

// Loader turns a Source into normalized individuals.
type Loader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader.
func NewLoader(logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{logger: logger, metrics: metrics}
}

// Load fetches and normalizes a roster. It never returns an error: fetch
// failures, malformed payloads and empty arrays all become StatusNoData.
// Individual records without usable coordinates are dropped and counted.
func (l *Loader) Load(ctx context.Context, src Source) LoadResult {
	records, err := fetchRecords(ctx, src)
	if err != nil {
		return l.noData(src, err)
	}
	if len(records) == 0 {
		return l.noData(src, errors.New("roster is empty"))
	}

	individuals := make([]domain.Individual, 0, len(records))
	dropped := 0
	for i, rec := range records {
		ind, err := domain.NormalizeRecord(rec, i)
		if err != nil {
			dropped++
			l.metrics.RosterRecordsDropped.WithLabelValues("coordinates").Inc()
			l.logger.Warn("dropping roster record", "source", src.Name(), "index", i, "id", rec["id"], "error", err)
			continue
		}
		individuals = append(individuals, ind)
	}

	if len(individuals) == 0 {
		return l.noData(src, fmt.Errorf("none of %d records had usable coordinates", len(records)))
	}

	l.metrics.RosterRecordsLoaded.Add(float64(len(individuals)))
	l.metrics.RosterLoads.WithLabelValues(src.Name(), string(StatusOK)).Inc()
	l.logger.Info("roster loaded", "source", src.Name(), "count", len(individuals), "dropped", dropped)
	return LoadResult{Individuals: individuals, Status: StatusOK, Dropped: dropped}
}

// LoadHazardZones fetches fire perimeter rows and groups them into zones.
// Zones are optional, so any failure yields none.
func (l *Loader) LoadHazardZones(ctx context.Context, src Source) []domain.HazardZone {
	if src == nil {
		return nil
	}
	rows, err := fetchRecords(ctx, src)
	if err != nil {
		l.logger.Warn("hazard zones unavailable", "source", src.Name(), "error", err)
		return nil
	}
	return domain.GroupHazardZones(rows)
}

func (l *Loader) noData(src Source, err error) LoadResult {
	l.metrics.RosterLoads.WithLabelValues(src.Name(), string(StatusNoData)).Inc()
	l.logger.Warn("roster unavailable", "source", src.Name(), "error", err)
	return LoadResult{Status: StatusNoData, Reason: err.Error(), Err: err}
}

func fetchRecords(ctx context.Context, src Source) ([]domain.RawRecord, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// decodeRecords parses a JSON array of objects, keeping numbers as
// json.Number so identifiers are not rounded through float64.
func decodeRecords(data []byte) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	records := make([]domain.RawRecord, 0, len(items))
	for i, item := range items {
		itemDec := json.NewDecoder(bytes.NewReader(item))
		itemDec.UseNumber()
		var rec domain.RawRecord
		if err := itemDec.Decode(&rec); err != nil || rec == nil {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrMalformed, i)
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeRecords(records []domain.RawRecord) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode roster: %w", err)
	}
	return data, nil
}
