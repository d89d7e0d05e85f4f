// Command validate performs integrity checks on roster and hazard fixtures
// before they are uploaded to the blob store or pointed at by ROSTER_FILE.
// It verifies record shape, coordinate coverage, identifier uniqueness,
// local ranking order, and hazard perimeter geometry. When a remote
// ranking payload is given it also checks that its IDs join the roster.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -roster data/roster.json \
//	  -hazards data/hazards.json \
//	  -ranking data/ranking_response.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rosterPath := flag.String("roster", "", "path to the roster JSON array")
	hazardsPath := flag.String("hazards", "", "optional path to the hazard perimeter JSON array")
	rankingPath := flag.String("ranking", "", "optional path to a captured remote ranking response")
	flag.Parse()

	if *rosterPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*rosterPath, *hazardsPath, *rankingPath))
}

func run(rosterPath, hazardsPath, rankingPath string) int {
	fmt.Println("=== Roster Integrity Validation ===")
	fmt.Println()

	// ── Load all data sources ──
	records, err := loadRecords(rosterPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load roster: %v\n", err)
		return 1
	}

	var hazards []domain.RawRecord
	if hazardsPath != "" {
		if hazards, err = loadRecords(hazardsPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load hazards: %v\n", err)
			return 1
		}
	}

	var remote []domain.RawRecord
	if rankingPath != "" {
		if remote, err = loadRecords(rankingPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load ranking response: %v\n", err)
			return 1
		}
	}

	individuals, shape := validateRecordShape(records)

	// ── Run validation phases ──
	phases := []*phase{
		shape,
		validateIdentifiers(individuals),
		validateLocalRanking(individuals),
	}
	if hazardsPath != "" {
		phases = append(phases, validateHazards(hazards))
	}
	if rankingPath != "" {
		phases = append(phases, validateRemoteJoin(remote, individuals))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d roster, %d usable, %d hazard rows, %d ranking items\n",
		len(records), len(individuals), len(hazards), len(remote))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadRecords(path string) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []domain.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of objects: %w", path, err)
	}
	return records, nil
}

// ── Phase 1: Record Shape ──
// Every record must normalize, which requires usable coordinates.

func validateRecordShape(records []domain.RawRecord) ([]domain.Individual, *phase) {
	p := &phase{name: "Phase 1: Record Shape (coordinates)"}
	if len(records) == 0 {
		p.errorf("roster is empty")
	}

	individuals := make([]domain.Individual, 0, len(records))
	for i, rec := range records {
		ind, err := domain.NormalizeRecord(rec, i)
		if err != nil {
			p.errorf("record %d (id=%v): %v", i, rec["id"], err)
			continue
		}
		individuals = append(individuals, ind)
	}
	return individuals, p
}

// ── Phase 2: Identifiers ──
// IDs must be present and unique after canonicalization, or remote scores
// cannot be joined.

func validateIdentifiers(individuals []domain.Individual) *phase {
	p := &phase{name: "Phase 2: Identifiers (canonical, unique)"}
	seen := make(map[domain.ID]int, len(individuals))
	for _, ind := range individuals {
		if ind.ID == domain.None {
			p.errorf("record %d has no usable id", ind.Order())
			continue
		}
		if first, dup := seen[ind.ID]; dup {
			p.errorf("id %s appears at records %d and %d", ind.ID, first, ind.Order())
			continue
		}
		seen[ind.ID] = ind.Order()
	}
	return p
}

// ── Phase 3: Local Ranking ──
// The local fallback must produce a category-then-score order with scores
// in range.

func validateLocalRanking(individuals []domain.Individual) *phase {
	p := &phase{name: "Phase 3: Local Ranking (order, range)"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res := ranking.NewEngine(nil, logger, observability.NewMetricsForTesting()).Rank(context.Background(), individuals)

	for i, ind := range res.Individuals {
		if ind.DangerLevel != nil && (*ind.DangerLevel < 0 || *ind.DangerLevel > 100) {
			p.errorf("id %s: danger_level %g outside 0-100", ind.ID, *ind.DangerLevel)
		}
		if i == 0 {
			continue
		}
		prev := res.Individuals[i-1]
		if prev.RiskCategory.Rank() < ind.RiskCategory.Rank() {
			p.errorf("position %d: %s (%s) ranked above %s (%s)", i, prev.ID, prev.RiskCategory, ind.ID, ind.RiskCategory)
		}
		if prev.RiskCategory == ind.RiskCategory && prev.UrgencyScore < ind.UrgencyScore {
			p.errorf("position %d: %s (%.1f) ranked above %s (%.1f)", i, prev.ID, prev.UrgencyScore, ind.ID, ind.UrgencyScore)
		}
	}
	return p
}

// ── Phase 4: Hazard Perimeters ──

func validateHazards(rows []domain.RawRecord) *phase {
	p := &phase{name: "Phase 4: Hazard Perimeters (polygons)"}

	vertices := map[domain.ID]int{}
	for i, row := range rows {
		id, ok := domain.CanonicalID(row["fire_id"])
		if !ok {
			p.errorf("row %d has no fire_id", i)
			continue
		}
		vertices[id]++
	}

	zones := domain.GroupHazardZones(rows)
	drawn := make(map[string]bool, len(zones))
	for _, z := range zones {
		drawn[z.ID] = true
	}
	for id, n := range vertices {
		if !drawn[string(id)] {
			p.errorf("fire %s has %d usable vertices; at least 3 are needed", id, n)
		}
	}
	return p
}

// ── Phase 5: Remote Join ──
// A captured ranking response must score every roster individual.

func validateRemoteJoin(items []domain.RawRecord, individuals []domain.Individual) *phase {
	p := &phase{name: "Phase 5: Remote Join (ranking ids)"}

	scored := make(map[domain.ID]bool, len(items))
	for i, item := range items {
		id, ok := domain.CanonicalID(item["id"])
		if !ok {
			p.errorf("ranking item %d has no id", i)
			continue
		}
		if _, ok := item["risk_category"]; !ok {
			p.errorf("ranking item %s has no risk_category", id)
		}
		if _, ok := item["ai_score"]; !ok {
			p.errorf("ranking item %s has no ai_score", id)
		}
		scored[id] = true
	}
	for _, ind := range individuals {
		if ind.ID != domain.None && !scored[ind.ID] {
			p.errorf("roster id %s is missing from the ranking response", ind.ID)
		}
	}
	return p
}
