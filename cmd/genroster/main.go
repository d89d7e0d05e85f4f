// Command genroster writes a synthetic roster, and optionally a fire
// perimeter, as JSON fixtures. It uses the service's own generator, loader
// and local ranking so the printed stats match what the dashboard shows.
//
// Usage:
//
//	go run ./cmd/genroster \
//	  -n 50 -seed 42 -enrich \
//	  -out data/roster.json \
//	  -hazards-out data/hazards.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
)

var firstNames = []string{"Eleni", "Nikos", "Maria", "Kostas", "Sofia", "Giorgos", "Katerina", "Dimitris", "Anna", "Yannis"}

var lastNames = []string{"Papadopoulou", "Georgiou", "Ioannou", "Dimitriou", "Nikolaou", "Vlachou", "Karagiannis", "Pappas"}

var mobilityNotes = []string{"", "uses a wheelchair", "needs assistance on stairs", "lives alone", "has a pet", ""}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 50, "number of individuals")
	seed := flag.Uint64("seed", 42, "random seed for reproducible output")
	lat := flag.Float64("lat", 40.6401, "center latitude")
	lon := flag.Float64("lon", 22.9444, "center longitude")
	enrich := flag.Bool("enrich", false, "add names, presence, life support and danger levels")
	out := flag.String("out", "", "output path for the roster JSON")
	hazardsOut := flag.String("hazards-out", "", "optional output path for a fire perimeter JSON")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	center := domain.Coordinates{Lat: *lat, Lon: *lon}
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	records := domain.GenerateRoster(*n, center, rng)
	if *enrich {
		for _, rec := range records {
			enrichRecord(rec, rng)
		}
	}
	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	log.Printf("roster: %d records -> %s", len(records), *out)

	if *hazardsOut != "" {
		rows := perimeter("1", domain.Coordinates{Lat: center.Lat + 0.01, Lon: center.Lon - 0.01}, 0.004, 8)
		if err := writeJSON(*hazardsOut, rows); err != nil {
			return fmt.Errorf("write hazards: %w", err)
		}
		log.Printf("hazards: %d vertices -> %s", len(rows), *hazardsOut)
	}

	return printStats(*out)
}

func enrichRecord(rec domain.RawRecord, rng *rand.Rand) {
	rec["fullname"] = firstNames[rng.IntN(len(firstNames))] + " " + lastNames[rng.IntN(len(lastNames))]
	rec["present"] = boolFlag(rng.Float64() < 0.9)
	rec["life_support"] = boolFlag(rng.Float64() < 0.1)
	rec["danger_level"] = math.Round(rng.Float64()*1000) / 10
	if note := mobilityNotes[rng.IntN(len(mobilityNotes))]; note != "" {
		rec["notes"] = note
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// perimeter returns the rows of a regular polygon around c.
func perimeter(fireID string, c domain.Coordinates, radius float64, vertices int) []domain.RawRecord {
	rows := make([]domain.RawRecord, 0, vertices)
	for i := range vertices {
		angle := 2 * math.Pi * float64(i) / float64(vertices)
		rows = append(rows, domain.RawRecord{
			"fire_id": fireID,
			"lat":     c.Lat + radius*math.Sin(angle),
			"lon":     c.Lon + radius*math.Cos(angle),
		})
	}
	return rows
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(path string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	ctx := context.Background()

	res := roster.NewLoader(logger, metrics).Load(ctx, roster.FileSource{Path: path})
	if res.Status != roster.StatusOK {
		return fmt.Errorf("reload %s: %s", path, res.Reason)
	}
	ranked := ranking.NewEngine(nil, logger, metrics).Rank(ctx, res.Individuals)

	counts := map[domain.RiskCategory]int{}
	present := 0
	for _, ind := range ranked.Individuals {
		counts[ind.RiskCategory]++
		if ind.Present {
			present++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (present %d, dropped %d)\n", len(ranked.Individuals), present, res.Dropped)
	fmt.Printf("By category (local): critical=%d, high=%d, low=%d\n",
		counts[domain.Critical], counts[domain.High], counts[domain.Low])
	if len(ranked.Individuals) > 0 {
		top := ranked.Individuals[0]
		fmt.Printf("Top target: %s (%s, urgency %.1f)\n", top.ID, top.FullName(), top.UrgencyScore)
	}
	return nil
}
