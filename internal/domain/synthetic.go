package domain

import (
	"fmt"
	"math/rand/v2"
)

// syntheticSpread is the standard deviation, in degrees, of generated
// positions around the requested center (roughly 500 m).
const syntheticSpread = 0.005

// GenerateRoster produces n synthetic roster records scattered around center.
// Each record has an id of the form "P-<100+i>", a position, and the age,
// mobility (1 bedridden to 10 athlete), has_disease and oxygen_level
// features used for demos. Pass a seeded rng for reproducible output.
func GenerateRoster(n int, center Coordinates, rng *rand.Rand) []RawRecord {
	if n <= 0 {
		return []RawRecord{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	records := make([]RawRecord, 0, n)
	for i := range n {
		records = append(records, RawRecord{
			"id":           fmt.Sprintf("P-%d", 100+i),
			"lat":          center.Lat + rng.NormFloat64()*syntheticSpread,
			"lon":          center.Lon + rng.NormFloat64()*syntheticSpread,
			"age":          20 + rng.IntN(75),
			"mobility":     1 + rng.IntN(10),
			"has_disease":  rng.Float64() < 0.3,
			"oxygen_level": 90 + rng.IntN(10),
		})
	}
	return records
}
