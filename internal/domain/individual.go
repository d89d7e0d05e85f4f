package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// RawRecord is one undecoded roster entry as produced by a source.
type RawRecord map[string]any

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Individual is one at-risk person in a roster snapshot.
type Individual struct {
	ID           ID
	Lat          float64
	Lon          float64
	Present      bool
	DangerLevel  *float64
	RiskCategory RiskCategory
	UrgencyScore float64

	// Attributes holds every other input key, untouched.
	Attributes map[string]any

	order int
}

// Coordinates returns the individual's position.
func (i Individual) Coordinates() Coordinates {
	return Coordinates{Lat: i.Lat, Lon: i.Lon}
}

// Order is the position of the record in its source, used for stable ties.
func (i Individual) Order() int { return i.order }

// WithOrder returns a copy of the individual with the given input position.
func (i Individual) WithOrder(order int) Individual {
	i.order = order
	return i
}

// FullName returns the display name, falling back to the identifier.
func (i Individual) FullName() string {
	if name := i.attrString("fullname"); name != "" {
		return name
	}
	return string(i.ID)
}

// Notes returns the free-form notes, or "N/A".
func (i Individual) Notes() string {
	if notes := i.attrString("notes"); notes != "" {
		return notes
	}
	return "N/A"
}

// MedicalInfo returns the medical_info field, or "".
func (i Individual) MedicalInfo() string { return i.attrString("medical_info") }

// Mobility returns the mobility field rendered as text, or "".
func (i Individual) Mobility() string { return i.attrString("mobility") }

// LifeSupport reports whether the life_support flag is set to 1/true.
func (i Individual) LifeSupport() bool {
	v, ok := i.Attributes["life_support"]
	if !ok {
		return false
	}
	b, ok := parseFlag(v)
	return ok && b
}

func (i Individual) attrString(key string) string {
	v, ok := i.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// MarshalJSON flattens the pass-through attributes next to the typed fields,
// so rendering layers see the same shape the roster had, plus the derived
// risk_category and urgency_score.
func (i Individual) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Attributes)+7)
	maps.Copy(out, i.Attributes)
	out["id"] = string(i.ID)
	out["lat"] = i.Lat
	out["lon"] = i.Lon
	if i.Present {
		out["present"] = 1
	} else {
		out["present"] = 0
	}
	if i.DangerLevel != nil {
		out["danger_level"] = *i.DangerLevel
	}
	out["risk_category"] = string(i.RiskCategory)
	out["urgency_score"] = i.UrgencyScore
	return json.Marshal(out)
}
