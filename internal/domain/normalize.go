package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingCoordinates is returned for records that cannot be placed on a map.
var ErrMissingCoordinates = errors.New("record has no usable coordinates")

// nestedCoordinateKeys are the substructure names producers use for {lat, lon}.
var nestedCoordinateKeys = []string{"location", "coordinates", "coords", "position", "geo"}

var (
	latKeys = []string{"lat", "latitude"}
	lonKeys = []string{"lon", "lng", "longitude"}
)

// reservedKeys are decoded into typed fields and not kept in Attributes.
var reservedKeys = map[string]struct{}{
	"id": {}, "lat": {}, "lon": {}, "present": {}, "danger_level": {},
	"risk_category": {}, "urgency_score": {},
}

// NormalizeRecord converts one raw roster entry into an Individual,
// flattening nested coordinates to top-level lat/lon. The order is the
// record's position in its source. Derived fields from a previous ranking
// (risk_category, urgency_score) are discarded so every snapshot is ranked
// from scratch.
func NormalizeRecord(raw RawRecord, order int) (Individual, error) {
	lat, lon, ok := extractCoordinates(raw)
	if !ok {
		return Individual{}, fmt.Errorf("normalize record %v: %w", raw["id"], ErrMissingCoordinates)
	}

	id, _ := CanonicalID(raw["id"])

	ind := Individual{
		ID:         id,
		Lat:        lat,
		Lon:        lon,
		Present:    true,
		Attributes: make(map[string]any, len(raw)),
		order:      order,
	}

	if v, ok := raw["present"]; ok && v != nil {
		if present, ok := parseFlag(v); ok {
			ind.Present = present
		}
	}
	if v, ok := raw["danger_level"]; ok {
		if level, ok := parseNumber(v); ok {
			ind.DangerLevel = &level
		}
	}

	for k, v := range raw {
		if _, reserved := reservedKeys[k]; reserved {
			continue
		}
		if isNestedCoordinateKey(k) && isCoordinateObject(v) {
			continue
		}
		if isAlias(k) {
			continue
		}
		ind.Attributes[k] = v
	}
	return ind, nil
}

func extractCoordinates(raw RawRecord) (float64, float64, bool) {
	if lat, lon, ok := coordinatesFrom(raw); ok {
		return lat, lon, true
	}
	for _, key := range nestedCoordinateKeys {
		nested, ok := asObject(raw[key])
		if !ok {
			continue
		}
		if lat, lon, ok := coordinatesFrom(nested); ok {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

func coordinatesFrom(m map[string]any) (float64, float64, bool) {
	lat, okLat := firstNumber(m, latKeys)
	lon, okLon := firstNumber(m, lonKeys)
	if !okLat || !okLon {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func firstNumber(m map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return parseNumber(v)
		}
	}
	return 0, false
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case RawRecord:
		return t, true
	default:
		return nil, false
	}
}

func isNestedCoordinateKey(k string) bool {
	for _, key := range nestedCoordinateKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isCoordinateObject(v any) bool {
	m, ok := asObject(v)
	if !ok {
		return false
	}
	_, _, ok = coordinatesFrom(m)
	return ok
}

func isAlias(k string) bool {
	switch k {
	case "latitude", "longitude", "lng":
		return true
	default:
		return false
	}
}

// parseNumber accepts JSON numbers, Go numerics and numeric strings.
func parseNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseFlag accepts booleans, 0/1 numbers and their string forms.
func parseFlag(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	n, ok := parseNumber(v)
	if !ok {
		return false, false
	}
	return n != 0, true
}
