// Package domain models the roster of at-risk individuals that rescue units
// triage during an incident.
//
// # Data Source
//
// Rosters arrive as a JSON array of objects, either from a local file or from
// a named blob in the "configdata" bucket. Producers disagree on shape, so
// every record is normalized before anything else touches it.
//
// # Record Conventions
//
// Identifier:
//
//	"id" is either a free-form string ("P-101") or a number (101). Some
//	producers emit numbers as strings ("101"). All three normalize to one
//	canonical [ID] so a roster record and a remote score join on equality.
//
// Coordinates:
//
//	Flat:   {"id": 1, "lat": 40.64, "lon": 22.94}
//	Nested: {"id": 1, "location": {"lat": 40.64, "lon": 22.94}}
//	The nested object may also be keyed "coordinates", "coords", "position"
//	or "geo"; "latitude", "longitude" and "lng" are accepted spellings.
//	A record without usable coordinates cannot be drawn and is rejected.
//
// Presence:
//
//	"present" is 0/1 (or a boolean). Absent means present. Individuals who
//	are not present are hidden from the map and list, but stay in the
//	snapshot so a selected individual's detail can still be shown.
//
// Severity:
//
//	"danger_level" is an optional 0–100 local indicator used by the local
//	scoring fallback.
//
// Everything else (fullname, notes, medical_info, mobility, life_support,
// age, ...) passes through untouched in [Individual.Attributes].
//
// # Triage Categories
//
//	CRITICAL > HIGH > MEDIUM = LOW > unknown
//
// Ranked output is ordered by category first and urgency score second, and
// keeps input order for ties.
package domain
