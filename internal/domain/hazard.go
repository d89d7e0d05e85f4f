package domain

// HazardZone is an active fire perimeter drawn as a polygon on the map.
type HazardZone struct {
	ID       string        `json:"id"`
	Vertices []Coordinates `json:"vertices"`
}

// GroupHazardZones builds perimeters from rows of {fire_id, lat, lon}.
// Vertices keep row order within each zone, and zones are returned in order
// of first appearance. Rows without a fire_id or coordinates are skipped, as
// are zones with fewer than three vertices, which cannot form a polygon.
func GroupHazardZones(rows []RawRecord) []HazardZone {
	index := make(map[string]int)
	var zones []HazardZone

	for _, row := range rows {
		id, ok := CanonicalID(row["fire_id"])
		if !ok {
			continue
		}
		lat, lon, ok := coordinatesFrom(row)
		if !ok {
			continue
		}
		key := string(id)
		i, seen := index[key]
		if !seen {
			i = len(zones)
			index[key] = i
			zones = append(zones, HazardZone{ID: key})
		}
		zones[i].Vertices = append(zones[i].Vertices, Coordinates{Lat: lat, Lon: lon})
	}

	polygons := make([]HazardZone, 0, len(zones))
	for _, z := range zones {
		if len(z.Vertices) >= 3 {
			polygons = append(polygons, z)
		}
	}
	return polygons
}
