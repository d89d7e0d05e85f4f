package dashboard

import (
	"fmt"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/briefing"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
	"github.com/couchcryptid/rescue-triage-service/internal/selection"
)

// Marker colours.
const (
	ColorCritical = "red"
	ColorHigh     = "orange"
	ColorOther    = "green"
	ColorSelected = "blue"
)

// Marker radii in pixels.
const (
	RadiusDefault  = 5
	RadiusSelected = 8
)

// Dashboard is everything one session renders.
type Dashboard struct {
	SessionID string        `json:"session_id"`
	Status    roster.Status `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Provider  string        `json:"provider,omitempty"`
	LoadedAt  time.Time     `json:"loaded_at"`
	Metrics   Counts        `json:"metrics"`
	Map       Map           `json:"map"`
	List      List          `json:"list"`
}

// Counts are the headline numbers above the map.
type Counts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	HighRisk int `json:"high_risk"`
}

// Map is the tactical map view.
type Map struct {
	Center      domain.Coordinates  `json:"center"`
	Zoom        int                 `json:"zoom"`
	Markers     []Marker            `json:"markers"`
	HazardZones []domain.HazardZone `json:"hazard_zones"`
	Rescuer     domain.Coordinates  `json:"rescuer"`
	Route       *Route              `json:"route,omitempty"`
}

// Marker is one present individual on the map.
type Marker struct {
	ID        domain.ID          `json:"id"`
	Position  domain.Coordinates `json:"position"`
	Color     string             `json:"color"`
	FillColor string             `json:"fill_color"`
	Radius    int                `json:"radius"`
	Tooltip   string             `json:"tooltip"`
	Popup     Popup              `json:"popup"`
}

// Popup is the marker information bubble. Open is set only for the selection.
type Popup struct {
	Name        string `json:"fullname"`
	Urgency     int    `json:"urgency"`
	LifeSupport bool   `json:"life_support"`
	Notes       string `json:"notes"`
	Open        bool   `json:"open"`
}

// Route is the illustrative line from the rescuer to a target.
type Route struct {
	TargetID domain.ID            `json:"target_id"`
	Path     []domain.Coordinates `json:"path"`
}

// List is the citizen table.
type List struct {
	WidgetKey string           `json:"widget_key"`
	Rows      []Row            `json:"rows"`
	Banner    string           `json:"banner,omitempty"`
	Selected  *briefing.Detail `json:"selected,omitempty"`
}

// Row is one present individual in the table.
type Row struct {
	ID           domain.ID           `json:"id"`
	FullName     string              `json:"fullname"`
	RiskCategory domain.RiskCategory `json:"risk_category"`
	LifeSupport  bool                `json:"life_support"`
	Highlighted  bool                `json:"highlighted"`
}

// present returns the individuals that are drawn on the map and listed, in
// rank order.
func present(individuals []domain.Individual) []domain.Individual {
	out := make([]domain.Individual, 0, len(individuals))
	for _, ind := range individuals {
		if ind.Present {
			out = append(out, ind)
		}
	}
	return out
}

func markerColor(c domain.RiskCategory) string {
	switch c {
	case domain.Critical:
		return ColorCritical
	case domain.High:
		return ColorHigh
	default:
		return ColorOther
	}
}

func buildMarkers(visible []domain.Individual, selected domain.ID) []Marker {
	markers := make([]Marker, 0, len(visible))
	for _, ind := range visible {
		isSelected := selected != domain.None && ind.ID == selected
		fill := markerColor(ind.RiskCategory)
		m := Marker{
			ID:        ind.ID,
			Position:  ind.Coordinates(),
			Color:     fill,
			FillColor: fill,
			Radius:    RadiusDefault,
			Tooltip:   fmt.Sprintf("%s (%s)", ind.FullName(), ind.ID),
			Popup: Popup{
				Name:        ind.FullName(),
				Urgency:     int(ind.UrgencyScore),
				LifeSupport: ind.LifeSupport(),
				Notes:       ind.Notes(),
				Open:        isSelected,
			},
		}
		if isSelected {
			m.Color = ColorSelected
			m.Radius = RadiusSelected
		}
		markers = append(markers, m)
	}
	return markers
}

func buildRows(visible []domain.Individual, selected domain.ID) []Row {
	rows := make([]Row, 0, len(visible))
	for _, ind := range visible {
		rows = append(rows, Row{
			ID:           ind.ID,
			FullName:     ind.FullName(),
			RiskCategory: ind.RiskCategory,
			LifeSupport:  ind.LifeSupport(),
			Highlighted:  selected != domain.None && ind.ID == selected,
		})
	}
	return rows
}

// buildRoute targets the selection when it is on the map, else the top
// ranked present individual.
func buildRoute(rescuer domain.Coordinates, visible []domain.Individual, selected domain.ID) *Route {
	var target *domain.Individual
	for i := range visible {
		if visible[i].ID == selected && selected != domain.None {
			target = &visible[i]
			break
		}
	}
	if target == nil && len(visible) > 0 {
		target = &visible[0]
	}
	if target == nil {
		return nil
	}
	return &Route{TargetID: target.ID, Path: []domain.Coordinates{rescuer, target.Coordinates()}}
}

func countsFor(individuals []domain.Individual) Counts {
	c := Counts{Total: len(individuals)}
	for _, ind := range individuals {
		if ind.RiskCategory == domain.Critical {
			c.Critical++
		}
		if ind.UrgencyScore > domain.HighRiskThreshold {
			c.HighRisk++
		}
	}
	return c
}

// WidgetKey names the list widget for a render epoch. A new key makes the
// front-end discard its row selection.
func WidgetKey(epoch int) string {
	return fmt.Sprintf("citizen_list_%d", epoch)
}

func build(snap pipeline.Snapshot, sel selection.State, rescuer domain.Coordinates) (Map, List) {
	visible := present(snap.Individuals)

	m := Map{
		Center:      sel.MapCenter,
		Zoom:        sel.Zoom,
		Markers:     buildMarkers(visible, sel.SelectedID),
		HazardZones: snap.HazardZones,
		Rescuer:     rescuer,
		Route:       buildRoute(rescuer, visible, sel.SelectedID),
	}
	if m.HazardZones == nil {
		m.HazardZones = []domain.HazardZone{}
	}

	l := List{WidgetKey: WidgetKey(sel.RenderEpoch), Rows: buildRows(visible, sel.SelectedID)}
	if ind, ok := snap.Find(sel.SelectedID); ok {
		d := briefing.NewDetail(ind)
		l.Selected = &d
		l.Banner = fmt.Sprintf("Selected: %s | Urgency: %d", ind.FullName(), int(ind.UrgencyScore))
	}
	return m, l
}
