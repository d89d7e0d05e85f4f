// Package selection keeps one selected individual consistent between the map
// and list views.
//
// Both views feed events into Apply, which returns the next state and whether
// the views must re-render. The only asymmetry is the render epoch: a map
// click advances it so the list widget drops a row selection that may now
// point at a different record, while a list click leaves it alone so the
// checkbox the operator just ticked stays ticked.
package selection

import "github.com/couchcryptid/rescue-triage-service/internal/domain"

// State is the per-session selection.
type State struct {
	SelectedID  domain.ID
	MapCenter   domain.Coordinates
	Zoom        int
	RenderEpoch int
}

// NewState returns the initial state centered on center with no selection.
func NewState(center domain.Coordinates, zoom int) State {
	return State{MapCenter: center, Zoom: zoom}
}

// Event is an operator interaction originating in one of the views.
type Event interface {
	isEvent()
}

// MapClicked reports the stored coordinates of the clicked marker.
type MapClicked struct {
	Lat float64
	Lon float64
}

// ListClicked reports the index of the clicked row in the displayed list.
type ListClicked struct {
	Row int
}

func (MapClicked) isEvent()  {}
func (ListClicked) isEvent() {}

// View is what the operator currently sees.
type View struct {
	// Markers are the individuals drawn on the map.
	Markers []domain.Individual
	// Rows are the list rows in display order.
	Rows []domain.Individual
	// FocusZoom is the zoom level applied when a row is selected.
	FocusZoom int
}

// Apply reduces ev onto s. It returns the next state and true when the views
// must re-render; a no-op returns s unchanged and false.
func Apply(s State, ev Event, view View) (State, bool) {
	switch e := ev.(type) {
	case MapClicked:
		return applyMapClick(s, e, view)
	case ListClicked:
		return applyListClick(s, e, view)
	default:
		return s, false
	}
}

func applyMapClick(s State, e MapClicked, view View) (State, bool) {
	for _, ind := range view.Markers {
		if ind.Lat != e.Lat || ind.Lon != e.Lon {
			continue
		}
		if ind.ID == s.SelectedID {
			return s, false
		}
		s.SelectedID = ind.ID
		s.RenderEpoch++
		return s, true
	}
	return s, false
}

func applyListClick(s State, e ListClicked, view View) (State, bool) {
	if e.Row < 0 || e.Row >= len(view.Rows) {
		return s, false
	}
	ind := view.Rows[e.Row]
	pos := ind.Coordinates()
	if pos == s.MapCenter && ind.ID == s.SelectedID {
		return s, false
	}
	s.MapCenter = pos
	s.SelectedID = ind.ID
	s.Zoom = view.FocusZoom
	return s, true
}
