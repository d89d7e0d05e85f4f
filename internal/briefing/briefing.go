package briefing

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/rescue-triage-service/internal/domain"
)

// DefaultTopN is the number of urgent individuals summarized when the caller
// does not choose.
const DefaultTopN = 5

// Summary is the minimized view of an individual who is not selected.
type Summary struct {
	ID           domain.ID `json:"id"`
	Name         string    `json:"fullname"`
	UrgencyScore float64   `json:"urgency_score"`
}

// Detail is the full record of the selected individual.
type Detail struct {
	ID           domain.ID           `json:"id"`
	Name         string              `json:"fullname"`
	RiskCategory domain.RiskCategory `json:"risk_category"`
	UrgencyScore float64             `json:"urgency_score"`
	Position     domain.Coordinates  `json:"position"`
	Present      bool                `json:"present"`
	LifeSupport  bool                `json:"life_support"`
	MedicalInfo  string              `json:"medical_info"`
	Mobility     string              `json:"mobility"`
	Notes        string              `json:"notes"`
}

// Context is the operational picture handed to the assistant.
type Context struct {
	Total         int       `json:"total"`
	HighRiskCount int       `json:"high_risk_count"`
	Selected      *Detail   `json:"selected_citizen,omitempty"`
	TopUrgent     []Summary `json:"top_urgent_citizens"`
	TopTargetID   domain.ID `json:"top_target_id"`
}

// NewDetail builds the detail record for ind.
func NewDetail(ind domain.Individual) Detail {
	return Detail{
		ID:           ind.ID,
		Name:         ind.FullName(),
		RiskCategory: ind.RiskCategory,
		UrgencyScore: ind.UrgencyScore,
		Position:     ind.Coordinates(),
		Present:      ind.Present,
		LifeSupport:  ind.LifeSupport(),
		MedicalInfo:  ind.MedicalInfo(),
		Mobility:     ind.Mobility(),
		Notes:        ind.Notes(),
	}
}

// Assemble summarizes ranked, which must already be in rank order. Only the
// individual matching selectedID gets full detail; the top n are reduced to
// id, name and score. A non-positive n uses DefaultTopN. ranked is read only.
func Assemble(ranked []domain.Individual, selectedID domain.ID, n int) Context {
	if n <= 0 {
		n = DefaultTopN
	}

	c := Context{Total: len(ranked), TopUrgent: make([]Summary, 0, min(n, len(ranked)))}
	for i, ind := range ranked {
		if ind.UrgencyScore > domain.HighRiskThreshold {
			c.HighRiskCount++
		}
		if selectedID != domain.None && ind.ID == selectedID && c.Selected == nil {
			d := NewDetail(ind)
			c.Selected = &d
		}
		if i < n {
			c.TopUrgent = append(c.TopUrgent, Summary{ID: ind.ID, Name: ind.FullName(), UrgencyScore: ind.UrgencyScore})
		}
	}
	if len(ranked) > 0 {
		c.TopTargetID = ranked[0].ID
	}
	return c
}

// Render writes the context as plain text for a system instruction.
func (c Context) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Individuals tracked: %d\n", c.Total)
	fmt.Fprintf(&b, "High risk (urgency above %.0f): %d\n", domain.HighRiskThreshold, c.HighRiskCount)

	if c.Selected != nil {
		d := c.Selected
		b.WriteString("\nSelected individual:\n")
		fmt.Fprintf(&b, "- ID: %s\n", d.ID)
		fmt.Fprintf(&b, "- Name: %s\n", d.Name)
		fmt.Fprintf(&b, "- Risk category: %s\n", d.RiskCategory)
		fmt.Fprintf(&b, "- Urgency score: %.1f\n", d.UrgencyScore)
		fmt.Fprintf(&b, "- Location: %.6f, %.6f\n", d.Position.Lat, d.Position.Lon)
		fmt.Fprintf(&b, "- Life support: %s\n", yesNo(d.LifeSupport))
		fmt.Fprintf(&b, "- Medical info: %s\n", orNA(d.MedicalInfo))
		fmt.Fprintf(&b, "- Mobility: %s\n", orNA(d.Mobility))
		fmt.Fprintf(&b, "- Notes: %s\n", d.Notes)
	} else {
		b.WriteString("\nNo individual is selected.\n")
	}

	if len(c.TopUrgent) > 0 {
		b.WriteString("\nMost urgent:\n")
		for i, s := range c.TopUrgent {
			fmt.Fprintf(&b, "%d. %s (ID %s), urgency %.1f\n", i+1, s.Name, s.ID, s.UrgencyScore)
		}
	}
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
