package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/rescue-triage-service/internal/briefing"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
)

// CannedResponder answers from fixed keyword-matched templates. It is the
// degraded mode used when no chat model is configured.
type CannedResponder struct{}

func (CannedResponder) Respond(_ context.Context, prompt string, brief briefing.Context, history *History) string {
	history.Append(RoleUser, prompt)
	reply := CannedReply(prompt, brief)
	history.Append(RoleAssistant, reply)
	return reply
}

func (c CannedResponder) RespondStream(ctx context.Context, prompt string, brief briefing.Context, history *History, onDelta func(string) error) string {
	reply := c.Respond(ctx, prompt, brief, history)
	if onDelta != nil {
		_ = onDelta(reply)
	}
	return reply
}

// CannedReply picks the template for prompt.
func CannedReply(prompt string, brief briefing.Context) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "route"):
		target := brief.TopTargetID
		if target == domain.None {
			target = "Unknown"
		}
		return fmt.Sprintf("Calculating optimal path... The most efficient route is to Target %s first due to low mobility scores. Traffic data suggests avoiding Main Street.", target)
	case strings.Contains(p, "count"), strings.Contains(p, "how many"):
		return fmt.Sprintf("There are currently %d individuals in the 'High Risk' category within the blast radius.", brief.HighRiskCount)
	default:
		return "Copy that. Maintaining monitoring of vital signs. Routing updated based on fire spread predictions."
	}
}
