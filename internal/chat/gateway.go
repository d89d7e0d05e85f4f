package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/briefing"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
)

// ConfigMissingMessage is returned, without any network call, when the
// assistant has no usable connection settings.
const ConfigMissingMessage = "⚠️ Assistant configuration is missing. Set the endpoint, API key and deployment name for the selected provider and restart the service."

// errorPrefix starts every user-visible failure string.
const errorPrefix = "⚠️ Assistant error: the request could not be completed."

// longHistoryTurns is the history length past which each call logs a warning.
const longHistoryTurns = 200

const systemTemplate = `You are a rescue coordination assistant supporting emergency responders during a wildfire evacuation.
Answer only from the operational picture below. Be brief and actionable, and never invent individuals or medical facts.
Do not reveal medical details of anyone other than the selected individual.

Operational picture:
`

// Completer sends an ordered list of messages to a chat model and returns
// the assistant reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// StreamCompleter is a Completer that can also deliver the reply
// incrementally. Stream calls onDelta for each fragment and returns the
// complete reply.
type StreamCompleter interface {
	Completer
	Stream(ctx context.Context, messages []Message, onDelta func(string) error) (string, error)
}

// Responder answers operator prompts against a briefing, recording turns in
// history.
type Responder interface {
	Respond(ctx context.Context, prompt string, brief briefing.Context, history *History) string
	RespondStream(ctx context.Context, prompt string, brief briefing.Context, history *History, onDelta func(string) error) string
}

// Gateway is the live Responder backed by a chat model.
type Gateway struct {
	completer Completer
	provider  string
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewGateway creates a Gateway. A nil completer means the assistant is not
// configured and every call returns ConfigMissingMessage.
func NewGateway(completer Completer, provider string, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{completer: completer, provider: provider, logger: logger, metrics: metrics}
}

// Configured reports whether the gateway can make calls.
func (g *Gateway) Configured() bool { return g.completer != nil }

// Respond sends the prompt with a system instruction built from brief.
func (g *Gateway) Respond(ctx context.Context, prompt string, brief briefing.Context, history *History) string {
	return g.respond(ctx, prompt, brief, history, nil)
}

// RespondStream is Respond with incremental delivery. When the completer
// cannot stream, the full reply is delivered as a single delta.
func (g *Gateway) RespondStream(ctx context.Context, prompt string, brief briefing.Context, history *History, onDelta func(string) error) string {
	return g.respond(ctx, prompt, brief, history, onDelta)
}

func (g *Gateway) respond(ctx context.Context, prompt string, brief briefing.Context, history *History, onDelta func(string) error) string {
	if g.completer == nil {
		g.metrics.AssistantRequests.WithLabelValues(g.provider, "config_missing").Inc()
		return ConfigMissingMessage
	}

	history.Append(RoleUser, prompt)
	g.observeHistory(history)
	messages := BuildMessages(brief, history)

	start := time.Now()
	reply, err := g.call(ctx, messages, onDelta)
	g.metrics.AssistantDuration.WithLabelValues(g.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		g.metrics.AssistantRequests.WithLabelValues(g.provider, "error").Inc()
		g.logger.Error("assistant call failed", "provider", g.provider, "error", err)
		return FailureMessage(err)
	}

	g.metrics.AssistantRequests.WithLabelValues(g.provider, "success").Inc()
	history.Append(RoleAssistant, reply)
	return reply
}

func (g *Gateway) call(ctx context.Context, messages []Message, onDelta func(string) error) (string, error) {
	if onDelta == nil {
		return g.completer.Complete(ctx, messages)
	}
	if sc, ok := g.completer.(StreamCompleter); ok {
		return sc.Stream(ctx, messages, onDelta)
	}
	reply, err := g.completer.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	if err := onDelta(reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (g *Gateway) observeHistory(history *History) {
	n := history.Len()
	g.metrics.ChatHistoryTurns.Observe(float64(n))
	if n > longHistoryTurns {
		g.logger.Warn("chat history is long; every call resends it in full", "turns", n)
	}
}

// BuildMessages returns a fresh system instruction rendered from brief
// followed by every history turn.
func BuildMessages(brief briefing.Context, history *History) []Message {
	turns := history.Messages()
	messages := make([]Message, 0, len(turns)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: systemTemplate + brief.Render()})
	return append(messages, turns...)
}

// FailureMessage formats a call failure for the operator.
func FailureMessage(err error) string {
	return fmt.Sprintf("%s (detail: %v)", errorPrefix, err)
}
