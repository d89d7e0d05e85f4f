package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"google.golang.org/genai"
)

// generator is the subset of genai.Models the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client implements chat.StreamCompleter with the Gemini API.
type Client struct {
	models generator
	model  string
}

// NewClient creates a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{models: cli.Models, model: model}, nil
}

// Complete sends messages and returns the text of the first candidate.
func (c *Client) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	system, contents := toContents(messages)
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{SystemInstruction: system})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text, ok := candidateText(resp)
	if !ok {
		return "", errors.New("gemini generate: response has no candidates")
	}
	return text, nil
}

// Stream forwards each streamed text chunk to onDelta.
func (c *Client) Stream(ctx context.Context, messages []chat.Message, onDelta func(string) error) (string, error) {
	system, contents := toContents(messages)

	var full strings.Builder
	for resp, err := range c.models.GenerateContentStream(ctx, c.model, contents, &genai.GenerateContentConfig{SystemInstruction: system}) {
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		text, ok := candidateText(resp)
		if !ok || text == "" {
			continue
		}
		full.WriteString(text)
		if err := onDelta(text); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

// toContents splits system messages into a single instruction and maps the
// remaining turns onto Gemini's user/model roles.
func toContents(messages []chat.Message) (*genai.Content, []*genai.Content) {
	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case chat.RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return &genai.Content{Parts: system}, contents
}

func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String(), true
}
