package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	goopenai "github.com/sashabaranov/go-openai"
)

// Client implements chat.StreamCompleter against an Azure OpenAI deployment.
type Client struct {
	api        *goopenai.Client
	deployment string
}

// NewAzureClient creates a client for the given Azure endpoint, key,
// deployment and API version.
func NewAzureClient(endpoint, apiKey, deployment, apiVersion string) *Client {
	cfg := goopenai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }
	return &Client{api: goopenai.NewClientWithConfig(cfg), deployment: deployment}
}

// Complete sends messages and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.request(messages, false))
	if err != nil {
		return "", fmt.Errorf("azure chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("azure chat completion: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends messages with streaming enabled, forwarding each content
// delta to onDelta.
func (c *Client) Stream(ctx context.Context, messages []chat.Message, onDelta func(string) error) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, c.request(messages, true))
	if err != nil {
		return "", fmt.Errorf("azure chat stream: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("azure chat stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return "", err
		}
	}
}

func (c *Client) request(messages []chat.Message, stream bool) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model:    c.deployment,
		Messages: toOpenAI(messages),
		Stream:   stream,
	}
}

func toOpenAI(messages []chat.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case chat.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case chat.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		out[i] = goopenai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}
