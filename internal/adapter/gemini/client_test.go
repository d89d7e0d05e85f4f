package gemini

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	text   string
	chunks []string
	err    error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}}}}}
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel, f.gotContents, f.gotConfig = model, contents, config
	if f.err != nil {
		return nil, f.err
	}
	if f.text == "" {
		return &genai.GenerateContentResponse{}, nil
	}
	return textResponse(f.text), nil
}

func (f *fakeModels) GenerateContentStream(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.gotModel, f.gotContents, f.gotConfig = model, contents, config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
	}
}

var testMessages = []chat.Message{
	{Role: chat.RoleSystem, Content: "brief"},
	{Role: chat.RoleUser, Content: "Hello"},
	{Role: chat.RoleAssistant, Content: "Hi"},
	{Role: chat.RoleUser, Content: "Route?"},
}

func TestToContents(t *testing.T) {
	system, contents := toContents(testMessages)

	require.NotNil(t, system)
	assert.Equal(t, "brief", system.Parts[0].Text)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "Route?", contents[2].Parts[0].Text)
}

func TestToContents_NoSystem(t *testing.T) {
	system, contents := toContents(testMessages[1:2])
	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestComplete(t *testing.T) {
	f := &fakeModels{text: "Target 101 first."}
	c := &Client{models: f, model: "gemini-2.0-flash"}

	reply, err := c.Complete(context.Background(), testMessages)

	require.NoError(t, err)
	assert.Equal(t, "Target 101 first.", reply)
	assert.Equal(t, "gemini-2.0-flash", f.gotModel)
	require.NotNil(t, f.gotConfig.SystemInstruction)
	assert.Equal(t, "brief", f.gotConfig.SystemInstruction.Parts[0].Text)
}

func TestComplete_NoCandidates(t *testing.T) {
	c := &Client{models: &fakeModels{}, model: "m"}
	_, err := c.Complete(context.Background(), testMessages)
	require.Error(t, err)
}

func TestComplete_Error(t *testing.T) {
	c := &Client{models: &fakeModels{err: errors.New("quota exceeded")}, model: "m"}
	_, err := c.Complete(context.Background(), testMessages)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStream(t *testing.T) {
	c := &Client{models: &fakeModels{chunks: []string{"a", "", "b"}}, model: "m"}
	var deltas []string

	reply, err := c.Stream(context.Background(), testMessages, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ab", reply)
	assert.Equal(t, []string{"a", "b"}, deltas)
}

func TestStream_Error(t *testing.T) {
	c := &Client{models: &fakeModels{err: errors.New("unavailable")}, model: "m"}
	_, err := c.Stream(context.Background(), testMessages, func(string) error { return nil })
	require.Error(t, err)
}
