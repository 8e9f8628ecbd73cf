// Package openai wraps the OpenAI chat completions API behind a Summarizer
// interface, with a deterministic stub used when no API key is configured.
package openai

import (
	"context"
	"fmt"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const summarizePrompt = "Summarize the following text in two or three sentences. Reply with the summary only."

// Summarizer generates a short summary of a text.
type Summarizer interface {
	// Summarize returns the summary and the model that produced it. An empty
	// model selects the client's default.
	Summarize(ctx context.Context, text, model string) (string, string, error)
}

// Client calls the OpenAI API for summarization.
type Client struct {
	api          *gopenai.Client
	defaultModel string
	log          *logrus.Logger
}

// NewClient initializes an OpenAI-backed summarizer.
func NewClient(apiKey, defaultModel string, log *logrus.Logger) *Client {
	return &Client{
		api:          gopenai.NewClient(apiKey),
		defaultModel: defaultModel,
		log:          log,
	}
}

// Summarize requests a chat completion for the text.
func (c *Client) Summarize(ctx context.Context, text, model string) (string, string, error) {
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: summarizePrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("openai completion: empty response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.WithFields(logrus.Fields{
		"model":        model,
		"input_length": len(text),
	}).Debug("openai summary generated")
	return summary, model, nil
}

// Stub is a deterministic summarizer for tests and keyless deployments.
type Stub struct{}

// Summarize truncates the text to roughly 100 characters on a word boundary
// and prefixes the word count.
func (Stub) Summarize(_ context.Context, text, model string) (string, string, error) {
	normalized := strings.Join(strings.Fields(text), " ")
	words := len(strings.Fields(normalized))

	summary := normalized
	if len(normalized) > 100 {
		cut := normalized[:100]
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		summary = cut + "..."
	}

	if model == "" {
		model = "stub-model"
	}
	return fmt.Sprintf("[summary of %d words] %s", words, summary), model, nil
}
