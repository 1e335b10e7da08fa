// Package groq generates agent replies through Groq's OpenAI-compatible
// chat completion endpoint.
package groq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/casualjim/strix/api"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel is a small, fast instruct model. Voice turns are latency
	// bound, so the default favors speed over depth.
	DefaultModel = "llama-3.1-8b-instant"
)

// ErrEmptyCompletion is returned when the model produced no usable text.
var ErrEmptyCompletion = errors.New("groq: empty completion")

// Provider implements api.Conversationalist on top of the openai-go client.
type Provider struct {
	client *openai.Client
	model  string
}

// New builds a Provider against the Groq endpoint. Pass additional request
// options to override the base URL or inject a custom HTTP client in tests.
func New(apiKey string, options ...option.RequestOption) *Provider {
	ro := append([]option.RequestOption{
		option.WithBaseURL(DefaultBaseURL),
		option.WithAPIKey(apiKey),
	}, options...)

	return &Provider{
		client: openai.NewClient(ro...),
		model:  DefaultModel,
	}
}

// WithModel overrides the model used for completions.
func (p *Provider) WithModel(model string) *Provider {
	if strings.TrimSpace(model) != "" {
		p.model = model
	}
	return p
}

func (p *Provider) Complete(ctx context.Context, req api.CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.Instructions),
			openai.UserMessage(req.Prompt),
		}),
		Model: openai.F(p.model),
		N:     openai.Int(1),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq: completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
