package recommend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/shared"
)

const (
	DefaultModel       = "claude-3-5-haiku-latest"
	DefaultMaxTokens   = 1500
	DefaultTemperature = 0.7
)

// AnthropicCompleter sends prompts to the Anthropic Messages API.
type AnthropicCompleter struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	metrics     metrics.Recorder
}

// NewAnthropicCompleter builds a completer from cfg. It returns [shared.ErrMissingCredentials] without an API key.
func NewAnthropicCompleter(cfg shared.AnthropicConfig, httpClient *http.Client, rec metrics.Recorder) (*AnthropicCompleter, error) {
	if !cfg.Configured() {
		return nil, shared.ErrMissingCredentials
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	c := &AnthropicCompleter{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		metrics:     rec,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.temperature <= 0 {
		c.temperature = DefaultTemperature
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	return c, nil
}

// Complete implements [Completer]. Text blocks of the reply are concatenated.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		c.metrics.RecordProviderCall("anthropic", "messages", status, time.Since(start))
		return "", err
	}
	c.metrics.RecordProviderCall("anthropic", "messages", http.StatusOK, time.Since(start))

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
