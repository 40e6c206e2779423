package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/shared"
)

// Completer turns a prompt into model output text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Result holds the parsed suggestions and the raw model text they came from.
type Result struct {
	Suggestions []models.SongSuggestion `json:"suggestions"`
	Raw         string                  `json:"raw"`
}

// Bridge connects brand profiles to a language model.
type Bridge struct {
	completer Completer
	logger    *log.Logger
	metrics   metrics.Recorder
}

// NewBridge creates a bridge. A nil completer yields a bridge whose Suggest always fails with ErrLLMProvider.
func NewBridge(completer Completer, logger *log.Logger, rec metrics.Recorder) *Bridge {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Bridge{completer: completer, logger: logger, metrics: rec}
}

// Configured reports whether a completer is available.
func (b *Bridge) Configured() bool {
	return b.completer != nil
}

// Suggest prompts the model with profile and parses its reply.
//
// A reply with no parseable suggestions is returned as an empty list, not an error.
func (b *Bridge) Suggest(ctx context.Context, profile *brands.Profile) (*Result, error) {
	if profile == nil || profile.Name() == "" {
		return nil, fmt.Errorf("%w: brand profile must include a brand name", shared.ErrValidation)
	}
	if b.completer == nil {
		return nil, fmt.Errorf("%w: no language model is configured", shared.ErrLLMProvider)
	}

	start := time.Now()
	raw, err := b.completer.Complete(ctx, BuildPrompt(profile))
	if err != nil {
		b.logger.Error("completion failed", "brand", profile.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrLLMProvider, err)
	}

	suggestions := ParseSuggestions(raw)
	b.metrics.RecordSuggestions(len(suggestions))
	b.logger.Info("parsed suggestions", "brand", profile.Name(), "count", len(suggestions), "elapsed", time.Since(start).Round(time.Millisecond))
	if len(suggestions) == 0 {
		b.logger.Warn("model reply contained no suggestions", "brand", profile.Name())
	}

	return &Result{Suggestions: suggestions, Raw: raw}, nil
}
