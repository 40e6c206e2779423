package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/formatter"
	"github.com/desertthunder/brandmix/internal/recommend"
	"github.com/desertthunder/brandmix/internal/shared"
)

// Suggest asks the language model for songs that fit a brand, without a running server.
//
// The profile comes from --file or from the store by id.
func (r *Runner) Suggest(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	profile, err := r.suggestProfile(cmd)
	if err != nil {
		return err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	completer, err := r.newCompleter(config.Credentials.Anthropic, r.httpClient)
	if err != nil {
		r.logger.Warn("language model disabled, set ANTHROPIC_API_KEY or credentials.anthropic.api_key", "error", err)
	}

	r.logger.Info("requesting suggestions", "brand", profile.Name())
	result, err := recommend.NewBridge(completer, r.logger, nil).Suggest(ctx, profile)
	if err != nil {
		return err
	}
	if len(result.Suggestions) == 0 {
		r.logger.Warn("no suggestions could be parsed", "raw", result.Raw)
	}

	data, err := formatter.RenderSuggestions(format, profile.Name(), result.Suggestions)
	if err != nil {
		return err
	}

	if out := cmd.String("output"); out != "" || cmd.Bool("save") {
		path, err := formatter.WriteExport(out, profile.ID()+"_suggestions", format, data)
		if err != nil {
			return err
		}
		return r.writePlain("%s Saved %d suggestions to %s\n", r.styles.OK("✓"), len(result.Suggestions), path)
	}

	_, err = r.output.Write(data)
	return err
}

func (r *Runner) suggestProfile(cmd *cli.Command) (*brands.Profile, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
		return brands.ParseProfile(data)
	}

	id := cmd.StringArg("id")
	if id == "" {
		return nil, fmt.Errorf("%w: brand id or --file", shared.ErrMissingArgument)
	}
	store, err := r.brandStore(cmd)
	if err != nil {
		return nil, err
	}
	return store.Get(id)
}
