package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/shared"
)

// Setup writes a config file from the embedded template when none exists and creates the brand profile directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file exists", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
	}
	shared.ApplyEnv(config)

	dir := config.Storage.BrandsDir
	if d := cmd.String("brands-dir"); d != "" {
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create brand profile directory: %w", err)
	}
	r.logger.Info("brand profile directory ready", "path", dir)

	r.writePlain("%s Setup complete\n", r.styles.OK("✓"))
	r.writePlain("Config: %s\n", configPath)
	r.writePlain("Brand profiles: %s\n", dir)

	if err := config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("%s\n", r.styles.Warn(err.Error()))
		r.writePlain("Set the missing values in %s or via SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET.\n", configPath)
		return nil
	}
	r.writePlain("%s\n", r.styles.Help("Run 'brandmix serve' to start the API."))
	return nil
}
