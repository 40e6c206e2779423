package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/shared"
)

// Status reports the health of a running server.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	api := r.apiClient(cmd)
	r.logger.Debug("checking server health", "url", api.BaseURL())

	health, err := api.Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, true)
	}

	r.writePlain("%s Server is %s\n", r.styles.OK("✓"), health.Status)
	r.writePlain("%s %s\n", r.styles.Key("Version:"), health.Version)
	r.writePlain("%s %s\n", r.styles.Key("Uptime:"), (time.Duration(health.UptimeSeconds) * time.Second).String())
	r.writePlain("%s %d\n", r.styles.Key("Pending logins:"), health.PendingStates)
	if health.LLMConfigured {
		r.writePlain("%s %s\n", r.styles.Key("Suggestions:"), r.styles.OK("enabled"))
	} else {
		r.writePlain("%s %s\n", r.styles.Key("Suggestions:"), r.styles.Warn("disabled (no API key)"))
	}
	return nil
}

// Login asks a running server for a consent URL and opens it in the browser.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	url, err := r.apiClient(cmd).LoginURL(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Open this URL to authorize brandmix:\n%s\n", url)
	if cmd.Bool("no-browser") {
		return nil
	}
	if err := shared.OpenBrowser(url); err != nil {
		r.logger.Warn("could not open browser", "error", err)
	}
	return nil
}
