package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/recommend"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
)

// CompleterFactory builds the language model client used by offline commands.
type CompleterFactory func(cfg shared.AnthropicConfig, client *http.Client) (recommend.Completer, error)

func anthropicCompleter(cfg shared.AnthropicConfig, client *http.Client) (recommend.Completer, error) {
	c, err := recommend.NewAnthropicCompleter(cfg, client, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config       *shared.Config
	configPath   string
	api          *services.APIService
	httpClient   *http.Client
	logger       *log.Logger
	output       io.Writer
	styles       *Palette
	newCompleter CompleterFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config       *shared.Config
	ConfigPath   string
	API          *services.APIService
	HTTPClient   *http.Client
	Logger       *log.Logger
	Output       io.Writer
	NewCompleter CompleterFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.NewCompleter == nil {
		opts.NewCompleter = anthropicCompleter
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		api:          opts.API,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		output:       opts.Output,
		styles:       DefaultPalette(),
		newCompleter: opts.NewCompleter,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, statusCommand, loginCommand, brandsCommand, suggestCommand, versionCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// apiClient returns the configured API client, or one pointed at --server.
func (r *Runner) apiClient(cmd *cli.Command) *services.APIService {
	if url := cmd.String("server"); url != "" {
		return services.NewAPIService(url, r.httpClient)
	}
	if r.api != nil {
		return r.api
	}
	host := r.config.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return services.NewAPIService(fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(r.config.Server.Port)), r.config.Server.APIPrefix), r.httpClient)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
