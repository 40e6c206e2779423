// submodule cmd contains command definitions
package main

import (
	"context"
	"runtime"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "server",
		Usage: "Base URL of a running brandmix server (defaults to the configured host and port)",
	}
}

func brandsDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "brands-dir",
		Usage: "Brand profile directory (overrides storage.brands_dir)",
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create a config file and the brand profile directory",
		Flags:  []cli.Flag{configFlag(), brandsDirFlag()},
		Action: r.Setup,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check the health of a running server",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Open the Spotify consent page issued by a running server",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the URL without opening a browser",
			},
		},
		Action: r.Login,
	}
}

// brandsCommand handles brand profile inspection
func brandsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "brands",
		Usage: "Inspect stored brand profiles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List brand profiles",
				Flags: []cli.Flag{
					configFlag(),
					brandsDirFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.BrandsList,
			},
			{
				Name:  "show",
				Usage: "Show a brand profile",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					brandsDirFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BrandsShow,
			},
		},
	}
}

func suggestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "suggest",
		Usage: "Ask the language model for songs that fit a brand",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			brandsDirFlag(),
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the brand profile from a JSON file instead of the store",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: text, markdown, csv or json",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save to <brand>_suggestions.<ext>",
			},
		},
		Action: r.Suggest,
	}
}

func versionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.writePlain("brandmix %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
