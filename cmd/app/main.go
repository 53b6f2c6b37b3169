package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/fitch/internal"
	"github.com/starford/fitch/internal/codec"
	"github.com/starford/fitch/internal/render"
	pkgconfig "github.com/starford/fitch/pkg/config"
)

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	// Without an explicit --config the defaults apply when the file is absent.
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}

	cfg := internal.NewDefaultConfig()
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// check prints a document with a verdict per line and fails when any step
// is incorrect.
func check(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: fitch check <file>", 2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	f, err := codec.Decode(data)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 2)
	}

	if err := render.Text(os.Stdout, f.Title, f.Proof, render.Options{Color: !cmd.Bool("no-color")}); err != nil {
		return err
	}
	if n := render.Failures(render.Rows(f.Proof)); n > 0 {
		return cli.Exit(fmt.Sprintf("%s: %d incorrect step(s)", path, n), 1)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "fitch",
		Usage:  "Natural-deduction proof checker with a document store, REST API and MCP tools",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "check",
				Usage:     "Verify a proof file and print it",
				ArgsUsage: "<file>",
				Action:    check,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-color",
						Usage: "Disable colored output",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
