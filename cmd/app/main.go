package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/algiz/internal"
	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/models"
	pkgconfig "github.com/starford/algiz/pkg/config"
)

const (
	exitFatal     = 1
	exitIntrusion = 2
)

var version = "dev"

func loadOptions(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, opts...)
}

func check(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	report, err := internal.Check(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d files verified\n", len(report.Results))
	return nil
}

func events(ctx context.Context, cmd *cli.Command) error {
	level, ok := models.ParseLevel(cmd.String("level"))
	if !ok {
		return fmt.Errorf("unknown level %q", cmd.String("level"))
	}
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ListEvents(ctx, os.Stdout, int(cmd.Int("limit")), level, opts...)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "algiz",
		Usage:   "File integrity monitor: baseline SHA-256 digests and halt on the first tampered file",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ALGIZ_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Establish the baseline and run a single integrity check",
				Action: check,
			},
			{
				Name:   "events",
				Usage:  "Print recent events from the event history",
				Action: events,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of events",
						Value: 50,
					},
					&cli.StringFlag{
						Name:  "level",
						Usage: "Only show events of this level (DEBUG, INFO, WARNING, ERROR, ALERT)",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the integrity tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrIntrusionDetected) {
			os.Exit(exitIntrusion)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(exitFatal)
	}
}
