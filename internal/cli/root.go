// Package cli implements corpusctl, the operator tool for the reference
// corpus and for running analyses locally.
package cli

import (
	"context"
	"fmt"

	"github.com/RishiKendai/provenance/internal/app"
	"github.com/RishiKendai/provenance/internal/config"
	"github.com/RishiKendai/provenance/internal/configs/env"
	mongoInfra "github.com/RishiKendai/provenance/internal/infra/mongo"
	"github.com/RishiKendai/provenance/internal/logger"
	"github.com/RishiKendai/provenance/internal/plagiarism"
	"github.com/RishiKendai/provenance/internal/repository"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "corpusctl",
	Short: "Manage the reference corpus and run originality checks",
	Long: `corpusctl loads reference text into the vector and exact-match indexes
and runs text or code originality analyses without the HTTP server.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Init(logLevel, "console")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// loadComponents builds the engine from configuration. The returned func
// releases everything it opened. Tests replace it.
var loadComponents = func(ctx context.Context) (*app.Components, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateEngine(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Exact records live in Mongo when it is configured, so they survive
	// between runs and are shared with the server.
	var (
		records plagiarism.RecordStore
		closers []func()
	)
	if cfg.MongoURI != "" {
		client, err := mongoInfra.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		records = repository.NewExactRecordRepository(repository.NewMongoRepository(client))
		closers = append(closers, func() { _ = client.Close(context.Background()) })
	}

	components, err := app.Build(cfg, records)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}
	closers = append(closers, func() { _ = components.Close() })

	return components, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// Execute runs the root command.
func Execute() error {
	_ = env.LoadEnv()
	return rootCmd.Execute()
}
