package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/delex/internal/api"
	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/vocab"
)

var serveFlags struct {
	entities string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP matching API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.entities, "entities", "", "Entity vocabulary (kvret_entities.json) for preprocess requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()
	logger.Info("delex starting", "version", version, "port", cfg.Port)

	srv := api.NewServer(cfg.Port, cfg.APIToken, logger)

	if serveFlags.entities != "" {
		v, err := corpus.LoadVocabulary(serveFlags.entities)
		if err != nil {
			return err
		}
		flat := vocab.Flatten(v)
		srv.SetVocabulary(flat)
		logger.Info("vocabulary loaded", "path", serveFlags.entities, "entities", len(flat))
	}

	in := connectIntegrations(ctx)
	defer in.Close()
	if in.db != nil {
		srv.SetRuns(in.db)
	}
	if in.hermes != nil {
		if err := in.hermes.OnRunCompleted(srv.ObserveRun); err != nil {
			logger.Warn("failed to subscribe to run events", "error", err)
		}
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	logger.Info("delex stopped")
	return nil
}
