package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/seed"
	"github.com/MikeSquared-Agency/delex/internal/store"
	"github.com/MikeSquared-Agency/delex/internal/vocab"
)

var seedFlags struct {
	partition string
}

var seedCmd = &cobra.Command{
	Use:   "seed <dataset-folder> <output.json>",
	Short: "Extract (KB row, utterance) seed pairs grouped by domain",
	Args:  cobra.ExactArgs(2),
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.partition, "partition", "train", "Partition to extract from (train, dev or test)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	src, out := args[0], args[1]
	if !slices.Contains(corpus.Partitions, seedFlags.partition) {
		return fmt.Errorf("unknown partition %q", seedFlags.partition)
	}

	v, err := corpus.LoadVocabulary(filepath.Join(src, corpus.EntitiesFile))
	if err != nil {
		return err
	}
	ds, err := corpus.LoadDataset(filepath.Join(src, corpus.PartitionFile(seedFlags.partition)))
	if err != nil {
		return err
	}

	res := seed.ExtractDataset(ds, vocab.Flatten(v))
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode seed pairs: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	slog.Info("seed pairs written", "path", out, "domains", len(res.Domains()), "pairs", res.Len())

	ctx := cmd.Context()
	in := connectIntegrations(ctx)
	defer in.Close()
	if in.db != nil {
		pairs, err := storePairs(res)
		if err != nil {
			return err
		}
		runID := uuid.New()
		n, err := in.db.WriteSeedPairs(ctx, runID, pairs)
		if err != nil {
			slog.Warn("failed to store seed pairs", "run_id", runID, "error", err)
		} else {
			slog.Info("seed pairs stored", "run_id", runID, "rows", n)
		}
	}

	for _, d := range res.Domains() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pairs\n", d, len(res.Pairs(d)))
	}
	return nil
}

func storePairs(res *seed.Result) ([]store.SeedPair, error) {
	pairs := make([]store.SeedPair, 0, res.Len())
	for _, d := range res.Domains() {
		for _, p := range res.Pairs(d) {
			row, err := json.Marshal(p.Row)
			if err != nil {
				return nil, fmt.Errorf("encode kb row: %w", err)
			}
			pairs = append(pairs, store.SeedPair{Domain: d, Row: row, Utterance: p.Utterance})
		}
	}
	return pairs, nil
}
