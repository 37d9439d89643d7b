package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/dialogue"
	"github.com/MikeSquared-Agency/delex/internal/pipeline"
	"github.com/MikeSquared-Agency/delex/internal/vocab"
)

type corpusFlags struct {
	rewriteUtterance bool
	lowercase        bool
	rewriteEntities  bool
	placeholder      string
}

var (
	delexFlags corpusFlags
	canonFlags corpusFlags
	prepFlags  corpusFlags
)

var delexicalizeCmd = &cobra.Command{
	Use:   "delexicalize <dataset-folder> <output-folder>",
	Short: "Mask KB values in every utterance with a placeholder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := dialogue.Options{
			Placeholder:      placeholder(delexFlags),
			RewriteUtterance: delexFlags.rewriteUtterance,
			Lowercase:        delexFlags.lowercase,
		}
		return runCorpus(cmd, "delexicalize", args[0], args[1], delexFlags, func(d corpus.Dialogue) (corpus.Dialogue, dialogue.Stats) {
			return dialogue.Delexicalize(d, opts)
		})
	},
}

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <dataset-folder> <output-folder>",
	Short: "Replace KB values in assistant turns with canonical row/column keys",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := dialogue.Options{
			RewriteUtterance: canonFlags.rewriteUtterance,
			Lowercase:        canonFlags.lowercase,
		}
		return runCorpus(cmd, "canonicalize", args[0], args[1], canonFlags, func(d corpus.Dialogue) (corpus.Dialogue, dialogue.Stats) {
			return dialogue.Canonicalize(d, opts)
		})
	},
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <dataset-folder> <output-folder>",
	Short: "Lowercase, tag entities and collapse each KB to its matching row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := corpus.LoadVocabulary(filepath.Join(args[0], corpus.EntitiesFile))
		if err != nil {
			return err
		}
		flat := vocab.Flatten(v)
		slog.Info("vocabulary loaded", "entities", len(flat))
		return runCorpus(cmd, "preprocess", args[0], args[1], prepFlags, func(d corpus.Dialogue) (corpus.Dialogue, dialogue.Stats) {
			return dialogue.Preprocess(d, flat)
		})
	},
}

func init() {
	f := delexicalizeCmd.Flags()
	f.BoolVar(&delexFlags.rewriteUtterance, "rewrite-utterance", true, "Overwrite the utterance as well as writing utterance_delex")
	f.BoolVar(&delexFlags.lowercase, "lowercase", false, "Lowercase KB values and utterances before matching")
	f.BoolVar(&delexFlags.rewriteEntities, "rewrite-entities", false, "Replace the entities file with a single-placeholder vocabulary")
	f.StringVar(&delexFlags.placeholder, "placeholder", "", "Mask token (default $DELEX_PLACEHOLDER)")

	f = canonicalizeCmd.Flags()
	f.BoolVar(&canonFlags.rewriteUtterance, "rewrite-utterance", false, "Overwrite assistant utterances as well as writing utterance_canonical")
	f.BoolVar(&canonFlags.lowercase, "lowercase", false, "Lowercase KB values and utterances before matching")
	f.BoolVar(&canonFlags.rewriteEntities, "rewrite-entities", false, "Replace the entities file with a single-placeholder vocabulary")

	f = preprocessCmd.Flags()
	f.BoolVar(&prepFlags.rewriteEntities, "rewrite-entities", false, "Replace the entities file with a single-placeholder vocabulary")
}

func placeholder(f corpusFlags) string {
	if f.placeholder != "" {
		return f.placeholder
	}
	return cfg.Placeholder
}

func runCorpus(cmd *cobra.Command, mode, src, dst string, f corpusFlags, transform pipeline.Transform) error {
	ctx := cmd.Context()

	in := connectIntegrations(ctx)
	defer in.Close()

	runner := pipeline.NewRunner(pipeline.Config{
		Mode:            mode,
		SourceDir:       src,
		TargetDir:       dst,
		Workers:         cfg.Workers,
		RewriteEntities: f.rewriteEntities,
		Placeholder:     placeholder(f),
		ManifestPath:    rootFlags.manifest,
	}, transform, slog.Default())
	if in.db != nil {
		runner.WithRecorder(in.db)
	}
	if in.hermes != nil {
		runner.WithPublisher(in.hermes)
	}

	m, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", mode, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), pipeline.FormatRunSummary(m))
	return nil
}
