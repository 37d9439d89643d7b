package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/delex/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg       config.Config
	rootFlags struct {
		envFile  string
		workers  int
		manifest string
	}
)

var rootCmd = &cobra.Command{
	Use:   "delex",
	Short: "Delexicalize and canonicalize KVRET-style dialogue corpora",
	Long: "delex rewrites knowledge-base values inside dialogue utterances into\n" +
		"placeholders or canonical row/column keys, extracts KB seed pairs and\n" +
		"gathers evaluation reports.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.envFile, "env-file", "", "Load environment from this file instead of ./.env")
	f.IntVar(&rootFlags.workers, "workers", 0, "Parallel dialogue workers (default $DELEX_WORKERS)")
	f.StringVar(&rootFlags.manifest, "manifest", "", "Write a JSON run manifest to this path")

	rootCmd.AddCommand(delexicalizeCmd)
	rootCmd.AddCommand(canonicalizeCmd)
	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func setup(cmd *cobra.Command, _ []string) error {
	if rootFlags.envFile != "" {
		if err := godotenv.Load(rootFlags.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load() // optional ./.env
	}

	cfg = config.Load()
	if rootFlags.workers > 0 {
		cfg.Workers = rootFlags.workers
	}
	setupLogging(cfg.LogLevel)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Logs go to stderr; stdout carries command output such as reports.
func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
