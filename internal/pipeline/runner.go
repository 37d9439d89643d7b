// Package pipeline runs a dialogue transform over every partition of a
// corpus folder and writes the result to a new folder.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/delex/internal/corpus"
	"github.com/MikeSquared-Agency/delex/internal/dialogue"
	"github.com/MikeSquared-Agency/delex/internal/hermes"
	"github.com/MikeSquared-Agency/delex/internal/store"
)

// Config holds the corpus run configuration.
type Config struct {
	Mode      string
	SourceDir string
	TargetDir string
	Workers   int
	// RewriteEntities replaces the entities file with a single-placeholder
	// vocabulary instead of copying it.
	RewriteEntities bool
	Placeholder     string
	ManifestPath    string // optional
}

// Transform rewrites one dialogue.
type Transform func(corpus.Dialogue) (corpus.Dialogue, dialogue.Stats)

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, r store.Run) error
}

// Publisher announces finished runs.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, ev hermes.RunCompleted) error
}

// Runner orchestrates a corpus run.
type Runner struct {
	cfg       Config
	transform Transform
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
}

// NewRunner creates a corpus runner.
func NewRunner(cfg Config, transform Transform, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = "__entity__"
	}
	return &Runner{cfg: cfg, transform: transform, logger: logger}
}

// WithRecorder makes the runner record finished runs.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	r.recorder = rec
	return r
}

// WithPublisher makes the runner announce finished runs.
func (r *Runner) WithPublisher(p Publisher) *Runner {
	r.publisher = p
	return r
}

type partition struct {
	name      string
	dialogues []corpus.Dialogue
	summary   PartitionSummary
}

// Run transforms every partition, then writes the outputs and copies the
// rest of the source folder. Nothing is written unless all partitions load
// and transform cleanly.
func (r *Runner) Run(ctx context.Context) (*Manifest, error) {
	m := NewManifest(r.cfg.Mode, r.cfg.SourceDir, r.cfg.TargetDir)

	parts := make([]partition, 0, len(corpus.Partitions))
	for _, name := range corpus.Partitions {
		path := filepath.Join(r.cfg.SourceDir, corpus.PartitionFile(name))
		ds, err := corpus.LoadDataset(path)
		if err != nil {
			return nil, err
		}
		r.logger.Info("partition loaded", "partition", name, "dialogues", len(ds))

		out, sum, err := r.transformAll(ctx, name, ds)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", name, err)
		}
		parts = append(parts, partition{name: name, dialogues: out, summary: sum})
	}

	for _, p := range parts {
		path := filepath.Join(r.cfg.TargetDir, corpus.PartitionFile(p.name))
		if err := corpus.SaveDataset(path, p.dialogues); err != nil {
			return nil, err
		}
		m.AddPartition(p.summary)
		r.logger.Info("partition written",
			"partition", p.name,
			"dialogues", p.summary.Dialogues,
			"substitutions", p.summary.Substitutions,
			"collisions", p.summary.Collisions,
			"collapsed", p.summary.Collapsed,
		)
	}

	if err := r.passthrough(m); err != nil {
		return nil, fmt.Errorf("copy passthrough: %w", err)
	}

	m.FinishedAt = time.Now().UTC()
	r.finish(ctx, m)

	if r.cfg.ManifestPath != "" {
		if err := m.Save(r.cfg.ManifestPath); err != nil {
			return m, fmt.Errorf("save manifest: %w", err)
		}
	}

	r.logger.Info("run complete",
		"run_id", m.RunID,
		"mode", m.Mode,
		"dialogues", m.Dialogues(),
		"errors", len(m.Errors),
	)
	return m, nil
}

// transformAll applies the transform to every dialogue on a bounded pool of
// workers. Output order matches input order.
func (r *Runner) transformAll(ctx context.Context, name string, ds []corpus.Dialogue) ([]corpus.Dialogue, PartitionSummary, error) {
	out := make([]corpus.Dialogue, len(ds))
	stats := make([]dialogue.Stats, len(ds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range ds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], stats[i] = r.transform(ds[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, PartitionSummary{}, err
	}

	sum := PartitionSummary{Name: name, Dialogues: len(ds)}
	var total dialogue.Stats
	for i, st := range stats {
		if st.Collisions > 0 {
			r.logger.Warn("canonical key collisions",
				"partition", name,
				"dialogue", i,
				"collisions", st.Collisions,
			)
		}
		total.Add(st)
	}
	sum.Substitutions = total.Substitutions
	sum.Collisions = total.Collisions
	sum.Collapsed = total.Collapsed
	return out, sum, nil
}

// passthrough copies every top-level entry of the source folder that is not
// a dataset partition. The entities file is rewritten when configured.
func (r *Runner) passthrough(m *Manifest) error {
	entries, err := os.ReadDir(r.cfg.SourceDir)
	if err != nil {
		return fmt.Errorf("read source dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if corpus.IsDatasetFile(name) {
			continue
		}
		src := filepath.Join(r.cfg.SourceDir, name)
		inside, err := containsPath(src, r.cfg.TargetDir)
		if err != nil {
			return err
		}
		if inside {
			r.logger.Debug("skipping target folder inside source", "entry", name)
			continue
		}
		dst := filepath.Join(r.cfg.TargetDir, name)
		if name == corpus.EntitiesFile && r.cfg.RewriteEntities {
			if err := corpus.SaveVocabulary(dst, corpus.PlaceholderVocabulary(r.cfg.Placeholder)); err != nil {
				return err
			}
			r.logger.Info("entities file rewritten", "placeholder", r.cfg.Placeholder)
			continue
		}
		if err := copyPath(src, dst); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		m.MarkCopied(name)
	}
	return nil
}

// finish records and announces the run. Failures here are logged and noted
// in the manifest; the corpus is already written.
func (r *Runner) finish(ctx context.Context, m *Manifest) {
	if r.recorder != nil {
		if err := r.recorder.RecordRun(ctx, m.Run()); err != nil {
			r.logger.Warn("failed to record run", "run_id", m.RunID, "error", err)
			m.AddError(fmt.Sprintf("record run: %v", err))
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishRunCompleted(ctx, m.Event()); err != nil {
			r.logger.Warn("failed to publish run event", "run_id", m.RunID, "error", err)
			m.AddError(fmt.Sprintf("publish run event: %v", err))
		}
	}
	if r.recorder == nil && r.publisher == nil {
		r.logger.Debug("run summary (no store or NATS configured)", "summary", FormatRunSummary(m))
	}
}

// Run converts the manifest into a store record.
func (m *Manifest) Run() store.Run {
	t := m.Totals()
	return store.Run{
		ID:            m.RunID,
		Mode:          m.Mode,
		SourceDir:     m.SourceDir,
		TargetDir:     m.TargetDir,
		Dialogues:     m.Dialogues(),
		Substitutions: t.Substitutions,
		Collisions:    t.Collisions,
		Collapsed:     t.Collapsed,
		Errors:        m.Errors,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
}

// Event converts the manifest into a run-completed event.
func (m *Manifest) Event() hermes.RunCompleted {
	t := m.Totals()
	return hermes.RunCompleted{
		RunID:         m.RunID.String(),
		Mode:          m.Mode,
		SourceDir:     m.SourceDir,
		TargetDir:     m.TargetDir,
		Dialogues:     m.Dialogues(),
		Substitutions: t.Substitutions,
		Collisions:    t.Collisions,
		Collapsed:     t.Collapsed,
		DurationMS:    m.FinishedAt.Sub(m.StartedAt).Milliseconds(),
		Errors:        len(m.Errors),
	}
}

// FormatRunSummary renders the manifest as a short plain-text report, one
// line per partition.
func FormatRunSummary(m *Manifest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s run %s ===\n", m.Mode, m.RunID)
	fmt.Fprintf(&sb, "%s -> %s\n", m.SourceDir, m.TargetDir)
	for _, p := range m.Partitions {
		fmt.Fprintf(&sb, "  - %s: %d dialogues, %d substitutions", p.Name, p.Dialogues, p.Substitutions)
		if p.Collisions > 0 {
			fmt.Fprintf(&sb, ", %d collisions", p.Collisions)
		}
		if p.Collapsed > 0 {
			fmt.Fprintf(&sb, ", %d collapsed", p.Collapsed)
		}
		sb.WriteString("\n")
	}
	if len(m.Copied) > 0 {
		fmt.Fprintf(&sb, "Copied: %s\n", strings.Join(m.Copied, ", "))
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(&sb, "Errors: %d\n", len(m.Errors))
	}
	return sb.String()
}
