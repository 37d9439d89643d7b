package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/delex/internal/dialogue"
)

// PartitionSummary counts what a run did to one dataset partition.
type PartitionSummary struct {
	Name          string `json:"name"`
	Dialogues     int    `json:"dialogues"`
	Substitutions int    `json:"substitutions"`
	Collisions    int    `json:"collisions"`
	Collapsed     int    `json:"collapsed"`
}

func (p PartitionSummary) stats() dialogue.Stats {
	return dialogue.Stats{
		Substitutions: p.Substitutions,
		Collisions:    p.Collisions,
		Collapsed:     p.Collapsed,
	}
}

// Manifest records a corpus run. It is written next to the output when a
// manifest path is configured.
type Manifest struct {
	RunID      uuid.UUID          `json:"run_id"`
	Mode       string             `json:"mode"`
	SourceDir  string             `json:"source_dir"`
	TargetDir  string             `json:"target_dir"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Partitions []PartitionSummary `json:"partitions"`
	Copied     []string           `json:"copied"`
	Errors     []string           `json:"errors"`
}

// NewManifest starts a manifest for a run.
func NewManifest(mode, src, dst string) *Manifest {
	return &Manifest{
		RunID:     uuid.New(),
		Mode:      mode,
		SourceDir: src,
		TargetDir: dst,
		StartedAt: time.Now().UTC(),
	}
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest as indented JSON, creating parent directories.
func (m *Manifest) Save(path string) error {
	p := expandHome(path)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	return os.WriteFile(p, data, 0o644)
}

// AddPartition records a finished partition.
func (m *Manifest) AddPartition(p PartitionSummary) {
	m.Partitions = append(m.Partitions, p)
}

// MarkCopied records a top-level entry copied through unchanged.
func (m *Manifest) MarkCopied(name string) {
	m.Copied = append(m.Copied, name)
}

// AddError records a non-fatal problem.
func (m *Manifest) AddError(msg string) {
	m.Errors = append(m.Errors, msg)
}

// Dialogues returns the number of dialogues across partitions.
func (m *Manifest) Dialogues() int {
	n := 0
	for _, p := range m.Partitions {
		n += p.Dialogues
	}
	return n
}

// Totals sums the partition stats.
func (m *Manifest) Totals() dialogue.Stats {
	var st dialogue.Stats
	for _, p := range m.Partitions {
		st.Add(p.stats())
	}
	return st
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
