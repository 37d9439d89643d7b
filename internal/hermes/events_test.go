package hermes

import (
	"encoding/json"
	"testing"
)

func TestDecodeRunCompleted(t *testing.T) {
	raw := `{
		"run_id": "5d0c7a8e-1f7e-4f57-9a3c-2b8e8f1c0d11",
		"mode": "canonicalize",
		"source_dir": "data/kvret",
		"target_dir": "data/kvret_canonical",
		"dialogues": 3031,
		"substitutions": 4120,
		"collisions": 12,
		"collapsed": 0,
		"duration_ms": 812,
		"errors": 0
	}`

	ev, err := DecodeRunCompleted([]byte(raw))
	if err != nil {
		t.Fatalf("failed to decode RunCompleted: %v", err)
	}

	if ev.Mode != "canonicalize" {
		t.Errorf("expected mode 'canonicalize', got '%s'", ev.Mode)
	}
	if ev.Dialogues != 3031 {
		t.Errorf("expected 3031 dialogues, got %d", ev.Dialogues)
	}
	if ev.Collisions != 12 {
		t.Errorf("expected 12 collisions, got %d", ev.Collisions)
	}
	if ev.TargetDir != "data/kvret_canonical" {
		t.Errorf("expected target dir, got '%s'", ev.TargetDir)
	}
}

func TestDecodeRunCompleted_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `run finished`},
		{"missing run id", `{"mode": "delexicalize"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRunCompleted([]byte(tt.raw)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRunCompletedRoundTrip(t *testing.T) {
	ev := RunCompleted{
		RunID:         "run-rt",
		Mode:          "preprocess",
		SourceDir:     "in",
		TargetDir:     "out",
		Dialogues:     10,
		Substitutions: 7,
		Collapsed:     4,
		DurationMS:    55,
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	parsed, err := DecodeRunCompleted(data)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if parsed != ev {
		t.Errorf("round-trip mismatch: got %+v, want %+v", parsed, ev)
	}
}

func TestSubjectRunCompletedConstant(t *testing.T) {
	if SubjectRunCompleted != "corpus.delex.run.completed" {
		t.Errorf("unexpected SubjectRunCompleted %q", SubjectRunCompleted)
	}
}
