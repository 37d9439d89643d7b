package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EntitiesFile is the domain vocabulary of a corpus root.
const EntitiesFile = "kvret_entities.json"

// Partitions are the dataset splits of a corpus root, in processing order.
var Partitions = []string{"train", "dev", "test"}

// PartitionFile returns the dataset filename of a partition.
func PartitionFile(partition string) string {
	return fmt.Sprintf("kvret_%s_public.json", partition)
}

// IsDatasetFile reports whether name is one of the partition files.
func IsDatasetFile(name string) bool {
	for _, p := range Partitions {
		if name == PartitionFile(p) {
			return true
		}
	}
	return false
}

// LoadDataset reads a partition file.
func LoadDataset(path string) ([]Dialogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var ds []Dialogue
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// SaveDataset writes a partition file.
func SaveDataset(path string, ds []Dialogue) error {
	if ds == nil {
		ds = []Dialogue{}
	}
	return writeJSON(path, ds)
}

// LoadVocabulary reads an entities file.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

// SaveVocabulary writes an entities file.
func SaveVocabulary(path string, v Vocabulary) error {
	return writeJSON(path, v)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
