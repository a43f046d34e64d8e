package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/xab-mack/jvmdeps/internal/model"
)

// Baseline holds the fingerprints of diagnostics accepted as known. It is
// stored as a sorted JSON list.
type Baseline struct {
	accepted model.Set[string]
}

// Accepts reports whether d is covered by the baseline.
func (b Baseline) Accepts(d model.Diagnostic) bool {
	return d.Fingerprint != "" && b.accepted.Has(d.Fingerprint)
}

func (b Baseline) Len() int { return len(b.accepted) }

// LoadBaseline reads a baseline written by WriteBaseline. An empty path
// yields an empty baseline.
func LoadBaseline(path string) (Baseline, error) {
	if path == "" {
		return Baseline{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Baseline{}, err
	}
	var fps []string
	if err := json.Unmarshal(data, &fps); err != nil {
		return Baseline{}, fmt.Errorf("baseline %s: %w", path, err)
	}
	return Baseline{accepted: model.NewSet(fps...)}, nil
}

// FilterByBaseline drops diagnostics the baseline accepts.
func FilterByBaseline(diags []model.Diagnostic, b Baseline) []model.Diagnostic {
	if b.Len() == 0 {
		return diags
	}
	return slices.DeleteFunc(slices.Clone(diags), b.Accepts)
}

// WriteBaseline records the fingerprints of diags. An empty path writes nothing.
func WriteBaseline(path string, diags []model.Diagnostic) error {
	if path == "" {
		return nil
	}
	fps := model.Set[string]{}
	for _, d := range diags {
		if d.Fingerprint != "" {
			fps.Add(d.Fingerprint)
		}
	}
	data, err := json.MarshalIndent(model.Sorted(fps), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
