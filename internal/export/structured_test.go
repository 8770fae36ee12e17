package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
)

func TestExportJSON(t *testing.T) {
	plan := buildTestPlan()
	path := filepath.Join(t.TempDir(), "plan.json")

	if err := ExportJSON(path, plan); err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read exported JSON: %v", err)
	}

	var roundTripped model.CuttingPlan
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("failed to unmarshal exported JSON: %v", err)
	}
	if roundTripped.ID != plan.ID {
		t.Errorf("expected ID %q, got %q", plan.ID, roundTripped.ID)
	}
	if len(roundTripped.Placements) != len(plan.Placements) {
		t.Errorf("expected %d placements, got %d", len(plan.Placements), len(roundTripped.Placements))
	}
}
