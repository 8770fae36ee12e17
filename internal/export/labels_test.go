package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExportLabels(t *testing.T) {
	plan := buildTestPlan()
	path := filepath.Join(t.TempDir(), "labels.pdf")

	if err := ExportLabels(path, plan, DefaultOptions()); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
}

func TestExportLabelsNoPlacements(t *testing.T) {
	err := ExportLabels(filepath.Join(t.TempDir(), "empty.pdf"), buildEmptyPlan(), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for plan with no placements, got nil")
	}
}

func TestCollectLabelInfos(t *testing.T) {
	plan := buildTestPlan()
	labels := CollectLabelInfos(plan)

	if len(labels) != len(plan.Placements) {
		t.Fatalf("expected %d labels, got %d", len(plan.Placements), len(labels))
	}
	if labels[0].PieceName != "Side Panel" {
		t.Errorf("expected first label for Side Panel, got %s", labels[0].PieceName)
	}
	if labels[0].StockInstanceID != "s1#0" {
		t.Errorf("expected stock instance s1#0, got %s", labels[0].StockInstanceID)
	}
	if labels[2].Rotation != 90 {
		t.Errorf("expected rotation 90 for third placement, got %d", labels[2].Rotation)
	}
}
