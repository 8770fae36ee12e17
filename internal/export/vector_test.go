package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExportDXF(t *testing.T) {
	plan := buildTestPlan()
	path := filepath.Join(t.TempDir(), "plan.dxf")

	if err := ExportDXF(path, plan); err != nil {
		t.Fatalf("ExportDXF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("DXF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("DXF file is empty")
	}
}

func TestExportDXFNoPlacements(t *testing.T) {
	err := ExportDXF(filepath.Join(t.TempDir(), "empty.dxf"), buildEmptyPlan())
	if err == nil {
		t.Fatal("expected error for plan with no placements, got nil")
	}
}
