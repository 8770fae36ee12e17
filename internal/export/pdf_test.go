package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
)

func buildTestPlan() model.CuttingPlan {
	stocks := []model.Stock{
		{ID: "s1", Name: "Plywood 2440x1220", Width: 2440, Height: 1220, Quantity: 1},
		{ID: "s2", Name: "MDF 1200x600", Width: 1200, Height: 600, Quantity: 1},
	}
	pieces := []model.Piece{
		{ID: "p1", Name: "Side Panel", Width: 600, Height: 400, Quantity: 2},
		{ID: "p2", Name: "Top", Width: 500, Height: 300, Quantity: 1},
	}
	placements := []model.PlacedPiece{
		{ID: "pp1", Piece: pieces[0], X: 10, Y: 10, StockInstanceID: "s1#0"},
		{ID: "pp2", Piece: pieces[1], X: 620, Y: 10, StockInstanceID: "s1#0"},
		{ID: "pp3", Piece: pieces[0], X: 10, Y: 420, Rotation: model.Rotation90, StockInstanceID: "s1#0"},
		{ID: "pp4", Piece: pieces[1], X: 10, Y: 10, StockInstanceID: "s2#0"},
	}

	return model.CuttingPlan{
		ID:         "plan-1",
		Stocks:     stocks,
		Pieces:     pieces,
		Placements: placements,
		Metrics: model.PlanMetrics{
			TotalStockArea:        stocks[0].Area() + stocks[1].Area(),
			PiecesPlaced:          len(placements),
			UtilizationPercentage: 42.5,
		},
	}
}

func buildEmptyPlan() model.CuttingPlan {
	return model.CuttingPlan{}
}

func TestExportPDF(t *testing.T) {
	plan := buildTestPlan()
	path := filepath.Join(t.TempDir(), "plan.pdf")

	if err := ExportPDF(path, plan, DefaultOptions()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
}

func TestExportPDFNoPlacements(t *testing.T) {
	err := ExportPDF(filepath.Join(t.TempDir(), "empty.pdf"), buildEmptyPlan(), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for plan with no placements, got nil")
	}
}

func TestSheetsOfGroupsByInstance(t *testing.T) {
	plan := buildTestPlan()
	sheets := sheetsOf(plan)
	if len(sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(sheets))
	}
	if sheets[0].instanceID != "s1#0" {
		t.Errorf("expected first sheet instance s1#0, got %s", sheets[0].instanceID)
	}
	if len(sheets[0].placements) != 3 {
		t.Errorf("expected 3 placements on s1#0, got %d", len(sheets[0].placements))
	}
	if len(sheets[1].placements) != 1 {
		t.Errorf("expected 1 placement on s2#0, got %d", len(sheets[1].placements))
	}
}

func TestBaseStockID(t *testing.T) {
	cases := map[string]string{
		"s1#0":    "s1",
		"s1#12":   "s1",
		"no-hash": "no-hash",
	}
	for in, want := range cases {
		if got := baseStockID(in); got != want {
			t.Errorf("baseStockID(%q) = %q, want %q", in, got, want)
		}
	}
}
