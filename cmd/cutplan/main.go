// cutplan — rectangular cutting-stock optimizer.
//
// Usage:
//
//	cutplan -pieces pieces.csv -stocks stocks.json -out plan.json [-pdf plan.pdf] [-png-dir sheets] [-dxf plan.dxf]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/golang/glog"

	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/model"
)

func main() {
	piecesPath := flag.String("pieces", "", "path to a CSV/Excel/JSON piece list")
	stocksPath := flag.String("stocks", "", "path to a JSON stock list (required unless -problem is a combined JSON file)")
	problemPath := flag.String("problem", "", "path to a combined JSON problem file (stocks + pieces)")
	outPath := flag.String("out", "plan.json", "path to write the resulting cutting plan as JSON")
	pdfPath := flag.String("pdf", "", "optional path to write a PDF layout document")
	labelsPath := flag.String("labels", "", "optional path to write a PDF sheet of piece labels")
	dxfPath := flag.String("dxf", "", "optional path to write a DXF vector drawing")
	pngDir := flag.String("png-dir", "", "optional directory to write one PNG per stock instance")
	timeLimit := flag.Float64("time-limit", 10, "solver time limit in seconds")
	noRotation := flag.Bool("no-rotation", false, "disallow piece rotation")
	noRefiner := flag.Bool("no-refiner", false, "skip the constraint-programming refinement stage")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	flag.Parse()

	if *problemPath == "" && (*piecesPath == "" || *stocksPath == "") {
		fmt.Fprintln(os.Stderr, "usage: cutplan -pieces <file> -stocks <file> [options]")
		fmt.Fprintln(os.Stderr, "   or: cutplan -problem <combined.json> [options]")
		os.Exit(2)
	}

	stocks, pieces, err := loadProblem(*problemPath, *stocksPath, *piecesPath)
	if err != nil {
		log.Errorf("cutplan: %v", err)
		os.Exit(1)
	}

	settings := model.DefaultSettings()
	settings.TimeLimitSeconds = *timeLimit
	settings.EnableRotation = !*noRotation
	settings.EnableRefiner = !*noRefiner

	var sink engine.ProgressSink
	if !*quiet {
		sink = func(ev engine.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%3.0f%%] %s — %d/%d pieces placed (%.1f%% utilization)\n",
				ev.Percent, ev.Description, ev.PiecesPlaced, ev.TotalPieces, ev.CurrentUtilization)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeLimit*3)*time.Second+30*time.Second)
	defer cancel()

	plan, err := engine.Optimize(ctx, stocks, pieces, settings, sink)
	if err != nil {
		log.Errorf("cutplan: optimization failed: %v", err)
		os.Exit(1)
	}

	if err := export.ExportJSON(*outPath, plan); err != nil {
		log.Errorf("cutplan: failed to write plan: %v", err)
		os.Exit(1)
	}
	fmt.Printf("wrote plan to %s (%d pieces placed, %d remaining, %.1f%% utilization)\n",
		*outPath, plan.Metrics.PiecesPlaced, plan.Metrics.PiecesRemaining, plan.Metrics.UtilizationPercentage)

	opts := export.DefaultOptions()

	if *pdfPath != "" {
		if err := export.ExportPDF(*pdfPath, plan, opts); err != nil {
			log.Warningf("cutplan: failed to write PDF: %v", err)
		}
	}
	if *labelsPath != "" {
		if err := export.ExportLabels(*labelsPath, plan, opts); err != nil {
			log.Warningf("cutplan: failed to write labels: %v", err)
		}
	}
	if *dxfPath != "" {
		if err := export.ExportDXF(*dxfPath, plan); err != nil {
			log.Warningf("cutplan: failed to write DXF: %v", err)
		}
	}
	if *pngDir != "" {
		if err := exportAllPNGs(*pngDir, plan, opts); err != nil {
			log.Warningf("cutplan: failed to write PNGs: %v", err)
		}
	}

	for _, w := range plan.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
}

// loadProblem resolves the -problem / -stocks+-pieces flag combination into
// a stock and piece list, dispatching each piece file by extension.
func loadProblem(problemPath, stocksPath, piecesPath string) ([]model.Stock, []model.Piece, error) {
	if problemPath != "" {
		result := importer.ImportJSON(problemPath)
		if len(result.Errors) > 0 {
			return nil, nil, fmt.Errorf("importing %s: %s", problemPath, strings.Join(result.Errors, "; "))
		}
		return result.Stocks, result.Pieces, nil
	}

	stockResult := importer.ImportJSON(stocksPath)
	if len(stockResult.Errors) > 0 {
		return nil, nil, fmt.Errorf("importing %s: %s", stocksPath, strings.Join(stockResult.Errors, "; "))
	}

	var pieceResult importer.ImportResult
	switch ext := strings.ToLower(filepath.Ext(piecesPath)); ext {
	case ".csv":
		pieceResult = importer.ImportCSV(piecesPath)
	case ".xlsx", ".xls":
		pieceResult = importer.ImportExcel(piecesPath)
	case ".json":
		jr := importer.ImportJSON(piecesPath)
		return stockResult.Stocks, jr.Pieces, errorsJoined(jr.Errors)
	default:
		return nil, nil, fmt.Errorf("unrecognized piece file extension %q", ext)
	}
	if len(pieceResult.Errors) > 0 {
		return nil, nil, fmt.Errorf("importing %s: %s", piecesPath, strings.Join(pieceResult.Errors, "; "))
	}

	return stockResult.Stocks, pieceResult.Pieces, nil
}

func errorsJoined(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

// exportAllPNGs writes one PNG per distinct stock instance in the plan.
func exportAllPNGs(dir string, plan model.CuttingPlan, opts export.Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, p := range plan.Placements {
		if seen[p.StockInstanceID] {
			continue
		}
		seen[p.StockInstanceID] = true
		path := filepath.Join(dir, sanitizeFilename(p.StockInstanceID)+".png")
		if err := export.ExportPNG(path, plan, p.StockInstanceID, opts); err != nil {
			return fmt.Errorf("exporting %s: %w", p.StockInstanceID, err)
		}
	}
	return nil
}

func sanitizeFilename(s string) string {
	return strings.ReplaceAll(s, "#", "-")
}
