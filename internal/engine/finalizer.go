package engine

import (
	"fmt"

	"github.com/piwi3910/cutplan/internal/model"
)

// mergePlacements combines the heuristic's placements with the refiner's,
// heuristic first, dropping anything from the refiner that would overlap or
// overflow against what's already committed. This is spec §4.E's conflict
// resolution: insertion order determines precedence, ties go to whichever
// stage ran first.
func mergePlacements(heuristicPlacements, refinerPlacements []model.PlacedPiece, stocks []model.Stock) []model.PlacedPiece {
	byInstance := make(map[string]model.Stock)
	for _, s := range stocks {
		for i := 0; i < s.Quantity; i++ {
			byInstance[fmt.Sprintf("%s#%d", s.ID, i)] = s
		}
	}

	var committed []model.PlacedPiece
	placedByInstance := make(map[string][]model.PlacedPiece)

	accept := func(p model.PlacedPiece) bool {
		stock, ok := byInstance[p.StockInstanceID]
		if !ok {
			return false
		}
		if !fits(placementRect(p), stock.Width, stock.Height) {
			return false
		}
		for _, existing := range placedByInstance[p.StockInstanceID] {
			if overlaps(placementRect(p), placementRect(existing)) {
				return false
			}
		}
		return true
	}

	for _, p := range heuristicPlacements {
		if accept(p) {
			committed = append(committed, p)
			placedByInstance[p.StockInstanceID] = append(placedByInstance[p.StockInstanceID], p)
		}
	}
	for _, p := range refinerPlacements {
		if accept(p) {
			committed = append(committed, p)
			placedByInstance[p.StockInstanceID] = append(placedByInstance[p.StockInstanceID], p)
		}
	}

	return committed
}

// computeMetrics derives the PlanMetrics of spec §4.E from the final
// placement set, the original piece demand, and the elapsed solve time.
func computeMetrics(stocks []model.Stock, pieces []model.Piece, placements []model.PlacedPiece, elapsedSeconds float64) model.PlanMetrics {
	var totalStockArea float64
	for _, s := range stocks {
		totalStockArea += s.TotalArea()
	}

	var totalDemand int
	for _, p := range pieces {
		totalDemand += p.Quantity
	}

	var totalPlacedArea float64
	for _, p := range placements {
		totalPlacedArea += p.Area()
	}

	metrics := model.PlanMetrics{
		TotalStockArea:   totalStockArea,
		TotalPlacedArea:  totalPlacedArea,
		PiecesPlaced:     len(placements),
		PiecesRemaining:  totalDemand - len(placements),
		OptimizationTime: elapsedSeconds,
	}
	if totalStockArea > 0 {
		metrics.UtilizationPercentage = 100 * totalPlacedArea / totalStockArea
	}
	return metrics
}

// Finalize merges the heuristic and refiner contributions into one
// CuttingPlan and computes its metrics. The returned plan always satisfies
// CuttingPlan.Validate() == nil; that is the finalizer's sole invariant.
func Finalize(stocks []model.Stock, pieces []model.Piece, settings model.OptimizationSettings, heuristicPlacements, refinerPlacements []model.PlacedPiece, elapsedSeconds float64, id, createdAt string) model.CuttingPlan {
	placements := mergePlacements(heuristicPlacements, refinerPlacements, stocks)
	metrics := computeMetrics(stocks, pieces, placements, elapsedSeconds)

	plan := model.CuttingPlan{
		ID:         id,
		CreatedAt:  createdAt,
		Stocks:     stocks,
		Pieces:     pieces,
		Placements: placements,
		Settings:   settings,
		Metrics:    metrics,
	}

	if metrics.PiecesRemaining > 0 {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%d piece(s) could not be placed", metrics.PiecesRemaining))
	}

	return plan
}
