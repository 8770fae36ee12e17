package engine

import (
	"fmt"

	"github.com/piwi3910/cutplan/internal/model"
)

// ValidateProblem checks a cutting-stock problem for feasibility before any
// placement attempt. Rules are evaluated independently; every violation is
// accumulated rather than short-circuiting on the first failure.
func ValidateProblem(stocks []model.Stock, pieces []model.Piece) model.ValidationResult {
	var result model.ValidationResult

	if len(stocks) == 0 {
		result.Errors = append(result.Errors, "No stock materials provided")
	}
	if len(pieces) == 0 {
		result.Errors = append(result.Errors, "No pieces to cut provided")
	}

	for _, s := range stocks {
		if s.Width <= 0 || s.Height <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Stock %q has non-positive dimensions", s.Name))
		}
		result.TotalStockArea += s.TotalArea()
	}

	for _, p := range pieces {
		if p.Width <= 0 || p.Height <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Piece %q has non-positive dimensions", p.Name))
		}
		result.TotalPieceArea += p.Area() * float64(p.Quantity)
	}

	if result.TotalPieceArea > result.TotalStockArea {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Total piece area (%.2f) exceeds total stock area (%.2f)",
			result.TotalPieceArea, result.TotalStockArea))
	}

	if result.TotalStockArea > 0 {
		result.EstimatedUtilization = 100 * result.TotalPieceArea / result.TotalStockArea
		if result.EstimatedUtilization < 50 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Estimated utilization is low (%.1f%%)", result.EstimatedUtilization))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
