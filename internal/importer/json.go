package importer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/piwi3910/cutplan/internal/model"
)

// jsonProblem is the structured import shape: a plain stocks+pieces pair,
// the same vocabulary CuttingPlan uses on the export side.
type jsonProblem struct {
	Stocks []model.Stock `json:"stocks"`
	Pieces []model.Piece `json:"pieces"`
}

// ImportJSONResult holds the results of a structured import.
type ImportJSONResult struct {
	Stocks   []model.Stock
	Pieces   []model.Piece
	Errors   []string
	Warnings []string
}

// ImportJSON reads a stocks+pieces problem definition from a JSON file.
func ImportJSON(path string) ImportJSONResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportJSONResult{Errors: []string{fmt.Sprintf("Cannot open file: %v", err)}}
	}
	return ImportJSONBytes(data)
}

// ImportJSONBytes parses a stocks+pieces problem definition from raw JSON.
func ImportJSONBytes(data []byte) ImportJSONResult {
	var problem jsonProblem
	if err := json.Unmarshal(data, &problem); err != nil {
		return ImportJSONResult{Errors: []string{fmt.Sprintf("Cannot parse JSON: %v", err)}}
	}

	result := ImportJSONResult{Stocks: problem.Stocks, Pieces: problem.Pieces}
	if len(result.Stocks) == 0 {
		result.Warnings = append(result.Warnings, "No stocks found in JSON")
	}
	if len(result.Pieces) == 0 {
		result.Warnings = append(result.Warnings, "No pieces found in JSON")
	}
	return result
}
