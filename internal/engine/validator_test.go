package engine

import (
	"testing"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProblemRejectsEmptyStocks(t *testing.T) {
	result := ValidateProblem(nil, []model.Piece{model.NewPiece("A", 100, 100, 1)})
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateProblemRejectsEmptyPieces(t *testing.T) {
	result := ValidateProblem([]model.Stock{model.NewStock("S", 1000, 500, 1)}, nil)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateProblemRejectsNonPositiveDimensions(t *testing.T) {
	stocks := []model.Stock{{ID: "s1", Name: "Bad", Width: 0, Height: 500, Quantity: 1}}
	pieces := []model.Piece{{ID: "p1", Name: "Bad", Width: 100, Height: -5, Quantity: 1}}

	result := ValidateProblem(stocks, pieces)
	assert.False(t, result.IsValid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
}

func TestValidateProblemRejectsOversubscription(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("Big", 100, 100, 2)}

	result := ValidateProblem(stocks, pieces)
	assert.False(t, result.IsValid)
}

func TestValidateProblemAcceptsExactFit(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("Fit", 100, 100, 1)}

	result := ValidateProblem(stocks, pieces)
	require.True(t, result.IsValid)
	assert.Equal(t, 100.0, result.EstimatedUtilization)
}

func TestValidateProblemWarnsOnLowUtilization(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 1000, 1000, 1)}
	pieces := []model.Piece{model.NewPiece("Tiny", 10, 10, 1)}

	result := ValidateProblem(stocks, pieces)
	require.True(t, result.IsValid)
	assert.NotEmpty(t, result.Warnings)
}
