package engine

import (
	"context"
	"testing"
	"time"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTestSettings() model.OptimizationSettings {
	s := model.DefaultSettings()
	s.TimeLimitSeconds = 1
	s.EnableRefiner = false // keep these tests on the heuristic path only
	return s
}

func TestOptimizeRejectsInvalidProblem(t *testing.T) {
	_, err := Optimize(context.Background(), nil, nil, fastTestSettings(), nil)
	require.Error(t, err)

	var invalid *InvalidProblemError
	assert.ErrorAs(t, err, &invalid)
}

func TestOptimizeExactFit(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 100, 100, 1)}

	plan, err := Optimize(context.Background(), stocks, pieces, fastTestSettings(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, plan.Metrics.PiecesPlaced)
	assert.Empty(t, plan.Validate())
}

func TestOptimizePartialPacking(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 60, 60, 2)}

	plan, err := Optimize(context.Background(), stocks, pieces, fastTestSettings(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, plan.Metrics.PiecesPlaced)
	assert.Equal(t, 1, plan.Metrics.PiecesRemaining)
	assert.NotEmpty(t, plan.Warnings)
}

func TestOptimizeReportsProgress(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 100, 100, 1)}

	var events []ProgressEvent
	sink := func(e ProgressEvent) { events = append(events, e) }

	_, err := Optimize(context.Background(), stocks, pieces, fastTestSettings(), sink)

	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, 100.0, events[len(events)-1].Percent)
}

func TestOptimizeCancellationMidHeuristicYieldsPartialPlan(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 10000, 10000, 1)}
	pieces := []model.Piece{model.NewPiece("Tile", 10, 10, 5000)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := Optimize(ctx, stocks, pieces, fastTestSettings(), nil)

	require.NoError(t, err, "cancellation degrades to a partial plan, not an error")
	assert.Contains(t, plan.Warnings, "optimization cancelled before completion")
}

func TestGroupByMaterialSplitsDistinctMaterials(t *testing.T) {
	stocks := []model.Stock{
		{ID: "s1", Name: "Oak", Width: 100, Height: 100, Quantity: 1, Material: "oak"},
		{ID: "s2", Name: "Pine", Width: 100, Height: 100, Quantity: 1, Material: "pine"},
	}
	pieces := []model.Piece{
		{ID: "p1", Name: "A", Width: 10, Height: 10, Quantity: 1, Material: "oak"},
		{ID: "p2", Name: "B", Width: 10, Height: 10, Quantity: 1, Material: "pine"},
	}

	groups := groupByMaterial(stocks, pieces)
	require.Len(t, groups, 2)

	for _, g := range groups {
		assert.Len(t, g.stocks, 1)
		assert.Len(t, g.pieces, 1)
		assert.Equal(t, g.material, g.stocks[0].Material)
	}
}

func TestGroupByMaterialUntaggedJoinsEveryGroup(t *testing.T) {
	stocks := []model.Stock{
		{ID: "s1", Name: "Oak", Width: 100, Height: 100, Quantity: 1, Material: "oak"},
		{ID: "s2", Name: "Generic", Width: 100, Height: 100, Quantity: 1},
	}
	pieces := []model.Piece{
		{ID: "p1", Name: "A", Width: 10, Height: 10, Quantity: 1, Material: "oak"},
	}

	groups := groupByMaterial(stocks, pieces)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].stocks, 2, "the untagged stock should join the only material group")
}

func TestGroupByMaterialNoTagsYieldsOneUniversalGroup(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 10, 10, 1)}

	groups := groupByMaterial(stocks, pieces)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].material)
}

func TestEstimateProblemSecondsCapsAtTimeLimit(t *testing.T) {
	settings := model.DefaultSettings()
	settings.TimeLimitSeconds = 2
	settings.MaxThreads = 1
	settings.EnableRotation = true

	pieces := make([]model.Piece, 0, 50)
	for i := 0; i < 50; i++ {
		pieces = append(pieces, model.NewPiece("P", 10, 10, 200))
	}
	stocks := []model.Stock{model.NewStock("S", 1000, 1000, 50)}

	estimate := estimateProblemSeconds(pieces, stocks, settings)
	assert.LessOrEqual(t, estimate, settings.TimeLimitSeconds)
}

func TestEstimateProblemSecondsScalesWithComplexity(t *testing.T) {
	settings := model.DefaultSettings()
	settings.MaxThreads = 8
	settings.TimeLimitSeconds = 1000

	small := estimateProblemSeconds([]model.Piece{model.NewPiece("P", 10, 10, 1)}, []model.Stock{model.NewStock("S", 100, 100, 1)}, settings)
	large := estimateProblemSeconds([]model.Piece{model.NewPiece("P", 10, 10, 2000)}, []model.Stock{model.NewStock("S", 100, 100, 50)}, settings)

	assert.Less(t, small, large)
}

func TestUtilizationOfEmptyStocksIsZero(t *testing.T) {
	assert.Equal(t, 0.0, utilizationOf(nil, nil))
}

func TestOptimizeFinishesWithinReasonableTime(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 1000, 1000, 2)}
	pieces := []model.Piece{model.NewPiece("Tile", 50, 50, 50)}

	start := time.Now()
	_, err := Optimize(context.Background(), stocks, pieces, fastTestSettings(), nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
