package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestSettings() model.OptimizationSettings {
	s := model.DefaultSettings()
	s.TimeLimitSeconds = 1
	return s
}

func TestRunHeuristicExactFit(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 100, 100, 1)}

	placed := RunHeuristic(context.Background(), stocks, pieces, defaultTestSettings(), rand.New(rand.NewSource(1)))

	require.Len(t, placed, 1)
	assert.Equal(t, "A", placed[0].Piece.Name)
}

func TestRunHeuristicRotationRequired(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 200, 1)}
	piece := model.NewPiece("Tall", 200, 100, 1)
	piece.AllowRotation = true
	piece.AllowedRotations = model.RotationAll

	settings := defaultTestSettings()
	placed := RunHeuristic(context.Background(), stocks, []model.Piece{piece}, settings, rand.New(rand.NewSource(1)))

	require.Len(t, placed, 1)
	assert.Equal(t, model.Rotation90, placed[0].Rotation)
}

func TestRunHeuristicOverSubscriptionLeavesSomeUnplaced(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 100, 100, 1)}
	pieces := []model.Piece{model.NewPiece("A", 100, 100, 3)}

	placed := RunHeuristic(context.Background(), stocks, pieces, defaultTestSettings(), rand.New(rand.NewSource(1)))

	assert.Len(t, placed, 1, "only one instance of A fits on the single stock")
}

func TestRunHeuristicProducesNoOverlaps(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 1000, 1000, 2)}
	pieces := []model.Piece{model.NewPiece("Tile", 100, 100, 30)}

	placed := RunHeuristic(context.Background(), stocks, pieces, defaultTestSettings(), rand.New(rand.NewSource(1)))
	require.NotEmpty(t, placed)

	byInstance := make(map[string][]model.PlacedPiece)
	for _, p := range placed {
		byInstance[p.StockInstanceID] = append(byInstance[p.StockInstanceID], p)
	}
	for _, group := range byInstance {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				assert.False(t, overlaps(placementRect(group[i]), placementRect(group[j])), "placements on the same stock instance must not overlap")
			}
		}
	}
}

func TestRunHeuristicRespectsCancellation(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 10000, 10000, 1)}
	pieces := []model.Piece{model.NewPiece("Tile", 10, 10, 5000)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	placed := RunHeuristic(ctx, stocks, pieces, defaultTestSettings(), rand.New(rand.NewSource(1)))
	assert.Empty(t, placed, "a pre-cancelled context should yield no placements")
}

func TestRunHeuristicFirstFitWhenGreedyDisabled(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 300, 300, 1)}
	pieces := []model.Piece{model.NewPiece("A", 100, 100, 1)}

	settings := defaultTestSettings()
	settings.EnableGreedyPlacement = false

	placed := RunHeuristic(context.Background(), stocks, pieces, settings, rand.New(rand.NewSource(1)))
	require.Len(t, placed, 1)
	assert.Equal(t, 0.0, placed[0].X)
	assert.Equal(t, 0.0, placed[0].Y)
}

func TestCandidatePositionsIncludesCorners(t *testing.T) {
	positions := candidatePositions(200, 100, 50, 50)
	require.NotEmpty(t, positions)

	hasCorner := func(x, y float64) bool {
		for _, p := range positions {
			if p.x == x && p.y == y {
				return true
			}
		}
		return false
	}
	assert.True(t, hasCorner(0, 0))
	assert.True(t, hasCorner(150, 0))
	assert.True(t, hasCorner(0, 50))
	assert.True(t, hasCorner(150, 50))
}

func TestCandidatePositionsEmptyWhenTooLarge(t *testing.T) {
	positions := candidatePositions(100, 100, 200, 50)
	assert.Empty(t, positions)
}

func TestOrderedPieceTypesLargestFirst(t *testing.T) {
	pieces := []model.Piece{
		model.NewPiece("Small", 10, 10, 1),
		model.NewPiece("Big", 100, 100, 1),
	}
	ordered := orderedPieceTypes(pieces, model.LargestFirst, nil)
	require.Len(t, ordered, 2)
	assert.Equal(t, "Big", ordered[0].Name)
}

func TestOrderedPieceTypesSmallestFirst(t *testing.T) {
	pieces := []model.Piece{
		model.NewPiece("Big", 100, 100, 1),
		model.NewPiece("Small", 10, 10, 1),
	}
	ordered := orderedPieceTypes(pieces, model.SmallestFirst, nil)
	require.Len(t, ordered, 2)
	assert.Equal(t, "Small", ordered[0].Name)
}

func TestOrderedPieceTypesRandomIsDeterministicPerSeed(t *testing.T) {
	pieces := []model.Piece{
		model.NewPiece("A", 10, 10, 1),
		model.NewPiece("B", 20, 20, 1),
		model.NewPiece("C", 30, 30, 1),
	}
	a := orderedPieceTypes(pieces, model.RandomOrder, rand.New(rand.NewSource(42)))
	b := orderedPieceTypes(pieces, model.RandomOrder, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestRunHeuristicWithinTimeLimit(t *testing.T) {
	stocks := []model.Stock{model.NewStock("S", 1000, 1000, 1)}
	pieces := []model.Piece{model.NewPiece("Tile", 50, 50, 50)}

	start := time.Now()
	placed := RunHeuristic(context.Background(), stocks, pieces, defaultTestSettings(), rand.New(rand.NewSource(1)))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.NotEmpty(t, placed)
}
