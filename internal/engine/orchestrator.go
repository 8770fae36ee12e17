package engine

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/piwi3910/cutplan/internal/model"
)

// ProgressEvent reports how far an optimization run has gotten. Phase
// indices are 0-based against the three stages that yield progress
// (heuristic, refinement, finalization); percent is coarse, per spec §4.F.
type ProgressEvent struct {
	PhaseIndex         int
	TotalPhases        int
	Description        string
	Percent            float64
	PiecesPlaced       int
	TotalPieces        int
	CurrentUtilization float64
	Elapsed            time.Duration
}

// ProgressSink receives ProgressEvents. Implementations must be safe to
// call from the goroutine the refiner's solver runs on as well as from the
// orchestrator's own goroutine.
type ProgressSink func(ProgressEvent)

// materialGroup is an independent sub-problem: every stock and piece that
// shares a material tag, plus every untagged (universal) stock and piece.
// Grounded on the teacher's groupByMaterial: splitting by material lets
// each group be optimized without ever considering a cross-material
// placement, which would be physically meaningless.
type materialGroup struct {
	material string
	stocks   []model.Stock
	pieces   []model.Piece
}

// groupByMaterial partitions stocks and pieces into one sub-problem per
// distinct material tag. Untagged stocks/pieces are universal and are
// copied into every group that needs them to stay solvable.
func groupByMaterial(stocks []model.Stock, pieces []model.Piece) []materialGroup {
	materials := make(map[string]bool)
	for _, s := range stocks {
		if s.Material != "" {
			materials[s.Material] = true
		}
	}
	for _, p := range pieces {
		if p.Material != "" {
			materials[p.Material] = true
		}
	}

	if len(materials) == 0 {
		return []materialGroup{{stocks: stocks, pieces: pieces}}
	}

	var groups []materialGroup
	for mat := range materials {
		g := materialGroup{material: mat}
		for _, s := range stocks {
			if s.Material == "" || s.Material == mat {
				g.stocks = append(g.stocks, s)
			}
		}
		for _, p := range pieces {
			if p.Material == "" || p.Material == mat {
				g.pieces = append(g.pieces, p)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// estimateProblemSeconds computes the purely informational time estimate of
// spec §4.F: base(complexity) / min(max_threads, available_cores), capped at
// the configured time limit.
func estimateProblemSeconds(pieces []model.Piece, stocks []model.Stock, settings model.OptimizationSettings) float64 {
	var pieceQty, stockQty int
	for _, p := range pieces {
		pieceQty += p.Quantity
	}
	for _, s := range stocks {
		stockQty += s.Quantity
	}

	rotationFactor := 1
	if settings.EnableRotation {
		rotationFactor = 4
	}
	complexity := pieceQty * stockQty * rotationFactor

	var base float64
	switch {
	case complexity < 100:
		base = 1
	case complexity < 500:
		base = 5
	case complexity < 1000:
		base = 15
	case complexity < 5000:
		base = 60
	default:
		base = 300
	}

	threads := settings.MaxThreads
	if threads <= 0 {
		threads = 1
	}
	cores := runtime.NumCPU()
	divisor := threads
	if cores < divisor {
		divisor = cores
	}
	if divisor <= 0 {
		divisor = 1
	}

	estimate := base / float64(divisor)
	if settings.TimeLimitSeconds > 0 && estimate > settings.TimeLimitSeconds {
		estimate = settings.TimeLimitSeconds
	}
	return estimate
}

func report(sink ProgressSink, phase int, desc string, percent float64, placed, total int, utilization float64, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink(ProgressEvent{
		PhaseIndex:         phase,
		TotalPhases:        3,
		Description:        desc,
		Percent:            percent,
		PiecesPlaced:       placed,
		TotalPieces:        total,
		CurrentUtilization: utilization,
		Elapsed:            elapsed,
	})
}

func totalQuantity(pieces []model.Piece) int {
	var n int
	for _, p := range pieces {
		n += p.Quantity
	}
	return n
}

// Optimize is the engine contract of spec §4.F/§6: it sequences the
// validator, heuristic placer, CP refiner, and finalizer, grouping the
// problem by material first. It fails only with *InvalidProblemError; every
// other setback degrades to a partial plan with warnings.
func Optimize(ctx context.Context, stocks []model.Stock, pieces []model.Piece, settings model.OptimizationSettings, progress ProgressSink) (model.CuttingPlan, error) {
	start := time.Now()

	validation := ValidateProblem(stocks, pieces)
	if !validation.IsValid {
		return model.CuttingPlan{}, &InvalidProblemError{Errors: validation.Errors}
	}

	estimate := estimateProblemSeconds(pieces, stocks, settings)
	log.Infof("orchestrator: estimated solve time %.2fs (limit %.2fs)", estimate, settings.TimeLimitSeconds)

	groups := groupByMaterial(stocks, pieces)

	var allHeuristic, allRefiner []model.PlacedPiece
	rng := rand.New(rand.NewSource(1))
	total := totalQuantity(pieces)

	report(progress, 0, "heuristic pre-arrangement", 0, 0, total, 0, time.Since(start))
	for _, g := range groups {
		select {
		case <-ctx.Done():
			log.Infof("orchestrator: cancelled during heuristic phase")
			return partialPlan(stocks, pieces, settings, allHeuristic, allRefiner, start), nil
		default:
		}
		if !settings.EnableHeuristicPreArrangement {
			continue
		}
		allHeuristic = append(allHeuristic, RunHeuristic(ctx, g.stocks, g.pieces, settings, rng)...)
	}
	report(progress, 0, "heuristic pre-arrangement", 50, len(allHeuristic), total, utilizationOf(stocks, allHeuristic), time.Since(start))

	for _, g := range groups {
		select {
		case <-ctx.Done():
			log.Infof("orchestrator: cancelled before refinement phase")
			return partialPlan(stocks, pieces, settings, allHeuristic, allRefiner, start), nil
		default:
		}
		if !settings.EnableRefiner {
			continue
		}
		allRefiner = append(allRefiner, RunRefiner(ctx, g.stocks, g.pieces, settings)...)
	}
	report(progress, 1, "constraint refinement", 90, len(allHeuristic)+len(allRefiner), total, utilizationOf(stocks, append(append([]model.PlacedPiece{}, allHeuristic...), allRefiner...)), time.Since(start))

	planID := uuid.New().String()
	plan := Finalize(stocks, pieces, settings, allHeuristic, allRefiner, time.Since(start).Seconds(), planID, start.Format(time.RFC3339))

	if problems := plan.Validate(); len(problems) > 0 {
		log.Warningf("orchestrator: finalized plan failed its own invariant check: %v", problems)
	}

	report(progress, 2, "finalization", 100, plan.Metrics.PiecesPlaced, total, plan.Metrics.UtilizationPercentage, time.Since(start))

	return plan, nil
}

func partialPlan(stocks []model.Stock, pieces []model.Piece, settings model.OptimizationSettings, heuristicPlacements, refinerPlacements []model.PlacedPiece, start time.Time) model.CuttingPlan {
	plan := Finalize(stocks, pieces, settings, heuristicPlacements, refinerPlacements, time.Since(start).Seconds(), uuid.New().String(), start.Format(time.RFC3339))
	plan.Warnings = append(plan.Warnings, "optimization cancelled before completion")
	return plan
}

func utilizationOf(stocks []model.Stock, placements []model.PlacedPiece) float64 {
	var totalStockArea, totalPlacedArea float64
	for _, s := range stocks {
		totalStockArea += s.TotalArea()
	}
	for _, p := range placements {
		totalPlacedArea += p.Area()
	}
	if totalStockArea == 0 {
		return 0
	}
	return 100 * totalPlacedArea / totalStockArea
}
