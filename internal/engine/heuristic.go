package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/piwi3910/cutplan/internal/model"
)

// stockInstance is one physical copy of a Stock; StockInstance objects live
// only for the duration of the heuristic stage (spec §3 lifecycle note).
type stockInstance struct {
	id            string
	stock         model.Stock
	availableArea float64
	placements    []model.PlacedPiece
}

func expandStockInstances(stocks []model.Stock) []*stockInstance {
	var out []*stockInstance
	for _, s := range stocks {
		for i := 0; i < s.Quantity; i++ {
			out = append(out, &stockInstance{
				id:            fmt.Sprintf("%s#%d", s.ID, i),
				stock:         s,
				availableArea: s.Area(),
			})
		}
	}
	return out
}

// placementRequest is one unit of quantity for a piece type, carrying the
// type's position in the strategy-ordered list of piece types.
type placementRequest struct {
	piece      model.Piece
	typeOrder  int
}

// orderedPieceTypes sorts the distinct piece types by the chosen heuristic
// strategy, breaking ties by original input order (spec §4.C). Random uses a
// fresh permutation per call.
func orderedPieceTypes(pieces []model.Piece, strategy model.HeuristicStrategy, rng *rand.Rand) []model.Piece {
	ordered := make([]model.Piece, len(pieces))
	copy(ordered, pieces)

	switch strategy {
	case model.LargestFirst:
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Area() > ordered[j].Area() })
	case model.SmallestFirst:
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Area() < ordered[j].Area() })
	case model.PerimeterDescending:
		sort.SliceStable(ordered, func(i, j int) bool { return perimeter(ordered[i]) > perimeter(ordered[j]) })
	case model.PerimeterAscending:
		sort.SliceStable(ordered, func(i, j int) bool { return perimeter(ordered[i]) < perimeter(ordered[j]) })
	case model.RandomOrder:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		rng.Shuffle(len(ordered), func(i, j int) { ordered[i], ordered[j] = ordered[j], ordered[i] })
	default:
		// Unrecognized strategy: preserve input order.
	}
	return ordered
}

func perimeter(p model.Piece) float64 {
	return 2 * (p.Width + p.Height)
}

func expandPlacementRequests(pieces []model.Piece, strategy model.HeuristicStrategy, rng *rand.Rand) []placementRequest {
	var requests []placementRequest
	for typeIdx, p := range orderedPieceTypes(pieces, strategy, rng) {
		for i := 0; i < p.Quantity; i++ {
			requests = append(requests, placementRequest{piece: p, typeOrder: typeIdx})
		}
	}
	return requests
}

// candidatePositions returns the coarse candidate position set of spec
// §4.C for placing a w x h rectangle into a W x H instance: the four
// corners plus grid-stride positions along each edge.
func candidatePositions(instW, instH, w, h float64) []rect {
	if w > instW || h > instH {
		return nil
	}

	seen := make(map[[2]float64]bool)
	var out []rect
	add := func(x, y float64) {
		key := [2]float64{x, y}
		if !seen[key] {
			seen[key] = true
			out = append(out, rect{x: x, y: y, w: w, h: h})
		}
	}

	rightX := instW - w
	bottomY := instH - h

	add(0, 0)
	add(rightX, 0)
	add(0, bottomY)
	add(rightX, bottomY)

	if w > 0 {
		for x := 0.0; x <= rightX+1e-9; x += w {
			add(x, 0)
			add(x, bottomY)
		}
	}
	if h > 0 {
		for y := 0.0; y <= bottomY+1e-9; y += h {
			add(0, y)
			add(rightX, y)
		}
	}

	return out
}

// rotationCandidates returns the rotations to try for a piece on this
// instance, given its own policy and the run settings.
func rotationCandidates(p model.Piece, settings model.OptimizationSettings) []model.Rotation {
	return p.RotationsFor(settings)
}

// RunHeuristic greedily seats pieces on stock instances using a best-fit
// candidate-position scan. It honors cancellation between rotation trials
// and between requests, returning everything committed so far if ctx is
// done. This is spec §4.C.
func RunHeuristic(ctx context.Context, stocks []model.Stock, pieces []model.Piece, settings model.OptimizationSettings, rng *rand.Rand) []model.PlacedPiece {
	instances := expandStockInstances(stocks)
	requests := expandPlacementRequests(pieces, settings.HeuristicStrategy, rng)

	var placed []model.PlacedPiece

	for reqIdx, req := range requests {
		select {
		case <-ctx.Done():
			return placed
		default:
		}

		type candidate struct {
			inst     *stockInstance
			rotation model.Rotation
			pos      rect
			score    float64
		}

		var best *candidate
		var firstFit *candidate

		for _, inst := range instances {
			if inst.availableArea < req.piece.Area() {
				continue
			}

			for _, rot := range rotationCandidates(req.piece, settings) {
				select {
				case <-ctx.Done():
					return placed
				default:
				}

				w, h := req.piece.EffectiveDims(rot)
				for _, pos := range candidatePositions(inst.stock.Width, inst.stock.Height, w, h) {
					if !fits(pos, inst.stock.Width, inst.stock.Height) {
						continue
					}
					if overlapsAny(pos, inst.placements) {
						continue
					}

					// Take the first feasible position for this
					// (instance, rotation) pair; the scan across
					// instances/rotations is what finds the best fit.
					placedArea := req.piece.Area()
					for _, existing := range inst.placements {
						placedArea += existing.Area()
					}
					score := placedArea / inst.stock.Area()

					cand := candidate{inst: inst, rotation: rot, pos: pos, score: score}
					if firstFit == nil {
						c := cand
						firstFit = &c
					}
					if best == nil || cand.score > best.score {
						c := cand
						best = &c
					}
					break
				}
			}
		}

		chosen := best
		if !settings.EnableGreedyPlacement {
			chosen = firstFit
		}

		if chosen != nil {
			pp := model.PlacedPiece{
				ID:              fmt.Sprintf("pp-%d", reqIdx),
				Piece:           req.piece,
				X:               chosen.pos.x,
				Y:               chosen.pos.y,
				Rotation:        chosen.rotation,
				StockInstanceID: chosen.inst.id,
			}
			chosen.inst.placements = append(chosen.inst.placements, pp)
			chosen.inst.availableArea -= pp.Piece.Area()
			placed = append(placed, pp)
		}
	}

	return placed
}

func overlapsAny(pos rect, existing []model.PlacedPiece) bool {
	for _, e := range existing {
		if overlaps(pos, placementRect(e)) {
			return true
		}
	}
	return false
}
