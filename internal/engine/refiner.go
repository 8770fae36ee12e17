package engine

import (
	"context"
	"fmt"

	log "github.com/golang/glog"
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/sat"

	"github.com/piwi3910/cutplan/internal/model"
)

// refinerState mirrors the state machine of spec §4.D:
// Idle → Building → Solving → (Optimal|Feasible|Infeasible|Timeout) → Extracted.
type refinerState int

const (
	stateIdle refinerState = iota
	stateBuilding
	stateSolving
	stateOptimal
	stateFeasible
	stateInfeasible
	stateTimeout
	stateExtracted
)

// pieceInstance is one unit of quantity for a piece, expanded for the CP
// model the same way the heuristic expands placement requests.
type pieceInstance struct {
	piece model.Piece
}

func expandPieceInstances(pieces []model.Piece) []pieceInstance {
	var out []pieceInstance
	for _, p := range pieces {
		for i := 0; i < p.Quantity; i++ {
			out = append(out, pieceInstance{piece: p})
		}
	}
	return out
}

// rotVars holds, for one (piece instance, stock instance) pair, one bool
// var per permitted rotation. Representing rot[p,s] as mutually exclusive
// bools rather than a raw 0..3 int var lets the containment constraint
// stay linear per rotation instead of needing a non-linear dispatch — see
// DESIGN.md "Open Question: rotation variable representation".
type rotVars struct {
	byRotation map[model.Rotation]cpmodel.BoolVar
}

type cell struct {
	x, y     cpmodel.IntVar
	rot      rotVars
	placed   cpmodel.BoolVar
}

// RunRefiner builds and solves the constraint-programming model of spec
// §4.D and returns the placements it extracts. It never returns an error:
// infeasibility and timeout both degrade to an empty contribution per the
// error taxonomy of spec §7 (SolverDeadline is suppressed, not raised).
func RunRefiner(ctx context.Context, stocks []model.Stock, pieces []model.Piece, settings model.OptimizationSettings) []model.PlacedPiece {
	state := stateBuilding

	instances := expandStockInstances(stocks)
	pieceInsts := expandPieceInstances(pieces)

	if len(instances) == 0 || len(pieceInsts) == 0 {
		return nil
	}

	builder := cpmodel.NewCpModelBuilder()

	cells := make([][]*cell, len(pieceInsts))
	for p := range pieceInsts {
		cells[p] = make([]*cell, len(instances))
	}

	for p, pi := range pieceInsts {
		for s, inst := range instances {
			c := &cell{
				x:      builder.NewIntVar(0, int64(inst.stock.Width)),
				y:      builder.NewIntVar(0, int64(inst.stock.Height)),
				placed: builder.NewBoolVar(),
			}
			c.rot.byRotation = make(map[model.Rotation]cpmodel.BoolVar)
			for _, r := range pi.piece.RotationsFor(settings) {
				c.rot.byRotation[r] = builder.NewBoolVar()
			}
			rotLits := make([]cpmodel.BoolVar, 0, len(c.rot.byRotation))
			for _, lit := range c.rot.byRotation {
				rotLits = append(rotLits, lit)
			}
			// Exactly one rotation is active when this cell is placed;
			// when not placed, rotation bits are left unconstrained (cheaper
			// for the solver, harmless since they are never read).
			if len(rotLits) > 0 {
				sum := cpmodel.NewLinearExpr()
				for _, lit := range rotLits {
					sum.AddTerm(lit, 1)
				}
				builder.AddEquality(sum, cpmodel.NewConstant(1)).OnlyEnforceIf(c.placed)
			}

			for r, lit := range c.rot.byRotation {
				w, h := pi.piece.EffectiveDims(r)
				builder.AddLessOrEqual(
					cpmodel.NewLinearExpr().AddTerm(c.x, 1).AddConstant(int64(w)),
					cpmodel.NewConstant(int64(inst.stock.Width)),
				).OnlyEnforceIf(c.placed, lit)
				builder.AddLessOrEqual(
					cpmodel.NewLinearExpr().AddTerm(c.y, 1).AddConstant(int64(h)),
					cpmodel.NewConstant(int64(inst.stock.Height)),
				).OnlyEnforceIf(c.placed, lit)
			}

			cells[p][s] = c
		}
	}

	// Constraint 1: at-most-one-stock per piece instance.
	for p := range pieceInsts {
		lits := make([]cpmodel.BoolVar, len(instances))
		for s := range instances {
			lits[s] = cells[p][s].placed
		}
		builder.AddAtMostOne(lits)
	}

	// Constraint 3: pairwise non-overlap on the same stock instance, via a
	// reified "at least one edge-separation holds" disjunction. This is the
	// fix for the spec §9 Open Question: a single reification variable over
	// four disjuncts is too weak; AddBoolOr over four *independently*
	// reified edge-separation literals is the correct encoding.
	for s, inst := range instances {
		for p := 0; p < len(pieceInsts); p++ {
			for q := p + 1; q < len(pieceInsts); q++ {
				addNoOverlap(builder, pieceInsts[p].piece, pieceInsts[q].piece, cells[p][s], cells[q][s], inst.stock)
			}
		}
	}

	// Constraint 4: symmetry breaking across identical stock instances.
	if settings.EnableSymmetryBreaking {
		addSymmetryBreaking(builder, cells, instances)
	}

	// Objective: maximize placement count, with a secondary term that
	// nudges toward using fewer stock instances. The spec §9 Open Question
	// calls out that the objective must actually reference placed[*]. Each
	// placement is weighted one more than the number of stock instances and
	// each used instance costs 1, so one extra placement always dominates any
	// savings in stock instances used.
	placedWeight := int64(len(instances)) + 1
	obj := cpmodel.NewLinearExpr()
	usedLits := make([]cpmodel.BoolVar, len(instances))
	for s, inst := range instances {
		used := builder.NewBoolVar()
		var anyPlaced []cpmodel.BoolVar
		for p := range pieceInsts {
			obj.AddTerm(cells[p][s].placed, placedWeight)
			anyPlaced = append(anyPlaced, cells[p][s].placed)
		}
		// used[s] <=> at least one piece is placed on instance s.
		builder.AddBoolOr(append(append([]cpmodel.BoolVar{}, anyPlaced...))).OnlyEnforceIf(used)
		for _, lit := range anyPlaced {
			builder.AddImplication(lit, used)
		}
		usedLits[s] = used
		_ = inst
	}
	for _, used := range usedLits {
		obj.AddTerm(used, -1)
	}
	builder.Maximize(obj)

	state = stateSolving

	cpm, err := builder.Model()
	if err != nil {
		log.Warningf("refiner: failed to build CP model: %v", err)
		return nil
	}

	params := &sppb.SatParameters{
		MaxTimeInSeconds: &settings.TimeLimitSeconds,
	}
	if settings.EnableMultithreading && settings.MaxThreads > 0 {
		workers := int32(settings.MaxThreads)
		params.NumSearchWorkers = &workers
	}
	if settings.GapTolerance > 0 {
		gap := settings.GapTolerance
		params.RelativeGapLimit = &gap
	}

	response, err := cpmodel.SolveCpModelWithParameters(cpm, params)
	if err != nil {
		log.Warningf("refiner: solve failed: %v", err)
		return nil
	}

	switch response.GetStatus() {
	case cpmodel.CpSolverStatus_OPTIMAL:
		state = stateOptimal
	case cpmodel.CpSolverStatus_FEASIBLE:
		state = stateFeasible
	case cpmodel.CpSolverStatus_INFEASIBLE:
		state = stateInfeasible
		log.Infof("refiner: infeasible, contributing nothing")
		return nil
	default:
		state = stateTimeout
		log.Infof("refiner: no incumbent before deadline, contributing nothing")
		return nil
	}

	select {
	case <-ctx.Done():
		return nil
	default:
	}

	var out []model.PlacedPiece
	for p, pi := range pieceInsts {
		for s, inst := range instances {
			c := cells[p][s]
			if !cpmodel.SolutionBooleanValue(response, c.placed) {
				continue
			}
			rot := model.Rotation0
			for r, lit := range c.rot.byRotation {
				if cpmodel.SolutionBooleanValue(response, lit) {
					rot = r
					break
				}
			}
			out = append(out, model.PlacedPiece{
				ID:              fmt.Sprintf("refiner-%d-%d", p, s),
				Piece:           pi.piece,
				X:               float64(cpmodel.SolutionIntegerValue(response, c.x)),
				Y:               float64(cpmodel.SolutionIntegerValue(response, c.y)),
				Rotation:        rot,
				StockInstanceID: inst.id,
			})
		}
	}

	state = stateExtracted
	_ = state
	return out
}

// addNoOverlap enforces "either right-of, left-of, above, or below" between
// two cells on the same stock instance, each edge-separation independently
// reified so the disjunction only binds when both pieces are placed there.
func addNoOverlap(builder *cpmodel.CpModelBuilder, a, b model.Piece, ca, cb *cell, stock model.Stock) {
	leftOf := builder.NewBoolVar()  // a ends before b starts (x)
	rightOf := builder.NewBoolVar() // b ends before a starts (x)
	above := builder.NewBoolVar()   // a ends before b starts (y)
	below := builder.NewBoolVar()   // b ends before a starts (y)

	for r, lit := range ca.rot.byRotation {
		w, _ := a.EffectiveDims(r)
		builder.AddLessOrEqual(
			cpmodel.NewLinearExpr().AddTerm(ca.x, 1).AddConstant(int64(w)),
			cpmodel.NewLinearExpr().AddTerm(cb.x, 1),
		).OnlyEnforceIf(leftOf, lit)
		_, h := a.EffectiveDims(r)
		builder.AddLessOrEqual(
			cpmodel.NewLinearExpr().AddTerm(ca.y, 1).AddConstant(int64(h)),
			cpmodel.NewLinearExpr().AddTerm(cb.y, 1),
		).OnlyEnforceIf(above, lit)
	}
	for r, lit := range cb.rot.byRotation {
		w, _ := b.EffectiveDims(r)
		builder.AddLessOrEqual(
			cpmodel.NewLinearExpr().AddTerm(cb.x, 1).AddConstant(int64(w)),
			cpmodel.NewLinearExpr().AddTerm(ca.x, 1),
		).OnlyEnforceIf(rightOf, lit)
		_, h := b.EffectiveDims(r)
		builder.AddLessOrEqual(
			cpmodel.NewLinearExpr().AddTerm(cb.y, 1).AddConstant(int64(h)),
			cpmodel.NewLinearExpr().AddTerm(ca.y, 1),
		).OnlyEnforceIf(below, lit)
	}

	builder.AddBoolOr([]cpmodel.BoolVar{leftOf, rightOf, above, below}).
		OnlyEnforceIf(ca.placed, cb.placed)
}

// addSymmetryBreaking requires consecutive instances of the same stock to
// carry a non-increasing number of placed pieces, collapsing
// permutation-equivalent assignments across identical stock instances. It
// orders only the placed counts, not the placed-piece signatures, and adds
// no ordering among identical piece instances.
func addSymmetryBreaking(builder *cpmodel.CpModelBuilder, cells [][]*cell, instances []*stockInstance) {
	for s := 0; s < len(instances)-1; s++ {
		if instances[s].stock.ID != instances[s+1].stock.ID {
			continue
		}
		// More pieces placed on instance s+1 than on s is disallowed: total
		// placed count is the ordering key, cheap to state and enough to
		// collapse the common identical-stock permutation symmetry.
		sumS := cpmodel.NewLinearExpr()
		sumNext := cpmodel.NewLinearExpr()
		for p := range cells {
			sumS.AddTerm(cells[p][s].placed, 1)
			sumNext.AddTerm(cells[p][s+1].placed, 1)
		}
		builder.AddGreaterOrEqual(sumS, sumNext)
	}
}
