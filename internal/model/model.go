// Package model defines the entities of the rectangular cutting-stock
// problem: stock sheets, pieces to cut, placements, and the settings and
// results that tie them together.
package model

import "github.com/google/uuid"

// Rotation is a placement angle in degrees, always one of 0, 90, 180, 270.
type Rotation int

const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

// RotationSet is a bitset over {R90, R180, R270}. R0 is always permitted
// and has no bit of its own.
type RotationSet uint8

const (
	RotationNone RotationSet = 0
	RotationR90  RotationSet = 1 << 0
	RotationR180 RotationSet = 1 << 1
	RotationR270 RotationSet = 1 << 2
)

// RotationAll permits every 90-degree increment.
const RotationAll = RotationR90 | RotationR180 | RotationR270

// Allows reports whether r is permitted by the set. R0 is always allowed.
func (rs RotationSet) Allows(r Rotation) bool {
	switch r {
	case Rotation0:
		return true
	case Rotation90:
		return rs&RotationR90 != 0
	case Rotation180:
		return rs&RotationR180 != 0
	case Rotation270:
		return rs&RotationR270 != 0
	default:
		return false
	}
}

// Rotations returns every rotation permitted by the set, always including R0.
func (rs RotationSet) Rotations() []Rotation {
	out := []Rotation{Rotation0}
	for _, r := range [...]Rotation{Rotation90, Rotation180, Rotation270} {
		if rs.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseRotationSet converts an importer-facing rotation word
// ("none", "90", "180", "270", "all") into a RotationSet.
func ParseRotationSet(s string) (RotationSet, bool) {
	switch s {
	case "", "none":
		return RotationNone, true
	case "90":
		return RotationR90, true
	case "180":
		return RotationR180, true
	case "270":
		return RotationR270, true
	case "all":
		return RotationAll, true
	default:
		return RotationNone, false
	}
}

// Stock is a rectangular sheet of material available in a given multiplicity.
type Stock struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Quantity    int     `json:"quantity"`
	Material    string  `json:"material,omitempty"`     // descriptive only; consumed by export
	Thickness   float64 `json:"thickness,omitempty"`     // descriptive only; consumed by export
	CostPerUnit float64 `json:"cost_per_unit,omitempty"` // descriptive only; consumed by export
}

// NewStock creates a Stock with a generated id.
func NewStock(name string, w, h float64, qty int) Stock {
	return Stock{
		ID:       uuid.New().String()[:8],
		Name:     name,
		Width:    w,
		Height:   h,
		Quantity: qty,
	}
}

// Area returns the area of a single stock instance.
func (s Stock) Area() float64 {
	return s.Width * s.Height
}

// TotalArea returns the combined area of every instance of this stock.
func (s Stock) TotalArea() float64 {
	return s.Area() * float64(s.Quantity)
}

// Piece is a rectangular part that must be produced, in a given multiplicity.
type Piece struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Width            float64     `json:"width"`
	Height           float64     `json:"height"`
	Quantity         int         `json:"quantity"`
	Material         string      `json:"material,omitempty"`
	AllowRotation    bool        `json:"allow_rotation"`
	AllowedRotations RotationSet `json:"allowed_rotations"`
}

// NewPiece creates a Piece with a generated id and no rotation allowed.
func NewPiece(name string, w, h float64, qty int) Piece {
	return Piece{
		ID:               uuid.New().String()[:8],
		Name:             name,
		Width:            w,
		Height:           h,
		Quantity:         qty,
		AllowRotation:    false,
		AllowedRotations: RotationNone,
	}
}

// Area returns the area of a single piece instance.
func (p Piece) Area() float64 {
	return p.Width * p.Height
}

// EffectiveDims returns (width, height) after applying rotation: the
// dimensions are swapped for R90/R270, unchanged otherwise.
func (p Piece) EffectiveDims(r Rotation) (w, h float64) {
	if r == Rotation90 || r == Rotation270 {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// RotationsFor returns the rotations this piece may use, intersecting its
// own policy with the global enable flag and cap from settings.
func (p Piece) RotationsFor(s OptimizationSettings) []Rotation {
	if !s.EnableRotation || !p.AllowRotation {
		return []Rotation{Rotation0}
	}
	allowed := p.AllowedRotations & s.AllowedRotations
	return allowed.Rotations()
}

// PlacedPiece is a piece instance assigned a position and rotation on a
// stock instance.
type PlacedPiece struct {
	ID              string   `json:"id"`
	Piece           Piece    `json:"piece"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Rotation        Rotation `json:"rotation"`
	StockInstanceID string   `json:"stock_instance_id"`
}

// EffectiveDims returns the placement's effective width and height.
func (pp PlacedPiece) EffectiveDims() (w, h float64) {
	return pp.Piece.EffectiveDims(pp.Rotation)
}

// Right returns the placement's right edge.
func (pp PlacedPiece) Right() float64 {
	w, _ := pp.EffectiveDims()
	return pp.X + w
}

// Bottom returns the placement's bottom edge.
func (pp PlacedPiece) Bottom() float64 {
	_, h := pp.EffectiveDims()
	return pp.Y + h
}

// Area returns the placement's footprint area (independent of rotation).
func (pp PlacedPiece) Area() float64 {
	return pp.Piece.Area()
}

// HeuristicStrategy orders piece types before the heuristic placer seats them.
type HeuristicStrategy string

const (
	LargestFirst        HeuristicStrategy = "largest_first"
	AreaDescending       HeuristicStrategy = "largest_first" // alias
	SmallestFirst        HeuristicStrategy = "smallest_first"
	AreaAscending        HeuristicStrategy = "smallest_first" // alias
	PerimeterDescending  HeuristicStrategy = "perimeter_descending"
	PerimeterAscending   HeuristicStrategy = "perimeter_ascending"
	RandomOrder          HeuristicStrategy = "random"
)

// OptimizationSettings configures every stage of the optimization engine.
// Settings are immutable for the duration of one optimization.
type OptimizationSettings struct {
	EnableRotation               bool              `json:"enable_rotation"`
	AllowedRotations             RotationSet       `json:"allowed_rotations"`
	EnableMultithreading         bool              `json:"enable_multithreading"`
	MaxThreads                   int               `json:"max_threads"`
	TimeLimitSeconds             float64           `json:"time_limit_seconds"`
	GapTolerance                 float64           `json:"gap_tolerance"`
	EnableSymmetryBreaking       bool              `json:"enable_symmetry_breaking"`
	EnableHeuristicPreArrangement bool             `json:"enable_heuristic_pre_arrangement"`
	HeuristicStrategy            HeuristicStrategy `json:"heuristic_strategy"`
	EnableGreedyPlacement        bool              `json:"enable_greedy_placement"`
	EnableRefiner                bool              `json:"enable_refiner"`
}

// DefaultSettings returns a reasonable default configuration.
func DefaultSettings() OptimizationSettings {
	return OptimizationSettings{
		EnableRotation:                true,
		AllowedRotations:              RotationAll,
		EnableMultithreading:          true,
		MaxThreads:                    4,
		TimeLimitSeconds:              10,
		GapTolerance:                  0.02,
		EnableSymmetryBreaking:        true,
		EnableHeuristicPreArrangement: true,
		HeuristicStrategy:             LargestFirst,
		EnableGreedyPlacement:         true,
		EnableRefiner:                 true,
	}
}

// PlanMetrics summarizes material usage for a CuttingPlan.
type PlanMetrics struct {
	TotalStockArea        float64 `json:"total_stock_area"`
	TotalPlacedArea        float64 `json:"total_placed_area"`
	UtilizationPercentage float64 `json:"utilization_percentage"`
	PiecesPlaced          int     `json:"pieces_placed"`
	PiecesRemaining       int     `json:"pieces_remaining"`
	OptimizationTime      float64 `json:"optimization_time_seconds"`
}

// CuttingPlan is the full result of one optimization run: a snapshot of the
// inputs, the final placements, and the computed metrics. A CuttingPlan is
// created once and never mutated after being returned.
type CuttingPlan struct {
	ID         string                `json:"id"`
	CreatedAt  string                `json:"created_at"`
	Stocks     []Stock               `json:"stocks"`
	Pieces     []Piece               `json:"pieces"`
	Placements []PlacedPiece         `json:"placements"`
	Settings   OptimizationSettings  `json:"settings"`
	Metrics    PlanMetrics           `json:"metrics"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// stockByInstanceID returns the stock a placement landed on, looked up by
// stock instance id of the form "<stockID>#<index>".
func stockByInstanceID(stocks []Stock, instanceID string) (Stock, bool) {
	id := instanceID
	if idx := indexOfHash(instanceID); idx >= 0 {
		id = instanceID[:idx]
	}
	for _, s := range stocks {
		if s.ID == id {
			return s, true
		}
	}
	return Stock{}, false
}

// fitsPlacement and overlapsPlacement mirror the geometry primitives of
// internal/engine/geometry.go. They are duplicated here, in miniature,
// because CuttingPlan.Validate is a model-level post-condition and model
// must not import engine (engine already imports model).
func fitsPlacement(p PlacedPiece, stockW, stockH float64) bool {
	w, h := p.EffectiveDims()
	return p.X >= 0 && p.Y >= 0 && p.X+w <= stockW && p.Y+h <= stockH
}

func overlapsPlacement(a, b PlacedPiece) bool {
	aw, ah := a.EffectiveDims()
	bw, bh := b.EffectiveDims()
	return a.X < b.X+bw && b.X < a.X+aw && a.Y < b.Y+bh && b.Y < a.Y+ah
}

func indexOfHash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '#' {
			return i
		}
	}
	return -1
}

// Validate checks the global invariants of §3/§8: no two placements on the
// same stock instance overlap, and every placement fits within its stock's
// bounds. It returns an empty slice when the plan is well-formed; this is
// the finalizer's post-condition.
func (cp CuttingPlan) Validate() []string {
	var problems []string

	byInstance := make(map[string][]PlacedPiece)
	for _, p := range cp.Placements {
		byInstance[p.StockInstanceID] = append(byInstance[p.StockInstanceID], p)
	}

	for instanceID, placements := range byInstance {
		stock, ok := stockByInstanceID(cp.Stocks, instanceID)
		for _, p := range placements {
			if ok && !fitsPlacement(p, stock.Width, stock.Height) {
				problems = append(problems, "placement "+p.ID+" does not fit within stock bounds")
			}
		}
		for i := 0; i < len(placements); i++ {
			for j := i + 1; j < len(placements); j++ {
				if overlapsPlacement(placements[i], placements[j]) {
					problems = append(problems, "placements "+placements[i].ID+" and "+placements[j].ID+" overlap")
				}
			}
		}
	}

	return problems
}

// ValidationResult is the outcome of validating a problem before any
// placement attempt.
type ValidationResult struct {
	IsValid              bool     `json:"is_valid"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	TotalStockArea       float64  `json:"total_stock_area"`
	TotalPieceArea       float64  `json:"total_piece_area"`
	EstimatedUtilization float64  `json:"estimated_utilization"`
}
