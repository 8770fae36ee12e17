package engine

import "strings"

// InvalidProblemError is the only error the engine contract raises (spec
// §7). Every other failure mode — solver timeout, solver infeasibility,
// a partially-seated heuristic run — degrades to a partial CuttingPlan
// plus warnings rather than an error return.
type InvalidProblemError struct {
	Errors []string
}

func (e *InvalidProblemError) Error() string {
	return "invalid problem: " + strings.Join(e.Errors, "; ")
}
