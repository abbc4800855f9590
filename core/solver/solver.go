// Package solver wraps the external scheduling solver behind the Solver
// capability. The Gateway bounds each call with a timeout, turns failures
// into model.SolverUnavailableError and reports every call to the metrics
// sink and the error monitor.
package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/portlogistics/portplan/core/model"
)

// Algorithm selects a solver variant.
type Algorithm string

const (
	Optimal     Algorithm = "optimal"
	Greedy      Algorithm = "greedy"
	LocalSearch Algorithm = "local_search"
)

// All lists the algorithms in comparison order.
func All() []Algorithm { return []Algorithm{Optimal, Greedy, LocalSearch} }

// Parse converts a wire name into an Algorithm.
func Parse(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case Optimal, Greedy, LocalSearch:
		return a, nil
	case "local-search", "localsearch":
		return LocalSearch, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm %q", model.ErrInvalidRequest, s)
	}
}

// UnknownDelay marks a result whose solver did not report a total delay.
// Such results never rank as best in a comparison.
const UnknownDelay = -1.0

// Result is a solved schedule. Raw keeps the solver's extra statistics.
type Result struct {
	Algorithm  Algorithm           `json:"algorithm"`
	Schedule   model.DailySchedule `json:"schedule"`
	TotalDelay float64             `json:"totalDelay"`
	Raw        map[string]any      `json:"raw,omitempty"`
}

// DelayKnown reports whether the solver reported a total delay.
func (r Result) DelayKnown() bool { return r.TotalDelay >= 0 }

// Solver solves a daily schedule with the given algorithm.
type Solver interface {
	Solve(ctx context.Context, schedule model.DailySchedule, alg Algorithm) (Result, error)
}

// Func adapts a function to the Solver interface.
type Func func(ctx context.Context, schedule model.DailySchedule, alg Algorithm) (Result, error)

func (f Func) Solve(ctx context.Context, schedule model.DailySchedule, alg Algorithm) (Result, error) {
	return f(ctx, schedule, alg)
}
