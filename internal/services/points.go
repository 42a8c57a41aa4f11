// Reward scoring policies.
//
// Two incompatible scoring rules exist in the field: an older one keyed on a
// boolean transportation flag and the current one keyed on the transport
// method. Both are kept as named, selectable policies so deployments choose
// explicitly instead of the code guessing.

package services

import (
	"fmt"

	"github.com/yunseo-dev/go-care-backend/internal/domain"
)

// basePoints is awarded to every finalized request before policy bonuses.
const basePoints = 10

// ScoringPolicy computes the points a volunteer earns for a request.
// Implementations must be pure: same fields in, same points out.
type ScoringPolicy interface {
	// Name is the stable identifier used in configuration.
	Name() string
	Score(f domain.TaskFields) int
}

// MethodScoring is the current policy: base 10, +5 for vehicle trips,
// +10 for walking accompaniment.
type MethodScoring struct{}

func (MethodScoring) Name() string { return "method-v2" }

func (MethodScoring) Score(f domain.TaskFields) int {
	points := basePoints
	switch f.TransportMethod() {
	case domain.MethodVehicle:
		points += 5
	case domain.MethodWalking:
		points += 10
	}
	return points
}

// FlagScoring is the legacy policy: base 10, +5 whenever transportation was
// flagged as needed.
type FlagScoring struct{}

func (FlagScoring) Name() string { return "flag-v1" }

func (FlagScoring) Score(f domain.TaskFields) int {
	points := basePoints
	if f.TransportationNeeded != nil && *f.TransportationNeeded {
		points += 5
	}
	return points
}

// PolicyFor resolves a configured policy name.
func PolicyFor(name string) (ScoringPolicy, error) {
	switch name {
	case "", MethodScoring{}.Name():
		return MethodScoring{}, nil
	case FlagScoring{}.Name():
		return FlagScoring{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring policy %q", name)
	}
}
