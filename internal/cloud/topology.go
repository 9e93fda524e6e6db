package cloud

import (
	"fmt"
	"strings"
)

// Edge joins two point indices. Edges are undirected; the builder only emits
// the forward direction.
type Edge struct {
	A, B int
}

// RingMode selects how the last step of a rotation is linked.
type RingMode int

const (
	// RingClosed links the last step back to step 0 of the same position,
	// closing every rotation into a ring.
	RingClosed RingMode = iota
	// RingReference links the last step to step 0 of the next position,
	// matching line sets exported by the original rig software. The final
	// position has no successor, so its last step wraps within its own ring.
	RingReference
)

func (m RingMode) String() string {
	switch m {
	case RingClosed:
		return "closed"
	case RingReference:
		return "reference"
	default:
		return fmt.Sprintf("RingMode(%d)", int(m))
	}
}

// ParseRingMode parses "closed" or "reference". An empty string selects
// RingClosed.
func ParseRingMode(s string) (RingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "closed":
		return RingClosed, nil
	case "reference":
		return RingReference, nil
	default:
		return RingClosed, fmt.Errorf("unknown ring mode %q: expected closed or reference", s)
	}
}

// EdgeCount returns the number of edges BuildEdges produces for a grid of the
// given dimensions.
func EdgeCount(positions, steps int, mode RingMode) int {
	rung := (positions - 1) * steps
	if steps > 1 {
		return positions*steps + rung
	}
	if mode == RingReference {
		return 2 * rung
	}
	return rung
}

// BuildEdges returns the ring edges (angular neighbours within a position)
// followed by the rung edges (same step on adjacent positions) of a
// positions x steps grid. Indices follow Index. A ring edge that would join a
// point to itself is omitted: with one step that is every closed ring edge,
// and the final reference wrap.
func BuildEdges(positions, steps int, mode RingMode) ([]Edge, error) {
	if positions < 1 || steps < 1 {
		return nil, &InvalidDimensionsError{Positions: positions, Steps: steps}
	}

	edges := make([]Edge, 0, EdgeCount(positions, steps, mode))

	for p := range positions {
		for s := range steps - 1 {
			edges = append(edges, Edge{Index(p, s, steps), Index(p, s+1, steps)})
		}
		last, next := Index(p, steps-1, steps), Index(p, 0, steps)
		if mode == RingReference && p+1 < positions {
			next = Index(p+1, 0, steps)
		}
		if last != next {
			edges = append(edges, Edge{last, next})
		}
	}

	for p := range positions - 1 {
		for s := range steps {
			edges = append(edges, Edge{Index(p, s, steps), Index(p+1, s, steps)})
		}
	}
	return edges, nil
}
