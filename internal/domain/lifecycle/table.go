package lifecycle

import (
	"context"
	"fmt"
	"sort"
)

// Table is the set of permitted status moves. The zero value and the default
// table permit nothing, so status updates stay unreachable until configured.
type Table struct {
	edges map[Status]map[Status][]transition
}

// Empty returns a table with no permitted transitions
func Empty() *Table {
	return &Table{}
}

// CanMove reports whether a move from → to is configured, without evaluating guards
func (t *Table) CanMove(from, to Status) bool {
	if t == nil {
		return false
	}
	return len(t.edges[from][to]) > 0
}

// Move validates a move from → to and returns the resulting status
func (t *Table) Move(ctx context.Context, from, to Status) (Status, error) {
	if !from.IsValid() {
		return from, fmt.Errorf("%w: %q", ErrInvalidStatus, from)
	}
	if !to.IsValid() {
		return from, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !t.CanMove(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	for _, tr := range t.edges[from][to] {
		if tr.guard == nil || tr.guard(ctx) {
			return tr.to, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrGuardFailed, from, to)
}

// Permitted returns the configured targets out of a status, in lifecycle order
func (t *Table) Permitted(from Status) []Status {
	if t == nil {
		return []Status{}
	}
	targets := make([]Status, 0, len(t.edges[from]))
	for to, ts := range t.edges[from] {
		if len(ts) > 0 {
			targets = append(targets, to)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Ordinal() < targets[j].Ordinal()
	})
	return targets
}
