// Package lookup runs a query through an ordered list of predicates and
// returns the rows of the first one that matches anything.
package lookup

import (
	"context"
	"errors"
	"fmt"
)

// Common phase names
const (
	PhaseExact = "exact"
	PhaseFuzzy = "fuzzy"
)

// QueryFunc runs one predicate for key
type QueryFunc[T any] func(ctx context.Context, key string) ([]T, error)

// Phase is a named predicate
type Phase[T any] struct {
	Name  string
	Query QueryFunc[T]
}

// Result holds the rows found and the phase that found them.
// Phase is empty when no phase matched.
type Result[T any] struct {
	Items []T
	Phase string
}

// Matched reports whether any phase produced rows
func (r Result[T]) Matched() bool {
	return len(r.Items) > 0
}

// Strategy tries its phases in order, strictest first
type Strategy[T any] struct {
	phases []Phase[T]
}

// NewStrategy creates a strategy over the given phases
func NewStrategy[T any](phases ...Phase[T]) (*Strategy[T], error) {
	if len(phases) == 0 {
		return nil, errors.New("lookup strategy needs at least one phase")
	}
	for _, p := range phases {
		if p.Query == nil {
			return nil, fmt.Errorf("lookup phase %q has no query", p.Name)
		}
	}
	return &Strategy[T]{phases: phases}, nil
}

// ExactThenFuzzy is the two-phase strategy: strict predicate, then relaxed
func ExactThenFuzzy[T any](exact, fuzzy QueryFunc[T]) *Strategy[T] {
	s, _ := NewStrategy(
		Phase[T]{Name: PhaseExact, Query: exact},
		Phase[T]{Name: PhaseFuzzy, Query: fuzzy},
	)
	return s
}

// Run returns the rows of the first phase that yields any. A phase error
// stops the run.
func (s *Strategy[T]) Run(ctx context.Context, key string) (Result[T], error) {
	for _, p := range s.phases {
		items, err := p.Query(ctx, key)
		if err != nil {
			return Result[T]{}, fmt.Errorf("%s lookup: %w", p.Name, err)
		}
		if len(items) > 0 {
			return Result[T]{Items: items, Phase: p.Name}, nil
		}
	}
	return Result[T]{Items: []T{}}, nil
}

// Phases returns the phase names in order
func (s *Strategy[T]) Phases() []string {
	names := make([]string, len(s.phases))
	for i, p := range s.phases {
		names[i] = p.Name
	}
	return names
}
