package lifecycle

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides at move time whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// Builder collects permitted transitions and produces an immutable Table
type Builder interface {
	// Configure returns the configuration for transitions leaving the given status
	Configure(from Status) StatusConfiguration

	// Build freezes the configured transitions into a Table
	Build() *Table
}

// StatusConfiguration configures the transitions out of one status
type StatusConfiguration interface {
	// Permit allows moving to the target status
	Permit(to Status) StatusConfiguration

	// PermitIf allows moving to the target status when the guard passes
	PermitIf(to Status, guard GuardFunc) StatusConfiguration
}

type transition struct {
	to    Status
	guard GuardFunc
}

type statusConfig struct {
	from        Status
	transitions map[Status][]transition
}

type builder struct {
	configurations map[Status]*statusConfig
}

// NewBuilder creates an empty transition table builder
func NewBuilder() Builder {
	return &builder{configurations: make(map[Status]*statusConfig)}
}

// Configure panics on an unknown status; use FromConfig for untrusted input.
func (b *builder) Configure(from Status) StatusConfiguration {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", from))
	}

	cfg, exists := b.configurations[from]
	if !exists {
		cfg = &statusConfig{from: from, transitions: make(map[Status][]transition)}
		b.configurations[from] = cfg
	}
	return cfg
}

func (b *builder) Build() *Table {
	edges := make(map[Status]map[Status][]transition, len(b.configurations))
	for from, cfg := range b.configurations {
		out := make(map[Status][]transition, len(cfg.transitions))
		for to, ts := range cfg.transitions {
			out[to] = append([]transition{}, ts...)
		}
		edges[from] = out
	}
	return &Table{edges: edges}
}

func (c *statusConfig) Permit(to Status) StatusConfiguration {
	return c.PermitIf(to, nil)
}

func (c *statusConfig) PermitIf(to Status, guard GuardFunc) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	c.transitions[to] = append(c.transitions[to], transition{to: to, guard: guard})
	return c
}

// FromConfig builds a table from a from→targets map as loaded from configuration.
// Unknown statuses are reported as ErrInvalidStatus instead of panicking.
func FromConfig(transitions map[string][]string) (*Table, error) {
	b := NewBuilder()

	froms := make([]string, 0, len(transitions))
	for from := range transitions {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		fs := Status(from)
		if !fs.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, from)
		}
		cfg := b.Configure(fs)
		for _, to := range transitions[from] {
			ts := Status(to)
			if !ts.IsValid() {
				return nil, fmt.Errorf("%w: %q (from %q)", ErrInvalidStatus, to, from)
			}
			cfg.Permit(ts)
		}
	}
	return b.Build(), nil
}
