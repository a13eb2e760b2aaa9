// Package idgen generates the UUIDs used as code-record and scan-event ids.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator generates unique identifiers. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate() (uuid.UUID, error)
}

// Func adapts a plain function to Generator.
type Func func() (uuid.UUID, error)

func (f Func) Generate() (uuid.UUID, error) { return f() }

// Fixed returns a Generator that always yields id.
func Fixed(id uuid.UUID) Generator {
	return Func(func() (uuid.UUID, error) { return id, nil })
}

type v7Gen struct {
	attempts int
}

type V7Option func(*v7Gen)

// WithRetries sets how many extra attempts follow a failed uuid.NewV7.
// Negative values are ignored.
func WithRetries(n int) V7Option {
	return func(g *v7Gen) {
		if n >= 0 {
			g.attempts = n + 1
		}
	}
}

// NewV7 returns a Generator of time-ordered UUID v7 values, so scan events
// appended in sequence land next to each other in the primary key index.
// One retry is made by default.
func NewV7(opts ...V7Option) Generator {
	g := &v7Gen{attempts: 2}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *v7Gen) Generate() (uuid.UUID, error) {
	var err error
	for range g.attempts {
		var id uuid.UUID
		if id, err = uuid.NewV7(); err == nil {
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("generate uuid v7 (%d attempts): %w", g.attempts, err)
}
