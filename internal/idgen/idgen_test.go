package idgen

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestV7_Generate(t *testing.T) {
	gen := NewV7()

	seen := make(map[uuid.UUID]struct{}, 100)
	var prev uuid.UUID
	for range 100 {
		id, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if id.Version() != 7 {
			t.Fatalf("UUID version = %d, want 7", id.Version())
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate UUID %v", id)
		}
		seen[id] = struct{}{}

		if prev != uuid.Nil && id.String() < prev.String() {
			t.Errorf("v7 ids not monotonic: %v after %v", id, prev)
		}
		prev = id
	}
}

func TestWithRetries(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"negative keeps default", -1, 2},
		{"zero disables retries", 0, 1},
		{"custom", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewV7(WithRetries(tt.n)).(*v7Gen)
			if g.attempts != tt.want {
				t.Errorf("attempts = %d, want %d", g.attempts, tt.want)
			}
		})
	}
}

func TestFixedAndFunc(t *testing.T) {
	want := uuid.MustParse("0192f0c1-7a52-7c3e-9f1a-2b3c4d5e6f70")
	for range 3 {
		got, err := Fixed(want).Generate()
		if err != nil || got != want {
			t.Fatalf("Fixed().Generate() = %v, %v", got, err)
		}
	}

	boom := errors.New("entropy exhausted")
	if _, err := Func(func() (uuid.UUID, error) { return uuid.Nil, boom }).Generate(); !errors.Is(err, boom) {
		t.Errorf("Func error = %v, want %v", err, boom)
	}
}
