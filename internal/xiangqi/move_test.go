package xiangqi

import (
	"errors"
	"testing"
)

func TestHighlightOf(t *testing.T) {
	h, err := HighlightOf("e0e1")
	if err != nil {
		t.Fatalf("HighlightOf: %v", err)
	}
	if h.From != (Square{File: 4, Rank: 0}) || h.To != (Square{File: 4, Rank: 1}) {
		t.Fatalf("unexpected highlight: %+v", h)
	}
	if h.From.String() != "e0" || h.To.String() != "e1" {
		t.Fatalf("unexpected coordinates: %s %s", h.From, h.To)
	}
}

func TestCoordinatesOfMalformed(t *testing.T) {
	cases := []struct {
		name string
		move Move
	}{
		{"short", Move{From: "e", To: "e1"}},
		{"file out of range", Move{From: "j0", To: "e1"}},
		{"rank not digit", Move{From: "ex", To: "e1"}},
		{"same square", Move{From: "e0", To: "e0"}},
		{"uppercase file", Move{From: "E0", To: "e1"}},
		{"trailing characters", Move{From: "e0x", To: "e1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CoordinatesOf(tc.move)
			var merr *MalformedMoveError
			if !errors.As(err, &merr) {
				t.Fatalf("expected MalformedMoveError, got %v", err)
			}
		})
	}
}

func TestParseMoveLength(t *testing.T) {
	for _, in := range []string{"e0e", "e0e1zz", ""} {
		if _, err := ParseMove(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if m, err := ParseMove(" e0e1 "); err != nil || m.From != "e0" || m.To != "e1" {
		t.Fatalf("surrounding space should be trimmed: %+v %v", m, err)
	}
}

func TestParseSideAndOpposite(t *testing.T) {
	s, ok := ParseSide("black")
	if !ok || s != Black || s.Opposite() != Red {
		t.Fatalf("unexpected side parse: %v %v", s, ok)
	}
	if _, ok := ParseSide("DeepSeek"); ok {
		t.Fatalf("display names must not parse as sides")
	}
}
