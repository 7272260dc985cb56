package xiangqi

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeInitialBoard(t *testing.T) {
	placements, err := Decode(InitialBoard)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(placements) != 32 {
		t.Fatalf("expected 32 placements, got %d", len(placements))
	}
	red, black := 0, 0
	at := map[Square]Piece{}
	for _, pl := range placements {
		at[pl.Square] = pl.Piece
		if pl.Piece.Side == Red {
			red++
		} else {
			black++
		}
	}
	if red != 16 || black != 16 {
		t.Fatalf("expected 16/16, got red=%d black=%d", red, black)
	}
	if p := at[Square{File: 0, Rank: 0}]; p != (Piece{Kind: Chariot, Side: Red}) {
		t.Fatalf("a0: expected red chariot, got %+v", p)
	}
	if p := at[Square{File: 4, Rank: 9}]; p != (Piece{Kind: General, Side: Black}) {
		t.Fatalf("e9: expected black general, got %+v", p)
	}
	if p := at[Square{File: 1, Rank: 2}]; p != (Piece{Kind: Cannon, Side: Red}) {
		t.Fatalf("b2: expected red cannon, got %+v", p)
	}
}

func TestDecodeIsRankMajor(t *testing.T) {
	placements, err := Decode(InitialBoard)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 1; i < len(placements); i++ {
		prev, cur := placements[i-1].Square, placements[i].Square
		if cur.Rank > prev.Rank || (cur.Rank == prev.Rank && cur.File <= prev.File) {
			t.Fatalf("order broken at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	var in []Placement
	file := 0
	for _, side := range []Side{Red, Black} {
		for _, k := range Kinds() {
			rank := 1
			if side == Black {
				rank = 8
			}
			in = append(in, Placement{Square: Square{File: file % Files, Rank: rank + file/Files}, Piece: Piece{Kind: k, Side: side}})
			file++
		}
	}
	encoded, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(%q): %v", encoded, err)
	}
	if !reflect.DeepEqual(asMap(in), asMap(out)) {
		t.Fatalf("round trip mismatch:\n in=%v\nout=%v", in, out)
	}
}

func TestRoundTripInitial(t *testing.T) {
	encoded, err := Encode(Initial())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != InitialBoard {
		t.Fatalf("expected initial board, got %q", encoded)
	}
}

func TestEncodeRejectsDuplicate(t *testing.T) {
	sq := Square{File: 4, Rank: 0}
	_, err := Encode([]Placement{
		{Square: sq, Piece: Piece{Kind: General, Side: Red}},
		{Square: sq, Piece: Piece{Kind: Advisor, Side: Red}},
	})
	if err == nil {
		t.Fatalf("expected duplicate square error")
	}
}

func TestDecodeWrongSegmentCount(t *testing.T) {
	placements, err := Decode("bad")
	var merr *MalformedBoardError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedBoardError, got %v", err)
	}
	if len(placements) != 0 {
		t.Fatalf("expected no placements, got %d", len(placements))
	}
	if merr.Segments != 1 {
		t.Fatalf("expected 1 segment, got %d", merr.Segments)
	}
}

func TestDecodeSkipsBadRanks(t *testing.T) {
	segs := strings.Split(InitialBoard, "/")
	segs[0] = "rnbak"     // too short
	segs[9] = "RNBAKABNX" // unknown letter
	placements, err := Decode(strings.Join(segs, "/"))
	var merr *MalformedBoardError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedBoardError, got %v", err)
	}
	if !reflect.DeepEqual(merr.Skipped, []int{9, 0}) {
		t.Fatalf("expected skipped ranks [9 0], got %v", merr.Skipped)
	}
	if len(placements) != 14 {
		t.Fatalf("expected 14 placements from surviving ranks, got %d", len(placements))
	}
}

func TestFormatUnicode(t *testing.T) {
	text := FormatUnicode(Initial())
	lines := strings.Split(text, "\n")
	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "9 车 马 象 士 将") {
		t.Fatalf("unexpected top rank: %q", lines[1])
	}
	if !strings.HasPrefix(lines[10], "0 车 马 相 仕 帅") {
		t.Fatalf("unexpected bottom rank: %q", lines[10])
	}
}

func asMap(ps []Placement) map[Square]Piece {
	m := make(map[Square]Piece, len(ps))
	for _, p := range ps {
		m[p.Square] = p.Piece
	}
	return m
}
