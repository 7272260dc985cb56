package xiangqi

import (
	"fmt"
	"strings"
)

const (
	Files = 9
	Ranks = 10

	// InitialBoard is the standard opening position, black's back rank first.
	InitialBoard = "rnbakabnr/........./.c.....c./p.p.p.p.p/........./........./P.P.P.P.P/.C.....C./........./RNBAKABNR"

	emptyCell = '.'
	separator = "/"
)

// Square is a board intersection. File 0 is 'a'; rank 0 is red's back rank.
type Square struct {
	File int `json:"file"`
	Rank int `json:"rank"`
}

func (s Square) Valid() bool {
	return s.File >= 0 && s.File < Files && s.Rank >= 0 && s.Rank < Ranks
}

// String returns the coordinate form, e.g. "e0".
func (s Square) String() string {
	if !s.Valid() {
		return "??"
	}
	return fmt.Sprintf("%c%d", 'a'+s.File, s.Rank)
}

// Placement is a piece standing on a square.
type Placement struct {
	Square Square `json:"square"`
	Piece  Piece  `json:"piece"`
}

// Decode parses a serialized board into placements ordered rank-major (rank 9 first), file-minor.
//
// Ranks that cannot be read (wrong length or an unknown character) are skipped and
// reported through a *MalformedBoardError alongside the placements that did decode.
// A wrong segment count is reported the same way; the segments that exist are still read.
func Decode(serialized string) ([]Placement, error) {
	segments := strings.Split(serialized, separator)
	var (
		out     []Placement
		skipped []int
	)
	for i, seg := range segments {
		if i >= Ranks {
			break
		}
		rank := Ranks - 1 - i
		row, ok := decodeRank(seg, rank)
		if !ok {
			skipped = append(skipped, rank)
			continue
		}
		out = append(out, row...)
	}

	if len(segments) == Ranks && len(skipped) == 0 {
		return out, nil
	}
	merr := &MalformedBoardError{Input: serialized, Segments: len(segments), Skipped: skipped}
	if len(segments) != Ranks {
		merr.Reason = fmt.Sprintf("expected %d ranks, got %d", Ranks, len(segments))
	} else {
		merr.Reason = "unreadable ranks"
	}
	return out, merr
}

func decodeRank(seg string, rank int) ([]Placement, bool) {
	runes := []rune(seg)
	if len(runes) != Files {
		return nil, false
	}
	var row []Placement
	for file, r := range runes {
		if r == emptyCell {
			continue
		}
		p, ok := ParsePiece(r)
		if !ok {
			return nil, false
		}
		row = append(row, Placement{Square: Square{File: file, Rank: rank}, Piece: p})
	}
	return row, true
}

// Encode serializes placements back into the board string. Squares not listed are empty.
func Encode(placements []Placement) (string, error) {
	var grid [Ranks][Files]rune
	for r := range grid {
		for f := range grid[r] {
			grid[r][f] = emptyCell
		}
	}
	for _, pl := range placements {
		if !pl.Square.Valid() {
			return "", fmt.Errorf("encode: square %d,%d off board", pl.Square.File, pl.Square.Rank)
		}
		letter := pl.Piece.Letter()
		if letter == '?' || !pl.Piece.Side.Valid() {
			return "", fmt.Errorf("encode: invalid piece at %s", pl.Square)
		}
		row := Ranks - 1 - pl.Square.Rank
		if grid[row][pl.Square.File] != emptyCell {
			return "", fmt.Errorf("encode: square %s occupied twice", pl.Square)
		}
		grid[row][pl.Square.File] = letter
	}
	segs := make([]string, Ranks)
	for i := range grid {
		segs[i] = string(grid[i][:])
	}
	return strings.Join(segs, separator), nil
}

// Initial returns the placements of InitialBoard.
func Initial() []Placement {
	out, _ := Decode(InitialBoard)
	return out
}

// FormatUnicode renders placements as a text board with rank 9 on top.
func FormatUnicode(placements []Placement) string {
	var grid [Ranks][Files]string
	for _, pl := range placements {
		if pl.Square.Valid() {
			grid[pl.Square.Rank][pl.Square.File] = pl.Piece.Glyph()
		}
	}
	const header = "  a b c d e f g h i"
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for rank := Ranks - 1; rank >= 0; rank-- {
		fmt.Fprintf(&b, "%d ", rank)
		for file := 0; file < Files; file++ {
			if g := grid[rank][file]; g != "" {
				b.WriteString(g)
			} else {
				b.WriteString("·")
			}
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d\n", rank)
	}
	b.WriteString(header)
	return b.String()
}
