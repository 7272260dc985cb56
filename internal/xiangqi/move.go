package xiangqi

import "strings"

// Move is a pair of coordinate strings as delivered on the wire.
type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Highlight is the decoded pair of squares for the last move.
type Highlight struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// ParseMove splits the 4-character wire form ("e0e1") into a Move.
func ParseMove(s string) (Move, error) {
	v := strings.TrimSpace(s)
	if len(v) != 4 {
		return Move{}, &MalformedMoveError{Input: s, Reason: "want 4 characters"}
	}
	return Move{From: v[:2], To: v[2:4]}, nil
}

// ParseSquare reads a coordinate: one lowercase file letter a-i followed by one rank digit 0-9.
func ParseSquare(coord string) (Square, error) {
	if len(coord) != 2 {
		return Square{}, &MalformedMoveError{Input: coord, Reason: "coordinate must be 2 characters"}
	}
	f := coord[0]
	if f < 'a' || f > 'i' {
		return Square{}, &MalformedMoveError{Input: coord, Reason: "file must be a-i"}
	}
	r := coord[1]
	if r < '0' || r > '9' {
		return Square{}, &MalformedMoveError{Input: coord, Reason: "rank must be 0-9"}
	}
	return Square{File: int(f - 'a'), Rank: int(r - '0')}, nil
}

// CoordinatesOf decodes both ends of a move.
func CoordinatesOf(m Move) (Highlight, error) {
	from, err := ParseSquare(m.From)
	if err != nil {
		return Highlight{}, err
	}
	to, err := ParseSquare(m.To)
	if err != nil {
		return Highlight{}, err
	}
	if from == to {
		return Highlight{}, &MalformedMoveError{Input: m.From + m.To, Reason: "from equals to"}
	}
	return Highlight{From: from, To: to}, nil
}

// HighlightOf is ParseMove followed by CoordinatesOf.
func HighlightOf(s string) (Highlight, error) {
	m, err := ParseMove(s)
	if err != nil {
		return Highlight{}, err
	}
	return CoordinatesOf(m)
}
