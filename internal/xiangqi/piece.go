package xiangqi

import "unicode"

// Side identifies a xiangqi army.
type Side string

const (
	Red   Side = "red"
	Black Side = "black"
)

// Opposite returns the other side. Unknown sides map to themselves.
func (s Side) Opposite() Side {
	switch s {
	case Red:
		return Black
	case Black:
		return Red
	default:
		return s
	}
}

func (s Side) Valid() bool { return s == Red || s == Black }

// ParseSide accepts "red"/"black" and the single-letter forms.
func ParseSide(v string) (Side, bool) {
	switch v {
	case "red", "r", "RED", "Red":
		return Red, true
	case "black", "b", "BLACK", "Black":
		return Black, true
	default:
		return "", false
	}
}

// Kind is a piece type.
type Kind int

const (
	General Kind = iota + 1
	Advisor
	Elephant
	Horse
	Chariot
	Cannon
	Soldier
)

var kindLetters = map[Kind]rune{
	General:  'k',
	Advisor:  'a',
	Elephant: 'b',
	Horse:    'n',
	Chariot:  'r',
	Cannon:   'c',
	Soldier:  'p',
}

var letterKinds = func() map[rune]Kind {
	m := make(map[rune]Kind, len(kindLetters))
	for k, r := range kindLetters {
		m[r] = k
	}
	return m
}()

func (k Kind) String() string {
	switch k {
	case General:
		return "general"
	case Advisor:
		return "advisor"
	case Elephant:
		return "elephant"
	case Horse:
		return "horse"
	case Chariot:
		return "chariot"
	case Cannon:
		return "cannon"
	case Soldier:
		return "soldier"
	default:
		return "unknown"
	}
}

// Kinds lists every piece type in encoding-table order.
func Kinds() []Kind {
	return []Kind{General, Advisor, Elephant, Horse, Chariot, Cannon, Soldier}
}

// Piece is a side-tagged piece.
type Piece struct {
	Kind Kind `json:"kind"`
	Side Side `json:"side"`
}

// Letter returns the serialization letter: uppercase for red, lowercase for black.
func (p Piece) Letter() rune {
	r, ok := kindLetters[p.Kind]
	if !ok {
		return '?'
	}
	if p.Side == Red {
		return unicode.ToUpper(r)
	}
	return r
}

// ParsePiece maps a board character to a piece. '.' and unknown letters report false.
func ParsePiece(r rune) (Piece, bool) {
	kind, ok := letterKinds[unicode.ToLower(r)]
	if !ok {
		return Piece{}, false
	}
	side := Black
	if unicode.IsUpper(r) {
		side = Red
	}
	return Piece{Kind: kind, Side: side}, true
}

var glyphs = map[Piece]string{
	{General, Red}: "帅", {Advisor, Red}: "仕", {Elephant, Red}: "相", {Horse, Red}: "马",
	{Chariot, Red}: "车", {Cannon, Red}: "炮", {Soldier, Red}: "兵",
	{General, Black}: "将", {Advisor, Black}: "士", {Elephant, Black}: "象", {Horse, Black}: "马",
	{Chariot, Black}: "车", {Cannon, Black}: "炮", {Soldier, Black}: "卒",
}

// Glyph returns the traditional character for the piece.
func (p Piece) Glyph() string {
	if g, ok := glyphs[p]; ok {
		return g
	}
	return string(p.Letter())
}
