package xiangqi

import (
	"fmt"
	"strings"
)

// MalformedBoardError reports a board string that could not be fully decoded.
// Ranks listed in Skipped were dropped; all other ranks decoded normally.
type MalformedBoardError struct {
	Input    string
	Segments int
	Skipped  []int
	Reason   string
}

func (e *MalformedBoardError) Error() string {
	var b strings.Builder
	b.WriteString("malformed board")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Skipped) > 0 {
		parts := make([]string, len(e.Skipped))
		for i, r := range e.Skipped {
			parts[i] = fmt.Sprint(r)
		}
		b.WriteString(" (skipped ranks ")
		b.WriteString(strings.Join(parts, ","))
		b.WriteString(")")
	}
	return b.String()
}

// MalformedMoveError reports a move or coordinate string that does not match [a-i][0-9].
type MalformedMoveError struct {
	Input  string
	Reason string
}

func (e *MalformedMoveError) Error() string {
	return fmt.Sprintf("malformed move %q: %s", e.Input, e.Reason)
}
