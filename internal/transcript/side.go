package transcript

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

type sideSource string

const (
	sourceExplicit  sideSource = "side"
	sourcePlayer    sideSource = "player"
	sourceNextColor sideSource = "player_color"
	sourceRoster    sideSource = "roster"
	sourceVendor    sideSource = "vendor_heuristic"
)

// sideHint collects what an event says about who produced it.
type sideHint struct {
	explicit string
	player   string
	// nextToMove is set for move_made only; the mover is its opposite.
	nextToMove string
}

var vendorMarkers = map[xiangqi.Side][]string{
	xiangqi.Red:   {"openai", "gpt", "o3"},
	xiangqi.Black: {"deepseek", "claude"},
}

// resolveSide must be called with r.mu held.
func (r *Reconciler) resolveSide(event string, h sideHint) (xiangqi.Side, bool) {
	if s, ok := xiangqi.ParseSide(strings.TrimSpace(h.explicit)); ok {
		return s, true
	}
	player := strings.TrimSpace(h.player)
	if s, ok := xiangqi.ParseSide(player); ok {
		r.logFallback(event, sourcePlayer, s, player)
		return s, true
	}
	if s, ok := xiangqi.ParseSide(strings.TrimSpace(h.nextToMove)); ok {
		r.logFallback(event, sourceNextColor, s.Opposite(), player)
		return s.Opposite(), true
	}
	if s, ok := r.match.Roster.lookup(player); ok {
		r.logFallback(event, sourceRoster, s, player)
		return s, true
	}
	if s, ok := vendorSide(player); ok {
		obslog.L().Warn("side_vendor_heuristic",
			zap.String("event", event),
			zap.String("player", player),
			zap.String("side", string(s)))
		return s, true
	}
	return "", false
}

func (r *Reconciler) logFallback(event string, src sideSource, s xiangqi.Side, player string) {
	obslog.L().Debug("side_fallback",
		zap.String("event", event),
		zap.String("source", string(src)),
		zap.String("player", player),
		zap.String("side", string(s)))
}

func (r Roster) lookup(name string) (xiangqi.Side, bool) {
	if name == "" {
		return "", false
	}
	red := r.Red != "" && strings.EqualFold(strings.TrimSpace(r.Red), name)
	black := r.Black != "" && strings.EqualFold(strings.TrimSpace(r.Black), name)
	switch {
	case red && !black:
		return xiangqi.Red, true
	case black && !red:
		return xiangqi.Black, true
	default:
		return "", false
	}
}

// vendorSide matches model-name fragments. It only answers when exactly one side matches.
func vendorSide(name string) (xiangqi.Side, bool) {
	if name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	var hit []xiangqi.Side
	for _, s := range []xiangqi.Side{xiangqi.Red, xiangqi.Black} {
		for _, m := range vendorMarkers[s] {
			if strings.Contains(lower, m) {
				hit = append(hit, s)
				break
			}
		}
	}
	if len(hit) != 1 {
		return "", false
	}
	return hit[0], true
}

// WinnerOf reads the side marker from a free-text result.
// Text naming both sides, or neither, has no winner.
func WinnerOf(result string) (xiangqi.Side, bool) {
	if result == "" {
		return "", false
	}
	red := strings.Contains(result, "红方")
	black := strings.Contains(result, "黑方")
	for _, w := range strings.FieldsFunc(strings.ToLower(result), func(r rune) bool {
		return !unicode.IsLetter(r) || r > unicode.MaxASCII
	}) {
		switch w {
		case "red":
			red = true
		case "black":
			black = true
		}
	}
	switch {
	case red && !black:
		return xiangqi.Red, true
	case black && !red:
		return xiangqi.Black, true
	default:
		return "", false
	}
}
