package presenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

const logTimeLayout = "15:04:05"

// Formatter renders transcript views into plain-text blocks.
type Formatter struct {
	texts transcript.Texts
}

func NewFormatter(texts transcript.Texts) *Formatter {
	return &Formatter{texts: texts}
}

func (f *Formatter) text(key string, data any, fallback string) string {
	if f == nil || f.texts == nil {
		return fallback
	}
	return f.texts.Text(key, data, fallback)
}

// FormatDuration renders d as mm:ss. Minutes are not capped at 59.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func (f *Formatter) sideName(s xiangqi.Side) string {
	switch s {
	case xiangqi.Red:
		return f.text("side.red", nil, "red")
	case xiangqi.Black:
		return f.text("side.black", nil, "black")
	default:
		return ""
	}
}

func (f *Formatter) statusWord(m transcript.MatchState) string {
	switch {
	case m.Playing:
		return f.text("status.playing", nil, "playing")
	case m.LastError != "":
		return f.text("status.failed", nil, "failed")
	case m.Result != "":
		return f.text("status.finished", nil, "finished")
	default:
		return f.text("status.idle", nil, "idle")
	}
}

// Status is the game status line followed by the turn line while playing.
func (f *Formatter) Status(v transcript.View) string {
	word := f.statusWord(v.Match)
	var sb strings.Builder
	sb.WriteString(f.text("status.line", map[string]any{"Status": word}, word))
	if v.Match.Playing {
		round := v.Round
		if round < 1 {
			round = 1
		}
		side := f.sideName(v.Match.ToMove)
		sb.WriteString("\n")
		sb.WriteString(f.text("status.turn", map[string]any{"Round": round, "Side": side}, fmt.Sprintf("%d %s", round, side)))
	}
	if v.LastMove != "" {
		sb.WriteString("\n")
		sb.WriteString(v.LastMove)
	}
	return sb.String()
}

// Thinking lists transcript entries in append order.
func (f *Formatter) Thinking(v transcript.View) string {
	if reg, ok := v.Regions[transcript.RegionThinking]; ok && !reg.HasContent {
		return reg.Placeholder
	}
	var sb strings.Builder
	for i, e := range v.Entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch e.Kind {
		case transcript.KindSeparator, transcript.KindResult, transcript.KindError:
			sb.WriteString(e.Text)
		default:
			speaker := e.Speaker
			if speaker == "" {
				speaker = f.sideName(e.Side)
			}
			fmt.Fprintf(&sb, "[%s] %s", speaker, e.Text)
			if e.Open {
				sb.WriteString(" …")
			}
		}
	}
	return sb.String()
}

// History numbers the orchestrator's recent-move window by ply: "n." for red, "n..." for black.
// The window ends at Match.MoveCount, so numbering continues past the first ten moves.
func (f *Formatter) History(v transcript.View) string {
	items := v.Match.Recent
	if len(items) == 0 {
		return f.placeholder(v, transcript.RegionHistory)
	}
	first := v.Match.MoveCount - len(items) + 1
	if first < 1 {
		first = 1
	}
	lines := make([]string, 0, len(items))
	for i, it := range items {
		ply := first + i
		mark := "."
		if ply%2 == 0 {
			mark = "..."
		}
		lines = append(lines, fmt.Sprintf("%d%s %s (%s)", (ply+1)/2, mark, it.Move, it.Player))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) BattleLog(v transcript.View) string {
	if len(v.BattleLog) == 0 {
		return f.placeholder(v, transcript.RegionBattleLog)
	}
	lines := make([]string, 0, len(v.BattleLog))
	for _, l := range v.BattleLog {
		lines = append(lines, l.At.Format(logTimeLayout)+" "+l.Text)
	}
	return strings.Join(lines, "\n")
}

// Result is the end-of-match block. Duration is frozen at the match end.
func (f *Formatter) Result(v transcript.View) string {
	m := v.Match
	if m.Result == "" {
		return f.placeholder(v, transcript.RegionResult)
	}
	lines := []string{
		f.text("result.title", nil, "Result"),
		m.Result,
		f.text("result.total_moves", map[string]any{"TotalMoves": m.TotalMoves}, fmt.Sprintf("%d", m.TotalMoves)),
		f.text("result.duration", map[string]any{"Duration": FormatDuration(v.Elapsed)}, FormatDuration(v.Elapsed)),
	}
	if m.Winner.Valid() {
		name := m.Roster.Name(m.Winner)
		label := f.sideName(m.Winner)
		if name != "" {
			label = fmt.Sprintf("%s (%s)", name, label)
		}
		lines = append(lines, f.text("result.winner", map[string]any{"Winner": label}, label))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) placeholder(v transcript.View, name transcript.RegionName) string {
	if reg, ok := v.Regions[name]; ok && !reg.HasContent {
		return reg.Placeholder
	}
	return ""
}

// Header names both players, or is empty before any match.
func (f *Formatter) Header(v transcript.View) string {
	r := v.Match.Roster
	if r.Red == "" && r.Black == "" {
		return ""
	}
	return f.text("header", map[string]any{"Red": r.Red, "Black": r.Black}, r.Red+" vs "+r.Black)
}

// BoardText is the glyph board with rank 9 on top.
func (f *Formatter) BoardText(v transcript.View) string { return xiangqi.FormatUnicode(v.Board) }

// Transcript joins every section under its heading.
func (f *Formatter) Transcript(v transcript.View) string {
	var sb strings.Builder
	if h := f.Header(v); h != "" {
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	sb.WriteString(f.Status(v))
	sections := []struct {
		key, fallback string
		body          string
	}{
		{"section.board", "Board", f.BoardText(v)},
		{"section.thinking", "Thinking", f.Thinking(v)},
		{"section.history", "History", f.History(v)},
		{"section.battle_log", "Battle log", f.BattleLog(v)},
		{"section.result", "Result", f.Result(v)},
	}
	for _, s := range sections {
		sb.WriteString("\n\n== ")
		sb.WriteString(f.text(s.key, nil, s.fallback))
		sb.WriteString(" ==\n")
		sb.WriteString(s.body)
	}
	return sb.String()
}
