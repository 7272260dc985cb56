package transcript

import (
	"time"

	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

type EntryKind string

const (
	KindSnapshot  EntryKind = "snapshot"
	KindStreamed  EntryKind = "streamed"
	KindSeparator EntryKind = "separator"
	KindResult    EntryKind = "result"
	KindError     EntryKind = "error"
)

// Entry is one rendered transcript record. Entries are displayed in append order.
type Entry struct {
	ID      string       `json:"id"`
	Kind    EntryKind    `json:"kind"`
	Side    xiangqi.Side `json:"side,omitempty"`
	Speaker string       `json:"speaker,omitempty"`
	At      time.Time    `json:"at"`
	Text    string       `json:"text"`
	// Open is true while a streamed entry still accepts deltas.
	Open bool `json:"open,omitempty"`
}

// StreamState is one player's streaming buffer. Active=false is the rest state.
type StreamState struct {
	Active bool   `json:"active"`
	Text   string `json:"text,omitempty"`
	entry  int
}

// Roster maps display names to sides for the current match.
type Roster struct {
	Red   string `json:"red,omitempty"`
	Black string `json:"black,omitempty"`
}

func (r Roster) Name(s xiangqi.Side) string {
	if s == xiangqi.Black {
		return r.Black
	}
	return r.Red
}

// MoveRecord is one confirmed move.
type MoveRecord struct {
	Side      xiangqi.Side `json:"side,omitempty"`
	Player    string       `json:"player"`
	Move      string       `json:"move"`
	MoveCount int          `json:"move_count"`
	At        time.Time    `json:"at"`
}

type LogKind string

const (
	LogMove   LogKind = "move"
	LogResult LogKind = "result"
	LogError  LogKind = "error"
)

// LogLine is one battle log record.
type LogLine struct {
	Kind LogKind   `json:"kind"`
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// MatchState is mutated only on confirmed orchestrator events.
type MatchState struct {
	SessionID      string                 `json:"session_id,omitempty"`
	Playing        bool                   `json:"playing"`
	MoveCount      int                    `json:"move_count"`
	StartTime      time.Time              `json:"start_time,omitempty"`
	EndTime        time.Time              `json:"end_time,omitempty"`
	LastBoardState string                 `json:"last_board_state,omitempty"`
	ToMove         xiangqi.Side           `json:"to_move,omitempty"`
	Moves          []MoveRecord           `json:"moves,omitempty"`
	Recent         []arenadto.HistoryItem `json:"recent,omitempty"`
	Roster         Roster                 `json:"roster"`
	Result         string                 `json:"result,omitempty"`
	TotalMoves     int                    `json:"total_moves,omitempty"`
	Winner         xiangqi.Side           `json:"winner,omitempty"`
	LastError      string                 `json:"last_error,omitempty"`
}

// Round is ceil(MoveCount/2).
func (m MatchState) Round() int { return (m.MoveCount + 1) / 2 }

// Duration is the elapsed match time, frozen once the match ends.
func (m MatchState) Duration(now time.Time) time.Duration {
	if m.StartTime.IsZero() {
		return 0
	}
	end := now
	if !m.EndTime.IsZero() {
		end = m.EndTime
	}
	if end.Before(m.StartTime) {
		return 0
	}
	return end.Sub(m.StartTime)
}

func (m MatchState) clone() MatchState {
	out := m
	out.Moves = append([]MoveRecord(nil), m.Moves...)
	out.Recent = append([]arenadto.HistoryItem(nil), m.Recent...)
	return out
}

// Region is a display area with an explicit content flag.
// Placeholder is set only while HasContent is false.
type Region struct {
	HasContent  bool   `json:"has_content"`
	Placeholder string `json:"placeholder,omitempty"`
}

// View is a deep-copied, render-ready snapshot of the reconciler.
type View struct {
	Version   uint64                       `json:"version"`
	UpdatedAt time.Time                    `json:"updated_at"`
	Match     MatchState                   `json:"match"`
	Round     int                          `json:"round"`
	Elapsed   time.Duration                `json:"elapsed"`
	Entries   []Entry                      `json:"entries"`
	Streams   map[xiangqi.Side]StreamState `json:"streams"`
	Board     []xiangqi.Placement          `json:"board"`
	Highlight *xiangqi.Highlight           `json:"highlight,omitempty"`
	LastMove  string                       `json:"last_move"`
	BattleLog []LogLine                    `json:"battle_log"`
	Regions   map[RegionName]Region        `json:"regions"`
}

type RegionName string

const (
	RegionThinking  RegionName = "thinking"
	RegionHistory   RegionName = "history"
	RegionBattleLog RegionName = "battle_log"
	RegionResult    RegionName = "result"
)

// Texts supplies display strings; *msgcat.Catalog satisfies it.
type Texts interface {
	Text(key string, data any, fallback string) string
}

type fallbackTexts struct{}

func (fallbackTexts) Text(_ string, _ any, fallback string) string { return fallback }
