package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

var bothSides = [...]xiangqi.Side{xiangqi.Red, xiangqi.Black}

// Reconciler rebuilds the per-player transcript, board and match state from arena events.
// All methods are serialized on one mutex.
type Reconciler struct {
	mu    sync.Mutex
	texts Texts
	now   func() time.Time

	streams   map[xiangqi.Side]*StreamState
	entries   []Entry
	match     MatchState
	board     []xiangqi.Placement
	highlight *xiangqi.Highlight
	lastMove  string
	log       []LogLine
	content   map[RegionName]bool
	version   uint64
	updatedAt time.Time
}

type Option func(*Reconciler)

func WithTexts(t Texts) Option {
	return func(r *Reconciler) {
		if t != nil {
			r.texts = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{texts: fallbackTexts{}, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	r.resetLocked()
	return r
}

// Reset forces both streams to rest without separators and clears all match state.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	obslog.L().Info("transcript_reset")
}

// BeginMatch resets and marks a new match as playing. It returns the new session id.
func (r *Reconciler) BeginMatch(roster Roster) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	r.match.SessionID = uuid.NewString()
	r.match.Playing = true
	r.match.StartTime = r.now()
	r.match.Roster = Roster{Red: strings.TrimSpace(roster.Red), Black: strings.TrimSpace(roster.Black)}
	r.match.ToMove = xiangqi.Red
	obslog.L().Info("match_begin",
		zap.String("session", r.match.SessionID),
		zap.String("red", r.match.Roster.Red),
		zap.String("black", r.match.Roster.Black))
	return r.match.SessionID
}

// Stop marks the match inactive and force-closes both streams.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeAll()
	r.finish()
	r.touch()
}

// Resync restores board and counters from an orchestrator status reply.
func (r *Reconciler) Resync(st arenadto.BattleStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !st.Active() {
		if r.match.Playing {
			r.closeAll()
			r.finish()
			r.touch()
		}
		return
	}
	if r.match.SessionID == "" {
		r.match.SessionID = uuid.NewString()
	}
	if r.match.StartTime.IsZero() {
		r.match.StartTime = r.now()
	}
	if st.IsGameOver {
		r.closeAll()
		r.match.Playing = false
		if r.match.EndTime.IsZero() {
			r.match.EndTime = r.now()
		}
	} else {
		r.match.Playing = true
		r.match.EndTime = time.Time{}
	}
	if st.MoveCount > r.match.MoveCount {
		r.match.MoveCount = st.MoveCount
	}
	if s, ok := xiangqi.ParseSide(st.CurrentPlayer); ok {
		r.match.ToMove = s
	}
	if st.BoardState != "" {
		r.applyBoard(st.BoardState)
	}
	r.touch()
	obslog.L().Info("match_resync",
		zap.String("session", r.match.SessionID),
		zap.Int("move_count", r.match.MoveCount))
}

// ApplyThinking appends a standalone snapshot entry. Streams are untouched.
func (r *Reconciler) ApplyThinking(ev arenadto.ThinkingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	side, ok := r.resolveSide(arenadto.EventThinking, sideHint{explicit: ev.Side, player: ev.Player})
	if !ok {
		return r.dropUnresolved(arenadto.EventThinking, ev.Player)
	}
	if strings.TrimSpace(ev.Message) == "" {
		return nil
	}
	r.appendEntry(Entry{Kind: KindSnapshot, Side: side, Speaker: r.speaker(side, ev.Player), Text: ev.Message})
	r.touch()
	return nil
}

// ApplyStream routes a delta or completion to the player's own stream.
// A completion with no open stream returns ErrOrphanedCompletion and changes nothing.
func (r *Reconciler) ApplyStream(ev arenadto.ThinkingStreamEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	side, ok := r.resolveSide(arenadto.EventThinkingStream, sideHint{explicit: ev.Side, player: ev.Player})
	if !ok {
		return r.dropUnresolved(arenadto.EventThinkingStream, ev.Player)
	}
	if ev.IsComplete {
		if !r.closeStream(side) {
			obslog.L().Debug("stream_orphaned_completion", zap.String("side", string(side)))
			return ErrOrphanedCompletion
		}
		r.touch()
		return nil
	}
	if ev.Content == "" {
		return nil
	}
	st := r.streams[side]
	if !st.Active {
		st.Active = true
		st.Text = ev.Content
		st.entry = r.appendEntry(Entry{
			Kind:    KindStreamed,
			Side:    side,
			Speaker: r.speaker(side, ev.Player),
			Text:    ev.Content,
			Open:    true,
		})
		obslog.L().Debug("stream_open", zap.String("side", string(side)))
	} else {
		st.Text += ev.Content
		r.entries[st.entry].Text = st.Text
	}
	r.touch()
	return nil
}

// ApplyMove closes any open thinking, then applies board, highlight, history and counters.
func (r *Reconciler) ApplyMove(ev arenadto.MoveMadeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	side, resolved := r.resolveSide(arenadto.EventMoveMade, sideHint{
		explicit:   ev.Side,
		player:     ev.Player,
		nextToMove: ev.PlayerColor,
	})
	r.closeAll()

	if ev.BoardState != "" {
		r.applyBoard(ev.BoardState)
	}
	if h, err := xiangqi.HighlightOf(ev.Move); err != nil {
		r.highlight = nil
		obslog.L().Warn("move_highlight_suppressed", zap.String("move", ev.Move), zap.Error(err))
	} else {
		r.highlight = &h
	}

	count := ev.MoveCount
	if count <= 0 {
		count = r.match.MoveCount + 1
	}
	r.match.MoveCount = count
	now := r.now()
	speaker := r.speaker(side, ev.Player)
	r.match.Moves = append(r.match.Moves, MoveRecord{Side: side, Player: speaker, Move: ev.Move, MoveCount: count, At: now})
	if ev.History != nil {
		r.match.Recent = append([]arenadto.HistoryItem(nil), ev.History...)
	} else {
		r.match.Recent = append(r.match.Recent, arenadto.HistoryItem{Player: speaker, Move: ev.Move})
	}
	r.content[RegionHistory] = true

	if next, ok := xiangqi.ParseSide(ev.PlayerColor); ok {
		r.match.ToMove = next
	} else if resolved {
		r.match.ToMove = side.Opposite()
	}

	data := map[string]any{"Player": speaker, "Move": ev.Move}
	r.lastMove = r.texts.Text("last_move", data, fmt.Sprintf("%s: %s", speaker, ev.Move))
	r.appendLog(LogMove, r.texts.Text("log.move", data, fmt.Sprintf("%s %s", speaker, ev.Move)))

	if resolved && strings.TrimSpace(ev.Thinking) != "" {
		r.appendEntry(Entry{Kind: KindSnapshot, Side: side, Speaker: speaker, Text: ev.Thinking})
	}
	r.touch()

	obslog.L().Info("move_applied",
		zap.String("side", string(side)),
		zap.String("move", ev.Move),
		zap.Int("move_count", count))
	if !resolved {
		obslog.L().Warn("move_side_unresolved", zap.String("player", ev.Player))
	}
	return nil
}

// ApplyGameOver ends the match and appends the terminal entry.
func (r *Reconciler) ApplyGameOver(ev arenadto.GameOverEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeAll()
	r.finish()
	r.match.Result = ev.Result
	r.match.TotalMoves = ev.TotalMoves
	if ev.TotalMoves > r.match.MoveCount {
		r.match.MoveCount = ev.TotalMoves
	}
	if w, ok := WinnerOf(ev.Result); ok {
		r.match.Winner = w
	}
	data := map[string]any{"Result": ev.Result}
	r.appendEntry(Entry{Kind: KindResult, Text: r.texts.Text("transcript.result", data, ev.Result)})
	r.appendLog(LogResult, r.texts.Text("log.game_over", data, ev.Result))
	r.content[RegionResult] = true
	r.touch()
	obslog.L().Info("match_over",
		zap.String("session", r.match.SessionID),
		zap.String("result", ev.Result),
		zap.String("winner", string(r.match.Winner)),
		zap.Int("total_moves", ev.TotalMoves))
	return nil
}

// ApplyGameError ends the match and surfaces the message. Board and history are kept.
func (r *Reconciler) ApplyGameError(ev arenadto.GameErrorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail(ev.Message, "log.game_error")
	obslog.L().Warn("match_error", zap.String("session", r.match.SessionID), zap.String("message", ev.Message))
	return nil
}

// ApplyTransportFailure is ApplyGameError for a lost event stream.
func (r *Reconciler) ApplyTransportFailure(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail(err.Error(), "log.transport")
	obslog.L().Warn("match_transport_lost", zap.String("session", r.match.SessionID), zap.Error(err))
}

// Playing reports whether a match is in progress.
func (r *Reconciler) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.Playing
}

// View returns a deep copy of the current state.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	v := View{
		Version:   r.version,
		UpdatedAt: r.updatedAt,
		Match:     r.match.clone(),
		Round:     r.match.Round(),
		Elapsed:   r.match.Duration(now),
		Entries:   append([]Entry(nil), r.entries...),
		Streams:   make(map[xiangqi.Side]StreamState, len(r.streams)),
		Board:     append([]xiangqi.Placement(nil), r.board...),
		LastMove:  r.lastMove,
		BattleLog: append([]LogLine(nil), r.log...),
		Regions:   make(map[RegionName]Region, 4),
	}
	for s, st := range r.streams {
		v.Streams[s] = *st
	}
	if r.highlight != nil {
		h := *r.highlight
		v.Highlight = &h
	}
	if v.LastMove == "" {
		v.LastMove = r.texts.Text("placeholder.last_move", nil, "")
	}
	for name, key := range map[RegionName]string{
		RegionThinking:  "placeholder.thinking",
		RegionHistory:   "placeholder.history",
		RegionBattleLog: "placeholder.battle_log",
		RegionResult:    "placeholder.result",
	} {
		reg := Region{HasContent: r.content[name]}
		if !reg.HasContent {
			reg.Placeholder = r.texts.Text(key, nil, "")
		}
		v.Regions[name] = reg
	}
	return v
}

func (r *Reconciler) resetLocked() {
	r.streams = map[xiangqi.Side]*StreamState{
		xiangqi.Red:   {},
		xiangqi.Black: {},
	}
	r.entries = nil
	r.match = MatchState{LastBoardState: xiangqi.InitialBoard}
	r.board = xiangqi.Initial()
	r.highlight = nil
	r.lastMove = ""
	r.log = nil
	r.content = make(map[RegionName]bool, 4)
	r.touch()
}

// closeStream closes side's open entry and appends one separator. It reports whether a stream was open.
func (r *Reconciler) closeStream(side xiangqi.Side) bool {
	st := r.streams[side]
	if !st.Active {
		return false
	}
	r.entries[st.entry].Open = false
	r.entries[st.entry].Text = st.Text
	r.appendEntry(Entry{
		Kind:    KindSeparator,
		Side:    side,
		Speaker: r.entries[st.entry].Speaker,
		Text:    r.texts.Text("transcript.separator", nil, "---"),
	})
	*st = StreamState{}
	obslog.L().Debug("stream_close", zap.String("side", string(side)))
	return true
}

func (r *Reconciler) closeAll() {
	for _, s := range bothSides {
		if r.closeStream(s) {
			obslog.L().Debug("stream_force_closed", zap.String("side", string(s)))
		}
	}
}

func (r *Reconciler) finish() {
	if r.match.Playing {
		r.match.EndTime = r.now()
	}
	r.match.Playing = false
}

func (r *Reconciler) fail(message, logKey string) {
	r.closeAll()
	r.finish()
	r.match.LastError = message
	data := map[string]any{"Message": message}
	r.appendEntry(Entry{Kind: KindError, Text: r.texts.Text("transcript.error", data, message)})
	r.appendLog(LogError, r.texts.Text(logKey, data, message))
	r.touch()
}

func (r *Reconciler) applyBoard(state string) {
	placements, err := xiangqi.Decode(state)
	if err != nil {
		obslog.L().Warn("board_decode_partial",
			zap.Int("placements", len(placements)),
			zap.Error(err))
	}
	r.board = placements
	r.match.LastBoardState = state
}

func (r *Reconciler) appendEntry(e Entry) int {
	e.ID = uuid.NewString()
	if e.At.IsZero() {
		e.At = r.now()
	}
	r.entries = append(r.entries, e)
	if e.Kind == KindSnapshot || e.Kind == KindStreamed {
		r.content[RegionThinking] = true
	}
	return len(r.entries) - 1
}

func (r *Reconciler) appendLog(kind LogKind, text string) {
	r.log = append(r.log, LogLine{Kind: kind, At: r.now(), Text: text})
	r.content[RegionBattleLog] = true
}

func (r *Reconciler) speaker(side xiangqi.Side, player string) string {
	if p := strings.TrimSpace(player); p != "" {
		if _, isSide := xiangqi.ParseSide(p); !isSide {
			return p
		}
	}
	if side.Valid() {
		if name := r.match.Roster.Name(side); name != "" {
			return name
		}
		return string(side)
	}
	return strings.TrimSpace(player)
}

func (r *Reconciler) dropUnresolved(event, player string) error {
	obslog.L().Warn("event_side_unresolved", zap.String("event", event), zap.String("player", player))
	return fmt.Errorf("%s from %q: %w", event, player, ErrUnresolvedSide)
}

func (r *Reconciler) touch() {
	r.version++
	r.updatedAt = r.now()
}
