package transcript

import (
	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

// Checkpoint is a deep copy of the reconciler state, taken before an unconfirmed control action.
type Checkpoint struct {
	streams   map[xiangqi.Side]StreamState
	entries   []Entry
	match     MatchState
	board     []xiangqi.Placement
	highlight *xiangqi.Highlight
	lastMove  string
	log       []LogLine
	content   map[RegionName]bool
}

func (r *Reconciler) Checkpoint() Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := Checkpoint{
		streams:  make(map[xiangqi.Side]StreamState, len(r.streams)),
		entries:  append([]Entry(nil), r.entries...),
		match:    r.match.clone(),
		board:    append([]xiangqi.Placement(nil), r.board...),
		lastMove: r.lastMove,
		log:      append([]LogLine(nil), r.log...),
		content:  make(map[RegionName]bool, len(r.content)),
	}
	for s, st := range r.streams {
		cp.streams[s] = *st
	}
	for k, v := range r.content {
		cp.content[k] = v
	}
	if r.highlight != nil {
		h := *r.highlight
		cp.highlight = &h
	}
	return cp
}

// Restore puts cp back and records reason as the last error.
// The view version keeps increasing so mirrors see the restore as a new snapshot.
func (r *Reconciler) Restore(cp Checkpoint, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams = make(map[xiangqi.Side]*StreamState, len(bothSides))
	for _, s := range bothSides {
		st := cp.streams[s]
		r.streams[s] = &st
	}
	r.entries = append([]Entry(nil), cp.entries...)
	r.match = cp.match.clone()
	r.match.LastError = reason
	r.board = append([]xiangqi.Placement(nil), cp.board...)
	r.highlight = nil
	if cp.highlight != nil {
		h := *cp.highlight
		r.highlight = &h
	}
	r.lastMove = cp.lastMove
	r.log = append([]LogLine(nil), cp.log...)
	r.content = make(map[RegionName]bool, len(cp.content))
	for k, v := range cp.content {
		r.content[k] = v
	}
	r.touch()
	obslog.L().Info("transcript_restored",
		zap.String("session", r.match.SessionID),
		zap.Int("move_count", r.match.MoveCount))
}
