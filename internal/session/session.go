package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/arenafast"
	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

// Controller is the orchestrator's control surface.
type Controller interface {
	StartBattle(ctx context.Context, req arenadto.StartBattleRequest) (arenadto.ControlResult, error)
	StopBattle(ctx context.Context) (arenadto.ControlResult, error)
	Status(ctx context.Context) (arenadto.BattleStatus, error)
}

// Publisher receives a view snapshot after every applied event.
type Publisher interface {
	Publish(ctx context.Context, v transcript.View) error
	Clear(ctx context.Context) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, transcript.View) error { return nil }
func (NopPublisher) Clear(context.Context) error                    { return nil }

const publishTimeout = 2 * time.Second

type item struct {
	ev        arenadto.Event
	transport error
}

// Session owns the reconciler and is its only writer for stream events: Run drains one channel.
type Session struct {
	rec  *transcript.Reconciler
	ctrl Controller
	pub  Publisher

	events chan item

	// ctlM serializes control calls. pubM is held across View+Publish
	// and across every reset+Clear.
	ctlM sync.Mutex
	pubM sync.Mutex
}

func New(rec *transcript.Reconciler, ctrl Controller, pub Publisher, buffer int) *Session {
	if pub == nil {
		pub = NopPublisher{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Session{rec: rec, ctrl: ctrl, pub: pub, events: make(chan item, buffer)}
}

func (s *Session) Reconciler() *transcript.Reconciler { return s.rec }

func (s *Session) View() transcript.View { return s.rec.View() }

// Deliver enqueues an event. It blocks while the buffer is full so stream order is kept.
func (s *Session) Deliver(ev arenadto.Event) {
	if ev == nil {
		return
	}
	s.events <- item{ev: ev}
}

// Attach wires a stream's callbacks to Deliver. A terminal stream failure becomes a transport notice.
// The returned func removes both callbacks.
func (s *Session) Attach(st arenafast.Stream) (detach func()) {
	evID := st.OnEvent(s.Deliver)
	stateID := st.OnStateChange(func(state arenafast.WebSocketState) {
		obslog.L().Info("arena_stream_state", zap.String("state", state.String()))
		if state != arenafast.WSStateFailed {
			return
		}
		cause := st.LastError()
		if cause == nil {
			cause = fmt.Errorf("event stream closed")
		}
		s.events <- item{transport: &arenafast.TransportError{Op: "stream", Err: cause}}
	})
	return func() {
		st.RemoveEventCallback(evID)
		st.RemoveStateCallback(stateID)
	}
}

// Run is the single dispatcher. It returns when ctx is done.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it := <-s.events:
			s.apply(it)
			s.publish(ctx)
		}
	}
}

func (s *Session) apply(it item) {
	if it.transport != nil {
		if !s.rec.Playing() {
			obslog.L().Warn("arena_stream_failed_idle", zap.Error(it.transport))
			return
		}
		s.rec.ApplyTransportFailure(it.transport)
		return
	}
	var err error
	switch ev := it.ev.(type) {
	case arenadto.ThinkingEvent:
		err = s.rec.ApplyThinking(ev)
	case arenadto.ThinkingStreamEvent:
		err = s.rec.ApplyStream(ev)
	case arenadto.MoveMadeEvent:
		err = s.rec.ApplyMove(ev)
	case arenadto.GameOverEvent:
		err = s.rec.ApplyGameOver(ev)
	case arenadto.GameErrorEvent:
		err = s.rec.ApplyGameError(ev)
	default:
		obslog.L().Warn("event_unhandled", zap.String("type", fmt.Sprintf("%T", it.ev)))
		return
	}
	if err != nil {
		obslog.L().Debug("event_absorbed", zap.String("event", it.ev.EventName()), zap.Error(err))
	}
}

func (s *Session) publish(ctx context.Context) {
	s.pubM.Lock()
	defer s.pubM.Unlock()
	s.publishLocked(ctx)
}

func (s *Session) publishLocked(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.pub.Publish(pctx, s.rec.View()); err != nil {
		obslog.L().Warn("view_publish_failed", zap.Error(err))
	}
}

func (s *Session) clearLocked(ctx context.Context) {
	if err := s.pub.Clear(ctx); err != nil {
		obslog.L().Warn("view_clear_failed", zap.Error(err))
	}
}

// Start validates, resets into a new match, then asks the orchestrator to start.
// The reset happens first so early events of the new match are not wiped afterwards.
// If the orchestrator refuses, the previous match is restored as it was.
func (s *Session) Start(ctx context.Context, req arenadto.StartBattleRequest) (arenadto.ControlResult, error) {
	if err := req.Validate(); err != nil {
		return arenadto.ControlResult{}, err
	}
	s.ctlM.Lock()
	defer s.ctlM.Unlock()

	req = req.Normalized()
	s.pubM.Lock()
	prev := s.rec.Checkpoint()
	id := s.rec.BeginMatch(transcript.Roster{Red: req.Red.DisplayName, Black: req.Black.DisplayName})
	s.clearLocked(ctx)
	s.pubM.Unlock()

	res, err := s.ctrl.StartBattle(ctx, req)
	if err != nil {
		s.pubM.Lock()
		s.rec.Restore(prev, err.Error())
		s.publishLocked(ctx)
		s.pubM.Unlock()
		obslog.L().Warn("match_start_failed", zap.String("session", id), zap.Error(err))
		return res, err
	}
	s.publish(ctx)
	return res, nil
}

func (s *Session) Stop(ctx context.Context) (arenadto.ControlResult, error) {
	s.ctlM.Lock()
	defer s.ctlM.Unlock()
	res, err := s.ctrl.StopBattle(ctx)
	if err != nil {
		return res, err
	}
	s.rec.Stop()
	s.publish(ctx)
	return res, nil
}

func (s *Session) Reset(ctx context.Context) {
	s.ctlM.Lock()
	defer s.ctlM.Unlock()
	s.pubM.Lock()
	defer s.pubM.Unlock()
	s.rec.Reset()
	s.clearLocked(ctx)
}

// Resync pulls get_battle_status and restores board and counters.
func (s *Session) Resync(ctx context.Context) (arenadto.BattleStatus, error) {
	st, err := s.ctrl.Status(ctx)
	if err != nil {
		return st, err
	}
	s.rec.Resync(st)
	s.publish(ctx)
	return st, nil
}
