package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/xiangqi-arena-viewer/internal/arenafast"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

type fakeController struct {
	startErr error
	started  int
	status   arenadto.BattleStatus
}

func (f *fakeController) StartBattle(_ context.Context, req arenadto.StartBattleRequest) (arenadto.ControlResult, error) {
	f.started++
	if f.startErr != nil {
		return arenadto.ControlResult{Status: arenadto.StatusError}, f.startErr
	}
	return arenadto.ControlResult{Status: arenadto.StatusSuccess}, nil
}

func (f *fakeController) StopBattle(context.Context) (arenadto.ControlResult, error) {
	return arenadto.ControlResult{Status: arenadto.StatusSuccess}, nil
}

func (f *fakeController) Status(context.Context) (arenadto.BattleStatus, error) {
	return f.status, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	views   []transcript.View
	cleared int
}

func (p *recordingPublisher) Publish(_ context.Context, v transcript.View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = append(p.views, v)
	return nil
}

func (p *recordingPublisher) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared++
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.views)
}

func validRequest() arenadto.StartBattleRequest {
	return arenadto.StartBattleRequest{
		Red:   arenadto.PlayerConfig{ModelName: "m1", APIKey: "k", DisplayName: "Red AI"},
		Black: arenadto.PlayerConfig{ModelName: "m2", APIKey: "k", DisplayName: "Black AI"},
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunAppliesEventsInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(transcript.New(), &fakeController{}, pub, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	if _, err := s.Start(ctx, validRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Deliver(arenadto.ThinkingStreamEvent{Player: "Red AI", Content: "A"})
	s.Deliver(arenadto.ThinkingStreamEvent{Player: "Black AI", Content: "1"})
	s.Deliver(arenadto.ThinkingStreamEvent{Player: "Red AI", Content: "B"})
	s.Deliver(arenadto.MoveMadeEvent{Player: "Red AI", PlayerColor: "black", Move: "b2e2", MoveCount: 1})

	// Start publishes once, then one publish per event
	waitFor(t, func() bool { return pub.count() >= 5 })
	v := s.Reconciler().View()
	var red, black string
	for _, e := range v.Entries {
		if e.Kind != transcript.KindStreamed {
			continue
		}
		switch e.Side {
		case xiangqi.Red:
			red += e.Text
		case xiangqi.Black:
			black += e.Text
		}
	}
	if red != "AB" || black != "1" {
		t.Fatalf("unexpected transcript red=%q black=%q", red, black)
	}
	if v.Match.MoveCount != 1 || v.Streams[xiangqi.Red].Active || v.Streams[xiangqi.Black].Active {
		t.Fatalf("move not applied: %+v", v.Match)
	}
}

func TestStartValidationFailsSynchronously(t *testing.T) {
	ctrl := &fakeController{}
	s := New(transcript.New(), ctrl, nil, 1)
	req := validRequest()
	req.Black.APIKey = ""
	_, err := s.Start(context.Background(), req)
	var verr *arenadto.ConfigValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ctrl.started != 0 || s.Reconciler().Playing() {
		t.Fatalf("match must not start on validation failure")
	}
}

func TestStartFailureMarksInactive(t *testing.T) {
	ctrl := &fakeController{startErr: &arenadto.ControlFailure{Message: "busy"}}
	pub := &recordingPublisher{}
	s := New(transcript.New(), ctrl, pub, 1)
	if _, err := s.Start(context.Background(), validRequest()); err == nil {
		t.Fatalf("expected start failure")
	}
	v := s.Reconciler().View()
	if v.Match.Playing || v.Match.LastError != "busy" {
		t.Fatalf("unexpected match after failed start: %+v", v.Match)
	}
	if pub.cleared != 1 {
		t.Fatalf("expected published view cleared on start")
	}
}

func TestStreamFailureBecomesTransportNotice(t *testing.T) {
	s := New(transcript.New(), &fakeController{}, nil, 4)
	s.Reconciler().BeginMatch(transcript.Roster{Red: "a", Black: "b"})
	s.apply(item{transport: &arenafast.TransportError{Op: "stream", Err: errors.New("eof")}})
	v := s.Reconciler().View()
	if v.Match.Playing || v.Match.LastError == "" {
		t.Fatalf("transport failure should end the match: %+v", v.Match)
	}
	if v.Entries[len(v.Entries)-1].Kind != transcript.KindError {
		t.Fatalf("expected an error entry")
	}
}

func TestResyncRestoresBoard(t *testing.T) {
	ctrl := &fakeController{status: arenadto.BattleStatus{Status: arenadto.BattleActive, BoardState: xiangqi.InitialBoard, MoveCount: 3}}
	s := New(transcript.New(), ctrl, nil, 1)
	if _, err := s.Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if v := s.Reconciler().View(); v.Match.MoveCount != 3 || !v.Match.Playing || v.Round != 2 {
		t.Fatalf("unexpected view after resync: %+v", v.Match)
	}
}

func TestFailedStartKeepsPreviousMatch(t *testing.T) {
	ctrl := &fakeController{}
	pub := &recordingPublisher{}
	s := New(transcript.New(), ctrl, pub, 1)
	ctx := context.Background()
	if _, err := s.Start(ctx, validRequest()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	board := "rnbakabnr/........./.c.....c./p.p.p.p.p/........./........./P.P.P.P.P/.C..C..../........./RNBAKABNR"
	s.apply(item{ev: arenadto.MoveMadeEvent{Player: "Red AI", PlayerColor: "black", Move: "h2e2", MoveCount: 1, BoardState: board}})
	before := s.View()

	ctrl.startErr = &arenadto.ControlFailure{Message: "battle already running"}
	if _, err := s.Start(ctx, validRequest()); err == nil {
		t.Fatalf("expected start failure")
	}
	after := s.View()
	if len(after.Match.Moves) != 1 || after.Match.LastBoardState != board || after.Match.SessionID != before.Match.SessionID {
		t.Fatalf("failed start discarded the previous match: before=%+v after=%+v", before.Match, after.Match)
	}
	if after.Highlight == nil || after.LastMove != before.LastMove || len(after.BattleLog) != len(before.BattleLog) {
		t.Fatalf("highlight and battle log must survive a failed start")
	}
	if !after.Match.Playing || after.Match.LastError != "battle already running" {
		t.Fatalf("unexpected match after failed start: %+v", after.Match)
	}
	if after.Version <= before.Version {
		t.Fatalf("restored view must carry a newer version")
	}
	pub.mu.Lock()
	last := pub.views[len(pub.views)-1]
	pub.mu.Unlock()
	if last.Match.SessionID != before.Match.SessionID {
		t.Fatalf("restored view was not republished")
	}
}

// mirrorPublisher keeps only the current pointer, like the Redis store.
// The first Publish blocks until release is closed.
type mirrorPublisher struct {
	mu      sync.Mutex
	current string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *mirrorPublisher) Publish(_ context.Context, v transcript.View) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.entered)
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = v.Match.SessionID
	return nil
}

func (p *mirrorPublisher) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
	return nil
}

func TestResetDuringPublishLeavesMirrorCleared(t *testing.T) {
	pub := &mirrorPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(transcript.New(), &fakeController{}, pub, 1)
	s.Reconciler().BeginMatch(transcript.Roster{Red: "a", Black: "b"})
	ctx := context.Background()

	published := make(chan struct{})
	go func() {
		s.publish(ctx)
		close(published)
	}()
	<-pub.entered

	reset := make(chan struct{})
	go func() {
		s.Reset(ctx)
		close(reset)
	}()
	time.Sleep(20 * time.Millisecond)
	close(pub.release)
	<-published
	<-reset

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.current != "" || s.View().Match.SessionID != "" {
		t.Fatalf("mirror points at %q after reset", pub.current)
	}
}

type fakeStream struct {
	mu     sync.Mutex
	events map[int]arenafast.EventCallback
	states map[int]arenafast.StateCallback
	next   int
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: map[int]arenafast.EventCallback{}, states: map[int]arenafast.StateCallback{}}
}

func (f *fakeStream) Connect(context.Context) error { return nil }
func (f *fakeStream) LastError() error              { return nil }
func (f *fakeStream) Close(context.Context) error   { return nil }

func (f *fakeStream) OnEvent(cb arenafast.EventCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.events[f.next] = cb
	return f.next
}

func (f *fakeStream) RemoveEventCallback(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.events, id)
}

func (f *fakeStream) OnStateChange(cb arenafast.StateCallback) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.states[f.next] = cb
	return f.next
}

func (f *fakeStream) RemoveStateCallback(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, id)
}

func (f *fakeStream) callbacks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events) + len(f.states)
}

func TestAttachAndDetach(t *testing.T) {
	st := newFakeStream()
	s := New(transcript.New(), &fakeController{}, nil, 4)
	detach := s.Attach(st)
	if st.callbacks() != 2 {
		t.Fatalf("expected event and state callbacks, got %d", st.callbacks())
	}
	for _, cb := range st.events {
		cb(arenadto.GameErrorEvent{Message: "x"})
	}
	if len(s.events) != 1 {
		t.Fatalf("event not queued")
	}
	detach()
	if st.callbacks() != 0 {
		t.Fatalf("detach left %d callbacks", st.callbacks())
	}
}
