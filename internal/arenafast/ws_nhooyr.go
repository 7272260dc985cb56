package arenafast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

const (
	dialTimeout  = 10 * time.Second
	readLimit    = 1 << 20
	pingTimeout  = 3 * time.Second
	maxPingFails = 2
)

type callbackEntry struct {
	id       int
	callback EventCallback
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// EventStream reads {"event","data"} frames from the orchestrator and fans typed events out to callbacks.
type EventStream struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.Mutex
	state  WebSocketState
	stateM sync.RWMutex

	lastErr error
	errM    sync.Mutex

	eventCbs []callbackEntry
	stateCbs []stateCallbackEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

var _ Stream = (*EventStream)(nil)

func NewEventStream(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *EventStream {
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	return &EventStream{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

// SetHeaderProvider injects headers into the handshake (X-User-Id, X-Session-Id).
func (ws *EventStream) SetHeaderProvider(h HeaderProvider) {
	ws.headerProvider = h
}

// SetPingInterval must be called before Connect.
func (ws *EventStream) SetPingInterval(d time.Duration) {
	if d > 0 {
		ws.pingInterval = d
	}
}

func (ws *EventStream) State() WebSocketState {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

// LastError is the most recent dial or read failure.
func (ws *EventStream) LastError() error {
	ws.errM.Lock()
	defer ws.errM.Unlock()
	return ws.lastErr
}

func (ws *EventStream) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.state == WSStateConnected || ws.state == WSStateConnecting || ws.state == WSStateReconnecting {
		ws.stateM.Unlock()
		return nil
	}
	ws.stateM.Unlock()

	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.setState(WSStateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.recordErr(err)
		obslog.L().Warn("arena_ws_dial_failed", zap.String("url", ws.wsURL), zap.Error(err))
		ws.scheduleReconnect()
		return &TransportError{Op: "connect", Err: err}
	}
	ws.attach(conn)
	return nil
}

func (ws *EventStream) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

func (ws *EventStream) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(WSStateConnected)
	obslog.L().Info("arena_ws_connected", zap.String("url", ws.wsURL))

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
}

func (ws *EventStream) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		if ws.isStopping() {
			return
		}
		_, data, err := conn.Read(ws.rootCtx)
		if err != nil {
			if ws.isStopping() {
				return
			}
			ws.dropConn(conn, err, "read failure")
			return
		}
		ev, err := decodeFrame(data)
		if err != nil {
			obslog.L().Warn("arena_ws_frame_skipped", zap.Error(err), zap.String("frame", truncate(string(data), 256)))
			continue
		}
		ws.dispatch(ev)
	}
}

func decodeFrame(data []byte) (arenadto.Event, error) {
	var env arenadto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return arenadto.Decode(env)
}

func (ws *EventStream) dispatch(ev arenadto.Event) {
	ws.cbM.RLock()
	callbacks := make([]callbackEntry, len(ws.eventCbs))
	copy(callbacks, ws.eventCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(ev)
		}
	}
}

func (ws *EventStream) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			if !ws.isCurrent(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, pingTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= maxPingFails {
				if ws.isStopping() {
					return
				}
				ws.dropConn(conn, err, "ping failure")
				return
			}
		}
	}
}

// dropConn closes conn once and starts reconnecting; a concurrent caller for the same conn is a no-op.
func (ws *EventStream) dropConn(conn *websocket.Conn, cause error, reason string) {
	ws.connM.Lock()
	if ws.conn != conn {
		ws.connM.Unlock()
		return
	}
	ws.conn = nil
	ws.connM.Unlock()

	ws.recordErr(cause)
	_ = conn.Close(websocket.StatusGoingAway, reason)
	obslog.L().Warn("arena_ws_disconnected", zap.String("reason", reason), zap.Error(cause))
	ws.setState(WSStateDisconnected)
	ws.scheduleReconnect()
}

func (ws *EventStream) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		ws.setState(WSStateFailed)
		return
	}
	ws.setState(WSStateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(ws.reconnectBackoff(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, dialTimeout)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				ws.recordErr(err)
				obslog.L().Debug("arena_ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if ws.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			ws.attach(conn)
			return
		}
		obslog.L().Error("arena_ws_gave_up", zap.Int("attempts", ws.maxReconnectAttempts), zap.Error(ws.LastError()))
		ws.setState(WSStateFailed)
	}()
}

func (ws *EventStream) reconnectBackoff(attempt int) time.Duration {
	d := ws.reconnectDelay
	for i := 1; i < attempt && d < 30*time.Second; i++ {
		d *= 2
	}
	return d
}

func (ws *EventStream) OnEvent(cb EventCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.eventCbs = append(ws.eventCbs, callbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *EventStream) RemoveEventCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.eventCbs {
		if cb.id == id {
			ws.eventCbs = append(ws.eventCbs[:i], ws.eventCbs[i+1:]...)
			break
		}
	}
}

func (ws *EventStream) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *EventStream) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *EventStream) setState(state WebSocketState) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (ws *EventStream) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.connM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	if ws.rootCancel != nil {
		ws.rootCancel()
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *EventStream) isCurrent(conn *websocket.Conn) bool {
	ws.connM.Lock()
	defer ws.connM.Unlock()
	return ws.conn == conn
}

func (ws *EventStream) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *EventStream) recordErr(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	ws.errM.Lock()
	ws.lastErr = err
	ws.errM.Unlock()
}

func (ws *EventStream) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
