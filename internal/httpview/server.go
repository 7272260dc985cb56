package httpview

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/arenafast"
	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/presenter"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

// Controls is the session surface the server drives.
type Controls interface {
	View() transcript.View
	Start(ctx context.Context, req arenadto.StartBattleRequest) (arenadto.ControlResult, error)
	Stop(ctx context.Context) (arenadto.ControlResult, error)
	Reset(ctx context.Context)
	Resync(ctx context.Context) (arenadto.BattleStatus, error)
}

// ViewLoader reads mirrored views of other sessions.
type ViewLoader interface {
	Load(ctx context.Context, session string) (*transcript.View, error)
}

type Option func(*Server)

func WithViewLoader(l ViewLoader) Option { return func(s *Server) { s.views = l } }

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

type Server struct {
	ctl     Controls
	pres    *presenter.Presenter
	views   ViewLoader
	timeout time.Duration
	srv     *fasthttp.Server
}

func NewServer(ctl Controls, pres *presenter.Presenter, opts ...Option) *Server {
	s := &Server{ctl: ctl, pres: pres, timeout: 15 * time.Second}
	for _, o := range opts {
		o(s)
	}
	s.srv = &fasthttp.Server{
		Handler:            s.Handle,
		Name:               "arena-viewer",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       s.timeout + 5*time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	return s
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.ShutdownWithContext(sctx); err != nil {
			obslog.L().Warn("http_shutdown", zap.Error(err))
		}
		return nil
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	obslog.L().Info("http_listen", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/api/view" && ctx.IsGet():
		s.handleView(ctx)
	case path == "/api/transcript" && ctx.IsGet():
		s.handleTranscript(ctx)
	case path == "/board.png" && ctx.IsGet():
		s.handleBoard(ctx)
	case path == "/board.txt" && ctx.IsGet():
		s.handleBoardText(ctx)
	case path == "/api/start_battle" && ctx.IsPost():
		s.handleStart(ctx)
	case path == "/api/stop_battle" && ctx.IsPost():
		s.handleStop(ctx)
	case path == "/api/reset" && ctx.IsPost():
		s.handleReset(ctx)
	case path == "/api/get_battle_status" && ctx.IsGet():
		s.handleStatus(ctx)
	case path == "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) reqContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// viewFor returns the live view, or a mirrored one when ?session= names another session.
func (s *Server) viewFor(ctx *fasthttp.RequestCtx) (transcript.View, bool) {
	live := s.ctl.View()
	id := strings.TrimSpace(string(ctx.QueryArgs().Peek("session")))
	if id == "" || id == live.Match.SessionID {
		return live, true
	}
	if s.views == nil {
		writeError(ctx, fasthttp.StatusNotFound, "unknown session")
		return transcript.View{}, false
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	v, err := s.views.Load(rctx, id)
	if err != nil {
		obslog.L().Warn("http_view_load", zap.String("session", id), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "view store unavailable")
		return transcript.View{}, false
	}
	if v == nil {
		writeError(ctx, fasthttp.StatusNotFound, "unknown session")
		return transcript.View{}, false
	}
	return *v, true
}

func (s *Server) handleView(ctx *fasthttp.RequestCtx) {
	v, ok := s.viewFor(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, v)
}

func (s *Server) handleTranscript(ctx *fasthttp.RequestCtx) {
	v, ok := s.viewFor(ctx)
	if !ok {
		return
	}
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(s.pres.Transcript(v))
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	v, ok := s.viewFor(ctx)
	if !ok {
		return
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	img, err := s.pres.Board(rctx, v)
	if err != nil {
		obslog.L().Error("board_render_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "board render failed")
		return
	}
	ctx.SetContentType("image/png")
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(img)
}

func (s *Server) handleBoardText(ctx *fasthttp.RequestCtx) {
	v, ok := s.viewFor(ctx)
	if !ok {
		return
	}
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(s.pres.Formatter().BoardText(v))
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx) {
	var req arenadto.StartBattleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, malformedJSONDesc)
		return
	}
	rctx, cancel := s.reqContext()
	defer cancel()
	res, err := s.ctl.Start(rctx, req)
	if err != nil {
		s.writeControlError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res)
}

func (s *Server) handleStop(ctx *fasthttp.RequestCtx) {
	rctx, cancel := s.reqContext()
	defer cancel()
	res, err := s.ctl.Stop(rctx)
	if err != nil {
		s.writeControlError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, res)
}

func (s *Server) handleReset(ctx *fasthttp.RequestCtx) {
	rctx, cancel := s.reqContext()
	defer cancel()
	s.ctl.Reset(rctx)
	writeJSON(ctx, fasthttp.StatusOK, arenadto.ControlResult{Status: arenadto.StatusSuccess})
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	rctx, cancel := s.reqContext()
	defer cancel()
	st, err := s.ctl.Resync(rctx)
	if err != nil {
		s.writeControlError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, st)
}

// writeControlError maps validation failures to 400 and orchestrator failures to 502.
func (s *Server) writeControlError(ctx *fasthttp.RequestCtx, err error) {
	var verr *arenadto.ConfigValidationError
	var cf *arenadto.ControlFailure
	var terr *arenafast.TransportError
	switch {
	case errors.As(err, &verr):
		writeError(ctx, fasthttp.StatusBadRequest, verr.Error())
	case errors.As(err, &cf):
		writeJSON(ctx, fasthttp.StatusBadGateway, arenadto.ControlResult{Status: arenadto.StatusError, Message: cf.Message})
	case errors.As(err, &terr):
		writeError(ctx, fasthttp.StatusBadGateway, terr.Error())
	default:
		obslog.L().Error("http_control_failed", zap.Error(err))
		writeError(ctx, fasthttp.StatusBadGateway, err.Error())
	}
}
