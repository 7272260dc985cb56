package presenter

import (
	"context"
	"sync"

	"github.com/park285/xiangqi-arena-viewer/internal/boardrender"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
)

// Presenter turns views into the text and board image the rendering surface shows.
type Presenter struct {
	fmt      *Formatter
	renderer boardrender.BoardRenderer

	mu       sync.Mutex
	session  string
	version  uint64
	boardPNG []byte
}

func NewPresenter(texts transcript.Texts, renderer boardrender.BoardRenderer) *Presenter {
	if renderer == nil {
		renderer = boardrender.NewRenderer()
	}
	return &Presenter{fmt: NewFormatter(texts), renderer: renderer}
}

func (p *Presenter) Formatter() *Formatter { return p.fmt }

func (p *Presenter) Transcript(v transcript.View) string { return p.fmt.Transcript(v) }

// RenderOptions builds the board overlay for v. HUD strings stay ASCII.
func (p *Presenter) RenderOptions(v transcript.View) boardrender.RenderOptions {
	opts := boardrender.RenderOptions{Highlight: v.Highlight}
	r := v.Match.Roster
	if r.Red != "" || r.Black != "" {
		opts.HUDHeader = p.fmt.text("hud.header", map[string]any{"Red": r.Red, "Black": r.Black}, r.Red+" vs "+r.Black)
	}
	data := map[string]any{"MoveCount": v.Match.MoveCount, "Side": string(v.Match.ToMove)}
	switch {
	case v.Match.Playing:
		opts.HUDTurn = p.fmt.text("hud.turn", data, "")
	case v.Match.Result != "":
		opts.HUDTurn = p.fmt.text("hud.over", data, "")
	}
	return opts
}

// Board renders v as PNG. The last image is reused until the view version changes.
func (p *Presenter) Board(ctx context.Context, v transcript.View) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.boardPNG != nil && p.version == v.Version && p.session == v.Match.SessionID {
		return p.boardPNG, nil
	}
	img, err := p.renderer.RenderPNG(ctx, v.Board, p.RenderOptions(v))
	if err != nil {
		return nil, err
	}
	p.boardPNG, p.version, p.session = img, v.Version, v.Match.SessionID
	return img, nil
}
