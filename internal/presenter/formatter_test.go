package presenter

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/park285/xiangqi-arena-viewer/internal/boardrender"
	"github.com/park285/xiangqi-arena-viewer/internal/msgcat"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
	"github.com/park285/xiangqi-arena-viewer/pkg/arenadto"
)

func newCatalog(t *testing.T) *msgcat.Catalog {
	t.Helper()
	c, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return c
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "00:00",
		75 * time.Second:                      "01:15",
		75*time.Second + 900*time.Millisecond: "01:15",
		61 * time.Minute:                      "61:00",
		-time.Second:                          "00:00",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Fatalf("FormatDuration(%v)=%q want %q", d, got, want)
		}
	}
}

func TestIdleViewShowsPlaceholders(t *testing.T) {
	cat := newCatalog(t)
	f := NewFormatter(cat)
	v := transcript.New(transcript.WithTexts(cat)).View()
	out := f.Transcript(v)
	for _, want := range []string{"游戏状态: 等待开始", "== 棋盘 ==", "0 车 马 相 仕 帅", "等待模型开始思考...", "暂无棋谱记录", "等待对战开始...", "对战尚未结束"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestHistoryNumbering(t *testing.T) {
	f := NewFormatter(nil)
	v := transcript.View{Match: transcript.MatchState{Recent: []arenadto.HistoryItem{
		{Player: "R", Move: "h2e2"},
		{Player: "B", Move: "h9g7"},
		{Player: "R", Move: "h0g2"},
	}}}
	want := "1. h2e2 (R)\n1... h9g7 (B)\n2. h0g2 (R)"
	if got := f.History(v); got != want {
		t.Fatalf("History=%q want %q", got, want)
	}
}

func TestHistoryNumberingPastWindow(t *testing.T) {
	f := NewFormatter(nil)
	items := make([]arenadto.HistoryItem, 10)
	for i := range items {
		items[i] = arenadto.HistoryItem{Player: "P", Move: fmt.Sprintf("m%d", i+3)}
	}
	// plies 3..12 of a 12-ply game
	v := transcript.View{Match: transcript.MatchState{MoveCount: 12, Recent: items}}
	lines := strings.Split(f.History(v), "\n")
	if lines[0] != "2. m3 (P)" || lines[1] != "2... m4 (P)" || lines[9] != "6... m12 (P)" {
		t.Fatalf("unexpected numbering: %q", lines)
	}
}

func TestFinishedMatchBlocks(t *testing.T) {
	cat := newCatalog(t)
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	rec := transcript.New(transcript.WithTexts(cat), transcript.WithClock(func() time.Time { return now }))
	rec.BeginMatch(transcript.Roster{Red: "Red AI", Black: "Black AI"})

	now = now.Add(5 * time.Second)
	if err := rec.ApplyStream(arenadto.ThinkingStreamEvent{Player: "red", Content: "炮二平五"}); err != nil {
		t.Fatalf("ApplyStream: %v", err)
	}
	if err := rec.ApplyMove(arenadto.MoveMadeEvent{Player: "Red AI", PlayerColor: "black", Move: "h2e2", MoveCount: 1}); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := rec.ApplyGameOver(arenadto.GameOverEvent{Result: "红方获胜", TotalMoves: 1}); err != nil {
		t.Fatalf("ApplyGameOver: %v", err)
	}
	now = now.Add(time.Hour)

	f := NewFormatter(cat)
	v := rec.View()

	if got := f.BattleLog(v); got != "09:30:05 Red AI 走了 h2e2\n09:32:05 游戏结束: 红方获胜" {
		t.Fatalf("unexpected battle log %q", got)
	}
	res := f.Result(v)
	for _, want := range []string{"中国象棋对战结果", "总步数: 1", "对战时长: 02:05", "获胜方: Red AI (红)"} {
		if !strings.Contains(res, want) {
			t.Fatalf("expected %q in result:\n%s", want, res)
		}
	}
	th := f.Thinking(v)
	if !strings.Contains(th, "[Red AI] 炮二平五") || !strings.Contains(th, "────────") {
		t.Fatalf("unexpected thinking block:\n%s", th)
	}
	if status := f.Status(v); !strings.HasPrefix(status, "游戏状态: 对战结束") {
		t.Fatalf("unexpected status %q", status)
	}
}

func TestPlayingStatusShowsTurn(t *testing.T) {
	cat := newCatalog(t)
	f := NewFormatter(cat)
	v := transcript.View{Round: 2, Match: transcript.MatchState{Playing: true, MoveCount: 3, ToMove: xiangqi.Black}}
	if got := f.Status(v); !strings.Contains(got, "第 2 回合 · 黑方走棋") {
		t.Fatalf("unexpected status %q", got)
	}
}

type countingRenderer struct {
	calls int
	opts  boardrender.RenderOptions
}

func (c *countingRenderer) RenderPNG(_ context.Context, _ []xiangqi.Placement, opts boardrender.RenderOptions) ([]byte, error) {
	c.calls++
	c.opts = opts
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func TestBoardReusedUntilVersionChanges(t *testing.T) {
	cat := newCatalog(t)
	r := &countingRenderer{}
	p := NewPresenter(cat, r)
	rec := transcript.New(transcript.WithTexts(cat))
	rec.BeginMatch(transcript.Roster{Red: "Red AI", Black: "Black AI"})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := p.Board(ctx, rec.View()); err != nil {
			t.Fatalf("Board: %v", err)
		}
	}
	if r.calls != 1 {
		t.Fatalf("expected one render, got %d", r.calls)
	}
	if r.opts.HUDHeader != "Red AI (R) vs Black AI (B)" || r.opts.HUDTurn != "Move 0 - red to move" {
		t.Fatalf("unexpected hud %+v", r.opts)
	}
	if err := rec.ApplyMove(arenadto.MoveMadeEvent{Player: "Red AI", PlayerColor: "black", Move: "h2e2", MoveCount: 1}); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if _, err := p.Board(ctx, rec.View()); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if r.calls != 2 || r.opts.Highlight == nil {
		t.Fatalf("expected a fresh render with highlight, calls=%d", r.calls)
	}
}
