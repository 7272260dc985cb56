package boardrender

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

func decodePNG(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestRenderInitialBoard(t *testing.T) {
	r := NewRenderer()
	b, err := r.RenderPNG(context.Background(), xiangqi.Initial(), RenderOptions{HUDHeader: "DeepSeek (R) vs Qwen (B)", HUDTurn: "Round 1 - red to move"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decodePNG(t, b)
	w, h := defaultLayout.size()
	if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		t.Fatalf("unexpected size %v, want %dx%d", img.Bounds(), w, h)
	}
}

func TestRenderHighlightChangesPixels(t *testing.T) {
	r := NewRenderer()
	ctx := context.Background()
	from := xiangqi.Square{File: 4, Rank: 1}
	plain, err := r.RenderPNG(ctx, xiangqi.Initial(), RenderOptions{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	lit, err := r.RenderPNG(ctx, xiangqi.Initial(), RenderOptions{Highlight: &xiangqi.Highlight{From: from, To: xiangqi.Square{File: 4, Rank: 0}}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	p := defaultLayout.point(from).Add(image.Pt(12, -5))
	a := decodePNG(t, plain).At(p.X, p.Y)
	b := decodePNG(t, lit).At(p.X, p.Y)
	if a == b {
		t.Fatalf("highlight did not change pixel at %v", p)
	}
	_, g1, b1, _ := a.RGBA()
	_, g2, b2, _ := b.RGBA()
	if b2 >= b1 || g2 < g1/2 {
		t.Fatalf("expected a gold tint: before=%v after=%v", a, b)
	}
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer().RenderPNG(ctx, nil, RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestAsciiOnly(t *testing.T) {
	if got := asciiOnly("DeepSeek (红) vs  Qwen (黑)"); got != "DeepSeek ( ) vs Qwen ( )" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestBoardSVGParses(t *testing.T) {
	if _, err := boardImage(32, 20); err != nil {
		t.Fatalf("boardImage: %v", err)
	}
	if _, err := renderDisc(xiangqi.Black, 40); err != nil {
		t.Fatalf("renderDisc: %v", err)
	}
}
