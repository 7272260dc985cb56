package boardrender

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

var (
	redInk   = color.NRGBA{R: 178, G: 34, B: 34, A: 255}
	blackInk = color.NRGBA{R: 28, G: 28, B: 28, A: 255}
)

func sideInk(s xiangqi.Side) color.NRGBA {
	if s == xiangqi.Red {
		return redInk
	}
	return blackInk
}

func hex(c color.NRGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func pieceSVG(side xiangqi.Side) string {
	d := newSVG(100, 100)
	d.circle(50, 52, 46, "#6b4a2a", "none", 0)
	d.circle(50, 49, 46, "#f4e1b5", "#6b4a2a", 3)
	d.circle(50, 49, 37, "none", hex(sideInk(side)), 3)
	return d.String()
}

type pieceCacheKey struct {
	side xiangqi.Side
	size int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

// renderDisc returns the cached, rasterized disc for side at size px.
func renderDisc(side xiangqi.Side, size int) (image.Image, error) {
	key := pieceCacheKey{side: side, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	img, err := rasterizeSVG(pieceSVG(side), size, size)
	if err != nil {
		return nil, fmt.Errorf("piece disc %s: %w", side, err)
	}

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

type labelKey struct {
	text  string
	ink   color.NRGBA
	scale int
}

var (
	labelCache   = map[labelKey]*image.RGBA{}
	labelCacheMu sync.Mutex
)

// label renders ASCII text with basicfont and scales it up.
func label(text string, ink color.NRGBA, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	key := labelKey{text, ink, scale}
	labelCacheMu.Lock()
	defer labelCacheMu.Unlock()
	if img, ok := labelCache[key]; ok {
		return img
	}

	face := basicfont.Face7x13
	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := m.Ascent.Ceil() + m.Descent.Ceil()
	if w <= 0 {
		w = 1
	}
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	dr := &font.Drawer{Dst: small, Src: image.NewUniform(ink), Face: face, Dot: fixed.P(0, m.Ascent.Ceil())}
	dr.DrawString(text)

	big := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.CatmullRom.Scale(big, big.Bounds(), small, small.Bounds(), draw.Over, nil)
	labelCache[key] = big
	return big
}

func pieceLabel(p xiangqi.Piece) string {
	r := p.Letter()
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	return string(r)
}

// drawPiece centers a labelled disc on c.
func drawPiece(dst *image.RGBA, p xiangqi.Piece, c image.Point, size int) error {
	disc, err := renderDisc(p.Side, size)
	if err != nil {
		return err
	}
	r := image.Rect(c.X-size/2, c.Y-size/2, c.X-size/2+size, c.Y-size/2+size)
	draw.Draw(dst, r, disc, image.Point{}, draw.Over)

	lbl := label(pieceLabel(p), sideInk(p.Side), size/18)
	lr := lbl.Bounds()
	at := image.Pt(c.X-lr.Dx()/2, c.Y-lr.Dy()/2-size/40)
	draw.Draw(dst, lr.Add(at), lbl, image.Point{}, draw.Over)
	return nil
}
