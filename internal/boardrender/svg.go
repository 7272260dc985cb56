package boardrender

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

func rasterizeSVG(src string, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

type svgDoc struct {
	b    strings.Builder
	w, h int
}

func newSVG(w, h int) *svgDoc {
	d := &svgDoc{w: w, h: h}
	fmt.Fprintf(&d.b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	return d
}

func (d *svgDoc) rect(x, y, w, h, rx int, fill, stroke string, sw float64) {
	fmt.Fprintf(&d.b, `<rect x="%d" y="%d" width="%d" height="%d" rx="%d" fill="%s" stroke="%s" stroke-width="%.1f"/>`,
		x, y, w, h, rx, fill, stroke, sw)
}

func (d *svgDoc) line(x1, y1, x2, y2 int, stroke string, sw float64) {
	fmt.Fprintf(&d.b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%.1f"/>`,
		x1, y1, x2, y2, stroke, sw)
}

func (d *svgDoc) polyline(pts []image.Point, stroke string, sw float64) {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = fmt.Sprintf("%d,%d", p.X, p.Y)
	}
	fmt.Fprintf(&d.b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%.1f"/>`,
		strings.Join(parts, " "), stroke, sw)
}

func (d *svgDoc) circle(cx, cy, r float64, fill, stroke string, sw float64) {
	fmt.Fprintf(&d.b, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" stroke="%s" stroke-width="%.1f"/>`,
		cx, cy, r, fill, stroke, sw)
}

func (d *svgDoc) String() string { return d.b.String() + "</svg>" }

const (
	woodFill  = "#e9c98f"
	woodEdge  = "#8a5a2b"
	gridInk   = "#5b3a1e"
	riverFill = "#dcb97c"
)

// boardSVG draws the wooden panel with pad pixels around the intersection grid.
func boardSVG(cell, pad int) string {
	gw, gh := cell*(files-1), cell*(ranks-1)
	d := newSVG(gw+pad*2, gh+pad*2)
	d.rect(2, 2, gw+pad*2-4, gh+pad*2-4, 14, woodFill, woodEdge, 4)

	pt := func(col, row int) image.Point { return image.Pt(pad+col*cell, pad+row*cell) }

	// river band between rows 4 and 5
	d.rect(pad, pad+4*cell, gw, cell, 0, riverFill, "none", 0)
	d.rect(pad-6, pad-6, gw+12, gh+12, 0, "none", gridInk, 3)

	for row := 0; row < ranks; row++ {
		a, b := pt(0, row), pt(files-1, row)
		d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.6)
	}
	for col := 0; col < files; col++ {
		if col == 0 || col == files-1 {
			a, b := pt(col, 0), pt(col, ranks-1)
			d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.6)
			continue
		}
		a, b := pt(col, 0), pt(col, 4)
		d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.6)
		a, b = pt(col, 5), pt(col, ranks-1)
		d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.6)
	}

	for _, top := range []int{0, 7} {
		a, b := pt(3, top), pt(5, top+2)
		d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.4)
		a, b = pt(5, top), pt(3, top+2)
		d.line(a.X, a.Y, b.X, b.Y, gridInk, 1.4)
	}

	for _, m := range markerPoints() {
		drawMarker(d, pt(m.X, m.Y), m.X, cell)
	}
	return d.String()
}

// markerPoints are the cannon and soldier starting intersections in grid (col,row) form.
func markerPoints() []image.Point {
	pts := []image.Point{{1, 2}, {7, 2}, {1, 7}, {7, 7}}
	for col := 0; col < files; col += 2 {
		pts = append(pts, image.Pt(col, 3), image.Pt(col, 6))
	}
	return pts
}

func drawMarker(d *svgDoc, c image.Point, col, cell int) {
	gap := cell / 12
	arm := cell / 6
	for _, sx := range []int{-1, 1} {
		if (col == 0 && sx < 0) || (col == files-1 && sx > 0) {
			continue
		}
		for _, sy := range []int{-1, 1} {
			x := c.X + sx*gap
			y := c.Y + sy*gap
			d.polyline([]image.Point{{x + sx*arm, y}, {x, y}, {x, y + sy*arm}}, gridInk, 1.2)
		}
	}
}

type boardKey struct{ cell, pad int }

var (
	boardCache   = map[boardKey]*image.RGBA{}
	boardCacheMu sync.Mutex
)

func boardImage(cell, pad int) (*image.RGBA, error) {
	key := boardKey{cell, pad}
	boardCacheMu.Lock()
	defer boardCacheMu.Unlock()
	if img, ok := boardCache[key]; ok {
		return img, nil
	}
	w, h := cell*(files-1)+pad*2, cell*(ranks-1)+pad*2
	img, err := rasterizeSVG(boardSVG(cell, pad), w, h)
	if err != nil {
		return nil, fmt.Errorf("board background: %w", err)
	}
	boardCache[key] = img
	return img, nil
}
