package boardrender

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/xiangqi-arena-viewer/internal/xiangqi"
)

const (
	files = xiangqi.Files
	ranks = xiangqi.Ranks
)

type RenderOptions struct {
	Highlight *xiangqi.Highlight
	HUDHeader string
	HUDTurn   string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, placements []xiangqi.Placement, opts RenderOptions) ([]byte, error)
}

type layout struct {
	cell      int
	pad       int
	side      int
	top       int
	bottom    int
	pieceSize int
}

func (l layout) panelOrigin() image.Point { return image.Pt(l.side, l.top) }

func (l layout) panelRect() image.Rectangle {
	o := l.panelOrigin()
	return image.Rect(o.X, o.Y, o.X+l.cell*(files-1)+l.pad*2, o.Y+l.cell*(ranks-1)+l.pad*2)
}

// point is the pixel center of an intersection. Rank 9 is drawn at the top.
func (l layout) point(sq xiangqi.Square) image.Point {
	o := l.panelOrigin()
	return image.Pt(o.X+l.pad+sq.File*l.cell, o.Y+l.pad+(ranks-1-sq.Rank)*l.cell)
}

func (l layout) size() (int, int) {
	pr := l.panelRect()
	return pr.Max.X + l.side, pr.Max.Y + l.bottom
}

var defaultLayout = layout{cell: 64, pad: 44, side: 24, top: 118, bottom: 36, pieceSize: 56}

type svgBoardRenderer struct {
	l layout
}

func NewRenderer() BoardRenderer {
	return &svgBoardRenderer{l: defaultLayout}
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, placements []xiangqi.Placement, opts RenderOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	l := r.l
	w, h := l.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	panel := l.panelRect()
	drawBoardShadow(img, panel)
	bg, err := boardImage(l.cell, l.pad)
	if err != nil {
		return nil, err
	}
	draw.Draw(img, panel, bg, image.Point{}, draw.Over)
	drawRiverCaption(img, l)
	drawCoordinates(img, l)
	drawHUD(img, opts, panel)

	if opts.Highlight != nil && opts.Highlight.From.Valid() {
		c := l.point(opts.Highlight.From)
		drawDisc(img, c, l.pieceSize/2, fromHighlightColor)
	}
	for _, p := range placements {
		if !p.Square.Valid() {
			continue
		}
		if err := drawPiece(img, p.Piece, l.point(p.Square), l.pieceSize); err != nil {
			return nil, err
		}
	}
	if opts.Highlight != nil && opts.Highlight.To.Valid() {
		c := l.point(opts.Highlight.To)
		drawRing(img, c, l.pieceSize/2+5, l.pieceSize/2, toHighlightColor)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	backgroundColor    = color.NRGBA{R: 246, G: 239, B: 226, A: 255}
	fromHighlightColor = color.NRGBA{R: 255, G: 196, B: 36, A: 170}
	toHighlightColor   = color.NRGBA{R: 255, G: 127, B: 80, A: 230}
	hudPanelColor      = color.NRGBA{R: 92, G: 52, B: 24, A: 250}
	hudTurnPanelColor  = color.NRGBA{R: 120, G: 72, B: 36, A: 245}
	hudShadowColor     = color.NRGBA{0, 0, 0, 50}
	hudTextPrimary     = color.NRGBA{R: 255, G: 244, B: 222, A: 255}
	hudTurnTextColor   = color.NRGBA{R: 246, G: 226, B: 190, A: 255}
	boardShadowColor   = color.NRGBA{0, 0, 0, 60}
	coordinateColor    = color.NRGBA{R: 91, G: 58, B: 30, A: 255}
	riverTextColor     = color.NRGBA{R: 120, G: 80, B: 40, A: 255}
)

func drawBoardShadow(img *image.RGBA, rect image.Rectangle) {
	shadow := image.Rect(rect.Min.X+4, rect.Min.Y+8, rect.Max.X+8, rect.Max.Y+10)
	drawRoundedPanel(img, shadow, 14, boardShadowColor)
}

func drawRiverCaption(img *image.RGBA, l layout) {
	y := l.point(xiangqi.Square{File: 0, Rank: 5}).Y + l.cell/2
	left := label("CHU HE", riverTextColor, 2)
	right := label("HAN JIE", riverTextColor, 2)
	lx := (l.point(xiangqi.Square{File: 1, Rank: 0}).X + l.point(xiangqi.Square{File: 3, Rank: 0}).X) / 2
	rx := (l.point(xiangqi.Square{File: 5, Rank: 0}).X + l.point(xiangqi.Square{File: 7, Rank: 0}).X) / 2
	for _, t := range []struct {
		img *image.RGBA
		x   int
	}{{left, lx}, {right, rx}} {
		b := t.img.Bounds()
		at := image.Pt(t.x-b.Dx()/2, y-b.Dy()/2)
		draw.Draw(img, b.Add(at), t.img, image.Point{}, draw.Over)
	}
}

func drawCoordinates(img *image.RGBA, l layout) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateColor)}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	panel := l.panelRect()
	for f := 0; f < files; f++ {
		p := l.point(xiangqi.Square{File: f, Rank: 0})
		drawCenteredText(drawer, string(rune('a'+f)), p.X, panel.Max.Y+ascent+6)
	}
	for rk := 0; rk < ranks; rk++ {
		p := l.point(xiangqi.Square{File: 0, Rank: rk})
		drawCenteredText(drawer, fmt.Sprintf("%d", rk), panel.Min.X-l.side/2, p.Y+ascent/2)
	}
}

const (
	titleHeight      = 40
	turnPanelHeight  = 32
	gapBetweenPanels = 12
	gapToBoard       = 18
	panelRadius      = 12
	titlePaddingX    = 28
	turnPaddingX     = 20
	titleMinWidth    = 320
	turnMinWidth     = 140
	shadowOffsetY    = 6
)

func drawHUD(img *image.RGBA, opts RenderOptions, boardRect image.Rectangle) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	title := asciiOnly(opts.HUDHeader)
	if title == "" {
		title = "Red vs Black"
	}
	turnText := asciiOnly(opts.HUDTurn)
	if turnText == "" {
		turnText = "Waiting"
	}

	turnBottom := boardRect.Min.Y - gapToBoard
	turnTop := turnBottom - turnPanelHeight
	titleBottom := turnTop - gapBetweenPanels
	titleTop := titleBottom - titleHeight

	titleWidth := clamp(drawer.MeasureString(title).Round()+titlePaddingX*2, titleMinWidth, boardRect.Dx())
	turnWidth := clamp(drawer.MeasureString(turnText).Round()+turnPaddingX*2, turnMinWidth, boardRect.Dx()-40)

	titleLeft := boardRect.Min.X + (boardRect.Dx()-titleWidth)/2
	titleRect := image.Rect(titleLeft, titleTop, titleLeft+titleWidth, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	drawRoundedPanel(img, titleRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, turnRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)

	title = truncateWithEllipsis(face, title, titleRect.Dx()-titlePaddingX*2)
	turnText = truncateWithEllipsis(face, turnText, turnRect.Dx()-turnPaddingX*2)

	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)
	drawCenteredString(drawer, titleRect, title, hudTextPrimary)
	drawCenteredString(drawer, turnRect, turnText, hudTurnTextColor)
}

// asciiOnly drops runes basicfont cannot draw and collapses whitespace.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	if radius < 0 {
		radius = 0
	}
	maxRadius := rect.Dx() / 2
	if r := rect.Dy() / 2; r < maxRadius {
		maxRadius = r
	}
	if radius > maxRadius {
		radius = maxRadius
	}
	fill := image.NewUniform(clr)
	if radius == 0 {
		draw.Draw(img, rect, fill, image.Point{}, draw.Over)
		return
	}

	// cross of two rectangles, then quarter discs in the corners
	vertical := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	draw.Draw(img, vertical, fill, image.Point{}, draw.Over)
	left := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	draw.Draw(img, left, fill, image.Point{}, draw.Over)
	right := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	draw.Draw(img, right, fill, image.Point{}, draw.Over)

	corners := []struct {
		c      image.Point
		qx, qy int
	}{
		{image.Pt(rect.Min.X+radius, rect.Min.Y+radius), -1, -1},
		{image.Pt(rect.Max.X-radius-1, rect.Min.Y+radius), 1, -1},
		{image.Pt(rect.Min.X+radius, rect.Max.Y-radius-1), -1, 1},
		{image.Pt(rect.Max.X-radius-1, rect.Max.Y-radius-1), 1, 1},
	}
	rSquared := radius * radius
	for _, k := range corners {
		for y := 0; y <= radius; y++ {
			for x := 0; x <= radius; x++ {
				if x*x+y*y > rSquared {
					continue
				}
				if x == 0 || y == 0 {
					continue
				}
				blendPixel(img, k.c.X+k.qx*x, k.c.Y+k.qy*y, clr)
			}
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if drawer == nil || text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := rect.Min.X + (rect.Dx()-width)/2
	if x < rect.Min.X {
		x = rect.Min.X
	}
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	drawRing(img, center, radius, -1, clr)
}

// drawRing fills the annulus inner < d <= outer. A negative inner fills the whole disc.
func drawRing(img *image.RGBA, center image.Point, outer, inner int, clr color.Color) {
	if outer <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	oSq := outer * outer
	iSq := inner * inner
	for y := -outer; y <= outer; y++ {
		for x := -outer; x <= outer; x++ {
			d := x*x + y*y
			if d > oSq || (inner >= 0 && d <= iSq) {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil || !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	// premultiplied source over premultiplied destination
	dst := img.RGBAAt(x, y)
	inv := 65535 - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/65535) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/65535) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/65535) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/65535) >> 8),
	})
}
