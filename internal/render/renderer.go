// Package render draws projected fog chess boards as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/fogchess-bot/internal/fogchess"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type Options struct {
	Highlight *MoveHighlight
	HUDHeader string
	HUDTurn   string
	// Flip draws rank 1 at the top, for the black side.
	Flip bool
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, view fogchess.View, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

// SquareOf maps an engine position onto the square type used for drawing.
func SquareOf(p fogchess.Position) nchess.Square {
	return nchess.NewSquare(nchess.File(p.Col), nchess.Rank(fogchess.Size-1-p.Row))
}

const (
	squareSize   = 64
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 32
	topMargin    = 96
	bottomMargin = 32
	panelRadius  = 10
	panelHeight  = 30
	panelGap     = 10
	hudPaddingX  = 20
)

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	moveHighlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	hudPanelColor       = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTurnPanelColor   = color.NRGBA{R: 32, G: 35, B: 52, A: 245}
	hudTextPrimary      = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTurnTextColor    = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
	fogMarkColor        = color.NRGBA{R: 245, G: 246, B: 250, A: 255}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	backgroundColor     = color.RGBA{18, 20, 30, 255}
)

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, view fogchess.View, opts Options) ([]byte, error) {
	totalWidth := boardSize + sideMargin*2
	totalHeight := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	g := geometry{origin: origin, flip: opts.Flip}
	drawHUD(img, opts, boardRect)
	drawSquares(img, g)
	drawHighlight(img, g, opts.Highlight)
	if err := drawCells(img, g, view); err != nil {
		return nil, err
	}
	drawCoordinates(img, g)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type geometry struct {
	origin image.Point
	flip   bool
}

// rect returns the pixel rectangle of a square in the current orientation.
func (g geometry) rect(sq nchess.Square) image.Rectangle {
	row := 7 - int(sq.Rank())
	col := int(sq.File())
	if g.flip {
		row, col = 7-row, 7-col
	}
	x := g.origin.X + col*squareSize
	y := g.origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func eachSquare(fn func(p fogchess.Position, sq nchess.Square)) {
	for row := 0; row < fogchess.Size; row++ {
		for col := 0; col < fogchess.Size; col++ {
			p := fogchess.Position{Row: row, Col: col}
			fn(p, SquareOf(p))
		}
	}
}

func drawSquares(dst imagedraw.Image, g geometry) {
	eachSquare(func(_ fogchess.Position, sq nchess.Square) {
		imagedraw.Draw(dst, g.rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
	})
}

func drawCells(dst *image.RGBA, g geometry, view fogchess.View) error {
	var firstErr error
	face := inconsolata.Bold8x16
	eachSquare(func(p fogchess.Position, sq nchess.Square) {
		if firstErr != nil {
			return
		}
		sym := view[p.Row][p.Col]
		rect := g.rect(sq)
		switch sym {
		case fogchess.EmptySymbol, "":
			return
		case fogchess.HiddenSymbol:
			img, err := fogImage(squareSize)
			if err != nil {
				firstErr = err
				return
			}
			imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
			drawer := &font.Drawer{Dst: dst, Face: face}
			drawCenteredString(drawer, rect, "?", fogMarkColor)
			return
		}
		pc, ok := fogchess.PieceFromSymbol(sym[0])
		if !ok || pc.Empty() {
			firstErr = fmt.Errorf("unknown view symbol %q at %s", sym, p)
			return
		}
		img, err := pieceImage(pc, squareSize)
		if err != nil {
			firstErr = err
			return
		}
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	})
	return firstErr
}

func drawHighlight(img *image.RGBA, g geometry, h *MoveHighlight) {
	if h == nil {
		return
	}
	for _, sq := range []nchess.Square{h.From, h.To} {
		imagedraw.Draw(img, g.rect(sq), image.NewUniform(moveHighlightFill), image.Point{}, imagedraw.Over)
	}
}

func drawHUD(img *image.RGBA, opts Options, boardRect image.Rectangle) {
	face := inconsolata.Bold8x16
	drawer := &font.Drawer{Dst: img, Face: face}

	title := strings.TrimSpace(opts.HUDHeader)
	if title == "" {
		title = "Fog Chess"
	}
	turnText := strings.TrimSpace(opts.HUDTurn)
	if turnText == "" {
		turnText = "Turn"
	}

	turnBottom := boardRect.Min.Y - panelGap*2
	turnTop := turnBottom - panelHeight
	titleBottom := turnTop - panelGap
	titleTop := titleBottom - panelHeight

	titleWidth := clampWidth(drawer.MeasureString(title).Round()+hudPaddingX*2, 240, boardRect.Dx())
	turnWidth := clampWidth(drawer.MeasureString(turnText).Round()+hudPaddingX*2, 140, boardRect.Dx())

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+titleWidth, titleBottom)
	turnLeft := boardRect.Min.X + (boardRect.Dx()-turnWidth)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnWidth, turnBottom)

	drawRoundedPanel(img, titleRect, panelRadius, hudPanelColor)
	drawRoundedPanel(img, turnRect, panelRadius, hudTurnPanelColor)
	drawCenteredString(drawer, titleRect, truncateWithEllipsis(face, title, titleRect.Dx()-hudPaddingX*2), hudTextPrimary)
	drawCenteredString(drawer, turnRect, truncateWithEllipsis(face, turnText, turnRect.Dx()-hudPaddingX*2), hudTurnTextColor)
}

func clampWidth(w, lo, hi int) int {
	if w < lo {
		w = lo
	}
	if w > hi {
		w = hi
	}
	return w
}

func drawCoordinates(dst *image.RGBA, g geometry) {
	face := inconsolata.Regular8x16
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < boardSquares; i++ {
		rankSq := nchess.NewSquare(nchess.FileA, nchess.Rank(i))
		r := g.rect(rankSq)
		drawCenteredText(drawer, nchess.Rank(i).String(), g.origin.X-sideMargin/2, r.Min.Y+squareSize/2+ascent/2)

		fileSq := nchess.NewSquare(nchess.File(i), nchess.Rank1)
		f := g.rect(fileSq)
		drawCenteredText(drawer, nchess.File(i).String(), f.Min.X+squareSize/2, g.origin.Y+boardSize+ascent)
	}
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
	const ellipsis = "..."
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
	if m := min(rect.Dx(), rect.Dy()) / 2; radius > m {
		radius = m
	}
	fill := image.NewUniform(clr)
	if radius <= 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}
	imagedraw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, imagedraw.Over)

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarterDisc(img, c, radius, rect, clr)
	}
}

// drawQuarterDisc fills the part of a disc that lies outside the panel's
// cross-shaped body, so corners are not blended twice.
func drawQuarterDisc(img *image.RGBA, center image.Point, radius int, rect image.Rectangle, clr color.Color) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	side := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rr {
				continue
			}
			pt := image.Point{X: center.X + x, Y: center.Y + y}
			if !pt.In(rect) || pt.In(inner) || pt.In(side) {
				continue
			}
			blendPixel(img, pt.X, pt.Y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	img.SetRGBA(x, y, color.RGBA{
		R: uint8((sr + uint32(dst.R)*0x101*inv/0xffff) >> 8),
		G: uint8((sg + uint32(dst.G)*0x101*inv/0xffff) >> 8),
		B: uint8((sb + uint32(dst.B)*0x101*inv/0xffff) >> 8),
		A: uint8((sa + uint32(dst.A)*0x101*inv/0xffff) >> 8),
	})
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

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
