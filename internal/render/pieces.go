package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// 45x45 silhouettes; {{fill}} and {{stroke}} are substituted per side.
var pieceShapes = map[fogchess.Kind]string{
	fogchess.Pawn: `<circle cx="22.5" cy="14" r="6"/>
<path d="M19 21 H26 L30 36 H15 Z"/>
<rect x="11" y="35" width="23" height="5"/>`,
	fogchess.Rook: `<path d="M11 11 H15 V14 H20 V11 H25 V14 H30 V11 H34 V18 H11 Z"/>
<path d="M14 18 H31 L32 35 H13 Z"/>
<rect x="10" y="35" width="25" height="5"/>`,
	fogchess.Knight: `<polygon points="12,39 34,39 32,20 24,8 20,8 18,12 10,20 11,25 18,22 20,25 14,33"/>
<circle cx="19" cy="15" r="1.5"/>`,
	fogchess.Bishop: `<circle cx="22.5" cy="8" r="3"/>
<path d="M22.5 11 C14 17 14 27 17 32 H28 C31 27 31 17 22.5 11 Z"/>
<rect x="11" y="34" width="23" height="5"/>`,
	fogchess.Queen: `<polygon points="9,33 36,33 39,13 30,23 27,9 22.5,23 18,9 15,23 6,13"/>
<circle cx="6" cy="12" r="2.5"/><circle cx="18" cy="8" r="2.5"/><circle cx="27" cy="8" r="2.5"/><circle cx="39" cy="12" r="2.5"/>
<rect x="9" y="33" width="27" height="6"/>`,
	fogchess.King: `<path d="M21 4 H24 V8 H28 V11 H24 V15 H21 V11 H17 V8 H21 Z"/>
<path d="M22.5 16 C10 16 8 26 13 33 H32 C37 26 35 16 22.5 16 Z"/>
<rect x="11" y="33" width="23" height="6"/>`,
}

const fogShape = `<rect x="0" y="0" width="45" height="45" fill="#5b6270" fill-opacity="0.82"/>
<circle cx="14" cy="26" r="8" fill="#8a93a3"/>
<circle cx="24" cy="20" r="10" fill="#9aa3b3"/>
<circle cx="33" cy="27" r="7" fill="#8a93a3"/>
<rect x="10" y="26" width="28" height="8" fill="#8a93a3"/>`

func pieceSVG(p fogchess.Piece) (string, error) {
	shape, ok := pieceShapes[p.Kind]
	if !ok {
		return "", fmt.Errorf("no artwork for piece %q", p.String())
	}
	fill, stroke := "#f7f4ec", "#1b1b1b"
	if p.Color == fogchess.Black {
		fill, stroke = "#262626", "#e6e6e6"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	b.WriteString(shape)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

func fogSVG() string {
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45">` + fogShape + `</svg>`
}

type iconKey struct {
	piece fogchess.Piece
	fog   bool
	size  int
}

var (
	iconCache   = map[iconKey]image.Image{}
	iconCacheMu sync.RWMutex
)

func pieceImage(p fogchess.Piece, size int) (image.Image, error) {
	return cachedIcon(iconKey{piece: p, size: size}, func() (string, error) { return pieceSVG(p) })
}

func fogImage(size int) (image.Image, error) {
	return cachedIcon(iconKey{fog: true, size: size}, func() (string, error) { return fogSVG(), nil })
}

func cachedIcon(key iconKey, src func() (string, error)) (image.Image, error) {
	iconCacheMu.RLock()
	if img, ok := iconCache[key]; ok {
		iconCacheMu.RUnlock()
		return img, nil
	}
	iconCacheMu.RUnlock()

	svg, err := src()
	if err != nil {
		return nil, err
	}
	img, err := rasterizeSVG([]byte(svg), key.size)
	if err != nil {
		return nil, err
	}

	iconCacheMu.Lock()
	iconCache[key] = img
	iconCacheMu.Unlock()
	return img, nil
}

func rasterizeSVG(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}
