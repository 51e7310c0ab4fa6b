package fogchess

import (
	"fmt"
	"strings"
)

// Perspective selects which projection of the board a caller receives.
type Perspective uint8

const (
	Audience Perspective = iota
	WhiteView
	BlackView
)

func (p Perspective) String() string {
	switch p {
	case WhiteView:
		return "white"
	case BlackView:
		return "black"
	default:
		return "audience"
	}
}

// Color returns the side a player perspective belongs to.
func (p Perspective) Color() (Color, bool) {
	switch p {
	case WhiteView:
		return White, true
	case BlackView:
		return Black, true
	}
	return White, false
}

// PerspectiveOf returns the player perspective of c.
func PerspectiveOf(c Color) Perspective {
	if c == White {
		return WhiteView
	}
	return BlackView
}

func ParsePerspective(s string) (Perspective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return WhiteView, nil
	case "black", "b":
		return BlackView, nil
	case "audience", "a", "":
		return Audience, nil
	}
	return Audience, fmt.Errorf("unknown perspective %q", s)
}

// Cell symbols used by views.
const (
	EmptySymbol  = " "
	HiddenSymbol = "*"
)

// View is a projected board of display symbols, indexed [row][col].
type View [Size][Size]string

// Hidden reports whether the cell at p is fogged.
func (v *View) Hidden(p Position) bool { return v[p.Row][p.Col] == HiddenSymbol }

// Rows returns the view as a slice of slices, convenient for JSON.
func (v *View) Rows() [][]string {
	out := make([][]string, Size)
	for r := range v {
		out[r] = append([]string(nil), v[r][:]...)
	}
	return out
}

// Board returns the board as seen from p.
func (e *Engine) Board(p Perspective) View {
	return project(&e.board, p)
}

// IsCapturable reports whether the piece at pos is exposed to color.
func (e *Engine) IsCapturable(pos Position, color Color) bool {
	if !pos.OnBoard() {
		return false
	}
	return isCapturable(&e.board, pos, color)
}

func project(b *Board, p Perspective) View {
	var v View
	viewer, player := p.Color()
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			pc := b[r][c]
			switch {
			case pc.Empty():
				v[r][c] = EmptySymbol
			case !player || pc.Color == viewer:
				v[r][c] = pc.String()
			case isCapturable(b, Position{Row: r, Col: c}, viewer):
				v[r][c] = pc.String()
			default:
				v[r][c] = HiddenSymbol
			}
		}
	}
	return v
}

// isCapturable scans outward from pos along the rays of the piece standing
// on pos (not the attacker's), stopping each ray at the first occupied
// square. The piece is exposed if any such square holds a piece of color.
func isCapturable(b *Board, pos Position, color Color) bool {
	pc := b.At(pos)
	if pc.Empty() {
		return false
	}
	for _, d := range Directions(pc) {
		for cur := pos.Add(d); cur.OnBoard(); cur = cur.Add(d) {
			hit := b.At(cur)
			if hit.Empty() {
				continue
			}
			if hit.Color == color {
				return true
			}
			break
		}
	}
	return false
}
