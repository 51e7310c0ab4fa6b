package fogchess

import (
	"errors"
	"fmt"
	"strings"
)

const Size = 8

// ErrInvalidSquare reports square notation outside a1..h8.
var ErrInvalidSquare = errors.New("invalid square")

// Position addresses a cell. Row 0 is rank 8, column 0 is file a.
type Position struct {
	Row, Col int
}

func (p Position) OnBoard() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

func (p Position) Add(v Vector) Position { return Position{Row: p.Row + v.DR, Col: p.Col + v.DC} }

// String renders algebraic notation, e.g. "e2". Off-board positions render as "??".
func (p Position) String() string {
	if !p.OnBoard() {
		return "??"
	}
	return string([]byte{byte('a' + p.Col), byte('8' - p.Row)})
}

// ParseSquare converts "e2"-style notation into a Position.
func ParseSquare(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	file, rank := s[0]|0x20, s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Position{Row: int('8' - rank), Col: int(file - 'a')}, nil
}

// Board is the true 8x8 grid, indexed [row][col].
type Board [Size][Size]Piece

const startLayout = "" +
	"rnbqkbnr" +
	"pppppppp" +
	"........" +
	"........" +
	"........" +
	"........" +
	"PPPPPPPP" +
	"RNBQKBNR"

// StandardBoard returns the usual chess starting layout.
func StandardBoard() Board {
	b, _ := ParseBoard(startLayout)
	return b
}

// ParseBoard reads 64 symbols row by row (row 0 first). '.' and ' ' are
// empty. Whitespace between rows ("/" or newlines) is ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	cleaned := strings.NewReplacer("/", "", "\n", "", "\t", "").Replace(s)
	if len(cleaned) != Size*Size {
		return b, fmt.Errorf("board layout needs %d cells, got %d", Size*Size, len(cleaned))
	}
	for i := 0; i < len(cleaned); i++ {
		p, ok := PieceFromSymbol(cleaned[i])
		if !ok {
			return b, fmt.Errorf("unknown piece symbol %q at %d", cleaned[i], i)
		}
		b[i/Size][i%Size] = p
	}
	return b, nil
}

func (b *Board) At(p Position) Piece { return b[p.Row][p.Col] }

func (b *Board) set(p Position, pc Piece) { b[p.Row][p.Col] = pc }

// Layout is the inverse of ParseBoard using '.' for empty squares.
func (b *Board) Layout() string {
	var sb strings.Builder
	sb.Grow(Size * Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c].Empty() {
				sb.WriteByte('.')
				continue
			}
			sb.WriteByte(b[r][c].Symbol())
		}
	}
	return sb.String()
}

func (b *Board) hasKing(c Color) bool {
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if b[r][col] == (Piece{Kind: King, Color: c}) {
				return true
			}
		}
	}
	return false
}
