package fogchess

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Kind is a piece type. NoKind marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

// Piece is a colored piece value; the zero value is an empty square.
type Piece struct {
	Kind  Kind
	Color Color
}

// NoPiece is the empty square.
var NoPiece = Piece{}

func (p Piece) Empty() bool { return p.Kind == NoKind }

var kindLetters = [...]byte{NoKind: ' ', Pawn: 'P', Rook: 'R', Knight: 'N', Bishop: 'B', Queen: 'Q', King: 'K'}

// Symbol returns the display letter: uppercase white, lowercase black, space when empty.
func (p Piece) Symbol() byte {
	l := kindLetters[p.Kind]
	if p.Kind != NoKind && p.Color == Black {
		l += 'a' - 'A'
	}
	return l
}

func (p Piece) String() string { return string(p.Symbol()) }

// PieceFromSymbol is the inverse of Symbol. ok is false for unknown letters.
func PieceFromSymbol(b byte) (Piece, bool) {
	switch b {
	case ' ', '.':
		return NoPiece, true
	}
	color := White
	if b >= 'a' && b <= 'z' {
		color = Black
		b -= 'a' - 'A'
	}
	for k := Pawn; k <= King; k++ {
		if kindLetters[k] == b {
			return Piece{Kind: k, Color: color}, true
		}
	}
	return NoPiece, false
}

// Vector is a (row delta, column delta) step.
type Vector struct{ DR, DC int }

var (
	orthogonal = []Vector{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	diagonal   = []Vector{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	royal      = append(append([]Vector{}, orthogonal...), diagonal...)
	knightJump = []Vector{{2, 1}, {1, 2}, {-1, 2}, {-2, 1}, {-2, -1}, {-1, -2}, {1, -2}, {2, -1}}

	whitePawn = []Vector{{-1, 0}, {-1, 1}, {-1, -1}}
	blackPawn = []Vector{{1, 0}, {1, 1}, {1, -1}}
)

// Directions returns the direction set of p. The same table drives move
// validation and the visibility rays. Empty squares have none.
func Directions(p Piece) []Vector {
	switch p.Kind {
	case Pawn:
		if p.Color == White {
			return whitePawn
		}
		return blackPawn
	case Rook:
		return orthogonal
	case Knight:
		return knightJump
	case Bishop:
		return diagonal
	case Queen, King:
		return royal
	}
	return nil
}
