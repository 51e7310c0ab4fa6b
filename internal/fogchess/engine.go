// Package fogchess implements the rules of fog-of-war chess: each side sees
// its own pieces, the empty squares, and only those enemy pieces that are
// currently capturable. There is no check or checkmate; the game ends when a
// king is taken.
package fogchess

import "strings"

// GameStatus is monotonic: once a side has won it never changes again.
type GameStatus uint8

const (
	Unfinished GameStatus = iota
	WhiteWon
	BlackWon
)

func (s GameStatus) String() string {
	switch s {
	case WhiteWon:
		return "WHITE_WON"
	case BlackWon:
		return "BLACK_WON"
	default:
		return "UNFINISHED"
	}
}

// Over reports whether the game has reached a terminal status.
func (s GameStatus) Over() bool { return s != Unfinished }

// Winner returns the winning color; ok is false while unfinished.
func (s GameStatus) Winner() (Color, bool) {
	switch s {
	case WhiteWon:
		return White, true
	case BlackWon:
		return Black, true
	}
	return White, false
}

// Engine owns one game. It is not safe for concurrent use; callers serving
// several clients must serialize access per game.
type Engine struct {
	board  Board
	turn   Color
	status GameStatus
}

// NewEngine starts a game from the standard layout with White to move.
func NewEngine() *Engine {
	return &Engine{board: StandardBoard(), turn: White, status: Unfinished}
}

// NewEngineFromBoard starts an unfinished game from an arbitrary layout.
func NewEngineFromBoard(b Board, turn Color) *Engine {
	return &Engine{board: b, turn: turn, status: Unfinished}
}

func (e *Engine) GameState() GameStatus { return e.status }

func (e *Engine) Turn() Color { return e.turn }

func (e *Engine) PieceAt(p Position) Piece {
	if !p.OnBoard() {
		return NoPiece
	}
	return e.board.At(p)
}

// TrueBoard returns a copy of the unfiltered board.
func (e *Engine) TrueBoard() Board { return e.board }

// MakeMove plays from→to in square notation. It returns false, leaving the
// game untouched, when the game is over, either square is malformed, or
// the move is not legal for the side to move.
func (e *Engine) MakeMove(from, to string) bool {
	src, err := ParseSquare(strings.TrimSpace(from))
	if err != nil {
		return false
	}
	dst, err := ParseSquare(strings.TrimSpace(to))
	if err != nil {
		return false
	}
	return e.Move(src, dst)
}

// Move is MakeMove on already parsed positions.
func (e *Engine) Move(from, to Position) bool {
	if e.status.Over() {
		return false
	}
	if !validate(&e.board, e.turn, from, to) {
		return false
	}
	apply(&e.board, from, to)
	e.status = check(&e.board)
	e.turn = e.turn.Other()
	return true
}

// validate checks ownership, bounds and direction membership only. Sliders
// move a single step, paths are not inspected, and landing on a friendly
// piece is allowed.
func validate(b *Board, turn Color, from, to Position) bool {
	if !from.OnBoard() || !to.OnBoard() {
		return false
	}
	pc := b.At(from)
	if pc.Empty() || pc.Color != turn {
		return false
	}
	delta := Vector{DR: to.Row - from.Row, DC: to.Col - from.Col}
	for _, d := range Directions(pc) {
		if d == delta {
			return true
		}
	}
	return false
}

func apply(b *Board, from, to Position) {
	pc := b.At(from)
	b.set(from, NoPiece)
	b.set(to, pc)
}

func check(b *Board) GameStatus {
	if !b.hasKing(Black) {
		return WhiteWon
	}
	if !b.hasKing(White) {
		return BlackWon
	}
	return Unfinished
}
