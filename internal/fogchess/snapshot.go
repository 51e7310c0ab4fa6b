package fogchess

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadSnapshot is returned by Restore for text Snapshot did not produce.
var ErrBadSnapshot = errors.New("bad snapshot")

// Snapshot encodes the game as "<64 cells>/<w|b>/<U|W|B>".
func (e *Engine) Snapshot() string {
	turn := "w"
	if e.turn == Black {
		turn = "b"
	}
	status := "U"
	switch e.status {
	case WhiteWon:
		status = "W"
	case BlackWon:
		status = "B"
	}
	return e.board.Layout() + "/" + turn + "/" + status
}

// Restore rebuilds an engine from Snapshot output.
func Restore(s string) (*Engine, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 || len(parts[0]) != Size*Size {
		return nil, fmt.Errorf("%w: %q", ErrBadSnapshot, s)
	}
	b, err := ParseBoard(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	e := &Engine{board: b}
	switch parts[1] {
	case "w":
		e.turn = White
	case "b":
		e.turn = Black
	default:
		return nil, fmt.Errorf("%w: turn %q", ErrBadSnapshot, parts[1])
	}
	switch parts[2] {
	case "U":
		e.status = Unfinished
	case "W":
		e.status = WhiteWon
	case "B":
		e.status = BlackWon
	default:
		return nil, fmt.Errorf("%w: status %q", ErrBadSnapshot, parts[2])
	}
	return e, nil
}
