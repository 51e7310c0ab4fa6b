// Command fogplay runs a hot-seat fog chess game on the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/internal/render"
	"go.uber.org/zap"
)

func main() {
	pngPath := flag.String("png", "", "write the current player's board to this PNG file after every move")
	restore := flag.String("snapshot", "", "resume from an engine snapshot")
	flag.Parse()

	eng := fogchess.NewEngine()
	if *restore != "" {
		var err error
		if eng, err = fogchess.Restore(*restore); err != nil {
			fmt.Fprintf(os.Stderr, "bad snapshot: %v\n", err)
			os.Exit(2)
		}
	}
	s := &session{eng: eng, out: os.Stdout, png: *pngPath, renderer: render.NewSVGBoardRenderer()}
	if err := s.run(os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type session struct {
	eng      *fogchess.Engine
	out      io.Writer
	png      string
	renderer render.BoardRenderer
}

func (s *session) run(in io.Reader) error {
	sc := bufio.NewScanner(in)
	s.prompt()
	for sc.Scan() {
		if done := s.exec(strings.TrimSpace(sc.Text())); done {
			return nil
		}
		s.prompt()
	}
	return sc.Err()
}

// exec handles one input line and reports whether the session is over.
func (s *session) exec(line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "snapshot":
		fmt.Fprintln(s.out, s.eng.Snapshot())
		return false
	case "show":
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		p, err := fogchess.ParsePerspective(arg)
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		s.print(p)
		return false
	}

	from, to, ok := pvpfog.ParseMoveInput(line)
	if !ok || !s.eng.MakeMove(from, to) {
		fmt.Fprintf(s.out, "illegal move: %s\n", line)
		return false
	}
	obslog.L().Debug("fogplay_move", zap.String("from", from), zap.String("to", to))
	if winner, over := s.eng.GameState().Winner(); over {
		s.print(fogchess.Audience)
		fmt.Fprintf(s.out, "%s captured the king. %s\n", winner, s.eng.GameState())
		return true
	}
	return false
}

func (s *session) prompt() {
	p := fogchess.PerspectiveOf(s.eng.Turn())
	s.print(p)
	if s.png != "" {
		if err := s.writePNG(p); err != nil {
			fmt.Fprintf(s.out, "png: %v\n", err)
		}
	}
	fmt.Fprintf(s.out, "%s to move> ", s.eng.Turn())
}

func (s *session) print(p fogchess.Perspective) {
	fmt.Fprint(s.out, formatView(s.eng.Board(p), p))
}

func (s *session) writePNG(p fogchess.Perspective) error {
	b, err := s.renderer.RenderPNG(context.Background(), s.eng.Board(p), render.Options{
		HUDHeader: "fogplay",
		HUDTurn:   s.eng.Turn().String(),
		Flip:      p == fogchess.BlackView,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.png, b, 0o644)
}

// formatView prints ranks top to bottom from the viewer's side.
func formatView(v fogchess.View, p fogchess.Perspective) string {
	var sb strings.Builder
	rows := []int{0, 1, 2, 3, 4, 5, 6, 7}
	files := "abcdefgh"
	if p == fogchess.BlackView {
		rows = []int{7, 6, 5, 4, 3, 2, 1, 0}
		files = "hgfedcba"
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "%d ", fogchess.Size-r)
		for i := 0; i < fogchess.Size; i++ {
			c := i
			if p == fogchess.BlackView {
				c = fogchess.Size - 1 - i
			}
			cell := v[r][c]
			if cell == fogchess.EmptySymbol {
				cell = "."
			}
			sb.WriteString(cell)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  " + files + "\n")
	return sb.String()
}
