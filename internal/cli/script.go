package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/position"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Script verbs.
const (
	verbSet   = "set"
	verbClear = "clear"
)

// statement is one line of a script:
//
//	set A1 =B1*2     (everything after the position, verbatim, may be empty)
//	clear A1
//	# comment
type statement struct {
	line int
	verb string
	pos  position.Position
	text string
}

func (st statement) String() string {
	if st.verb == verbSet {
		return fmt.Sprintf("%s %s %s", st.verb, st.pos, st.text)
	}
	return fmt.Sprintf("%s %s", st.verb, st.pos)
}

// parseScript reads statements from r. Blank lines and lines starting with
// '#' are skipped.
func parseScript(r io.Reader) ([]statement, error) {
	var stmts []statement

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}

		st, err := parseStatement(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		st.line = line
		stmts = append(stmts, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return stmts, nil
}

func parseStatement(s string) (statement, error) {
	verb, rest, _ := strings.Cut(s, " ")
	switch verb {
	case verbSet:
		addr, text, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
		pos, err := position.Parse(addr)
		if err != nil {
			return statement{}, err
		}
		return statement{verb: verb, pos: pos, text: text}, nil
	case verbClear:
		pos, err := position.Parse(rest)
		if err != nil {
			return statement{}, err
		}
		return statement{verb: verb, pos: pos}, nil
	default:
		return statement{}, fmt.Errorf("unknown statement %q (want %q or %q)", verb, verbSet, verbClear)
	}
}

// applyScript runs stmts against s. A rejected statement stops the script
// unless keepGoing is set, in which case it is logged and skipped. It
// returns the number of rejected statements.
func applyScript(ctx context.Context, s *spreadsheet.Sheet, stmts []statement, keepGoing bool) (int, error) {
	logger := loggerFromContext(ctx)

	rejected := 0
	for _, st := range stmts {
		var err error
		switch st.verb {
		case verbSet:
			err = s.SetCell(st.pos, st.text)
		case verbClear:
			err = s.ClearCell(st.pos)
		}
		if err == nil {
			continue
		}

		if !keepGoing {
			return rejected, fmt.Errorf("line %d: %s: %w", st.line, st, err)
		}
		rejected++
		logger.Warn("statement rejected", "line", st.line, "statement", st.String(), "err", err)
	}
	return rejected, nil
}

// loadSheet reads the script at path ("-" for in) and applies it to a new
// sheet that logs through ctx's logger.
func loadSheet(ctx context.Context, path string, in io.Reader, keepGoing bool) (*spreadsheet.Sheet, error) {
	var r io.Reader = in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	stmts, err := parseScript(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	s := spreadsheet.New(spreadsheet.WithLogger(logger))

	rejected, err := applyScript(ctx, s, stmts, keepGoing)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	prog.done(fmt.Sprintf("Applied %d statements, %d rejected, %d cells", len(stmts), rejected, s.Len()))
	return s, nil
}
