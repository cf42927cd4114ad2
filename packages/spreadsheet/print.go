package spreadsheet

import (
	"bufio"
	"io"

	"github.com/vogtb/go-spreadsheet/packages/position"
)

// PrintValues writes the computed value of every position in the printable
// area, tab separated, one row per line. Unset cells print as empty fields.
func (s *Sheet) PrintValues(w io.Writer) error {
	return s.print(w, func(c *Cell) string { return c.Value().String() })
}

// PrintTexts is like PrintValues but writes the raw text of each cell.
func (s *Sheet) PrintTexts(w io.Writer) error {
	return s.print(w, (*Cell).Text)
}

// ValueGrid returns the printable area as rows of rendered values.
func (s *Sheet) ValueGrid() [][]string {
	return s.grid(func(c *Cell) string { return c.Value().String() })
}

// TextGrid returns the printable area as rows of raw texts.
func (s *Sheet) TextGrid() [][]string {
	return s.grid((*Cell).Text)
}

func (s *Sheet) grid(project func(*Cell) string) [][]string {
	rows := make([][]string, s.size.Rows)
	for row := range rows {
		rows[row] = make([]string, s.size.Cols)
		for col := range rows[row] {
			if cell, ok := s.cells[position.Position{Row: row, Col: col}]; ok {
				rows[row][col] = project(cell)
			}
		}
	}
	return rows
}

func (s *Sheet) print(w io.Writer, project func(*Cell) string) error {
	bw := bufio.NewWriter(w)
	for _, row := range s.grid(project) {
		for col, field := range row {
			if col > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(field)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
