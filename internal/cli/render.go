package cli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-graphviz"

	"github.com/vogtb/go-spreadsheet/internal/config"
	"github.com/vogtb/go-spreadsheet/packages/position"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

var (
	colorDim  = lipgloss.Color("240")
	colorGray = lipgloss.Color("245")
	colorRed  = lipgloss.Color("203")

	headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	errorStyle  = cellStyle.Foreground(colorRed)
)

// renderTable draws the printable area of s as a bordered table with column
// letters and row numbers. An empty sheet renders as "".
func renderTable(s *spreadsheet.Sheet, mode string) string {
	size := s.GetPrintableSize()
	if size.Rows == 0 || size.Cols == 0 {
		return ""
	}

	grid := s.ValueGrid()
	if mode == config.ModeTexts {
		grid = s.TextGrid()
	}

	headers := make([]string, size.Cols+1)
	for col := range size.Cols {
		headers[col+1] = position.ColumnName(col)
	}
	rows := make([][]string, len(grid))
	for row, fields := range grid {
		rows[row] = append([]string{strconv.Itoa(row + 1)}, fields...)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			if mode == config.ModeTexts {
				return cellStyle
			}

			v, err := s.GetValue(position.Position{Row: row, Col: col - 1})
			switch {
			case err != nil:
				return cellStyle
			case v.IsError():
				return errorStyle
			case v.Kind == spreadsheet.ValueNumber:
				return numberStyle
			default:
				return cellStyle
			}
		})

	return t.Render() + "\n"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
