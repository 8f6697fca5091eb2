package main

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/park285/fenscan/internal/board"
)

// renderGrid draws the position as an 8×8 table with rank and file labels,
// White at the bottom.
func renderGrid(g board.Grid, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		tw.SetStyle(table.StyleColoredDark)
	}

	header := table.Row{""}
	for f := 0; f < 8; f++ {
		header = append(header, string(rune('a'+f)))
	}
	tw.AppendHeader(header)

	for row := 0; row < 8; row++ {
		r := table.Row{strconv.Itoa(8 - row)}
		for col := 0; col < 8; col++ {
			r = append(r, cellText(g[row*8+col], colorize))
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, 9)
	for i := 1; i <= 9; i++ {
		configs = append(configs, table.ColumnConfig{
			Number:      i,
			Align:       text.AlignCenter,
			AlignHeader: text.AlignCenter,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func cellText(l board.Label, colorize bool) string {
	if l == board.Empty {
		return "·"
	}
	s := string(l.FENRune())
	if !colorize {
		return s
	}
	if l.IsWhite() {
		return text.Colors{text.Bold, text.FgHiWhite}.Sprint(s)
	}
	return text.Colors{text.Bold, text.FgHiRed}.Sprint(s)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}
