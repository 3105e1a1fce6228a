package query

import (
	"fmt"
	"io"
	"strings"
)

// Print renders rs as an aligned ASCII table when it carries rows, or just
// its status Message for a DDL/DML statement. Grounded on cmd/repl/main.go's
// formatted `.stats` printing style, generalized into a real row/column
// table renderer since a query result has an arbitrary column count instead
// of a fixed stats layout.
func Print(w io.Writer, rs *ResultSet) {
	if rs.Cols == nil {
		fmt.Fprintln(w, rs.Message)
		return
	}

	headers := make([]string, len(rs.Cols))
	widths := make([]int, len(rs.Cols))
	for i, c := range rs.Cols {
		headers[i] = c.Name
		widths[i] = len(c.Name)
	}
	cells := make([][]string, len(rs.Rows))
	for r, row := range rs.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := fmt.Sprintf("%v", v)
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	printRule(w, widths)
	printRow(w, headers, widths)
	printRule(w, widths)
	for _, row := range cells {
		printRow(w, row, widths)
	}
	printRule(w, widths)
	fmt.Fprintf(w, "(%d row(s))\n", len(rs.Rows))
}

func printRule(w io.Writer, widths []int) {
	parts := make([]string, len(widths))
	for i, wd := range widths {
		parts[i] = strings.Repeat("-", wd+2)
	}
	fmt.Fprintf(w, "+%s+\n", strings.Join(parts, "+"))
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i, wd := range widths {
		parts[i] = fmt.Sprintf(" %-*s ", wd, cells[i])
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(parts, "|"))
}
