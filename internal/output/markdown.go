package output

import (
	"io"
	"strings"

	"github.com/phyten/funclen/internal/engine"
)

// WriteMarkdownTable renders items as a GitHub Flavored Markdown table.
// Numeric columns are right aligned.
func WriteMarkdownTable(w io.Writer, items []engine.Item, sel FieldSelection) error {
	align := make([]string, len(sel.Fields))
	for i, f := range sel.Fields {
		align[i] = "---"
		if f.Numeric {
			align[i] = "--:"
		}
	}
	rows := [][]string{Headers(sel.Fields), align}
	for _, it := range items {
		row := RowValues(it, sel.Fields)
		for i := range row {
			row[i] = escapeMarkdownCell(row[i])
		}
		rows = append(rows, row)
	}
	for _, row := range rows {
		if _, err := io.WriteString(w, "| "+strings.Join(row, " | ")+" |\n"); err != nil {
			return err
		}
	}
	return nil
}

var markdownCell = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "", "|", `\|`)

func escapeMarkdownCell(s string) string {
	return markdownCell.Replace(s)
}
