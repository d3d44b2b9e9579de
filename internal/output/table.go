package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/termcolor"
	"github.com/phyten/funclen/internal/textutil"
)

// TableOptions controls the human readable renderers.
type TableOptions struct {
	Color   bool
	Palette termcolor.Palette
	// MaxCell cuts every cell to this many terminal cells. Zero disables it.
	MaxCell int
}

const columnGap = "  "

// WriteTable aligns columns by display width. Numeric columns are right
// aligned and trailing blanks are trimmed.
func WriteTable(w io.Writer, items []engine.Item, sel FieldSelection, opts TableOptions) error {
	rows := make([][]string, 0, len(items))
	widths := make([]int, len(sel.Fields))
	for i, h := range Headers(sel.Fields) {
		widths[i] = textutil.Width(h)
	}
	for _, it := range items {
		row := RowValues(it, sel.Fields)
		for i, v := range row {
			v = flattenCell(v)
			if opts.MaxCell > 0 {
				v = textutil.Fit(v, opts.MaxCell)
			}
			row[i] = v
			if cw := textutil.Width(v); cw > widths[i] {
				widths[i] = cw
			}
		}
		rows = append(rows, row)
	}

	bw := bufio.NewWriter(w)
	header := Headers(sel.Fields)
	for i := range header {
		header[i] = opts.Palette.Header().Render(header[i], opts.Color)
	}
	writeRow(bw, sel.Fields, header, widths)
	for idx, row := range rows {
		it := items[idx]
		for i, f := range sel.Fields {
			switch f.Key {
			case "status":
				row[i] = opts.Palette.Status(it.Exceeded).Render(row[i], opts.Color)
			case "lines":
				row[i] = opts.Palette.Lines(it.LineCount, it.MaxLines).Render(row[i], opts.Color)
			}
		}
		writeRow(bw, sel.Fields, row, widths)
	}
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, fields []Field, cells []string, widths []int) {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(columnGap)
		}
		if fields[i].Numeric {
			b.WriteString(textutil.PadLeft(cell, widths[i]))
		} else {
			b.WriteString(textutil.PadRight(cell, widths[i]))
		}
	}
	bw.WriteString(strings.TrimRight(b.String(), " "))
	bw.WriteByte('\n')
}

// WriteTSV writes tab separated values with tabs and newlines in cells
// replaced by spaces.
func WriteTSV(w io.Writer, items []engine.Item, sel FieldSelection) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(Headers(sel.Fields), "\t") + "\n")
	for _, it := range items {
		row := RowValues(it, sel.Fields)
		for i := range row {
			row[i] = flattenCell(row[i])
		}
		bw.WriteString(strings.Join(row, "\t") + "\n")
	}
	return bw.Flush()
}

var cellFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

func flattenCell(s string) string {
	return cellFlattener.Replace(s)
}
