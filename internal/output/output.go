package output

import (
	"fmt"
	"io"

	"github.com/phyten/funclen/internal/engine"
)

// Write renders res in format, one of the names accepted by
// opts.NormalizeOutput.
func Write(w io.Writer, format string, res *engine.Result, sel FieldSelection, table TableOptions) error {
	switch format {
	case "", "table":
		return WriteTable(w, res.Items, sel, table)
	case "tsv":
		return WriteTSV(w, res.Items, sel)
	case "json":
		return WriteJSON(w, res)
	case "ndjson":
		return WriteNDJSON(w, res.Items)
	case "csv":
		return WriteCSV(w, res.Items, sel)
	case "markdown":
		return WriteMarkdownTable(w, res.Items, sel)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
