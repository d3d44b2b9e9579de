package output

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/phyten/funclen/internal/engine"
)

// formulaLead are the first characters spreadsheets read as the start of a
// formula. '-' is left out so stdin locations such as "-:3" stay as they are.
const formulaLead = "=+@\t\r"

// WriteCSV renders items as CSV with CRLF line endings (RFC 4180). Cells that a
// spreadsheet would evaluate, typically file names from the scanned tree, are
// prefixed with a single quote.
func WriteCSV(w io.Writer, items []engine.Item, sel FieldSelection) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Headers(sel.Fields)); err != nil {
		return err
	}
	for _, it := range items {
		row := RowValues(it, sel.Fields)
		for i, cell := range row {
			row[i] = guardFormula(cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func guardFormula(cell string) string {
	if cell != "" && strings.ContainsRune(formulaLead, rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
