package output

import (
	"encoding/json"
	"io"

	"github.com/phyten/funclen/internal/engine"
)

// WriteJSON writes the whole result as one indented document.
func WriteJSON(w io.Writer, res *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

// WriteNDJSON streams items as newline-delimited JSON objects.
func WriteNDJSON(w io.Writer, items []engine.Item) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
