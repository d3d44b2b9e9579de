// Package output renders scan results in the formats accepted by --output.
package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/phyten/funclen/internal/engine"
)

type Field struct {
	Key     string
	Header  string
	Numeric bool
}

type FieldSelection struct {
	Fields []Field
}

var fieldRegistry = map[string]Field{
	"location": {Key: "location", Header: "LOCATION"},
	"file":     {Key: "file", Header: "FILE"},
	"line":     {Key: "line", Header: "LINE", Numeric: true},
	"col":      {Key: "col", Header: "COL", Numeric: true},
	"end_line": {Key: "end_line", Header: "END_LINE", Numeric: true},
	"lang":     {Key: "lang", Header: "LANG"},
	"lines":    {Key: "lines", Header: "LINES", Numeric: true},
	"max":      {Key: "max", Header: "MAX", Numeric: true},
	"status":   {Key: "status", Header: "STATUS"},
	"message":  {Key: "message", Header: "MESSAGE"},
}

var defaultFieldKeys = []string{"location", "lang", "lines", "max", "status", "message"}

// DefaultFields returns the column set used when --fields is empty.
func DefaultFields() FieldSelection {
	sel, _ := ResolveFields("")
	return sel
}

// ResolveFields parses a comma separated column list.
func ResolveFields(raw string) (FieldSelection, error) {
	raw = strings.TrimSpace(raw)
	keys := defaultFieldKeys
	if raw != "" {
		keys = strings.Split(raw, ",")
	}
	sel := FieldSelection{Fields: make([]Field, 0, len(keys))}
	for _, part := range keys {
		name := strings.TrimSpace(part)
		if name == "" {
			return FieldSelection{}, fmt.Errorf("invalid fields: empty entry")
		}
		f, ok := fieldRegistry[strings.ToLower(name)]
		if !ok {
			return FieldSelection{}, fmt.Errorf("unknown field: %s", name)
		}
		sel.Fields = append(sel.Fields, f)
	}
	return sel, nil
}

// Headers returns the column titles of fields.
func Headers(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Header
	}
	return out
}

// RowValues formats it for fields.
func RowValues(it engine.Item, fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = Value(it, f.Key)
	}
	return out
}

func Value(it engine.Item, key string) string {
	switch key {
	case "location":
		return fmt.Sprintf("%s:%d", it.File, it.Line)
	case "file":
		return it.File
	case "line":
		return strconv.Itoa(it.Line)
	case "col":
		return strconv.Itoa(it.Span.StartCol)
	case "end_line":
		return strconv.Itoa(it.Span.EndLine)
	case "lang":
		return it.Lang
	case "lines":
		return strconv.Itoa(it.LineCount)
	case "max":
		return strconv.Itoa(it.MaxLines)
	case "status":
		return Status(it.Exceeded)
	case "message":
		return it.Message
	default:
		return ""
	}
}

func Status(exceeded bool) string {
	if exceeded {
		return "EXCEEDED"
	}
	return "OK"
}
