package model

// Span は 1 件の関数候補の範囲を行・桁・バイトオフセットで表します。
// 行と桁は 1 始まり、バイトオフセットは半開区間 [ByteStart, ByteEnd) です。
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
	ByteStart int `json:"byte_start"`
	ByteEnd   int `json:"byte_end"`
}

// Finding は 1 つの Span を計測した結果です。
// LineCount は開始行と終了行を含む行数、Exceeded は LineCount > MaxLines のときのみ true になります。
type Finding struct {
	Lang      string `json:"lang"`
	Span      Span   `json:"span"`
	LineCount int    `json:"line_count"`
	MaxLines  int    `json:"max_lines"`
	Exceeded  bool   `json:"exceeded"`
}
