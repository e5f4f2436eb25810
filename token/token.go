// Package token defines source positions attached to syntax nodes.
// Parsing happens upstream; compiled programs only carry positions for
// diagnostics and the source map.
package token

// Position points to a particular location in an input string.
type Position struct {
	Line   int // 0-based line
	Column int // 0-based column
	File   string
}

// LineNumber returns the 1-indexed line number for this position.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// IsZero reports whether the position has not been set.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.File == ""
}
