package grammar

import "fmt"

// ParseError reports where search text stopped matching a grammar.
// Column is 1-based and counts runes.
type ParseError struct {
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error in search string at column %d: %s", e.Column, e.Msg)
}

func errorf(pos int, format string, args ...any) *ParseError {
	return &ParseError{Column: pos + 1, Msg: fmt.Sprintf(format, args...)}
}
