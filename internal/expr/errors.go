package expr

import "fmt"

// ParseError reports malformed expression text. The engine state of any
// caller is untouched by a parse failure.
type ParseError struct {
	// Msg describes the failure.
	Msg string
	// Pos is the byte offset of the offending token, -1 when unknown.
	Pos int
	// Got carries an argument count for arity errors, 0 otherwise.
	Got int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Got > 0 {
		msg = fmt.Sprintf("%s, got %d", msg, e.Got)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("parse error at position %d: %s", e.Pos, msg)
	}
	return "parse error: " + msg
}
