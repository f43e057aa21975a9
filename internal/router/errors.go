package router

import (
	"errors"
	"fmt"

	"github.com/sidlab/sid/internal/diagram"
	"github.com/sidlab/sid/internal/expr"
	"github.com/sidlab/sid/internal/field"
	"github.com/sidlab/sid/internal/rewrite"
)

// ErrorCode is the wire-level error category carried in error responses.
type ErrorCode string

const (
	// CodeBadRequest indicates a malformed or incomplete request.
	CodeBadRequest ErrorCode = "BAD_REQUEST"

	// CodeUnknownCommand indicates an unrecognized command name.
	CodeUnknownCommand ErrorCode = "UNKNOWN_COMMAND"

	// CodeEngineNotFound indicates the engine_id has no live session.
	CodeEngineNotFound ErrorCode = "ENGINE_NOT_FOUND"

	// CodeParseError indicates malformed expression text.
	CodeParseError ErrorCode = "PARSE_ERROR"

	// CodeStructuralError indicates a rejected diagram mutation.
	CodeStructuralError ErrorCode = "STRUCTURAL_ERROR"

	// CodeLogicError indicates a violated caller contract.
	CodeLogicError ErrorCode = "LOGIC_ERROR"

	// CodeConservationViolation indicates a failed mixer post-condition
	// or an exceeded correction-scale cap.
	CodeConservationViolation ErrorCode = "CONSERVATION_VIOLATION"

	// CodeUnboundVariable indicates a replacement variable with no
	// binding.
	CodeUnboundVariable ErrorCode = "UNBOUND_VARIABLE"

	// CodeInternal indicates a router-side failure.
	CodeInternal ErrorCode = "INTERNAL"
)

// ProtocolError is a request-level failure raised by the router itself,
// before any engine operation runs.
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeForError maps an error to its wire code. Uses errors.As so
// wrapped errors classify correctly.
func CodeForError(err error) ErrorCode {
	var proto *ProtocolError
	if errors.As(err, &proto) {
		return proto.Code
	}
	var pe *expr.ParseError
	if errors.As(err, &pe) {
		return CodeParseError
	}
	var ue *rewrite.UnboundVariableError
	if errors.As(err, &ue) {
		return CodeUnboundVariable
	}
	var se *diagram.StructuralError
	if errors.As(err, &se) {
		return CodeStructuralError
	}
	var ce *field.ConservationError
	if errors.As(err, &ce) {
		return CodeConservationViolation
	}
	var le *field.LogicError
	if errors.As(err, &le) {
		return CodeLogicError
	}
	return CodeInternal
}
