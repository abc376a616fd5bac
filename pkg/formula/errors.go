package formula

import (
	"fmt"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// ErrorKind classifies a validation failure so editors can explain it.
type ErrorKind string

// ErrorKind values.
const (
	KindSyntax          ErrorKind = "syntax"
	KindUnbalanced      ErrorKind = "unbalanced"
	KindUnknownFunction ErrorKind = "unknown_function"
	KindArity           ErrorKind = "arity"
	KindUnknownField    ErrorKind = "unknown_field"
)

// SyntaxError is a malformed formula. Pos is a byte offset into the source.
type SyntaxError struct {
	Kind ErrorKind
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Msg, e.Pos+1)
}

func syntaxErrorf(kind ErrorKind, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// evalError aborts evaluation of the current formula. It never escapes the
// package; [Evaluate] turns it into a failed [fields.Result].
type evalError struct {
	code fields.ErrorCode
	msg  string
}

func (e *evalError) Error() string {
	return string(e.code) + " " + e.msg
}

func errRef(format string, args ...any) *evalError {
	return &evalError{code: fields.ErrCodeRef, msg: fmt.Sprintf(format, args...)}
}

func errEval(format string, args ...any) *evalError {
	return &evalError{code: fields.ErrCodeError, msg: fmt.Sprintf(format, args...)}
}

func errDivZero() *evalError {
	return &evalError{code: fields.ErrCodeDivZero, msg: "division by zero"}
}
