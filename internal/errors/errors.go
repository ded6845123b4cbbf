// Package errors is the failure taxonomy shared by the search and assembly
// packages. Every failure surfaced by a pipeline run carries one Kind so the
// caller (or a job-orchestration layer above it) can decide what to do.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindMalformedInput is a wrong sequence count or an unsupported file extension/format.
	KindMalformedInput Kind = "malformed_input"

	// KindUnsupportedFormat is a tool/format mismatch.
	KindUnsupportedFormat Kind = "unsupported_format"

	// KindEmptyAlignment means there were no usable MSAs at assembly time.
	KindEmptyAlignment Kind = "empty_alignment"

	// KindToolExecution is a non-zero exit from an external process or an I/O failure.
	KindToolExecution Kind = "tool_execution"

	// KindAssemblyConflict is a duplicate feature name across feature sources.
	KindAssemblyConflict Kind = "assembly_conflict"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyAlignment    = errors.New("empty alignment")
	ErrToolExecution     = errors.New("tool execution failed")
	ErrAssemblyConflict  = errors.New("feature assembly conflict")
)

var sentinels = map[Kind]error{
	KindMalformedInput:    ErrMalformedInput,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindEmptyAlignment:    ErrEmptyAlignment,
	KindToolExecution:     ErrToolExecution,
	KindAssemblyConflict:  ErrAssemblyConflict,
}

// Error is a classified failure.
type Error struct {
	// Kind of the failure
	Kind Kind

	// Op is what was being done, ex: "read fasta" or "jackhmmer"
	Op string

	// Err is the underlying cause, may be nil
	Err error

	msg string
}

// Error formats the failure as "op: message: cause".
func (e *Error) Error() string {
	s := e.msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's Kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: err, msg: fmt.Sprintf(format, args...)}
}

// MalformedInput reports bad input, ex: a FASTA file with two sequences.
func MalformedInput(op, format string, args ...any) *Error {
	return newError(KindMalformedInput, op, nil, format, args...)
}

// UnsupportedFormat reports a format a tool cannot consume or produce.
func UnsupportedFormat(op, format string, args ...any) *Error {
	return newError(KindUnsupportedFormat, op, nil, format, args...)
}

// EmptyAlignment reports that there is nothing to build MSA features from.
func EmptyAlignment(op, format string, args ...any) *Error {
	return newError(KindEmptyAlignment, op, nil, format, args...)
}

// ToolExecution wraps a process or I/O failure.
func ToolExecution(op string, err error, format string, args ...any) *Error {
	return newError(KindToolExecution, op, err, format, args...)
}

// AssemblyConflict reports a feature name produced by more than one source.
func AssemblyConflict(op, format string, args ...any) *Error {
	return newError(KindAssemblyConflict, op, nil, format, args...)
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// StageError records which pipeline stage a failure happened in.
type StageError struct {
	// Stage is the name of the failed stage
	Stage string

	// Err is the stage's failure
	Err error
}

// Error returns the stage-prefixed message.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the stage's failure.
func (e *StageError) Unwrap() error {
	return e.Err
}
