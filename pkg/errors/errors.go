// Unified error handling for the firmware configuration resolver
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration file errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Selection errors (mutually exclusive choices and required values)
	ErrSelectionPrinter  ErrorCode = "SELECTION_PRINTER"
	ErrSelectionConflict ErrorCode = "SELECTION_CONFLICT"
	ErrSelectionRequired ErrorCode = "SELECTION_REQUIRED"
	ErrSelectionRange    ErrorCode = "SELECTION_RANGE"
	ErrSelectionUnknown  ErrorCode = "SELECTION_UNKNOWN"

	// Resolution errors
	ErrResolveMismatch ErrorCode = "RESOLVE_MISMATCH"

	// Header errors
	ErrHeaderParse ErrorCode = "HEADER_PARSE"
	ErrHeaderWrite ErrorCode = "HEADER_WRITE"

	// EEPROM dump errors
	ErrEEPROMParse ErrorCode = "EEPROM_PARSE"

	// Profile store errors
	ErrStoreNotFound ErrorCode = "STORE_NOT_FOUND"
	ErrStoreIO       ErrorCode = "STORE_IO"
)

// BuildError is the unified error type for configuration resolution.
// Every failure the resolver reports happens before a firmware build starts.
type BuildError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// File is the source file (if available)
	File string

	// Line is the line number in the source file (if available)
	Line int

	// Macro is the firmware macro the error refers to (if applicable)
	Macro string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(e.Code))
	if e.Macro != "" {
		sb.WriteString(":")
		sb.WriteString(e.Macro)
	}
	sb.WriteString("] ")
	if e.File != "" {
		sb.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ":%d", e.Line)
		}
		sb.WriteString(": ")
	} else if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap returns the underlying error
func (e *BuildError) Unwrap() error {
	return e.Err
}

// SetFile sets the source file
func (e *BuildError) SetFile(file string) *BuildError {
	e.File = file
	return e
}

// SetLine sets the line number
func (e *BuildError) SetLine(line int) *BuildError {
	e.Line = line
	return e
}

// SetMacro sets the firmware macro name
func (e *BuildError) SetMacro(macro string) *BuildError {
	e.Macro = macro
	return e
}

// SetContext adds additional context
func (e *BuildError) SetContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *BuildError {
	return &BuildError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new BuildError
func New(code ErrorCode, message string) *BuildError {
	return &BuildError{
		Code:    code,
		Message: message,
	}
}

// Selection errors

// PrinterSelectionError reports a selection that does not name exactly one printer.
func PrinterSelectionError(selected []string) *BuildError {
	var msg string
	switch len(selected) {
	case 0:
		msg = "no printer model selected, exactly one is required"
	default:
		msg = fmt.Sprintf("%d printer models selected (%s), only one printer can be enabled at a time",
			len(selected), strings.Join(selected, ", "))
	}
	return New(ErrSelectionPrinter, msg).SetContext("selected", selected)
}

// ConflictError reports two options that cannot be enabled together.
func ConflictError(macro, other, reason string) *BuildError {
	return New(ErrSelectionConflict, fmt.Sprintf("%s conflicts with %s: %s", macro, other, reason)).
		SetMacro(macro)
}

// RequiredError reports a value that is required because another option is enabled.
func RequiredError(macro, requiredBy string) *BuildError {
	return New(ErrSelectionRequired, fmt.Sprintf("%s must be set when %s is enabled", macro, requiredBy)).
		SetMacro(macro)
}

// RangeError reports a numeric value outside its allowed range.
func RangeError(macro string, value float64, constraint string) *BuildError {
	return New(ErrSelectionRange, fmt.Sprintf("value %v %s", value, constraint)).
		SetMacro(macro)
}

// UnknownError reports a name that is not one of the valid choices.
func UnknownError(macro, value string, choices []string) *BuildError {
	return New(ErrSelectionUnknown, fmt.Sprintf("'%s' is not a valid choice (valid: %s)", value, strings.Join(choices, ", "))).
		SetMacro(macro)
}

// Header errors

// HeaderParseError creates an error for a malformed header line
func HeaderParseError(file string, line int, reason string) *BuildError {
	return New(ErrHeaderParse, reason).SetFile(file).SetLine(line)
}

// EEPROMParseError creates an error for an unreadable M503 dump
func EEPROMParseError(reason string) *BuildError {
	return New(ErrEEPROMParse, reason)
}

// Is checks if err, or any error it wraps, carries the given error code
func Is(err error, code ErrorCode) bool {
	found := false
	walk(err, func(be *BuildError) {
		if be.Code == code {
			found = true
		}
	})
	return found
}

// walk visits every BuildError in the tree of err, following both single
// and errors.Join style wrapping.
func walk(err error, visit func(*BuildError)) {
	if err == nil {
		return
	}
	if be, ok := err.(*BuildError); ok {
		visit(be)
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			walk(inner, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}

// IsConfig checks if error is a config file error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsSelection checks if error is a selection validation error
func IsSelection(err error) bool {
	return Is(err, ErrSelectionPrinter) ||
		Is(err, ErrSelectionConflict) ||
		Is(err, ErrSelectionRequired) ||
		Is(err, ErrSelectionRange) ||
		Is(err, ErrSelectionUnknown)
}

// Codes lists every BuildError code found in err, in order of appearance.
func Codes(err error) []ErrorCode {
	var out []ErrorCode
	walk(err, func(be *BuildError) {
		out = append(out, be.Code)
	})
	return out
}
