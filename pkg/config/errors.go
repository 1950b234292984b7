// Package config parses the INI dialect used for selection files and writes
// it back, with access tracking so unknown options are reported.
package config

import (
	"fmt"

	"ufwcfg/pkg/errors"
)

// ConfigError represents a configuration error with context. Its Cause is a
// coded BuildError, so errors.Is and errors.IsConfig see through it.
type ConfigError struct {
	Section string
	Option  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("Option '%s' in section '%s': %s", e.Option, e.Section, e.Message)
	}
	if e.Section != "" {
		return fmt.Sprintf("Section '%s': %s", e.Section, e.Message)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func newCodedError(code errors.ErrorCode, section, option, message string) *ConfigError {
	return &ConfigError{
		Section: section,
		Option:  option,
		Message: message,
		Cause:   errors.New(code, message).SetMacro(option),
	}
}

// NewConfigError creates a new ConfigError.
func NewConfigError(section, option, message string) *ConfigError {
	return newCodedError(errors.ErrConfigValidation, section, option, message)
}

// WrapError wraps an existing error with config context.
func WrapError(section, option string, err error) *ConfigError {
	return &ConfigError{
		Section: section,
		Option:  option,
		Message: err.Error(),
		Cause:   err,
	}
}

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *ConfigError {
	return newCodedError(errors.ErrConfigOption, section, option, "must be specified")
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *ConfigError {
	return newCodedError(errors.ErrConfigSection, section, "", "section not found")
}

// ErrInvalidValue returns an error for an invalid value.
func ErrInvalidValue(section, option, value, expected string) *ConfigError {
	return newCodedError(errors.ErrConfigType, section, option,
		fmt.Sprintf("invalid value '%s', expected %s", value, expected))
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *ConfigError {
	return newCodedError(errors.ErrConfigValidation, section, option,
		fmt.Sprintf("value %v %s", value, constraint))
}

// ErrInvalidChoice returns an error for an invalid choice value.
func ErrInvalidChoice(section, option, value string, choices []string) *ConfigError {
	return newCodedError(errors.ErrConfigValidation, section, option,
		fmt.Sprintf("'%s' is not a valid choice (valid: %v)", value, choices))
}
