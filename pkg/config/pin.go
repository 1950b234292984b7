package config

import (
	"strconv"
	"strings"
)

// Pin represents a parsed STM32 pin specification such as "PA1".
type Pin struct {
	Name   string // Canonical pin name (e.g., "PA1")
	Port   byte   // GPIO port letter, 'A' through 'G'
	Num    int    // Pin number within the port, 0 through 15
	Invert bool   // Inverted logic (! prefix)
}

// PinOptions specifies parsing options for pin specifications.
type PinOptions struct {
	CanInvert bool // Allow ! prefix for inverted logic
}

// ParsePin parses a pin specification string.
// Format: [!]P<port><num>, case-insensitive. Examples: "PA1", "pc14", "!PB7".
func ParsePin(desc string, opts PinOptions) (Pin, error) {
	d := strings.TrimSpace(desc)
	if d == "" {
		return Pin{}, NewConfigError("", "", "empty pin specification")
	}

	var p Pin
	if d[0] == '!' {
		if !opts.CanInvert {
			return Pin{}, NewConfigError("", "", "pin cannot be inverted: "+desc)
		}
		p.Invert = true
		d = strings.TrimSpace(d[1:])
	}

	d = strings.ToUpper(d)
	if len(d) < 3 || d[0] != 'P' || d[1] < 'A' || d[1] > 'G' {
		return Pin{}, NewConfigError("", "", "invalid STM32 pin name: "+desc)
	}
	n, err := strconv.Atoi(d[2:])
	if err != nil || n < 0 || n > 15 || (len(d) > 3 && d[2] == '0') {
		return Pin{}, NewConfigError("", "", "invalid STM32 pin number: "+desc)
	}

	p.Port = d[1]
	p.Num = n
	p.Name = d
	return p, nil
}

// String returns the pin in the form the firmware headers use.
func (p Pin) String() string {
	if p.Invert {
		return "!" + p.Name
	}
	return p.Name
}

// GetPinOptional returns a Pin option value, or nil if not present.
func (s *Section) GetPinOptional(option string, opts PinOptions) (*Pin, error) {
	key := strings.ToLower(option)
	if v, ok := s.options[key]; ok {
		s.markAccessed(option)
		pin, err := ParsePin(v, opts)
		if err != nil {
			return nil, WrapError(s.name, option, err)
		}
		return &pin, nil
	}
	return nil, nil
}
