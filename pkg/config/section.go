package config

import (
	"strconv"
	"strings"
	"sync"
)

// Section is one [name] block of a selection file. Every getter records the
// option as read so Registry.Decode can report the ones nobody asked for.
type Section struct {
	name    string
	options map[string]string

	mu   sync.Mutex
	read map[string]struct{}
}

func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{name: name, options: opts, read: make(map[string]struct{})}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

func (s *Section) markAccessed(option string) {
	s.mu.Lock()
	s.read[strings.ToLower(option)] = struct{}{}
	s.mu.Unlock()
}

// GetUnusedOptions returns the options no getter has read.
func (s *Section) GetUnusedOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var unused []string
	for opt := range s.options {
		if _, ok := s.read[opt]; !ok {
			unused = append(unused, opt)
		}
	}
	return unused
}

// HasOption reports whether the option is present. It does not count as a read.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// value is the shared body of the typed getters: a present option goes
// through parse, a missing one takes the first fallback or fails.
func value[T any](s *Section, option string, parse func(raw string) (T, error), fallback []T) (T, error) {
	if raw, ok := s.options[strings.ToLower(option)]; ok {
		s.markAccessed(option)
		return parse(raw)
	}
	if len(fallback) > 0 {
		s.markAccessed(option)
		return fallback[0], nil
	}
	var zero T
	return zero, ErrMissingOption(s.name, option)
}

// Get returns the raw string value of option.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	return value(s, option, func(raw string) (string, error) { return raw, nil }, fallback)
}

// GetInt returns a decimal integer option.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	return value(s, option, func(raw string) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, raw, "integer")
		}
		return i, nil
	}, fallback)
}

// GetFloat returns a number option in the syntax ParseNumber accepts.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	return value(s, option, func(raw string) (float64, error) {
		f, err := ParseNumber(raw)
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, raw, "float")
		}
		return f, nil
	}, fallback)
}

// FloatBounds limits a number option. Nil limits are not checked.
type FloatBounds struct {
	MinVal *float64 // >=
	MaxVal *float64 // <=
	Above  *float64 // >
	Below  *float64 // <
}

func (b FloatBounds) check(v float64) string {
	fmtf := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	switch {
	case b.MinVal != nil && v < *b.MinVal:
		return "must have minimum of " + fmtf(*b.MinVal)
	case b.MaxVal != nil && v > *b.MaxVal:
		return "must have maximum of " + fmtf(*b.MaxVal)
	case b.Above != nil && v <= *b.Above:
		return "must be above " + fmtf(*b.Above)
	case b.Below != nil && v >= *b.Below:
		return "must be below " + fmtf(*b.Below)
	}
	return ""
}

// GetFloatWithBounds is GetFloat plus a range check. The fallback is checked too.
func (s *Section) GetFloatWithBounds(option string, bounds FloatBounds, fallback ...float64) (float64, error) {
	v, err := s.GetFloat(option, fallback...)
	if err != nil {
		return 0, err
	}
	if msg := bounds.check(v); msg != "" {
		return 0, ErrOutOfRange(s.name, option, v, msg)
	}
	return v, nil
}

// GetIntWithBounds is GetInt plus an inclusive range check.
func (s *Section) GetIntWithBounds(option string, minVal, maxVal *int, fallback ...int) (int, error) {
	v, err := s.GetInt(option, fallback...)
	if err != nil {
		return 0, err
	}
	var b FloatBounds
	if minVal != nil {
		f := float64(*minVal)
		b.MinVal = &f
	}
	if maxVal != nil {
		f := float64(*maxVal)
		b.MaxVal = &f
	}
	if msg := b.check(float64(v)); msg != "" {
		return 0, ErrOutOfRange(s.name, option, float64(v), msg)
	}
	return v, nil
}

// GetBool accepts 1/true/yes/on and 0/false/no/off in any case.
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	return value(s, option, func(raw string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, ErrInvalidValue(s.name, option, raw, "boolean (true/false/yes/no/on/off/1/0)")
	}, fallback)
}

// GetChoice returns the entry of choices that matches the option ignoring
// case, spelled as in choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	return value(s, option, func(raw string) (string, error) {
		v := strings.TrimSpace(raw)
		for _, c := range choices {
			if strings.EqualFold(v, c) {
				return c, nil
			}
		}
		return "", ErrInvalidChoice(s.name, option, v, choices)
	}, fallback)
}

// GetList splits an option on sep, dropping empty items.
func (s *Section) GetList(option string, sep string, fallback ...[]string) ([]string, error) {
	return value(s, option, func(raw string) ([]string, error) {
		items := []string{}
		for _, p := range strings.Split(raw, sep) {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return items, nil
	}, fallback)
}

// GetFloatList is GetList with every item parsed as a number.
func (s *Section) GetFloatList(option string, sep string, fallback ...[]float64) ([]float64, error) {
	return value(s, option, func(raw string) ([]float64, error) {
		nums := []float64{}
		for _, p := range strings.Split(raw, sep) {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			f, err := ParseNumber(p)
			if err != nil {
				return nil, ErrInvalidValue(s.name, option, p, "float")
			}
			nums = append(nums, f)
		}
		return nums, nil
	}, fallback)
}

// GetFloatOptional returns nil when the option is absent.
func (s *Section) GetFloatOptional(option string) (*float64, error) {
	return optional(s, option, s.GetFloat)
}

// GetIntOptional returns nil when the option is absent.
func (s *Section) GetIntOptional(option string) (*int, error) {
	return optional(s, option, s.GetInt)
}

func optional[T any](s *Section, option string, get func(string, ...T) (T, error)) (*T, error) {
	if !s.HasOption(option) {
		return nil, nil
	}
	v, err := get(option)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RawOptions returns a copy of the options without marking them read.
func (s *Section) RawOptions() map[string]string {
	out := make(map[string]string, len(s.options))
	for k, v := range s.options {
		out[k] = v
	}
	return out
}

// ParseNumber parses a decimal number the way the firmware's headers write
// them: an optional trailing "f" float suffix and a bare leading dot are accepted.
func ParseNumber(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if len(v) > 1 && (v[len(v)-1] == 'f' || v[len(v)-1] == 'F') {
		v = v[:len(v)-1]
	}
	return strconv.ParseFloat(v, 64)
}
