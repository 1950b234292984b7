package header

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"ufwcfg/pkg/config"
	"ufwcfg/pkg/errors"
	"ufwcfg/pkg/selection"
)

// Marker separates the user section from the derived section.
const Marker = "DO NOT TOUCH ANYTHING BELOW"

// Defines holds the macros found in a header's user section.
type Defines struct {
	Values map[string]string
	// Order lists macro names in the order they were first defined.
	Order []string
	// Line maps each macro to the line that defined it.
	Line map[string]int
}

type frame struct {
	active bool // current branch is taken
	taken  bool // some branch of this #if was taken
	parent bool // enclosing block is active
}

// ReadDefines collects the #define directives of the user section of a
// header. Conditional blocks are evaluated against the macros defined above
// them, so options nested under a disabled feature are skipped.
func ReadDefines(r io.Reader, name string) (*Defines, []selection.Warning, error) {
	d := &Defines{Values: map[string]string{}, Line: map[string]int{}}
	var warns []selection.Warning
	var stack []frame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}
	lookup := func(m string) (string, bool) {
		v, ok := d.Values[m]
		return v, ok
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	inComment := false
	for sc.Scan() {
		lineNum++
		raw := sc.Text()
		if strings.Contains(raw, Marker) {
			break
		}
		var line string
		line, inComment = stripComments(raw, inComment)
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		directive, rest := splitDirective(line[1:])
		fail := func(format string, args ...any) error {
			return errors.HeaderParseError(name, lineNum, fmt.Sprintf(format, args...))
		}

		switch directive {
		case "if", "ifdef", "ifndef":
			f := frame{parent: active()}
			if f.parent {
				v, err := condition(directive, rest, lookup)
				if err != nil {
					return nil, nil, fail("%v", err)
				}
				f.active, f.taken = v, v
			}
			stack = append(stack, f)
		case "elif":
			if len(stack) == 0 {
				return nil, nil, fail("#elif without #if")
			}
			f := &stack[len(stack)-1]
			f.active = false
			if f.parent && !f.taken {
				v, err := evalCondition(rest, lookup)
				if err != nil {
					return nil, nil, fail("%v", err)
				}
				f.active, f.taken = v, v
			}
		case "else":
			if len(stack) == 0 {
				return nil, nil, fail("#else without #if")
			}
			f := &stack[len(stack)-1]
			f.active = f.parent && !f.taken
			f.taken = true
		case "endif":
			if len(stack) == 0 {
				return nil, nil, fail("#endif without #if")
			}
			stack = stack[:len(stack)-1]
		case "define":
			if !active() {
				continue
			}
			macro, value := splitDirective(rest)
			if macro == "" || strings.ContainsAny(macro, "(") {
				return nil, nil, fail("malformed #define %q", rest)
			}
			if _, dup := d.Values[macro]; dup {
				warns = append(warns, selection.Warning{
					Macro:   macro,
					Message: fmt.Sprintf("redefined on line %d (first on line %d); last value wins", lineNum, d.Line[macro]),
				})
			} else {
				d.Order = append(d.Order, macro)
				d.Line[macro] = lineNum
			}
			d.Values[macro] = normalizeValue(value)
		case "undef":
			if active() {
				delete(d.Values, strings.TrimSpace(rest))
			}
		case "pragma", "include", "error", "warning":
		default:
			if active() {
				return nil, nil, fail("unsupported directive #%s", directive)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(stack) > 0 {
		return nil, nil, errors.HeaderParseError(name, lineNum, fmt.Sprintf("%d unterminated #if block(s)", len(stack)))
	}
	return d, warns, nil
}

func condition(directive, rest string, lookup lookupFunc) (bool, error) {
	_, defined := lookup(strings.TrimSpace(rest))
	switch directive {
	case "ifdef":
		return defined, nil
	case "ifndef":
		return !defined, nil
	default:
		return evalCondition(rest, lookup)
	}
}

func splitDirective(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// stripComments removes // and /* */ comments outside string literals.
// inBlock reports whether the line starts inside a block comment.
func stripComments(line string, inBlock bool) (string, bool) {
	var sb strings.Builder
	inString := false
	for i := 0; i < len(line); i++ {
		if inBlock {
			if strings.HasPrefix(line[i:], "*/") {
				inBlock = false
				i++
			}
			continue
		}
		c := line[i]
		if inString {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				i++
				sb.WriteByte(line[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			sb.WriteByte(c)
		case strings.HasPrefix(line[i:], "//"):
			return sb.String(), false
		case strings.HasPrefix(line[i:], "/*"):
			inBlock = true
			i++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), inBlock
}

// normalizeValue drops the float suffix from numeric literals.
func normalizeValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "f") || strings.HasSuffix(v, "F") {
		if f, err := config.ParseNumber(v); err == nil {
			return selection.FormatFloat(f)
		}
	}
	return v
}

// Import reads a header and builds the selection its user section describes.
// Warnings cover redefined macros, options the firmware's precedence
// overrides and unrecognized options.
func Import(r io.Reader, name string) (selection.Selection, []selection.Warning, error) {
	d, warns, err := ReadDefines(r, name)
	if err != nil {
		return selection.Selection{}, nil, err
	}
	sel, more, err := selection.FromDefines(d.Values)
	warns = append(warns, more...)
	if err != nil {
		return selection.Selection{}, warns, setFile(err, name, d)
	}
	return sel, warns, nil
}

// setFile points header parse errors at the file and line of their macro.
func setFile(err error, name string, d *Defines) error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return err
	}
	for _, e := range joined.Unwrap() {
		if be, ok := e.(*errors.BuildError); ok && be.Macro != "" {
			be.SetFile(name).SetLine(d.Line[be.Macro])
		}
	}
	return err
}

// ImportFile is Import on a file path.
func ImportFile(path string) (selection.Selection, []selection.Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return selection.Selection{}, nil, err
	}
	defer f.Close()
	return Import(f, path)
}
