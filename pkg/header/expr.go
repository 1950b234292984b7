package header

import (
	"fmt"
	"strings"
	"unicode"
)

// lookupFunc returns a macro's value and whether it is defined.
type lookupFunc func(name string) (string, bool)

// evalCondition evaluates the subset of preprocessor conditions the
// firmware headers use in their user section: ENABLED, DISABLED, ANY, ALL,
// NONE, BOTH, EITHER, defined(), !, && and ||.
func evalCondition(expr string, lookup lookupFunc) (bool, error) {
	p := &condParser{toks: tokenize(expr), lookup: lookup}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("unexpected %q in condition %q", p.toks[p.pos], expr)
	}
	return v, nil
}

func tokenize(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case strings.HasPrefix(s[i:], "&&"), strings.HasPrefix(s[i:], "||"):
			toks = append(toks, s[i:i+2])
			i += 2
		case c == '(' || c == ')' || c == ',' || c == '!':
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(s) && (s[j] == '_' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			if j == i {
				j = i + 1
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks
}

type condParser struct {
	toks   []string
	pos    int
	lookup lookupFunc
}

func (p *condParser) defined(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

// enabled follows the firmware's ENABLED(): a macro defined empty or to
// anything but 0/false counts as on.
func (p *condParser) enabled(name string) bool {
	v, ok := p.lookup(name)
	return ok && !isFalse(v)
}

func isFalse(v string) bool {
	switch strings.TrimSpace(v) {
	case "0", "false", "0x0", "0x00":
		return true
	}
	return false
}

func (p *condParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *condParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *condParser) expect(tok string) error {
	if got := p.next(); got != tok {
		return fmt.Errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *condParser) or() (bool, error) {
	v, err := p.and()
	if err != nil {
		return false, err
	}
	for p.peek() == "||" {
		p.next()
		r, err := p.and()
		if err != nil {
			return false, err
		}
		v = v || r
	}
	return v, nil
}

func (p *condParser) and() (bool, error) {
	v, err := p.unary()
	if err != nil {
		return false, err
	}
	for p.peek() == "&&" {
		p.next()
		r, err := p.unary()
		if err != nil {
			return false, err
		}
		v = v && r
	}
	return v, nil
}

func (p *condParser) unary() (bool, error) {
	switch tok := p.next(); tok {
	case "!":
		v, err := p.unary()
		return !v, err
	case "(":
		v, err := p.or()
		if err != nil {
			return false, err
		}
		return v, p.expect(")")
	case "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	case "defined":
		if p.peek() != "(" {
			return p.defined(p.next()), nil
		}
		args, err := p.args()
		if err != nil {
			return false, err
		}
		if len(args) != 1 {
			return false, fmt.Errorf("defined() takes one name")
		}
		return p.defined(args[0]), nil
	case "ENABLED", "DISABLED", "ANY", "ALL", "NONE", "BOTH", "EITHER":
		args, err := p.args()
		if err != nil {
			return false, err
		}
		if len(args) == 0 {
			return false, fmt.Errorf("%s() needs at least one name", tok)
		}
		n := 0
		for _, a := range args {
			if p.enabled(a) {
				n++
			}
		}
		switch tok {
		case "ENABLED", "ALL", "BOTH":
			return n == len(args), nil
		case "DISABLED", "NONE":
			return n == 0, nil
		default:
			return n > 0, nil
		}
	case "":
		return false, fmt.Errorf("unexpected end of condition")
	default:
		return false, fmt.Errorf("unsupported token %q", tok)
	}
}

func (p *condParser) args() ([]string, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var out []string
	for {
		tok := p.next()
		if tok == "" || tok == "(" || tok == "," || tok == "!" {
			return nil, fmt.Errorf("expected a macro name, got %q", tok)
		}
		if tok == ")" && len(out) == 0 {
			return out, nil
		}
		out = append(out, tok)
		switch p.next() {
		case ",":
		case ")":
			return out, nil
		default:
			return nil, fmt.Errorf("unterminated argument list")
		}
	}
}
