// G-code line parsing for firmware console output
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcode

import (
	"regexp"
	"strconv"
	"strings"
)

// Command is a single parsed G-code line.
type Command struct {
	Name string
	Args map[string]string
	Raw  string
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// Parse splits a G-code line into its command word and letter arguments.
// Comments (";" to end of line and parenthesised) are dropped. A line that
// holds no command returns nil without error.
//
// Firmware console output prefixes echoed lines with "echo:", and M503
// replies may carry several "echo:" segments; only the last segment is used.
func Parse(line string) *Command {
	ln := strings.TrimSpace(line)
	if idx := strings.LastIndex(ln, "echo:"); idx >= 0 {
		ln = strings.TrimSpace(ln[idx+len("echo:"):])
	}
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = strings.TrimSpace(ln[:idx])
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	if ln == "" {
		return nil
	}

	fields := strings.Fields(ln)
	name := strings.ToUpper(fields[0])
	if !isCommandWord(name) {
		return nil
	}
	args := map[string]string{}
	for _, f := range fields[1:] {
		if strings.Contains(f, "=") {
			kv := strings.SplitN(f, "=", 2)
			if k := strings.ToUpper(strings.TrimSpace(kv[0])); k != "" {
				args[k] = strings.TrimSpace(kv[1])
			}
			continue
		}
		// Single letters are flags without a value.
		k := strings.ToUpper(f[:1])
		args[k] = strings.TrimSpace(f[1:])
	}
	return &Command{Name: name, Args: args, Raw: line}
}

// isCommandWord reports whether s looks like G28, M503 or T0.
func isCommandWord(s string) bool {
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case 'G', 'M', 'T':
	default:
		return false
	}
	_, err := strconv.ParseFloat(s[1:], 64)
	return err == nil
}

// Has reports whether the argument letter is present.
func (c *Command) Has(key string) bool {
	_, ok := c.Args[strings.ToUpper(key)]
	return ok
}

// Float returns the numeric value of an argument. ok is false when the
// argument is absent; err is set when it is present but not a number.
func (c *Command) Float(key string) (v float64, ok bool, err error) {
	s, ok := c.Args[strings.ToUpper(key)]
	if !ok {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	return v, true, err
}
