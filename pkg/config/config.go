package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ufwcfg/pkg/errors"
)

// Config provides access to a selection file with access tracking, so that
// options nothing consumed can be reported back to the user.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string // Maintains section order

	// Access tracking for sections
	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a selection file and returns a Config.
// Supports [include path] directives, resolved relative to the including file.
func Load(path string) (*Config, error) {
	c := New()
	visited := make(map[string]bool)
	if err := c.parseFile(path, visited); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadReader parses a configuration from r. name is used in error messages
// and as the base for include directives.
func LoadReader(r io.Reader, name string) (*Config, error) {
	c := New()
	dir := "."
	if name != "" {
		dir = filepath.Dir(name)
	}
	if err := c.parse(r, name, dir, make(map[string]bool)); err != nil {
		return nil, err
	}
	return c, nil
}

// parseFile parses a config file and handles include directives.
func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: invalid path %s: %w", path, err)
	}

	// Check for recursive includes
	if visited[abs] {
		return errors.New(errors.ErrConfigSection, "recursive include").SetFile(path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	defer f.Close()

	return c.parse(f, path, filepath.Dir(abs), visited)
}

func (c *Config) parse(r io.Reader, name, dir string, visited map[string]bool) error {
	var currentSection string
	var currentOptions map[string]string

	flush := func() {
		if currentSection != "" {
			c.addSection(currentSection, currentOptions)
		}
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return errors.New(errors.ErrConfigSection, "unterminated section header").
					SetFile(name).SetLine(lineNum)
			}
			flush()
			currentSection, currentOptions = "", nil

			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return errors.New(errors.ErrConfigSection, "empty section header").
					SetFile(name).SetLine(lineNum)
			}

			if strings.HasPrefix(header, "include ") {
				if err := c.include(strings.TrimSpace(header[8:]), dir, visited); err != nil {
					return err
				}
				continue
			}

			currentSection = strings.ToLower(header)
			currentOptions = make(map[string]string)
			continue
		}

		if currentSection == "" {
			return errors.New(errors.ErrConfigOption, "option outside of any section").
				SetFile(name).SetLine(lineNum)
		}

		// Parse key: value or key = value
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(line, "=", 2)
		}
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return errors.New(errors.ErrConfigOption, fmt.Sprintf("malformed line %q", line)).
				SetFile(name).SetLine(lineNum)
		}
		currentOptions[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: error reading %s: %w", name, err)
	}

	flush()
	return nil
}

func (c *Config) include(spec, dir string, visited map[string]bool) error {
	if spec == "" {
		return errors.New(errors.ErrConfigSection, "empty include")
	}
	glob := spec
	if !filepath.IsAbs(glob) {
		glob = filepath.Join(dir, spec)
	}
	matches, err := filepath.Glob(glob)
	if err != nil {
		return fmt.Errorf("config: invalid include pattern %q: %w", spec, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 && !hasGlobMeta(glob) {
		return errors.New(errors.ErrConfigSection, "include file does not exist").SetFile(glob)
	}
	for _, m := range matches {
		if err := c.parseFile(m, visited); err != nil {
			return err
		}
	}
	return nil
}

// hasGlobMeta returns true if the path contains glob metacharacters.
func hasGlobMeta(path string) bool {
	return strings.ContainsAny(path, "*?[")
}

// addSection adds a section to the config.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Later definitions of a section override earlier ones option by option.
	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}

	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// GetSection returns a Section by name, or error if not found.
func (c *Config) GetSection(name string) (*Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[strings.ToLower(name)]
	if !ok {
		return nil, ErrMissingSection(name)
	}
	c.accessedSections[sec.name] = struct{}{}
	return sec, nil
}

// HasSection checks if a section exists.
func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[strings.ToLower(name)]
	return ok
}

// GetSections returns all sections in file order.
func (c *Config) GetSections() []*Section {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Section, 0, len(c.sections))
	for _, name := range c.order {
		result = append(result, c.sections[name])
	}
	return result
}

// GetSectionNames returns all section names in order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// GetUnusedSections returns a list of sections that were not accessed.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// CheckUnusedSections returns an error if there are unused sections.
func (c *Config) CheckUnusedSections() error {
	unused := c.GetUnusedSections()
	if len(unused) > 0 {
		return newCodedError(errors.ErrConfigSection, "", "", fmt.Sprintf("unknown sections: %v", unused))
	}
	return nil
}

// CheckUnusedOptions returns an error if any section has unused options.
func (c *Config) CheckUnusedOptions() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var problems []string
	for name, sec := range c.sections {
		unused := sec.GetUnusedOptions()
		if len(unused) > 0 {
			sort.Strings(unused)
			problems = append(problems, fmt.Sprintf("[%s]: unknown options %v", name, unused))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return newCodedError(errors.ErrConfigOption, "", "", strings.Join(problems, "; "))
	}
	return nil
}

// Set stores an option value, creating the section if needed. It is used to
// apply overrides on top of a loaded file.
func (c *Config) Set(section, option, value string) {
	c.addSection(strings.ToLower(section), map[string]string{option: value})
}

// Merge layers other over c: its sections are added and its options replace
// the ones c already has.
func (c *Config) Merge(other *Config) {
	for _, sec := range other.GetSections() {
		c.addSection(sec.name, sec.RawOptions())
	}
}
