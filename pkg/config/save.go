package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Document is an ordered INI document under construction. Unlike Config it
// preserves the order options were added in, so saved files read the same
// way every time.
type Document struct {
	header   []string
	sections []*docSection
}

type docSection struct {
	name    string
	comment string
	keys    []string
	values  map[string]string
}

// NewDocument creates an empty document. Header lines are written as
// comments at the top of the file.
func NewDocument(header ...string) *Document {
	return &Document{header: header}
}

// Section returns the named section, creating it at the end if needed.
func (d *Document) Section(name string) *DocSection {
	for _, s := range d.sections {
		if s.name == name {
			return &DocSection{s}
		}
	}
	s := &docSection{name: name, values: make(map[string]string)}
	d.sections = append(d.sections, s)
	return &DocSection{s}
}

// DocSection appends options to one section of a Document.
type DocSection struct {
	s *docSection
}

// Comment sets a comment written above the section header.
func (ds *DocSection) Comment(text string) *DocSection {
	ds.s.comment = text
	return ds
}

// Set stores a value. Setting an existing key replaces it in place.
func (ds *DocSection) Set(key, value string) *DocSection {
	if _, ok := ds.s.values[key]; !ok {
		ds.s.keys = append(ds.s.keys, key)
	}
	ds.s.values[key] = value
	return ds
}

// Bytes renders the document. Empty sections are skipped.
func (d *Document) Bytes() []byte {
	var sb strings.Builder
	for _, h := range d.header {
		sb.WriteString("# ")
		sb.WriteString(h)
		sb.WriteString("\n")
	}
	first := true
	for _, s := range d.sections {
		if len(s.keys) == 0 {
			continue
		}
		if !first {
			sb.WriteString("\n")
		}
		first = false
		if s.comment != "" {
			sb.WriteString("# ")
			sb.WriteString(s.comment)
			sb.WriteString("\n")
		}
		sb.WriteString("[")
		sb.WriteString(s.name)
		sb.WriteString("]\n")
		for _, k := range s.keys {
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(s.values[k])
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String())
}

// SaveOptions controls Save.
type SaveOptions struct {
	// Backup copies an existing file to name-YYYYMMDD_HHMMSS.ext first.
	Backup bool
	// Now overrides the clock used for backup names.
	Now func() time.Time
}

// Save writes the document atomically to path.
func (d *Document) Save(path string, opts SaveOptions) error {
	if opts.Backup {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := createBackup(path, now()); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	if err := renameio.WriteFile(path, d.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// createBackup creates a timestamped backup of the file at path, if any.
func createBackup(path string, now time.Time) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read original file: %w", err)
	}

	// printer.cfg -> printer-20060102_150405.cfg
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	backupPath := fmt.Sprintf("%s-%s%s", base, now.Format("20060102_150405"), ext)
	return renameio.WriteFile(backupPath, data, 0o644)
}
