package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
)

// SectionDecoder consumes one config section.
type SectionDecoder func(section *Section) error

// Registry maps section names to decoders. Sections no decoder claims are
// left unaccessed and show up in CheckUnusedSections.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]SectionDecoder
}

// NewRegistry creates a new decoder registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]SectionDecoder)}
}

// Register adds the decoder for a section name, ignoring case.
func (r *Registry) Register(name string, decoder SectionDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[strings.ToLower(name)] = decoder
}

// GetDecoder returns the decoder for a section name, or nil if not found.
func (r *Registry) GetDecoder(sectionName string) SectionDecoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.decoders[strings.ToLower(sectionName)]
}

// Decode runs the matching decoder for every section of cfg in file order.
// All decoder errors are collected; unclaimed sections and options are
// reported last.
func (r *Registry) Decode(cfg *Config) error {
	var errs []error
	for _, name := range cfg.GetSectionNames() {
		decoder := r.GetDecoder(name)
		if decoder == nil {
			continue
		}
		sec, err := cfg.GetSection(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := decoder(sec); err != nil {
			errs = append(errs, fmt.Errorf("[%s]: %w", name, err))
		}
	}
	if err := cfg.CheckUnusedSections(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.CheckUnusedOptions(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
