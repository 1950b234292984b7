package config

import (
	"fmt"
	"strings"
	"testing"

	"ufwcfg/pkg/errors"
)

func TestRegistryExactMatch(t *testing.T) {
	r := NewRegistry()
	r.Register("printer", func(sec *Section) error { return nil })

	if r.GetDecoder("printer") == nil {
		t.Fatal("expected decoder for 'printer'")
	}
	if r.GetDecoder("PRINTER") == nil {
		t.Fatal("expected lookup to be case-insensitive")
	}
	if r.GetDecoder("probe") != nil {
		t.Fatal("expected no decoder for 'probe'")
	}
}

func TestRegistryDecodeCollectsErrors(t *testing.T) {
	data := `
[printer]
model: CR10
typo_option: 1

[probe]
points: 4

[unknown]
x: 1
`
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	r := NewRegistry()
	r.Register("printer", func(sec *Section) error {
		_, err := sec.Get("model")
		return err
	})
	r.Register("probe", func(sec *Section) error {
		points, err := sec.GetInt("points")
		if err != nil {
			return err
		}
		if points%2 == 0 {
			return ErrOutOfRange(sec.GetName(), "points", float64(points), "must be odd")
		}
		return nil
	})

	err = r.Decode(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	for _, want := range []string{"must be odd", "typo_option", "unknown"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	codes := errors.Codes(err)
	if len(codes) != 3 {
		t.Errorf("expected 3 coded errors, got %v", codes)
	}
}

func TestRegistryDecodeError(t *testing.T) {
	r := NewRegistry()
	r.Register("printer", func(sec *Section) error {
		return fmt.Errorf("boom")
	})
	cfg, _ := parse("[printer]\n")
	err := r.Decode(cfg)
	if err == nil || !strings.Contains(err.Error(), "[printer]: boom") {
		t.Fatalf("expected wrapped decoder error, got %v", err)
	}
}
