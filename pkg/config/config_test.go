package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"ufwcfg/pkg/errors"
)

func TestParse(t *testing.T) {
	data := `
# selection for the shop printer
[printer]
model: ENDER5_PLUS
faster_baudrate: yes

[Probe]
mount: ENDER5_PLUS_OEM
points = 9
offset: -44, -9, 0 ; stock bracket
`

	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if !cfg.HasSection("printer") {
		t.Error("expected [printer] section to exist")
	}
	if !cfg.HasSection("probe") {
		t.Error("expected section names to be case-insensitive")
	}
	if cfg.HasSection("nonexistent") {
		t.Error("expected [nonexistent] section to not exist")
	}

	printer, err := cfg.GetSection("printer")
	if err != nil {
		t.Fatalf("GetSection(printer) failed: %v", err)
	}
	model, err := printer.Get("model")
	if err != nil {
		t.Fatalf("Get(model) failed: %v", err)
	}
	if model != "ENDER5_PLUS" {
		t.Errorf("expected 'ENDER5_PLUS', got '%s'", model)
	}
	fast, err := printer.GetBool("faster_baudrate")
	if err != nil || !fast {
		t.Errorf("expected faster_baudrate true, got %v (%v)", fast, err)
	}

	probe, _ := cfg.GetSection("probe")
	points, err := probe.GetInt("points")
	if err != nil || points != 9 {
		t.Errorf("expected points 9, got %d (%v)", points, err)
	}
	offset, err := probe.GetFloatList("offset", ",")
	if err != nil {
		t.Fatalf("GetFloatList(offset) failed: %v", err)
	}
	if len(offset) != 3 || offset[0] != -44 || offset[1] != -9 || offset[2] != 0 {
		t.Errorf("unexpected offset: %v", offset)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.ErrorCode
		line int
	}{
		{"option before section", "model: CR10\n", errors.ErrConfigOption, 1},
		{"malformed", "[printer]\nmodel CR10\n", errors.ErrConfigOption, 2},
		{"empty header", "\n\n[]\n", errors.ErrConfigSection, 3},
		{"unterminated", "[printer\n", errors.ErrConfigSection, 1},
	}
	for _, tt := range tests {
		_, err := parse(tt.data)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, tt.code) {
			t.Errorf("%s: expected code %s, got %v", tt.name, tt.code, err)
		}
		var be *errors.BuildError
		if !stderrors.As(err, &be) || be.Line != tt.line {
			t.Errorf("%s: expected line %d in %q", tt.name, tt.line, err.Error())
		}
		if !strings.Contains(err.Error(), "line "+strconv.Itoa(tt.line)) {
			t.Errorf("%s: expected line number in message %q", tt.name, err.Error())
		}
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.cfg"), "[printer]\nmodel: ENDER3\nreverse_x: false\n")
	writeFile(t, filepath.Join(dir, "main.cfg"), "[include base.cfg]\n[printer]\nreverse_x: true\n")

	cfg, err := Load(filepath.Join(dir, "main.cfg"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sec, _ := cfg.GetSection("printer")
	if v, _ := sec.Get("model"); v != "ENDER3" {
		t.Errorf("expected included model ENDER3, got %q", v)
	}
	if v, _ := sec.GetBool("reverse_x"); !v {
		t.Error("expected later definition to override include")
	}
}

func TestRecursiveInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.cfg"), "[include b.cfg]\n")
	writeFile(t, filepath.Join(dir, "b.cfg"), "[include a.cfg]\n")

	_, err := Load(filepath.Join(dir, "a.cfg"))
	if err == nil || !strings.Contains(err.Error(), "recursive include") {
		t.Fatalf("expected recursive include error, got %v", err)
	}
}

func TestMissingInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.cfg"), "[include nope.cfg]\n")
	if _, err := Load(filepath.Join(dir, "a.cfg")); err == nil {
		t.Fatal("expected error for missing include")
	}
	// A glob that matches nothing is fine.
	writeFile(t, filepath.Join(dir, "b.cfg"), "[include extras/*.cfg]\n")
	if _, err := Load(filepath.Join(dir, "b.cfg")); err != nil {
		t.Fatalf("unexpected error for empty glob: %v", err)
	}
}

func TestSectionGet(t *testing.T) {
	data := `
[test]
string_val: hello
int_val: 42
float_val: 0.15f
dot_val: .1
bool_true: on
bool_false: no
bad_int: 4.5
`
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	sec, _ := cfg.GetSection("test")

	if v, _ := sec.Get("missing", "fallback"); v != "fallback" {
		t.Errorf("expected fallback, got %q", v)
	}
	if v, _ := sec.GetFloat("float_val"); v != 0.15 {
		t.Errorf("expected 0.15 with f suffix dropped, got %v", v)
	}
	if v, _ := sec.GetFloat("dot_val"); v != 0.1 {
		t.Errorf("expected .1 to parse, got %v", v)
	}
	if v, _ := sec.GetBool("bool_false", true); v {
		t.Error("expected bool_false to be false")
	}
	if _, err := sec.GetInt("bad_int"); !errors.Is(err, errors.ErrConfigType) {
		t.Errorf("expected CONFIG_TYPE error, got %v", err)
	}
	if v, err := sec.GetIntOptional("missing_int"); v != nil || err != nil {
		t.Errorf("expected nil optional, got %v %v", v, err)
	}
	if v, err := sec.GetFloatOptional("float_val"); v == nil || *v != 0.15 || err != nil {
		t.Errorf("expected optional 0.15, got %v %v", v, err)
	}
}

func TestAccessTracking(t *testing.T) {
	data := `
[test]
used1: value1
used2: value2
unused1: value3

[unused_section]
key: value
`
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	sec, _ := cfg.GetSection("test")
	sec.Get("used1")
	sec.Get("used2")

	if unused := sec.GetUnusedOptions(); len(unused) != 1 || unused[0] != "unused1" {
		t.Errorf("expected only unused1 unread, got %v", unused)
	}

	err = cfg.CheckUnusedOptions()
	if err == nil || !strings.Contains(err.Error(), "unused1") {
		t.Errorf("expected unused1 to be reported, got %v", err)
	}
	if !errors.IsConfig(err) {
		t.Errorf("expected a config error code, got %v", err)
	}

	unused := cfg.GetUnusedSections()
	if len(unused) != 1 || unused[0] != "unused_section" {
		t.Errorf("expected [unused_section] unused, got %v", unused)
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		desc    string
		opts    PinOptions
		want    string
		wantErr bool
	}{
		{"PA1", PinOptions{}, "PA1", false},
		{" pc14 ", PinOptions{}, "PC14", false},
		{"!PB7", PinOptions{CanInvert: true}, "!PB7", false},
		{"!PB7", PinOptions{}, "", true},
		{"PH1", PinOptions{}, "", true},
		{"PA16", PinOptions{}, "", true},
		{"PA01", PinOptions{}, "", true},
		{"gpio25", PinOptions{}, "", true},
		{"", PinOptions{}, "", true},
	}

	for _, tt := range tests {
		pin, err := ParsePin(tt.desc, tt.opts)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePin(%q): expected error, got %v", tt.desc, pin)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePin(%q) failed: %v", tt.desc, err)
			continue
		}
		if pin.String() != tt.want {
			t.Errorf("ParsePin(%q) = %q, want %q", tt.desc, pin.String(), tt.want)
		}
	}
}

func TestGetChoice(t *testing.T) {
	cfg, _ := parse("[probe]\nleveling: abl_ubl\nbad: mesh\n")
	sec, _ := cfg.GetSection("probe")
	choices := []string{"ABL_BILINEAR", "ABL_UBL"}

	v, err := sec.GetChoice("leveling", choices)
	if err != nil || v != "ABL_UBL" {
		t.Errorf("expected ABL_UBL, got %q (%v)", v, err)
	}
	if _, err := sec.GetChoice("bad", choices); err == nil {
		t.Error("expected invalid choice error")
	}
}

func TestBoundsChecking(t *testing.T) {
	cfg, _ := parse("[shaping]\nfreq_x: 250\ndamping_x: 0.15\nedge: -3\n")
	sec, _ := cfg.GetSection("shaping")

	zero, max := 0.0, 200.0
	if _, err := sec.GetFloatWithBounds("freq_x", FloatBounds{Above: &zero, MaxVal: &max}); err == nil {
		t.Error("expected freq_x above maximum to fail")
	}
	one := 1.0
	v, err := sec.GetFloatWithBounds("damping_x", FloatBounds{MinVal: &zero, MaxVal: &one})
	if err != nil || v != 0.15 {
		t.Errorf("expected damping 0.15, got %v (%v)", v, err)
	}

	floor := 0
	if _, err := sec.GetIntWithBounds("edge", &floor, nil); !errors.Is(err, errors.ErrConfigValidation) {
		t.Errorf("expected negative edge to fail validation, got %v", err)
	}
	if v, err := sec.GetIntWithBounds("points", &floor, nil, 9); err != nil || v != 9 {
		t.Errorf("expected fallback 9, got %v (%v)", v, err)
	}
}

func TestMissingOptionError(t *testing.T) {
	cfg, _ := parse("[printer]\n")
	sec, _ := cfg.GetSection("printer")

	_, err := sec.Get("model")
	if err == nil {
		t.Fatal("expected error for missing option")
	}
	ce, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if ce.Section != "printer" || ce.Option != "model" {
		t.Errorf("unexpected error context: %+v", ce)
	}
	if !errors.Is(err, errors.ErrConfigOption) {
		t.Errorf("expected CONFIG_OPTION code, got %v", err)
	}
}

func TestConfigMergeAndSet(t *testing.T) {
	base, _ := parse("[printer]\nmodel: ENDER3\n")
	over, _ := parse("[printer]\nmodel: CR10\n[misc]\nfan_fix: yes\n")
	base.Merge(over)
	base.Set("Printer", "faster_baudrate", "true")

	sec, _ := base.GetSection("printer")
	if v, _ := sec.Get("model"); v != "CR10" {
		t.Errorf("expected merged model CR10, got %q", v)
	}
	if v, _ := sec.GetBool("faster_baudrate"); !v {
		t.Error("expected Set to add option")
	}
	if !base.HasSection("misc") {
		t.Error("expected merged [misc]")
	}
}

func TestChangedSections(t *testing.T) {
	old, _ := parse("[printer]\nmodel: ENDER3\n[misc]\nfan_fix: yes\n[gone]\nx: 1\n")
	cur, _ := parse("[printer]\nmodel: ENDER3\n[misc]\nfan_fix: no\n[new]\ny: 2\n")

	changed := ChangedSections(old, cur)
	want := []string{"misc", "new", "gone"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Errorf("ChangedSections = %v, want %v", changed, want)
	}
	if len(old.GetUnusedSections()) != 3 {
		t.Error("ChangedSections must not mark sections accessed")
	}
}

// parse reads an in-memory config the way LoadReader does for stdin.
func parse(data string) (*Config, error) {
	return LoadReader(strings.NewReader(data), "")
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}
