package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDocumentBytes(t *testing.T) {
	doc := NewDocument("generated by ufwcfg")
	doc.Section("printer").Set("model", "ENDER5_PLUS").Set("faster_baudrate", "true")
	doc.Section("empty")
	doc.Section("probe").Comment("leveling").Set("points", "9")
	doc.Section("printer").Set("model", "CR10")

	want := "# generated by ufwcfg\n" +
		"[printer]\nmodel: CR10\nfaster_baudrate: true\n" +
		"\n# leveling\n[probe]\npoints: 9\n"
	if got := string(doc.Bytes()); got != want {
		t.Errorf("Bytes() =\n%s\nwant\n%s", got, want)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc.Section("probe").Set("offset", "-44, -9, 0").Set("points", "9")

	cfg, err := parse(string(doc.Bytes()))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	sec, _ := cfg.GetSection("probe")
	offset, err := sec.GetFloatList("offset", ",")
	if err != nil || len(offset) != 3 || offset[0] != -44 {
		t.Errorf("unexpected offset %v (%v)", offset, err)
	}
}

func TestDocumentSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printer.cfg")
	if err := os.WriteFile(path, []byte("[printer]\nmodel: ENDER3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc := NewDocument()
	doc.Section("printer").Set("model", "CR10")

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	err := doc.Save(path, SaveOptions{Backup: true, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "[printer]\nmodel: CR10\n" {
		t.Errorf("unexpected saved content %q", data)
	}
	backup, err := os.ReadFile(filepath.Join(dir, "printer-20260304_050607.cfg"))
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != "[printer]\nmodel: ENDER3\n" {
		t.Errorf("unexpected backup content %q", backup)
	}
}

func TestDocumentSaveNoBackupForNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.cfg")
	doc := NewDocument()
	doc.Section("printer").Set("model", "CR10")
	if err := doc.Save(path, SaveOptions{Backup: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the saved file, got %d entries", len(entries))
	}
}
