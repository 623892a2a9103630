package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	data := "frames: 3\nwidth: 32\nlabel_prefix: test\ntint: [0, 1, 0, 1]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Frames != 3 || cfg.Width != 32 || cfg.LabelPrefix != "test" {
		t.Errorf("cfg = %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.Height != 256 || cfg.Counters != 256 {
		t.Errorf("defaults lost: height %d counters %d", cfg.Height, cfg.Counters)
	}

	b := cfg.tintBytes()
	if len(b) != 16 {
		t.Fatalf("tint bytes = %d, want 16", len(b))
	}
	if g := math.Float32frombits(uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24); g != 1 {
		t.Errorf("tint green = %v, want 1", g)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "frames: [\n"},
		{"zero width", "width: 0\n"},
		{"negative frames", "frames: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := loadConfig(path); err == nil {
				t.Error("loadConfig should fail")
			}
		})
	}
	if _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestRunNoop(t *testing.T) {
	cfg := defaultConfig()
	cfg.Frames = 2
	if err := run(cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
}
