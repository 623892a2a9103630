package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"
)

// Config is the demo configuration read from -config.
type Config struct {
	Frames         int        `yaml:"frames"`
	Width          uint32     `yaml:"width"`
	Height         uint32     `yaml:"height"`
	Counters       uint32     `yaml:"counters"`
	EvictionWindow uint64     `yaml:"eviction_window"`
	LabelPrefix    string     `yaml:"label_prefix"`
	Clear          [4]float64 `yaml:"clear"`
	Tint           [4]float32 `yaml:"tint"`
}

func defaultConfig() Config {
	return Config{
		Frames:         10,
		Width:          256,
		Height:         256,
		Counters:       256,
		EvictionWindow: 60,
		LabelPrefix:    "demo",
		Clear:          [4]float64{0.1, 0.1, 0.1, 1},
		Tint:           [4]float32{1, 0.5, 0.2, 1},
	}
}

// loadConfig reads a YAML file over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Frames < 0:
		return fmt.Errorf("frames must not be negative")
	case c.Width == 0 || c.Height == 0:
		return fmt.Errorf("width and height must be positive")
	case c.Counters == 0:
		return fmt.Errorf("counters must be positive")
	}
	return nil
}

func (c Config) clearColor() gputypes.Color {
	return gputypes.Color{R: c.Clear[0], G: c.Clear[1], B: c.Clear[2], A: c.Clear[3]}
}

// tintBytes encodes Tint as a vec4<f32> uniform.
func (c Config) tintBytes() []byte {
	out := make([]byte, 16)
	for i, v := range c.Tint {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
