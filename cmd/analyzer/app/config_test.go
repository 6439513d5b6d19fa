package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
sweep:
  centerFreq: 700e6
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Radio.Backend != BackendSimulated {
		t.Errorf("Expected default backend %q, got %q", BackendSimulated, config.Radio.Backend)
	}
	if config.Radio.SampleRate != defaultSampleRate {
		t.Errorf("Expected default sample rate %f, got %f", float64(defaultSampleRate), config.Radio.SampleRate)
	}
	if config.Radio.Simulated == nil || config.Radio.Simulated.SampleRate != defaultSampleRate {
		t.Error("Expected the simulated backend to inherit the radio sample rate")
	}
	if config.Sweep.FFTSize != defaultFFTSize || config.Sweep.Overlap != defaultOverlap {
		t.Errorf("Unexpected FFT defaults: size=%d overlap=%d", config.Sweep.FFTSize, config.Sweep.Overlap)
	}
	if config.Sweep.InitialDelay == nil || *config.Sweep.InitialDelay != defaultInitialDelay {
		t.Error("Expected the default initial delay")
	}
	if config.Sweep.TuneDelay == nil || *config.Sweep.TuneDelay != defaultTuneDelay {
		t.Error("Expected the default tune delay")
	}
	if config.Render.EverySpans != 1 {
		t.Errorf("Expected to render every span by default, got %d", config.Render.EverySpans)
	}
}

func TestLoadConfig_ZeroDelaysPreserved(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
sweep:
  centerFreq: 700e6
  initialDelay: 0
  tuneDelay: 0
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// An explicit zero disables settling and must not be replaced with the
	// default.
	if *config.Sweep.InitialDelay != 0 || *config.Sweep.TuneDelay != 0 {
		t.Errorf("Expected zero delays, got initial=%d tune=%d",
			*config.Sweep.InitialDelay, *config.Sweep.TuneDelay)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing center frequency", `
radio:
  backend: simulated
`},
		{"unknown backend", `
radio:
  backend: airspy
sweep:
  centerFreq: 700e6
`},
		{"spyserver without config", `
radio:
  backend: spyserver
sweep:
  centerFreq: 700e6
`},
		{"negative tune delay", `
sweep:
  centerFreq: 700e6
  tuneDelay: -1
`},
		{"bad detector", `
sweep:
  centerFreq: 700e6
  detector: median
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.body)); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestSettings_SlogLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		s := Settings{LogLevel: tt.level}
		got, err := s.SlogLevel()
		if tt.wantErr {
			if err == nil {
				t.Errorf("Level %q: expected an error, got nil", tt.level)
			}
			continue
		}
		if err != nil {
			t.Errorf("Level %q: unexpected error: %v", tt.level, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Level %q: expected %v, got %v", tt.level, tt.want, got)
		}
	}
}
