package app

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/spectrum-analyzer/internal/dsp"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio/sim"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio/spyserver"
)

const (
	BackendSpyserver = "spyserver"
	BackendSimulated = "simulated"
)

// Defaults for the sweep parameters. The delays are expressed in samples and
// sized for a 10 MS/s stream.
const (
	defaultSampleRate   = 10e6
	defaultFFTSize      = 1024
	defaultOverlap      = 25
	defaultNFrames      = 30
	defaultInitialDelay = 1_000_000
	defaultTuneDelay    = 100_000
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	Radio    RadioConfig   `yaml:"radio"`
	Sweep    SweepConfig   `yaml:"sweep"`
	Journal  JournalConfig `yaml:"journal"`
	Render   RenderConfig  `yaml:"render"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SlogLevel converts the configured log level to a slog.Level
func (s *Settings) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// RadioConfig selects and configures the radio backend
type RadioConfig struct {
	Backend    string            `yaml:"backend"`
	SampleRate float64           `yaml:"sampleRate"`
	Spyserver  *spyserver.Config `yaml:"spyserver"`
	Simulated  *sim.Config       `yaml:"simulated"`
}

// SweepConfig carries the span and timing parameters of the sweep
type SweepConfig struct {
	CenterFreq   float64 `yaml:"centerFreq"`   // Center of the swept area in Hz
	Span         float64 `yaml:"span"`         // Width of the swept area in Hz, 0 for single segment
	FFTSize      int     `yaml:"fftSize"`      // FFT bins per frame, multiple of 32
	Overlap      int     `yaml:"overlap"`      // Cropped percentage of outer bins
	Window       string  `yaml:"window"`       // Window name, see internal/dsp
	Detector     string  `yaml:"detector"`     // avg or peak
	NFrames      int     `yaml:"nframes"`      // DFT frames per segment
	LOOffset     float64 `yaml:"loOffset"`     // LO offset in Hz applied to every retune
	InitialDelay *int    `yaml:"initialDelay"` // Settling samples before the first segment
	TuneDelay    *int    `yaml:"tuneDelay"`    // Settling samples after each retune
	Continuous   bool    `yaml:"continuous"`   // Sweep indefinitely instead of a single span
}

// JournalConfig represents sweep journal settings
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

// RenderConfig represents spectrum snapshot settings
type RenderConfig struct {
	Enabled         bool    `yaml:"enabled"`
	OutputDirectory string  `yaml:"outputDirectory"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FontPath        string  `yaml:"fontPath"`
	FontSize        float64 `yaml:"fontSize"`
	EverySpans      uint64  `yaml:"everySpans"` // Snapshot every Nth span, 1 for all
}

// LoadConfig reads, defaults and validates the configuration file
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	config.applyDefaults()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Radio.Backend == "" {
		c.Radio.Backend = BackendSimulated
	}
	if c.Radio.SampleRate == 0 {
		c.Radio.SampleRate = defaultSampleRate
	}
	if c.Radio.Backend == BackendSimulated && c.Radio.Simulated == nil {
		c.Radio.Simulated = &sim.Config{}
	}
	if c.Radio.Simulated != nil && c.Radio.Simulated.SampleRate == 0 {
		c.Radio.Simulated.SampleRate = c.Radio.SampleRate
	}
	if c.Radio.Spyserver != nil && c.Radio.Spyserver.SampleRate == 0 {
		c.Radio.Spyserver.SampleRate = uint32(c.Radio.SampleRate)
	}

	if c.Sweep.FFTSize == 0 {
		c.Sweep.FFTSize = defaultFFTSize
	}
	if c.Sweep.Overlap == 0 {
		c.Sweep.Overlap = defaultOverlap
	}
	if c.Sweep.Window == "" {
		c.Sweep.Window = dsp.DefaultWindow
	}
	if c.Sweep.NFrames == 0 {
		c.Sweep.NFrames = defaultNFrames
	}
	if c.Sweep.InitialDelay == nil {
		v := defaultInitialDelay
		c.Sweep.InitialDelay = &v
	}
	if c.Sweep.TuneDelay == nil {
		v := defaultTuneDelay
		c.Sweep.TuneDelay = &v
	}

	if c.Render.EverySpans == 0 {
		c.Render.EverySpans = 1
	}
}

func (c *Config) Validate() error {
	switch c.Radio.Backend {
	case BackendSpyserver:
		if c.Radio.Spyserver == nil {
			return fmt.Errorf("radio: spyserver backend selected but not configured")
		}
		if err := c.Radio.Spyserver.Validate(); err != nil {
			return err
		}

	case BackendSimulated:
		// Defaults suffice; the source validates the rest.

	default:
		return fmt.Errorf("radio: unknown backend %q", c.Radio.Backend)
	}

	if c.Sweep.CenterFreq <= 0 {
		return fmt.Errorf("sweep: center frequency is required")
	}
	if *c.Sweep.InitialDelay < 0 {
		return fmt.Errorf("sweep: initial delay cannot be negative: %d", *c.Sweep.InitialDelay)
	}
	if *c.Sweep.TuneDelay < 0 {
		return fmt.Errorf("sweep: tune delay cannot be negative: %d", *c.Sweep.TuneDelay)
	}
	if _, err := dsp.ParseDetector(c.Sweep.Detector); err != nil {
		return err
	}

	return nil
}
