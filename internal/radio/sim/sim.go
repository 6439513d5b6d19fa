// Package sim provides a simulated radio source for development and testing.
// It synthesizes a complex tone at a configurable offset from the tuned
// center frequency with additive Gaussian noise, so downstream consumers see
// a recognizable spectral line that moves when the source is retuned.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
)

const (
	Device = "simulated"

	// Tunable range, loosely modeled on a wideband receiver.
	MinFreq = 100e3
	MaxFreq = 6e9

	defaultBlockSize = 16384
	defaultNoiseAmp  = 1e-3
)

// Config carries the simulated source parameters.
type Config struct {
	SampleRate float64 `yaml:"sampleRate" json:"sampleRate"` // Samples per second
	BlockSize  int     `yaml:"blockSize" json:"blockSize"`   // Samples per delivered block
	ToneOffset float64 `yaml:"toneOffset" json:"toneOffset"` // Tone offset in Hz from the tuned center
	NoiseAmp   float64 `yaml:"noiseAmp" json:"noiseAmp"`     // Gaussian noise amplitude added to both rails
}

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("device", Device))
	}
}

// Source implements radio.Source with synthesized IQ data.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	freq    float64
	retunes int

	isRunning atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a simulated source.
func New(cfg Config, options ...func(*Source)) (*Source, error) {
	if cfg.SampleRate <= 0 {
		return nil, radio.NewConfigError("sim: invalid sample rate: %f", cfg.SampleRate)
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.BlockSize < 0 {
		return nil, radio.NewConfigError("sim: invalid block size: %d", cfg.BlockSize)
	}
	if cfg.NoiseAmp == 0 {
		cfg.NoiseAmp = defaultNoiseAmp
	}

	s := Source{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// Retune moves the simulated center frequency. Frequencies outside the
// supported range fail with a *radio.HardwareError, mirroring what real
// hardware reports for an impossible tune request.
func (s *Source) Retune(freqHz float64) error {
	if math.IsNaN(freqHz) || freqHz < MinFreq || freqHz > MaxFreq {
		return radio.NewHardwareError(fmt.Sprintf("sim: frequency %.0f Hz outside [%.0f, %.0f]", freqHz, MinFreq, MaxFreq), nil)
	}

	s.mu.Lock()
	s.freq = freqHz
	s.retunes++
	s.mu.Unlock()

	s.logger.Debug("retuned", slog.Float64("freqHz", freqHz))
	return nil
}

// Frequency returns the currently tuned center frequency.
func (s *Source) Frequency() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freq
}

// RetuneCount returns the number of successful retunes.
func (s *Source) RetuneCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retunes
}

// Start begins synthesizing IQ blocks. Delivery is consumer-paced: the
// source blocks until the previous block has been taken or the context is
// canceled.
func (s *Source) Start(ctx context.Context) (<-chan []complex64, error) {
	if s.isRunning.Load() {
		return nil, fmt.Errorf("sim: source is already running")
	}
	s.isRunning.Store(true)

	ctx, s.cancel = context.WithCancel(ctx)
	blocks := make(chan []complex64)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(blocks)

		s.logger.Info("starting sample synthesis...")

		var phase float64
		step := 2 * math.Pi * s.cfg.ToneOffset / s.cfg.SampleRate

		for {
			block := make([]complex64, s.cfg.BlockSize)
			for i := range block {
				re := math.Cos(phase) + rand.NormFloat64()*s.cfg.NoiseAmp
				im := math.Sin(phase) + rand.NormFloat64()*s.cfg.NoiseAmp
				block[i] = complex64(complex(re, im))
				phase += step
			}
			phase = math.Mod(phase, 2*math.Pi)

			select {
			case blocks <- block:
			case <-ctx.Done():
				s.logger.Info("sample synthesis stopped")
				s.isRunning.Store(false)
				return
			}
		}
	}()

	return blocks, nil
}

// Stop cancels synthesis and waits for the delivery goroutine to finish.
func (s *Source) Stop() error {
	if !s.isRunning.Load() {
		return nil // already stopped
	}

	s.cancel()
	s.wg.Wait()
	s.isRunning.Store(false)
	return nil
}

// Device returns the device type
func (s *Source) Device() string {
	return Device
}

// DeviceID returns the device identifier
func (s *Source) DeviceID() string {
	return fmt.Sprintf("%s-%0.0fsps", Device, s.cfg.SampleRate)
}
