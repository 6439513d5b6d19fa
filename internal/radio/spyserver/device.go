// Package spyserver implements a radio source backed by a remote spyserver
// instance, using the spy2go client. IQ samples arrive as float32 pairs over
// TCP and retunes are translated into server frequency commands.
package spyserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"

	spy "github.com/racerxdl/spy2go/spyserver"
	"github.com/racerxdl/spy2go/spytypes"

	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
)

const Device = "spyserver"

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(slog.String("device", Device))
	}
}

// WithBlockBuffer sets the number of IQ blocks buffered between the network
// callback and the consumer.
func WithBlockBuffer(n int) func(*Source) {
	return func(s *Source) {
		s.blockBuffer = n
	}
}

// Source implements radio.Source over a spyserver connection.
type Source struct {
	cfg    Config
	logger *slog.Logger

	server *spy.Spyserver
	blocks chan []complex64

	blockBuffer int
	isRunning   atomic.Bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a spyserver source. The connection is established by Start.
func New(cfg Config, options ...func(*Source)) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, radio.NewConfigError("%s", err.Error())
	}

	s := Source{
		cfg:         cfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		blockBuffer: 4,
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

// OnData implements spytypes.Callback. Only IQ payloads are forwarded; sync
// and FFT messages are ignored.
func (s *Source) OnData(dtype int, data interface{}) {
	if dtype != spytypes.SamplesComplex64 {
		return
	}

	samples, ok := data.([]complex64)
	if !ok {
		return
	}

	// spy2go reuses its parse buffers between messages.
	block := make([]complex64, len(samples))
	copy(block, samples)

	select {
	case s.blocks <- block:
	case <-s.ctx.Done():
	}
}

// Start connects to the server, configures streaming and begins delivering
// IQ blocks. The returned channel is closed when the source stops.
func (s *Source) Start(ctx context.Context) (<-chan []complex64, error) {
	if s.isRunning.Load() {
		return nil, fmt.Errorf("spyserver: source is already running")
	}

	s.server = spy.MakeSpyserverByFullHS(s.cfg.Addr())
	s.server.SetCallback(s)

	if err := s.connect(); err != nil {
		return nil, err
	}

	s.server.SetStreamingMode(spy.StreamModeIQOnly)
	if s.server.SetSampleRate(s.cfg.SampleRate) == spy.InvalidValue {
		s.server.Disconnect()
		return nil, radio.NewHardwareError(
			fmt.Sprintf("spyserver: sample rate %d not supported, available: %v", s.cfg.SampleRate, s.server.GetAvailableSampleRates()), nil)
	}
	if s.cfg.Gain != nil {
		if s.server.SetGain(*s.cfg.Gain) == spy.InvalidValue {
			s.server.Disconnect()
			return nil, radio.NewHardwareError(fmt.Sprintf("spyserver: invalid gain stage %d", *s.cfg.Gain), nil)
		}
	}

	s.isRunning.Store(true)
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.blocks = make(chan []complex64, s.blockBuffer)

	s.server.Start()
	s.logger.Info("streaming started",
		slog.String("addr", s.cfg.Addr()),
		slog.String("name", s.server.GetName()),
		slog.Uint64("sampleRate", uint64(s.cfg.SampleRate)))

	go func() {
		<-s.ctx.Done()

		s.server.Stop()
		s.server.Disconnect()
		close(s.blocks)
		s.isRunning.Store(false)
		s.logger.Info("streaming stopped")
	}()

	return s.blocks, nil
}

// connect wraps spy2go's Connect, which panics on failure, into an error.
func (s *Source) connect() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = radio.NewHardwareError(fmt.Sprintf("spyserver: connecting to %s", s.cfg.Addr()), fmt.Errorf("%v", r))
		}
	}()

	s.server.Connect()
	return nil
}

// Retune sets the IQ channel center frequency on the server.
func (s *Source) Retune(freqHz float64) error {
	if !s.isRunning.Load() {
		return radio.NewHardwareError("spyserver: not connected", nil)
	}
	if math.IsNaN(freqHz) || freqHz < 0 || freqHz > MaxFrequency {
		return radio.NewHardwareError(fmt.Sprintf("spyserver: frequency %.0f Hz not representable", freqHz), nil)
	}

	freq := uint32(math.Round(freqHz))
	if freq < s.server.MinimumTunableFrequency || freq > s.server.MaximumTunableFrequency {
		return radio.NewHardwareError(
			fmt.Sprintf("spyserver: frequency %d Hz outside device range [%d, %d]",
				freq, s.server.MinimumTunableFrequency, s.server.MaximumTunableFrequency), nil)
	}

	s.server.SetCenterFrequency(freq)
	s.logger.Debug("retuned", slog.Uint64("freqHz", uint64(freq)))
	return nil
}

// Stop terminates streaming and disconnects from the server.
func (s *Source) Stop() error {
	if !s.isRunning.Load() {
		return nil // already stopped
	}

	s.cancel()
	return nil
}

// Device returns the device type
func (s *Source) Device() string {
	return Device
}

// DeviceID returns the server address as the device identifier
func (s *Source) DeviceID() string {
	return s.cfg.Addr()
}
