// Package sweep implements the frequency-sweep state machine that drives a
// radio source through an ordered list of center frequencies, discarding
// samples captured while the hardware settles and forwarding a fixed-size
// block of valid samples per frequency.
package sweep

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
)

// ErrSweepDone is returned by Work once the controller has completed a full
// span after SetExitAfterComplete and will produce no more output.
var ErrSweepDone = errors.New("sweep complete, no more output")

// Completion flag states. The flag is a tri-state handshake: exit-requested
// is set by the operator and armed by Work at the next span boundary.
const (
	flagRunning int32 = iota
	flagExitRequested
	flagExitDone
)

// Retune is a single recorded retune request. Retunes are recorded instead of
// dispatched when the controller is created with WithRecordedRetunes.
type Retune struct {
	Segment int     // Index into Config.Frequencies
	FreqHz  float64 // Requested frequency including the LO offset
}

// Config carries the sweep parameters. All fields are immutable for the
// lifetime of a Controller.
type Config struct {
	Frequencies  []float64 // Ordered center frequencies in Hz, one per segment
	LOOffset     float64   // Offset in Hz applied uniformly to every retune
	InitialDelay int       // Settling samples discarded before segment 0, once
	TuneDelay    int       // Settling samples discarded after every retune
	NCopy        int       // Payload samples forwarded per segment
}

// WithLogger sets the logger for the controller
func WithLogger(logger *slog.Logger) func(*Controller) {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRecordedRetunes suppresses hardware retune calls so the state machine
// can be exercised without a radio attached. Retune requests are recorded and
// can be inspected with Retunes.
func WithRecordedRetunes() func(*Controller) {
	return func(c *Controller) {
		c.recordOnly = true
	}
}

// Controller sequences one radio source through the configured span. The
// scheduler owning the controller must serialize Work calls; the completion
// flag accessors and progress queries are safe to call from any goroutine.
type Controller struct {
	tuner      radio.Tuner
	cfg        Config
	logger     *slog.Logger
	recordOnly bool

	exitFlag atomic.Int32

	// Stepping state, owned by Work.
	copied     int  // payload samples copied in the current segment
	skipped    int  // settling samples discarded since the last retune
	settle     int  // settling samples due for the current segment
	needRetune bool // a retune is due before processing more samples

	// Shared with concurrent readers.
	segment        atomic.Int64
	spans          atomic.Uint64
	totalCopied    atomic.Uint64
	totalDiscarded atomic.Uint64
	retuneCount    atomic.Uint64

	mu       sync.Mutex
	recorded []Retune
}

// New creates a Controller bound to one radio tuner. The configuration is
// validated up front: the controller cannot be constructed in an invalid
// state.
func New(tuner radio.Tuner, cfg Config, options ...func(*Controller)) (*Controller, error) {
	c := Controller{
		tuner:  tuner,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&c)
	}

	if len(cfg.Frequencies) == 0 {
		return nil, radio.NewConfigError("sweep: no center frequencies given")
	}
	for i, f := range cfg.Frequencies {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, radio.NewConfigError("sweep: frequency %d is not finite: %f", i, f)
		}
	}
	if cfg.InitialDelay < 0 {
		return nil, radio.NewConfigError("sweep: initial delay cannot be negative: %d", cfg.InitialDelay)
	}
	if cfg.TuneDelay < 0 {
		return nil, radio.NewConfigError("sweep: tune delay cannot be negative: %d", cfg.TuneDelay)
	}
	if cfg.NCopy < 0 {
		return nil, radio.NewConfigError("sweep: payload size cannot be negative: %d", cfg.NCopy)
	}
	if tuner == nil && !c.recordOnly {
		return nil, radio.NewConfigError("sweep: no tuner given")
	}

	// The first retune is issued lazily on the first Work call so that
	// construction never touches the hardware. InitialDelay covers the very
	// first settle window; every later window uses TuneDelay, including span
	// wrap-around back to segment 0.
	c.settle = cfg.InitialDelay
	c.needRetune = true

	return &c, nil
}

// Work executes one scheduler step. It consumes up to len(in) samples,
// writes up to len(out) payload samples, and returns the counts of samples
// consumed and produced. Samples consumed but not produced were discarded as
// settling samples.
//
// Once a span has completed after SetExitAfterComplete, Work returns
// ErrSweepDone with zero progress on every subsequent call until the exit is
// cleared. A retune failure is returned as an error wrapping
// *radio.HardwareError; the controller does not retry.
func (c *Controller) Work(in, out []complex64) (consumed, produced int, err error) {
	if c.exitFlag.Load() == flagExitDone {
		return 0, 0, ErrSweepDone
	}

	segment := int(c.segment.Load())
	if segment < 0 || segment >= len(c.cfg.Frequencies) {
		panic(fmt.Sprintf("sweep: segment index %d out of range [0, %d)", segment, len(c.cfg.Frequencies)))
	}

	if c.needRetune {
		if err = c.retune(segment); err != nil {
			return 0, 0, err
		}
		c.needRetune = false
	}

	// Settling phase: discard input until the settle window is exhausted.
	if c.skipped < c.settle {
		n := min(c.settle-c.skipped, len(in))
		c.skipped += n
		c.totalDiscarded.Add(uint64(n))
		consumed = n

		if c.skipped < c.settle {
			return consumed, 0, nil
		}
	}

	// Payload phase: copy verbatim from input to output.
	n := min(c.cfg.NCopy-c.copied, min(len(in)-consumed, len(out)))
	copy(out[:n], in[consumed:consumed+n])
	c.copied += n
	c.totalCopied.Add(uint64(n))
	consumed += n
	produced = n

	if c.copied < c.cfg.NCopy {
		return consumed, produced, nil
	}

	// Segment complete: reset counters and advance. With NCopy == 0 this is
	// reached immediately after settling, so a degenerate segment still makes
	// forward progress within a single step.
	c.copied = 0
	c.skipped = 0
	c.settle = c.cfg.TuneDelay

	if segment++; segment < len(c.cfg.Frequencies) {
		c.segment.Store(int64(segment))
		c.needRetune = true
		if err = c.retune(segment); err != nil {
			return consumed, produced, err
		}
		c.needRetune = false
		return consumed, produced, nil
	}

	// End of span.
	c.segment.Store(0)
	c.spans.Add(1)

	if c.exitFlag.CompareAndSwap(flagExitRequested, flagExitDone) {
		// Exit armed: no retune, the next step reports completion. Leave a
		// retune pending so the sweep resumes cleanly if the exit is cleared.
		c.needRetune = true
		c.logger.Debug("span complete, exit armed", slog.Uint64("spans", c.spans.Load()))
		return consumed, produced, nil
	}

	c.needRetune = true
	if err = c.retune(0); err != nil {
		return consumed, produced, err
	}
	c.needRetune = false
	return consumed, produced, nil
}

// retune dispatches or records a retune for the given segment. Failed
// dispatches are not counted; the caller leaves the retune pending so the
// next work step retries it.
func (c *Controller) retune(segment int) error {
	freq := c.cfg.Frequencies[segment] + c.cfg.LOOffset

	if c.recordOnly {
		c.mu.Lock()
		c.recorded = append(c.recorded, Retune{Segment: segment, FreqHz: freq})
		c.mu.Unlock()
		c.retuneCount.Add(1)
		return nil
	}

	if err := c.tuner.Retune(freq); err != nil {
		return fmt.Errorf("sweep: retuning segment %d to %.0f Hz: %w", segment, freq, err)
	}
	c.retuneCount.Add(1)

	c.logger.Debug("retuned", slog.Int("segment", segment), slog.Float64("freqHz", freq))
	return nil
}

// ExitAfterComplete reports whether the controller is configured to signal
// completion at the next span boundary, or has already done so.
func (c *Controller) ExitAfterComplete() bool {
	return c.exitFlag.Load() != flagRunning
}

// Done reports whether the controller has finished a span with an exit
// request pending and will return ErrSweepDone from Work.
func (c *Controller) Done() bool {
	return c.exitFlag.Load() == flagExitDone
}

// SetExitAfterComplete requests that the sweep stop at the end of the current
// span. The segment in progress runs to completion first. Idempotent.
func (c *Controller) SetExitAfterComplete() {
	c.exitFlag.CompareAndSwap(flagRunning, flagExitRequested)
}

// ClearExitAfterComplete cancels a pending exit request. If the controller
// has already reported completion, the sweep resumes from segment 0 on the
// next Work call.
func (c *Controller) ClearExitAfterComplete() {
	c.exitFlag.Store(flagRunning)
}

// Segment returns the current 0-based segment index.
func (c *Controller) Segment() int {
	return int(c.segment.Load())
}

// Frequency returns the center frequency of the current segment, without the
// LO offset.
func (c *Controller) Frequency() float64 {
	return c.cfg.Frequencies[c.Segment()]
}

// SpansCompleted returns the number of full span traversals so far.
func (c *Controller) SpansCompleted() uint64 {
	return c.spans.Load()
}

// SamplesCopied returns the total number of payload samples forwarded.
func (c *Controller) SamplesCopied() uint64 {
	return c.totalCopied.Load()
}

// SamplesDiscarded returns the total number of settling samples discarded.
func (c *Controller) SamplesDiscarded() uint64 {
	return c.totalDiscarded.Load()
}

// RetuneCount returns the number of retunes issued or recorded, including the
// initial tune.
func (c *Controller) RetuneCount() uint64 {
	return c.retuneCount.Load()
}

// Retunes returns a copy of the recorded retune requests. It is only
// populated when the controller was created with WithRecordedRetunes.
func (c *Controller) Retunes() []Retune {
	c.mu.Lock()
	defer c.mu.Unlock()

	recorded := make([]Retune, len(c.recorded))
	copy(recorded, c.recorded)
	return recorded
}
