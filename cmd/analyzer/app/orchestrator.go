package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/roman-kulish/spectrum-analyzer/internal/dsp"
	"github.com/roman-kulish/spectrum-analyzer/internal/journal"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
	"github.com/roman-kulish/spectrum-analyzer/internal/render"
	"github.com/roman-kulish/spectrum-analyzer/internal/stats"
	"github.com/roman-kulish/spectrum-analyzer/internal/sweep"
)

const statsInterval = 30 * time.Second

// Orchestrator pulls sample blocks from the radio, feeds them through the
// sweep controller and assembles the usable FFT bins of every segment into
// one spectrum covering the whole span. The journal and the renderer are
// optional.
type Orchestrator struct {
	source     radio.Source
	controller *sweep.Controller
	plan       *sweep.Plan
	spectrum   *dsp.Spectrum

	journal   *journal.Journal
	sessionID int64

	renderer   *render.Renderer
	renderDir  string
	everySpans uint64

	continuous bool
	logger     *slog.Logger

	segBuf    []complex64 // Payload of the segment being accumulated
	spanPower []float64   // Usable bins of every segment, in plan order
	retunes   uint64      // Retunes journalled so far
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithJournal enables journalling of retune events under the given session.
func WithJournal(j *journal.Journal, sessionID int64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.journal = j
		o.sessionID = sessionID
	}
}

// WithRenderer enables PNG snapshots of the span spectrum, written to dir
// every everySpans completed spans.
func WithRenderer(r *render.Renderer, dir string, everySpans uint64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.renderer = r
		o.renderDir = dir
		if everySpans == 0 {
			everySpans = 1
		}
		o.everySpans = everySpans
	}
}

// WithContinuous keeps the sweep running until the context is cancelled
// instead of stopping after a single span.
func WithContinuous() OrchestratorOption {
	return func(o *Orchestrator) {
		o.continuous = true
	}
}

// WithOrchestratorLogger sets the logger. Discards by default.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator wires a radio source, a sweep controller, its plan and a
// spectrum processor together. The spectrum block size must match the
// controller payload size.
func NewOrchestrator(source radio.Source, controller *sweep.Controller, plan *sweep.Plan, spectrum *dsp.Spectrum, options ...OrchestratorOption) (*Orchestrator, error) {
	o := Orchestrator{
		source:     source,
		controller: controller,
		plan:       plan,
		spectrum:   spectrum,
		everySpans: 1,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}
	for _, option := range options {
		option(&o)
	}

	o.segBuf = make([]complex64, 0, spectrum.BlockSize())
	o.spanPower = make([]float64, plan.NumSegments()*plan.UsableBins())
	for i := range o.spanPower {
		o.spanPower[i] = math.Inf(-1)
	}

	return &o, nil
}

// Run drives the sweep until the controller reports completion or the
// context is cancelled. It owns starting and stopping the radio source.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.continuous {
		o.controller.SetExitAfterComplete()
	}

	blocks, err := o.source.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting %s source: %w", o.source.Device(), err)
	}
	defer o.source.Stop()

	provider := stats.NewSweepProvider(o.controller)
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("sweep interrupted", "stats", provider.Get())
			return ctx.Err()

		case <-ticker.C:
			o.logger.Info("sweep progress", "stats", provider.Get())

		case block, ok := <-blocks:
			if !ok {
				// The source closes its channel on cancellation too.
				if err := ctx.Err(); err != nil {
					return err
				}
				return fmt.Errorf("%s source stopped unexpectedly", o.source.Device())
			}
			if err := o.consume(block); err != nil {
				if errors.Is(err, sweep.ErrSweepDone) {
					o.logger.Info("sweep complete", "stats", provider.Get())
					return nil
				}
				return err
			}
		}
	}
}

// consume runs one input block through the controller, possibly across
// several segments, and hands completed segments to the spectrum processor.
func (o *Orchestrator) consume(block []complex64) error {
	for len(block) > 0 {
		// Samples produced by this step belong to the segment that is
		// current on entry; the controller only advances segments once a
		// full payload has been copied.
		segment := o.controller.Segment()

		free := o.segBuf[len(o.segBuf):cap(o.segBuf)]
		consumed, produced, err := o.controller.Work(block, free)
		if rc := o.controller.RetuneCount(); rc > o.retunes {
			o.recordRetunes(segment, rc)
		}
		if err != nil {
			return err
		}

		block = block[consumed:]
		o.segBuf = o.segBuf[:len(o.segBuf)+produced]

		if len(o.segBuf) == cap(o.segBuf) {
			if err := o.finishSegment(segment); err != nil {
				return err
			}
		}

		// A completed single-shot sweep stops consuming right away instead
		// of waiting for the next input block.
		if o.controller.Done() {
			return sweep.ErrSweepDone
		}
	}
	return nil
}

// finishSegment processes the accumulated payload of one segment and, when
// it is the last segment of the span, emits the span spectrum.
func (o *Orchestrator) finishSegment(segment int) error {
	power, err := o.spectrum.Process(o.segBuf)
	if err != nil {
		return fmt.Errorf("processing segment %d: %w", segment, err)
	}
	o.segBuf = o.segBuf[:0]

	usable := o.plan.UsableBins()
	copy(o.spanPower[segment*usable:], power[o.plan.BinStart:o.plan.BinStop])

	o.logger.Debug("segment processed",
		"segment", segment,
		"frequency", o.plan.CenterFreqs[segment])

	if segment == o.plan.NumSegments()-1 {
		return o.finishSpan()
	}
	return nil
}

func (o *Orchestrator) finishSpan() error {
	span := o.controller.SpansCompleted()
	o.logger.Info("span complete", "spans", span)

	if o.renderer == nil || span%o.everySpans != 0 {
		return nil
	}

	snap := render.Snapshot{
		FrequencyMin: o.plan.MinFreq,
		FrequencyMax: o.plan.MaxFreq,
		Power:        o.spanPower,
		Timestamp:    time.Now(),
		Detector:     o.spectrum.Detector().String(),
		Span:         span,
	}

	path := filepath.Join(o.renderDir, fmt.Sprintf("span_%s.png", snap.Timestamp.UTC().Format("20060102_150405")))
	if err := o.renderer.WriteFile(path, &snap); err != nil {
		return fmt.Errorf("rendering span %d: %w", span, err)
	}

	o.logger.Info("span rendered", "path", path)
	return nil
}

// recordRetunes journals the retunes the controller issued during the last
// work step. A step issues at most two: a pending retune for the segment
// that was current on entry, and a transition retune for the segment the
// controller advanced to.
func (o *Orchestrator) recordRetunes(entrySegment int, count uint64) {
	delta := count - o.retunes
	o.retunes = count

	if o.journal == nil {
		return
	}

	segments := []int{o.controller.Segment()}
	if delta > 1 {
		segments = []int{entrySegment, o.controller.Segment()}
	}

	for _, segment := range segments {
		if _, err := o.journal.InsertRetune(journal.RetuneEvent{
			SessionID: o.sessionID,
			Timestamp: time.Now(),
			Span:      o.controller.SpansCompleted(),
			Segment:   segment,
			Frequency: o.plan.CenterFreqs[segment],
		}); err != nil {
			// Journal failures must not stop the sweep.
			o.logger.Error("journalling retune", "error", err)
		}
	}
}
