package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roman-kulish/spectrum-analyzer/internal/dsp"
	"github.com/roman-kulish/spectrum-analyzer/internal/journal"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio/sim"
	"github.com/roman-kulish/spectrum-analyzer/internal/radio/spyserver"
	"github.com/roman-kulish/spectrum-analyzer/internal/render"
	"github.com/roman-kulish/spectrum-analyzer/internal/sweep"
)

const journalDir = "data"

// Run wires the radio, sweep controller, spectrum processor, journal and
// renderer together from the configuration and drives the sweep until it
// completes or ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	plan, err := sweep.NewPlan(config.Sweep.CenterFreq, config.Sweep.Span,
		config.Radio.SampleRate, config.Sweep.FFTSize, config.Sweep.Overlap)
	if err != nil {
		return fmt.Errorf("failed to compute sweep plan: %w", err)
	}

	logger.Info("sweep plan",
		"segments", plan.NumSegments(),
		"minFreq", plan.MinFreq,
		"maxFreq", plan.MaxFreq,
		"freqStep", plan.FreqStep)

	source, err := createSource(&config.Radio, logger)
	if err != nil {
		return fmt.Errorf("failed to create radio source: %w", err)
	}

	detector, err := dsp.ParseDetector(config.Sweep.Detector)
	if err != nil {
		return err
	}
	spectrum, err := dsp.NewSpectrum(config.Sweep.FFTSize, config.Sweep.NFrames, config.Sweep.Window, detector)
	if err != nil {
		return fmt.Errorf("failed to create spectrum processor: %w", err)
	}

	controller, err := sweep.New(source, sweep.Config{
		Frequencies:  plan.CenterFreqs,
		LOOffset:     config.Sweep.LOOffset,
		InitialDelay: *config.Sweep.InitialDelay,
		TuneDelay:    *config.Sweep.TuneDelay,
		NCopy:        spectrum.BlockSize(),
	}, sweep.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create sweep controller: %w", err)
	}

	options := []OrchestratorOption{WithOrchestratorLogger(logger)}
	if config.Sweep.Continuous {
		options = append(options, WithContinuous())
	}

	if config.Journal.Enabled {
		j, sessionID, err := createJournal(&config.Journal, source, config)
		if err != nil {
			return fmt.Errorf("failed to create journal: %w", err)
		}
		defer j.Close()
		options = append(options, WithJournal(j, sessionID))
	}

	if config.Render.Enabled {
		renderer, err := render.New(render.Config{
			Width:    config.Render.Width,
			Height:   config.Render.Height,
			FontPath: config.Render.FontPath,
			FontSize: config.Render.FontSize,
		})
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		options = append(options, WithRenderer(renderer, config.Render.OutputDirectory, config.Render.EverySpans))
	}

	orchestrator, err := NewOrchestrator(source, controller, plan, spectrum, options...)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if err := orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func createSource(config *RadioConfig, logger *slog.Logger) (radio.Source, error) {
	switch config.Backend {
	case BackendSpyserver:
		return spyserver.New(*config.Spyserver, spyserver.WithLogger(logger))

	case BackendSimulated:
		return sim.New(*config.Simulated, sim.WithLogger(logger))

	default:
		return nil, radio.NewConfigError("unknown backend '%s'", config.Backend)
	}
}

func createJournal(config *JournalConfig, source radio.Source, appConfig *Config) (*journal.Journal, int64, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, journalDir)
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("journal directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, 0, fmt.Errorf("invalid journal directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, 0, fmt.Errorf("invalid journal directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("sweep_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	j, err := journal.New(dbPath)
	if err != nil {
		return nil, 0, fmt.Errorf("creating journal: %w", err)
	}

	sessionID, err := j.CreateSession(source.Device(), source.DeviceID(), appConfig.Sweep)
	if err != nil {
		j.Close()
		return nil, 0, fmt.Errorf("creating session: %w", err)
	}

	return j, sessionID, nil
}
