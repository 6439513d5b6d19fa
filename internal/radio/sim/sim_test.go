package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
)

func TestSource_DeliversBlocks(t *testing.T) {
	s, err := New(Config{SampleRate: 1e6, BlockSize: 256, ToneOffset: 100e3})
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	blocks, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case block := <-blocks:
			if len(block) != 256 {
				t.Fatalf("Block %d: got %d samples, want 256", i, len(block))
			}
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for a block")
		}
	}

	if err = s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// The channel drains and closes after Stop.
	for range blocks {
	}

	// Stop is idempotent.
	if err = s.Stop(); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

func TestSource_StartTwice(t *testing.T) {
	s, err := New(Config{SampleRate: 1e6, BlockSize: 64})
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	if _, err = s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	if _, err = s.Start(context.Background()); err == nil {
		t.Error("Expected error starting a running source")
	}
}

func TestSource_Retune(t *testing.T) {
	s, err := New(Config{SampleRate: 1e6})
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	if err = s.Retune(100e6); err != nil {
		t.Fatalf("Retune failed: %v", err)
	}
	if got := s.Frequency(); got != 100e6 {
		t.Errorf("Frequency: got %f, want 100e6", got)
	}
	if got := s.RetuneCount(); got != 1 {
		t.Errorf("RetuneCount: got %d, want 1", got)
	}

	testCases := []struct {
		name string
		freq float64
	}{
		{"below minimum", MinFreq / 2},
		{"above maximum", MaxFreq * 2},
		{"not a number", nan()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Retune(tc.freq)
			if err == nil {
				t.Fatal("Expected retune error")
			}

			var hwErr *radio.HardwareError
			if !errors.As(err, &hwErr) {
				t.Errorf("Expected *radio.HardwareError, got %v", err)
			}
		})
	}

	if got := s.RetuneCount(); got != 1 {
		t.Errorf("Failed retunes should not count, got %d", got)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("Expected error for missing sample rate")
	}
	if _, err := New(Config{SampleRate: 1e6, BlockSize: -1}); err == nil {
		t.Error("Expected error for negative block size")
	}
}

func nan() float64 {
	v := 0.0
	return v / v
}
