package dsp

import (
	"math"
	"testing"
)

// tone synthesizes nframes*fftSize samples of a unit complex exponential at
// the given number of cycles per frame.
func tone(fftSize, nframes int, cycles float64) []complex64 {
	block := make([]complex64, fftSize*nframes)
	for i := range block {
		phase := 2 * math.Pi * cycles * float64(i) / float64(fftSize)
		block[i] = complex64(complex(math.Cos(phase), math.Sin(phase)))
	}
	return block
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func TestSpectrum_TonePlacement(t *testing.T) {
	const (
		fftSize = 256
		nframes = 2
	)

	testCases := []struct {
		name    string
		cycles  float64
		wantBin int
	}{
		{"DC lands in the center", 0, fftSize / 2},
		{"positive tone above center", 32, fftSize/2 + 32},
		{"negative tone below center", -32, fftSize/2 - 32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSpectrum(fftSize, nframes, "rectangular", DetectorAverage)
			if err != nil {
				t.Fatalf("Failed to create spectrum: %v", err)
			}

			power, err := s.Process(tone(fftSize, nframes, tc.cycles))
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if len(power) != fftSize {
				t.Fatalf("Expected %d bins, got %d", fftSize, len(power))
			}

			if got := argmax(power); got != tc.wantBin {
				t.Errorf("Peak bin: got %d, want %d", got, tc.wantBin)
			}

			// A unit tone in a rectangular window normalizes to 0 dBFS.
			if peak := power[tc.wantBin]; math.Abs(peak) > 0.1 {
				t.Errorf("Peak power: got %f dB, want ~0 dB", peak)
			}
		})
	}
}

func TestSpectrum_PeakDetectorHolds(t *testing.T) {
	const fftSize = 64

	s, err := NewSpectrum(fftSize, 2, "rectangular", DetectorPeak)
	if err != nil {
		t.Fatalf("Failed to create spectrum: %v", err)
	}

	// First frame carries a tone, second frame is silent: peak hold must
	// keep the tone at full power, where averaging would halve it.
	block := tone(fftSize, 1, 8)
	block = append(block, make([]complex64, fftSize)...)

	power, err := s.Process(block)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	bin := fftSize/2 + 8
	if got := argmax(power); got != bin {
		t.Fatalf("Peak bin: got %d, want %d", got, bin)
	}
	if math.Abs(power[bin]) > 0.1 {
		t.Errorf("Peak hold power: got %f dB, want ~0 dB", power[bin])
	}
}

func TestSpectrum_BlockSizeEnforced(t *testing.T) {
	s, err := NewSpectrum(128, 4, "", DetectorAverage)
	if err != nil {
		t.Fatalf("Failed to create spectrum: %v", err)
	}

	if s.BlockSize() != 512 {
		t.Fatalf("BlockSize: got %d, want 512", s.BlockSize())
	}
	if _, err = s.Process(make([]complex64, 511)); err == nil {
		t.Error("Expected error for short block")
	}
}

func TestNewWindow(t *testing.T) {
	coeffs, err := NewWindow("rectangular", 16)
	if err != nil {
		t.Fatalf("Failed to create window: %v", err)
	}
	for i, c := range coeffs {
		if c != 1 {
			t.Errorf("Rectangular coefficient %d: got %f, want 1", i, c)
		}
	}

	coeffs, err = NewWindow("Blackman-Harris", 64)
	if err != nil {
		t.Fatalf("Window names should be case-insensitive: %v", err)
	}
	if len(coeffs) != 64 {
		t.Errorf("Expected 64 coefficients, got %d", len(coeffs))
	}

	if _, err = NewWindow("kaiser", 64); err == nil {
		t.Error("Expected error for unsupported window")
	}
	if _, err = NewWindow("hann", 0); err == nil {
		t.Error("Expected error for zero-length window")
	}
}

func TestParseDetector(t *testing.T) {
	testCases := []struct {
		in      string
		want    Detector
		wantErr bool
	}{
		{"avg", DetectorAverage, false},
		{"AVG", DetectorAverage, false},
		{"average", DetectorAverage, false},
		{"", DetectorAverage, false},
		{"peak", DetectorPeak, false},
		{"max", Detector(0), true},
	}

	for _, tc := range testCases {
		got, err := ParseDetector(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDetector(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDetector(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDetector(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}
