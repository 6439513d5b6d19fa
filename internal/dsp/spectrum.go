package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Detector selects how power is combined across the DFT frames of one
// segment block.
type Detector int

const (
	DetectorAverage Detector = iota // mean linear power per bin
	DetectorPeak                    // peak hold per bin
)

func (d Detector) String() string {
	switch d {
	case DetectorAverage:
		return "avg"
	case DetectorPeak:
		return "peak"
	default:
		return "unknown"
	}
}

// ParseDetector converts a string to a Detector.
func ParseDetector(s string) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avg", "average", "":
		return DetectorAverage, nil
	case "peak":
		return DetectorPeak, nil
	default:
		return Detector(0), fmt.Errorf("dsp: unsupported detector %q, use avg or peak", s)
	}
}

// Spectrum computes one power spectrum per fixed-size segment block. A block
// holds nframes back-to-back DFT frames of fftSize samples; each frame is
// windowed, transformed and combined per the configured detector.
type Spectrum struct {
	fftSize  int
	nframes  int
	detector Detector

	fft     *fourier.CmplxFFT
	coeffs  []float64
	winSum  float64
	frame   []complex128 // scratch: windowed frame
	linear  []float64    // scratch: per-bin combined linear power
	scratch []complex128 // scratch: FFT output
}

// NewSpectrum creates a Spectrum processor. BlockSize() reports the exact
// input length Process expects.
func NewSpectrum(fftSize, nframes int, windowName string, detector Detector) (*Spectrum, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("dsp: invalid fft size %d", fftSize)
	}
	if nframes <= 0 {
		return nil, fmt.Errorf("dsp: invalid frame count %d", nframes)
	}
	if windowName == "" {
		windowName = DefaultWindow
	}

	coeffs, err := NewWindow(windowName, fftSize)
	if err != nil {
		return nil, err
	}

	var winSum float64
	for _, c := range coeffs {
		winSum += c
	}

	return &Spectrum{
		fftSize:  fftSize,
		nframes:  nframes,
		detector: detector,
		fft:      fourier.NewCmplxFFT(fftSize),
		coeffs:   coeffs,
		winSum:   winSum,
		frame:    make([]complex128, fftSize),
		linear:   make([]float64, fftSize),
		scratch:  make([]complex128, fftSize),
	}, nil
}

// BlockSize returns the number of samples Process expects per call. This is
// the payload size the sweep controller must be configured with.
func (s *Spectrum) BlockSize() int {
	return s.fftSize * s.nframes
}

// Detector returns the configured detector.
func (s *Spectrum) Detector() Detector {
	return s.detector
}

// Process computes the combined power spectrum of one segment block. The
// result is in dB relative to full scale, FFT-shifted so bin 0 is the lowest
// frequency. The returned slice is reused on the next call.
func (s *Spectrum) Process(block []complex64) ([]float64, error) {
	if len(block) != s.BlockSize() {
		return nil, fmt.Errorf("dsp: block length %d, expected %d", len(block), s.BlockSize())
	}

	for i := range s.linear {
		if s.detector == DetectorPeak {
			s.linear[i] = math.Inf(-1)
		} else {
			s.linear[i] = 0
		}
	}

	for f := 0; f < s.nframes; f++ {
		frame := block[f*s.fftSize : (f+1)*s.fftSize]
		for i, v := range frame {
			s.frame[i] = complex(float64(real(v))*s.coeffs[i], float64(imag(v))*s.coeffs[i])
		}

		s.scratch = s.fft.Coefficients(s.scratch, s.frame)

		for i, v := range s.scratch {
			mag := cmplx.Abs(v) / s.winSum
			power := mag * mag

			// Shift so DC lands in the middle of the output.
			bin := (i + s.fftSize/2) % s.fftSize

			if s.detector == DetectorPeak {
				s.linear[bin] = math.Max(s.linear[bin], power)
			} else {
				s.linear[bin] += power
			}
		}
	}

	for i, p := range s.linear {
		if s.detector == DetectorAverage {
			p /= float64(s.nframes)
		}
		if p <= 0 {
			s.linear[i] = math.Inf(-1)
			continue
		}
		s.linear[i] = 10 * math.Log10(p)
	}

	return s.linear, nil
}
