// Package dsp turns fixed-size IQ segment blocks into power spectra: window
// selection, FFT, and averaging or peak-holding across multiple DFT frames.
package dsp

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// windows maps user-facing window names to gonum implementations. Entries
// requiring extra shape parameters (Gaussian, Tukey) are left out.
var windows = map[string]func([]float64) []float64{
	"rectangular":      window.Rectangular,
	"sin":              window.Sine,
	"lanczos":          window.Lanczos,
	"triangular":       window.Triangular,
	"hann":             window.Hann,
	"bartlett-hann":    window.BartlettHann,
	"hamming":          window.Hamming,
	"blackman":         window.Blackman,
	"blackman-harris":  window.BlackmanHarris,
	"blackman-nuttall": window.BlackmanNuttall,
	"nuttall":          window.Nuttall,
	"flattop":          window.FlatTop,
}

// DefaultWindow is used when no window is configured.
const DefaultWindow = "blackman-harris"

// Windows returns the supported window names, sorted.
func Windows() []string {
	names := make([]string, 0, len(windows))
	for name := range windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewWindow returns the coefficients of the named window at length n.
func NewWindow(name string, n int) ([]float64, error) {
	fn, ok := windows[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("dsp: unsupported window %q, must be one of %v", name, Windows())
	}
	if n <= 0 {
		return nil, fmt.Errorf("dsp: invalid window length %d", n)
	}

	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	return fn(coeffs), nil
}
