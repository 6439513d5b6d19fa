package sweep

import (
	"math"

	"github.com/roman-kulish/spectrum-analyzer/internal/radio"
)

// Plan describes how a requested span around a center frequency is carved
// into retune segments. The frequency step is a reduced fraction of the
// sample rate so that a configurable percentage of FFT bins on both edges of
// each segment, those most affected by filter rolloff, overlap with the
// neighbouring segments and can be cropped.
type Plan struct {
	SampleRate float64 // Samples per second delivered by the radio
	FFTSize    int     // FFT bins per frame
	Overlap    float64 // Cropped fraction of bins, decimal [0, 1)

	DeltaF   float64 // Width in Hz of one FFT bin
	FreqStep float64 // Step in Hz between segment center frequencies
	Span     float64 // Actual width in Hz of the swept area
	MinFreq  float64 // Lowest sampled frequency
	MaxFreq  float64 // Highest sampled frequency

	CenterFreqs []float64 // Segment center frequencies, ascending
	BinStart    int       // Index of the first usable bin in a frame
	BinStop     int       // Index one past the last usable bin
}

// NewPlan computes a sweep plan. requestedSpan of zero selects the widest
// span that needs only a single center frequency. overlapPercent is the
// percentage of outer bins to crop, split evenly between both edges.
func NewPlan(centerFreq, requestedSpan, sampleRate float64, fftSize, overlapPercent int) (*Plan, error) {
	if math.IsNaN(centerFreq) || math.IsInf(centerFreq, 0) || centerFreq <= 0 {
		return nil, radio.NewConfigError("plan: invalid center frequency: %f", centerFreq)
	}
	if sampleRate <= 0 {
		return nil, radio.NewConfigError("plan: invalid sample rate: %f", sampleRate)
	}
	if fftSize <= 0 || fftSize%32 != 0 {
		return nil, radio.NewConfigError("plan: fft size must be a positive multiple of 32: %d", fftSize)
	}
	if overlapPercent < 0 || overlapPercent >= 100 {
		return nil, radio.NewConfigError("plan: overlap must be in [0, 100) percent: %d", overlapPercent)
	}
	if requestedSpan < 0 {
		return nil, radio.NewConfigError("plan: span cannot be negative: %f", requestedSpan)
	}

	p := Plan{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		Overlap:    float64(overlapPercent) / 100.0,
	}

	p.DeltaF = sampleRate / float64(fftSize)
	p.FreqStep = adjustRate(sampleRate, p.DeltaF, p.Overlap)

	p.Span = requestedSpan
	if p.Span == 0 {
		p.Span = p.FreqStep
	}

	p.MinFreq = centerFreq - (p.Span / 2) + (p.DeltaF / 2)
	p.MaxFreq = p.MinFreq + p.Span - p.DeltaF

	// Center (tuned) frequencies for each retune segment.
	minFc := p.MinFreq + (p.FreqStep / 2)
	if p.Span <= p.FreqStep {
		p.CenterFreqs = []float64{minFc}
	} else {
		nSegments := math.Floor(p.Span / p.FreqStep)
		maxFc := minFc + nSegments*p.FreqStep
		for fc := minFc; fc < maxFc+1; fc += p.FreqStep {
			p.CenterFreqs = append(p.CenterFreqs, fc)
		}
	}

	p.BinStart = int(float64(fftSize) * (p.Overlap / 2))
	p.BinStop = fftSize - p.BinStart

	return &p, nil
}

// NumSegments returns the number of RF front-end retunes required to cover
// the span once.
func (p *Plan) NumSegments() int {
	return len(p.CenterFreqs)
}

// UsableBins returns the number of bins kept per frame after cropping.
func (p *Plan) UsableBins() int {
	return p.BinStop - p.BinStart
}

// adjustRate reduces the sample rate by the overlap fraction and rounds the
// result so that a whole number of bins of width deltaf fit into it.
func adjustRate(sampleRate, deltaf, overlap float64) float64 {
	validBins := 1.0 - overlap
	return math.Round((sampleRate*validBins)/deltaf) * deltaf
}
