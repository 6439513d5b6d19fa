// Package stats exposes sweep progress counters for periodic reporting.
package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Provider supplies a progress snapshot on demand.
type Provider interface {
	Get() *Stats
}

// Stats is a snapshot of sweep progress
type Stats struct {
	Timestamp        time.Time     // Time the snapshot was taken
	Uptime           time.Duration // Time since the provider was created
	Segment          int           // Current 0-based segment index
	FrequencyHz      float64       // Center frequency of the current segment
	SpansCompleted   uint64        // Full span traversals so far
	Retunes          uint64        // Retunes issued, including the initial tune
	SamplesCopied    uint64        // Payload samples forwarded downstream
	SamplesDiscarded uint64        // Settling samples discarded
}

// SampleRate returns the average payload sample throughput since start.
func (s *Stats) SampleRate() float64 {
	if s.Uptime <= 0 {
		return 0
	}
	return float64(s.SamplesCopied) / s.Uptime.Seconds()
}

func (s *Stats) String() string {
	return fmt.Sprintf("segment %d @ %sHz, %s spans, %s retunes, %s copied, %s discarded, %sS/s",
		s.Segment,
		humanize.SI(s.FrequencyHz, ""),
		humanize.Comma(int64(s.SpansCompleted)),
		humanize.Comma(int64(s.Retunes)),
		humanize.Comma(int64(s.SamplesCopied)),
		humanize.Comma(int64(s.SamplesDiscarded)),
		humanize.SI(s.SampleRate(), ""))
}

// Sweep is the part of the sweep controller the provider polls.
type Sweep interface {
	Segment() int
	Frequency() float64
	SpansCompleted() uint64
	RetuneCount() uint64
	SamplesCopied() uint64
	SamplesDiscarded() uint64
}

// SweepProvider adapts a sweep controller to the Provider interface. All the
// polled counters are safe for concurrent access, so Get may be called from
// any goroutine.
type SweepProvider struct {
	sweep Sweep
	start time.Time
}

func NewSweepProvider(sweep Sweep) *SweepProvider {
	return &SweepProvider{sweep: sweep, start: time.Now()}
}

func (p *SweepProvider) Get() *Stats {
	now := time.Now()
	return &Stats{
		Timestamp:        now,
		Uptime:           now.Sub(p.start),
		Segment:          p.sweep.Segment(),
		FrequencyHz:      p.sweep.Frequency(),
		SpansCompleted:   p.sweep.SpansCompleted(),
		Retunes:          p.sweep.RetuneCount(),
		SamplesCopied:    p.sweep.SamplesCopied(),
		SamplesDiscarded: p.sweep.SamplesDiscarded(),
	}
}
