package radio

import "context"

// Tuner is the retune capability of a radio source. Retune commands the
// hardware to move its center frequency and returns once the command has been
// accepted; it does not wait for the RF front end to settle.
type Tuner interface {
	Retune(freqHz float64) error
}

// Source is a radio sample source. Start begins IQ acquisition and returns a
// channel of sample blocks; the channel is closed when acquisition stops.
// Blocks are delivered in capture order and must not be retained by the
// source after delivery.
type Source interface {
	Tuner

	Start(ctx context.Context) (<-chan []complex64, error)
	Stop() error
	Device() string   // Device type (e.g. "spyserver", "simulated")
	DeviceID() string // Human-readable device identifier
}
