package spyserver

import (
	"errors"
	"fmt"
)

const (
	DefaultPort = 5555

	// MaxFrequency is bounded by the protocol, which carries the center
	// frequency as an unsigned 32-bit Hz value.
	MaxFrequency = 1<<32 - 1
)

// Config is a struct for configuring a spyserver connection.
//
// A spyserver exposes an SDR (Airspy, RTL-SDR and others) over TCP and
// accepts runtime retune and decimation commands, which makes it suitable
// for frequency sweeping without exclusive hardware access on this host.
type Config struct {
	// Required
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	// SampleRate must be one of the rates offered by the server; the
	// available set depends on the attached device and is reported after
	// connecting.
	SampleRate uint32 `yaml:"sampleRate" json:"sampleRate"`

	// Optional. Gain stage index, device dependent. Nil keeps the server's
	// current setting.
	Gain *uint32 `yaml:"gain" json:"gain"`
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("spyserver.Config: host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("spyserver.Config: invalid port: %d given", c.Port)
	}
	if c.SampleRate == 0 {
		return errors.New("spyserver.Config: sample rate is required")
	}
	return nil
}

// Addr returns the host:port address of the server, applying the default
// port when none is configured.
func (c *Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}
