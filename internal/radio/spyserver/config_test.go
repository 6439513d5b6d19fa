package spyserver

import "testing"

func TestConfig_Validate(t *testing.T) {
	valid := Config{Host: "radio.local", Port: 5555, SampleRate: 10_000_000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(Config) Config
	}{
		{"missing host", func(c Config) Config { c.Host = ""; return c }},
		{"negative port", func(c Config) Config { c.Port = -1; return c }},
		{"port out of range", func(c Config) Config { c.Port = 70000; return c }},
		{"missing sample rate", func(c Config) Config { c.SampleRate = 0; return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.mutate(valid)
			if err := c.Validate(); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	c := Config{Host: "radio.local", SampleRate: 10_000_000}
	if got := c.Addr(); got != "radio.local:5555" {
		t.Errorf("Expected the default port to apply, got %q", got)
	}

	c.Port = 1234
	if got := c.Addr(); got != "radio.local:1234" {
		t.Errorf("Expected the configured port, got %q", got)
	}
}
