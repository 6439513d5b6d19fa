package radio

import "fmt"

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// HardwareError is a custom error type for radio hardware failures. It wraps
// the underlying cause when one is available.
type HardwareError struct {
	msg   string
	cause error
}

func NewHardwareError(msg string, cause error) *HardwareError {
	return &HardwareError{msg, cause}
}

func (e *HardwareError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
	}
	return e.msg
}

func (e *HardwareError) Unwrap() error {
	return e.cause
}
