// Package errs holds the configuration error type shared by every builder in
// the render core. Configuration errors abort only the build that requested
// the misconfigured resource; invariant violations are panics and never flow
// through here.
package errs

import (
	"errors"
	"fmt"
)

// ErrConfig is matched by every *ConfigError via errors.Is.
var ErrConfig = errors.New("configuration error")

// Code classifies a configuration error.
type Code int

const (
	InvalidParameter Code = iota
	SampleRateMismatch
	BackendUnavailable
	UnsupportedChannels
	MissingSample
	RoleNotSupported
)

func (c Code) String() string {
	switch c {
	case InvalidParameter:
		return "invalid parameter"
	case SampleRateMismatch:
		return "sampling rate mismatch"
	case BackendUnavailable:
		return "backend unavailable"
	case UnsupportedChannels:
		return "unsupported channel count"
	case MissingSample:
		return "missing sample"
	case RoleNotSupported:
		return "role not supported"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// ConfigError reports a rejected instrument or effect build.
type ConfigError struct {
	Code   Code
	Detail string // e.g. the offending sample name
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Code.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// New returns a ConfigError with a formatted detail.
func New(code Code, format string, args ...any) error {
	return &ConfigError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and detail to an underlying error.
func Wrap(code Code, detail string, err error) error {
	return &ConfigError{Code: code, Detail: detail, Err: err}
}

// CodeOf extracts the code from err, reporting false if err is not a ConfigError.
func CodeOf(err error) (Code, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}
