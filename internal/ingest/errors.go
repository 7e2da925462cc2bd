package ingest

import (
	"errors"
	"fmt"
)

// Typed ingest failures. Handlers map these onto HTTP statuses; the context
// store is never mutated when one of them is returned.
var (
	ErrUnsupportedMime  = errors.New("unsupported_mime")
	ErrOversize         = errors.New("oversize")
	ErrTooManyRedirects = errors.New("too_many_redirects")
	ErrTimeout          = errors.New("timeout")
	ErrNetwork          = errors.New("network")
	ErrDecode           = errors.New("decode")
)

// UnsupportedMimef wraps ErrUnsupportedMime with context.
func UnsupportedMimef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnsupportedMime)...)
}

// Oversizef wraps ErrOversize with context.
func Oversizef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrOversize)...)
}

// Timeoutf wraps ErrTimeout with context.
func Timeoutf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTimeout)...)
}

// Networkf wraps ErrNetwork with context.
func Networkf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNetwork)...)
}

// Decodef wraps ErrDecode with context.
func Decodef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDecode)...)
}

// Kind names the failure class of err for logging and status mapping.
// Returns "" when err carries none of the ingest sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedMime):
		return "unsupported_mime"
	case errors.Is(err, ErrOversize):
		return "oversize"
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return ""
	}
}
