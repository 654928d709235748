package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for reporting and exit codes.
type Kind int

const (
	// KindOther is any failure that is not classified below.
	KindOther Kind = iota
	// KindPattern is an invalid search expression.
	KindPattern
	// KindIO is a read, seek or open failure on the input source.
	KindIO
	// KindConfig is an invalid combination of options.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindPattern:
		return "pattern"
	case KindIO:
		return "io"
	case KindConfig:
		return "config"
	default:
		return "other"
	}
}

// ExitCode maps a kind to the process exit status.
func (k Kind) ExitCode() int {
	switch k {
	case KindPattern, KindConfig:
		return 2
	case KindIO:
		return 3
	default:
		return 1
	}
}

// ErrNotSeekable is returned when random access is requested from a source
// that can only be read forward.
var ErrNotSeekable = errors.New("source is not seekable")

// ErrUnsupportedImage is returned for forensic container formats that have no
// registered reader.
var ErrUnsupportedImage = errors.New("unsupported disk image format")

// PatternError reports an invalid search expression. Pos is the byte index
// into Expr where the problem was detected.
type PatternError struct {
	Expr string
	Pos  int
	Msg  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Expr, e.Pos, e.Msg)
}

// IOError reports a failed read on the input source.
type IOError struct {
	Op        string
	Path      string
	Offset    int64
	Requested int
	Got       int
	Err       error
}

func (e *IOError) Error() string {
	msg := fmt.Sprintf("%s %s at offset %d", e.Op, e.pathOrInput(), e.Offset)
	if e.Requested > 0 {
		msg += fmt.Sprintf(" (requested %d bytes, got %d)", e.Requested, e.Got)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) pathOrInput() string {
	if e.Path == "" {
		return "input"
	}
	return e.Path
}

// ConfigError reports an option that is out of range or conflicts with
// another option.
type ConfigError struct {
	Field string
	Value any
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Msg)
}

// KindOf returns the classification of err by walking its wrap chain.
func KindOf(err error) Kind {
	var (
		pe *PatternError
		ie *IOError
		ce *ConfigError
	)
	switch {
	case err == nil:
		return KindOther
	case errors.As(err, &pe):
		return KindPattern
	case errors.As(err, &ce):
		return KindConfig
	case errors.As(err, &ie), errors.Is(err, ErrNotSeekable), errors.Is(err, ErrUnsupportedImage):
		return KindIO
	default:
		return KindOther
	}
}
