package errors

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// DeferClose closes an io.Closer and logs a failure instead of dropping it.
// Closers that report a Name, such as sources, are identified in the entry.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		ev := logger.Warn().Err(err)
		if named, ok := closer.(interface{ Name() string }); ok {
			ev = ev.Str("source", named.Name())
		}
		ev.Msg(msg)
	}
}

// CloseInto closes closer and stores the failure in *errp unless it already
// holds an error. Use it for writers, whose Close may flush data.
func CloseInto(errp *error, closer io.Closer) {
	if err := closer.Close(); err != nil && *errp == nil {
		*errp = err
	}
}

// Must panics if error is not nil.
// Use only for initialization code where failure should halt the program.
func Must(err error, msg string) {
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
}
