package scan

import "sync"

// Stream is a lazy, pull-based sequence of scan results.
//
//	for s.Next() {
//		use(s.Value())
//	}
//	if err := s.Err(); err != nil { ... }
//
// A Stream is not safe for concurrent use and cannot be restarted. Close
// may be called at any time to stop the scan early; it is called
// automatically once the sequence ends.
type Stream[T any] struct {
	next func() (T, bool, error)
	stop func() error

	once    sync.Once
	stopErr error
	cur     T
	err     error
	done    bool
}

func newStream[T any](next func() (T, bool, error), stop func() error) *Stream[T] {
	return &Stream[T]{next: next, stop: stop}
}

// Next advances to the next value and reports whether there is one.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	v, ok, err := s.next()
	if err != nil || !ok {
		s.err = err
		s.done = true
		if cerr := s.Close(); s.err == nil {
			s.err = cerr
		}
		return false
	}
	s.cur = v
	return true
}

// Value returns the current value.
func (s *Stream[T]) Value() T { return s.cur }

// Err returns the error that ended the sequence, if any.
func (s *Stream[T]) Err() error { return s.err }

// Close stops the scan and releases its resources.
func (s *Stream[T]) Close() error {
	s.once.Do(func() {
		s.done = true
		if s.stop != nil {
			s.stopErr = s.stop()
		}
	})
	return s.stopErr
}

// Collect drains s into a slice.
func Collect[T any](s *Stream[T]) ([]T, error) {
	var out []T
	for s.Next() {
		out = append(out, s.Value())
	}
	return out, s.Err()
}
