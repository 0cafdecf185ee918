// Package checkpoint decorates errors with the location they passed through, which results
// in something similar to a stacktrace without the cost of capturing one.
//
// Both the wrapped error and the describing error stay visible to errors.Is and errors.As:
//
//	var ErrBitmap = errors.New("allocation bitmap")
//
//	func load() error {
//		err := readClusters()
//		return checkpoint.Wrap(err, ErrBitmap)
//	}
//
//	errors.Is(load(), ErrBitmap) // true, and errors.Is(load(), <cause>) as well
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
)

// From decorates err with the caller location.
// It returns nil if err is nil.
func From(err error) error {
	if passThrough(err) {
		return err
	}

	return newCheckpoint(nil, err)
}

// Wrap decorates prev with the caller location and the describing error err.
// It returns nil if prev is nil, so it can be used directly on return values.
// err may be nil in which case Wrap behaves like From.
func Wrap(prev, err error) error {
	if passThrough(prev) {
		return prev
	}

	return newCheckpoint(err, prev)
}

// Wrapf is Wrap with a formatted describing message instead of a describing error.
func Wrapf(prev error, format string, args ...interface{}) error {
	if passThrough(prev) {
		return prev
	}

	return newCheckpoint(fmt.Errorf(format, args...), prev)
}

// passThrough reports errors which must reach the caller unchanged.
// io.EOF has to be returned as is, readers compare it with == (https://github.com/golang/go/issues/39155).
func passThrough(err error) bool {
	return err == nil || err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(err, prev error) *checkpoint {
	// Skip newCheckpoint and the exported caller.
	_, file, line, ok := runtime.Caller(2)

	c := &checkpoint{
		err:  err,
		prev: prev,
		line: -1,
	}
	if ok {
		c.file = filepath.Base(file)
		c.line = line
	}
	return c
}

type checkpoint struct {
	err  error
	prev error

	file string
	line int
}

func (c *checkpoint) location() string {
	if c.line < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", c.file, c.line)
}

func (c *checkpoint) Error() string {
	if c.err == nil {
		return fmt.Sprintf("[%s] %v", c.location(), c.prev)
	}
	return fmt.Sprintf("[%s] %v: %v", c.location(), c.err, c.prev)
}

func (c *checkpoint) Unwrap() error {
	return c.prev
}

func (c *checkpoint) Is(target error) bool {
	return c.err != nil && errors.Is(c.err, target)
}

func (c *checkpoint) As(target interface{}) bool {
	return c.err != nil && errors.As(c.err, target)
}
