package exfat

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// These errors may occur while accessing a partition.
var (
	ErrUnrecognizedFormat  = errors.New("unrecognized exFAT format")
	ErrNotSeekable         = errors.New("partition stream must be seekable")
	ErrReadOnly            = errors.New("partition stream is read-only")
	ErrOutOfRange          = errors.New("value out of range")
	ErrCorruptChain        = errors.New("cluster chain is corrupt")
	ErrDiskFull            = errors.New("no unallocated cluster left")
	ErrClosed              = errors.New("stream already closed")
	ErrNoAllocationBitmap  = errors.New("no allocation bitmap in root directory")
	ErrExistsWithWrongKind = errors.New("entry exists with a different kind")
	ErrNotExist            = os.ErrNotExist
	ErrDirectoryNotEmpty   = errors.New("directory not empty")
	ErrInvalidName         = errors.New("invalid entry name")
	ErrNotSupported        = errors.New("operation not supported")
)

// EntryKind distinguishes files from directories.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// KindError is returned when a file is used where a directory is expected or the other way round.
type KindError struct {
	Op       string
	Name     string
	Expected EntryKind
	Actual   EntryKind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s %q: expected %v, got %v", e.Op, e.Name, e.Expected, e.Actual)
}

// Is lets KindError match the matching syscall errors.
func (e *KindError) Is(target error) bool {
	switch target {
	case syscall.ENOTDIR:
		return e.Expected == KindDirectory
	case syscall.EISDIR:
		return e.Expected == KindFile
	}
	return false
}
