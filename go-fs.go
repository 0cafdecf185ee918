package exfat

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(bytes []byte) (int, error) {
	return g.File.Read(bytes)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFs just wraps the afero exFAT implementation to be compatible with fs.FS.
type GoFs struct {
	*Fs
}

// NewGoFS opens an exFAT partition from the given reader as fs.FS compatible filesystem.
func NewGoFS(reader io.ReadSeeker, opts ...Option) (*GoFs, error) {
	fs, err := New(reader, opts...)
	if err != nil {
		return nil, err
	}

	return &GoFs{fs}, nil
}

// NewGoFSSkipChecks opens an exFAT partition like NewGoFS but skips the boot sector validation,
// which may allow opening slightly broken images. Use with caution!
func NewGoFSSkipChecks(reader io.ReadSeeker, opts ...Option) (*GoFs, error) {
	fs, err := NewSkipChecks(reader, opts...)
	if err != nil {
		return nil, err
	}

	return &GoFs{fs}, nil
}

// Open implements fs.FS. Only valid fs paths are accepted.
func (g GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	f, err := g.Fs.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}

	file, ok := f.(*File)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: errors.New("unexpected file type")}
	}
	return GoFile{file}, nil
}
