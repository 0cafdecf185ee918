package exfat

import (
	"errors"
	"io"
	"os"
	"syscall"

	"github.com/aligator/exfat/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile  = errors.New("could not read file completely")
	ErrWriteFile = errors.New("could not write file completely")
	ErrSeekFile  = errors.New("could not seek inside of the file")
	ErrReadDir   = errors.New("could not read the directory")
)

// File is an afero.File of an exFAT Fs. Directories have no stream.
type File struct {
	fs     *Fs
	path   string
	entry  *Entry
	stream *FileStream

	// dirOffset is the number of directory entries already returned by Readdir.
	dirOffset int
	closed    bool
}

func newFile(fs *Fs, path string, entry *Entry, stream *FileStream) *File {
	return &File{
		fs:     fs,
		path:   path,
		entry:  entry,
		stream: stream,
	}
}

func (f *File) checkOpen() error {
	if f.closed {
		return checkpoint.From(os.ErrClosed)
	}
	return nil
}

func (f *File) fileStream() (*FileStream, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	if f.stream == nil {
		return nil, checkpoint.From(syscall.EISDIR)
	}
	return f.stream, nil
}

// Close commits the content of the file into its directory entry.
func (f *File) Close() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	f.closed = true

	if f.stream != nil {
		return f.stream.Close()
	}
	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	stream, err := f.fileStream()
	if err != nil {
		return 0, err
	}

	n, err = stream.Read(p)
	if err != nil && err != io.EOF {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	return n, err
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	stream, err := f.fileStream()
	if err != nil {
		return 0, err
	}

	// Reading over the end makes no sense.
	if off >= int64(stream.Length()) {
		return 0, io.EOF
	}

	current, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}
	defer stream.Seek(current, io.SeekStart)

	if _, err := stream.Seek(off, io.SeekStart); err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}

	n, err = io.ReadFull(stream, p)
	if err == io.ErrUnexpectedEOF {
		return n, io.EOF
	}
	if err != nil && err != io.EOF {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	return n, err
}

// Seek jumps to a specific offset in the file. This affects all Read and Write operations
// except ReadAt and WriteAt. May return a syscall.EINVAL error if the whence value is invalid.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if f.stream == nil {
		// Seeking to the start restarts Readdir.
		if offset == 0 && whence == io.SeekStart {
			f.dirOffset = 0
			return 0, nil
		}
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrSeekFile)
	}

	pos, err := f.stream.Seek(offset, whence)
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrSeekFile)
	}
	return pos, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	stream, err := f.fileStream()
	if err != nil {
		return 0, err
	}

	n, err = stream.Write(p)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	return n, nil
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	stream, err := f.fileStream()
	if err != nil {
		return 0, err
	}

	current, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrWriteFile)
	}
	defer stream.Seek(current, io.SeekStart)

	if _, err := stream.Seek(off, io.SeekStart); err != nil {
		return 0, checkpoint.Wrap(err, ErrWriteFile)
	}
	n, err = stream.Write(p)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrWriteFile)
	}
	return n, nil
}

func (f *File) Name() string {
	return f.path
}

// Readdir reads the contents of a directory.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	if !f.entry.IsDirectory() {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.fs.entries.Enumerate(f.entry)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	if f.dirOffset > len(content) {
		f.dirOffset = len(content)
	}
	content = content[f.dirOffset:]

	if count > 0 {
		if len(content) == 0 {
			return nil, io.EOF
		}
		if len(content) > count {
			content = content[:count]
		}
	}
	f.dirOffset += len(content)

	result := make([]os.FileInfo, len(content))
	for i := range content {
		result[i] = content[i].FileInfo()
	}

	return result, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	if f.stream != nil {
		return streamFileInfo{entryFileInfo{f.entry}, f.stream}, nil
	}
	return f.entry.FileInfo(), nil
}

// Sync stores the current size and location of the content in the directory entry
// and flushes the partition.
func (f *File) Sync() error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if f.stream != nil {
		if err := f.stream.Sync(); err != nil {
			return err
		}
	}
	return f.fs.Flush()
}

func (f *File) Truncate(size int64) error {
	stream, err := f.fileStream()
	if err != nil {
		return err
	}
	if size < 0 {
		return checkpoint.From(syscall.EINVAL)
	}
	return stream.Truncate(uint64(size))
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
