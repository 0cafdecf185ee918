package exfat

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/exfat/checkpoint"
	"github.com/spf13/afero"
)

// Fs is an afero.Fs on top of an exFAT partition.
// Paths are slash separated and relative to the root directory, a leading slash is ignored.
type Fs struct {
	entries *EntryFilesystem
}

// New opens the exFAT partition stored in reader as afero.Fs.
// The filesystem is writable if reader also implements io.Writer.
func New(reader io.ReadSeeker, opts ...Option) (*Fs, error) {
	p, err := Open(reader, opts...)
	if err != nil {
		return nil, err
	}
	return NewFs(p), nil
}

// NewSkipChecks opens the exFAT partition stored in reader like New, but accepts a boot sector
// which does not pass the validation. See OpenSkipChecks.
func NewSkipChecks(reader io.ReadSeeker, opts ...Option) (*Fs, error) {
	p, err := OpenSkipChecks(reader, opts...)
	if err != nil {
		return nil, err
	}
	return NewFs(p), nil
}

// NewFs wraps an already opened partition.
func NewFs(p *Partition) *Fs {
	return &Fs{entries: NewEntryFilesystem(p)}
}

// Entries returns the entry level filesystem.
func (fs *Fs) Entries() *EntryFilesystem {
	return fs.entries
}

// Label returns the volume label, an empty string if there is none.
func (fs *Fs) Label() (string, error) {
	p := fs.entries.Partition()
	metas, err := p.MetaEntries(p.RootDirectoryDescriptor())
	if err != nil {
		return "", err
	}
	for _, m := range metas {
		if l, ok := m.Primary.(*VolumeLabelEntry); ok {
			return l.Label(), nil
		}
	}
	return "", nil
}

// Flush writes all cached partition data.
func (fs *Fs) Flush() error {
	return fs.entries.Partition().Flush()
}

// pathError converts errors to the plain errors the os package checks for.
func pathError(op, name string, err error) error {
	var kindErr *KindError
	switch {
	case errors.Is(err, ErrNotExist):
		err = os.ErrNotExist
	case errors.Is(err, ErrExistsWithWrongKind):
		err = os.ErrExist
	case errors.Is(err, ErrDirectoryNotEmpty):
		err = syscall.ENOTEMPTY
	case errors.Is(err, ErrReadOnly):
		err = os.ErrPermission
	case errors.As(err, &kindErr):
		if kindErr.Expected == KindDirectory {
			err = syscall.ENOTDIR
		} else {
			err = syscall.EISDIR
		}
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

func splitPath(name string) []string {
	name = strings.Trim(path.Clean("/"+name), "/")
	if name == "" {
		return nil
	}
	return strings.Split(name, "/")
}

// resolve walks from the root directory to the entry of name.
func (fs *Fs) resolve(name string) (*Entry, error) {
	e := fs.entries.RootDirectory()
	for _, part := range splitPath(name) {
		child, err := fs.entries.FindChild(e, part)
		if err != nil {
			return nil, err
		}
		e = child
	}
	return e, nil
}

// resolveParent returns the parent directory of name and the base name.
func (fs *Fs) resolveParent(name string) (*Entry, string, error) {
	parts := splitPath(name)
	if len(parts) == 0 {
		return nil, "", checkpoint.Wrapf(ErrInvalidName, "root has no parent")
	}

	parent, err := fs.resolve(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	return parent, parts[len(parts)-1], nil
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	parent, base, err := fs.resolveParent(name)
	if err != nil {
		return pathError("mkdir", name, err)
	}
	if _, err := fs.entries.FindChild(parent, base); err == nil {
		return pathError("mkdir", name, os.ErrExist)
	}
	if _, err := fs.entries.CreateDirectory(parent, base); err != nil {
		return pathError("mkdir", name, err)
	}
	return nil
}

func (fs *Fs) MkdirAll(name string, perm os.FileMode) error {
	e := fs.entries.RootDirectory()
	for _, part := range splitPath(name) {
		child, err := fs.entries.CreateDirectory(e, part)
		if err != nil {
			if errors.Is(err, ErrExistsWithWrongKind) {
				return pathError("mkdir", name, syscall.ENOTDIR)
			}
			return pathError("mkdir", name, err)
		}
		e = child
	}
	return nil
}

func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	access := ReadOnly
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		access = ReadWrite
	}

	e, err := fs.resolve(name)
	switch {
	case err == nil:
		if flag&(os.O_CREATE|os.O_EXCL) == os.O_CREATE|os.O_EXCL {
			return nil, pathError("open", name, os.ErrExist)
		}
	case errors.Is(err, ErrNotExist) && flag&os.O_CREATE != 0:
		parent, base, err := fs.resolveParent(name)
		if err != nil {
			return nil, pathError("open", name, err)
		}
		stream, err := fs.entries.CreateFile(parent, base)
		if err != nil {
			return nil, pathError("open", name, err)
		}
		if access == ReadOnly {
			if err := stream.Close(); err != nil {
				return nil, pathError("open", name, err)
			}
			stream, err = fs.entries.OpenFile(stream.Entry(), ReadOnly)
			if err != nil {
				return nil, pathError("open", name, err)
			}
		}
		return newFile(fs, name, stream.Entry(), stream), nil
	default:
		return nil, pathError("open", name, err)
	}

	if e.IsDirectory() {
		if access == ReadWrite {
			return nil, pathError("open", name, syscall.EISDIR)
		}
		return newFile(fs, name, e, nil), nil
	}

	stream, err := fs.entries.OpenFile(e, access)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	if flag&os.O_TRUNC != 0 && access == ReadWrite {
		if err := stream.Truncate(0); err != nil {
			return nil, pathError("open", name, err)
		}
	}
	if flag&os.O_APPEND != 0 {
		if _, err := stream.Seek(0, io.SeekEnd); err != nil {
			return nil, pathError("open", name, err)
		}
	}
	return newFile(fs, name, e, stream), nil
}

func (fs *Fs) Remove(name string) error {
	e, err := fs.resolve(name)
	if err != nil {
		return pathError("remove", name, err)
	}
	if err := fs.entries.Delete(e); err != nil {
		return pathError("remove", name, err)
	}
	return nil
}

func (fs *Fs) RemoveAll(name string) error {
	e, err := fs.resolve(name)
	if errors.Is(err, ErrNotExist) {
		return nil
	}
	if err != nil {
		return pathError("removeall", name, err)
	}

	if e.IsRoot() {
		children, err := fs.entries.Enumerate(e)
		if err != nil {
			return pathError("removeall", name, err)
		}
		for _, child := range children {
			if err := fs.entries.DeleteTree(child); err != nil {
				return pathError("removeall", name, err)
			}
		}
		return nil
	}

	if err := fs.entries.DeleteTree(e); err != nil {
		return pathError("removeall", name, err)
	}
	return nil
}

// Rename is not supported.
func (fs *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: ErrNotSupported}
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	e, err := fs.resolve(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return e.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "exfat"
}

// Chmod maps the owner write permission to the read-only attribute, other bits are ignored.
func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	e, err := fs.resolve(name)
	if err != nil {
		return pathError("chmod", name, err)
	}
	if e.IsRoot() {
		return nil
	}

	a := e.Attributes()
	if mode&0200 == 0 {
		a |= AttrReadOnly
	} else {
		a &^= AttrReadOnly
	}
	e.SetAttributes(a)

	if err := fs.entries.Update(e); err != nil {
		return pathError("chmod", name, err)
	}
	return nil
}

// Chown is not supported, exFAT has no owners.
func (fs *Fs) Chown(name string, uid, gid int) error {
	return pathError("chown", name, ErrNotSupported)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	e, err := fs.resolve(name)
	if err != nil {
		return pathError("chtimes", name, err)
	}
	if e.IsRoot() {
		return nil
	}

	e.SetTimes(atime, mtime)
	if err := fs.entries.Update(e); err != nil {
		return pathError("chtimes", name, err)
	}
	return nil
}
