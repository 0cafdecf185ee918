package exfat

import (
	"errors"
	"sync"
	"time"

	"github.com/aligator/exfat/checkpoint"
	"go.uber.org/zap"
)

// Entry is a file or directory of an EntryFilesystem.
// The root directory has no entry set and no parent.
type Entry struct {
	meta   *MetaDirectoryEntry
	parent *Entry
	// root is the descriptor of the root directory, only set for the root.
	root DataDescriptor
}

// IsRoot reports whether the entry is the root directory.
func (e *Entry) IsRoot() bool {
	return e.meta == nil
}

// Parent returns the parent directory, nil for the root.
func (e *Entry) Parent() *Entry {
	return e.parent
}

// Meta returns the entry set, nil for the root.
func (e *Entry) Meta() *MetaDirectoryEntry {
	return e.meta
}

func (e *Entry) Name() string {
	if e.IsRoot() {
		return "/"
	}
	return e.meta.FileName()
}

func (e *Entry) IsDirectory() bool {
	return e.IsRoot() || e.meta.IsDirectory()
}

func (e *Entry) Kind() EntryKind {
	if e.IsDirectory() {
		return KindDirectory
	}
	return KindFile
}

// DataDescriptor returns the location of the entry content.
func (e *Entry) DataDescriptor() DataDescriptor {
	if e.IsRoot() {
		return e.root
	}
	return e.meta.DataDescriptor()
}

// Size returns the content length. It is 0 for the root directory.
func (e *Entry) Size() int64 {
	if e.IsRoot() {
		return 0
	}
	return int64(e.meta.DataDescriptor().Length)
}

func (e *Entry) Attributes() FileAttributes {
	if e.IsRoot() {
		return AttrDirectory
	}
	return e.meta.File().Attributes()
}

// SetAttributes changes the attributes, keeping the directory flag. Call Update to store them.
func (e *Entry) SetAttributes(a FileAttributes) {
	if e.IsRoot() {
		return
	}
	a = a&^AttrDirectory | e.meta.File().Attributes()&AttrDirectory
	e.meta.File().SetAttributes(a)
}

func (e *Entry) CreationTime() time.Time {
	if e.IsRoot() {
		return time.Time{}
	}
	return e.meta.File().CreationTime().Time()
}

func (e *Entry) LastWriteTime() time.Time {
	if e.IsRoot() {
		return time.Time{}
	}
	return e.meta.File().LastWriteTime().Time()
}

func (e *Entry) LastAccessTime() time.Time {
	if e.IsRoot() {
		return time.Time{}
	}
	return e.meta.File().LastAccessTime().Time()
}

// SetTimes changes the last access and last write time. Call Update to store them.
func (e *Entry) SetTimes(access, write time.Time) {
	if e.IsRoot() {
		return
	}
	e.meta.File().SetLastAccessTime(NewTimestamp(access))
	e.meta.File().SetLastWriteTime(NewTimestamp(write))
}

// EntryFilesystem provides files and directories as entries on top of a Partition.
type EntryFilesystem struct {
	// mu serializes changes of the directory structure.
	mu sync.Mutex

	partition *Partition
	root      *Entry
}

// NewEntryFilesystem wraps p. The clock and the access time flag are taken from the options p was opened with.
func NewEntryFilesystem(p *Partition) *EntryFilesystem {
	return &EntryFilesystem{
		partition: p,
		root:      &Entry{root: p.RootDirectoryDescriptor()},
	}
}

// Partition returns the underlying partition.
func (fs *EntryFilesystem) Partition() *Partition {
	return fs.partition
}

// RootDirectory returns the root directory entry.
func (fs *EntryFilesystem) RootDirectory() *Entry {
	return fs.root
}

func expectDirectory(op string, e *Entry) error {
	if !e.IsDirectory() {
		return checkpoint.From(&KindError{Op: op, Name: e.Name(), Expected: KindDirectory, Actual: KindFile})
	}
	return nil
}

// Enumerate returns the files and directories of dir.
func (fs *EntryFilesystem) Enumerate(dir *Entry) ([]*Entry, error) {
	if err := expectDirectory("enumerate", dir); err != nil {
		return nil, err
	}

	metas, err := fs.partition.MetaEntries(dir.DataDescriptor())
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, m := range metas {
		// Only file sets are children, the root also holds bitmap, up-case table and label.
		if m.File() == nil || m.Stream() == nil {
			continue
		}
		if !m.ChecksumValid() {
			fs.partition.log.Warn("entry set checksum mismatch",
				zap.String("name", m.FileName()),
				zap.Int64("position", m.Position()))
		}
		entries = append(entries, &Entry{meta: m, parent: dir})
	}
	return entries, nil
}

// FindChild returns the child of dir with the given name, compared case insensitive.
// It returns ErrNotExist if there is none.
func (fs *EntryFilesystem) FindChild(dir *Entry, name string) (*Entry, error) {
	if err := expectDirectory("find", dir); err != nil {
		return nil, err
	}

	hash, err := fs.partition.ComputeNameHash(name)
	if err != nil {
		return nil, err
	}
	table, err := fs.partition.UpCaseTable()
	if err != nil {
		return nil, err
	}
	units, err := nameUnits(name)
	if err != nil {
		return nil, err
	}

	children, err := fs.Enumerate(dir)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.meta.Stream().NameHash() != hash {
			continue
		}
		if equalFold(child.meta.FileName(), units, table) {
			return child, nil
		}
	}

	return nil, checkpoint.Wrapf(ErrNotExist, "%q", name)
}

func equalFold(name string, units []uint16, table *UpCaseTable) bool {
	other, err := nameUnits(name)
	if err != nil || len(other) != len(units) {
		return false
	}
	for i := range units {
		if table.ToUpper(units[i]) != table.ToUpper(other[i]) {
			return false
		}
	}
	return true
}

// FileStream is the content of a file. Close commits the stream and stores
// the resulting data location and times in the file entry.
type FileStream struct {
	*ClusterStream
	fs     *EntryFilesystem
	entry  *Entry
	access Access
}

// Entry returns the file the stream belongs to.
func (f *FileStream) Entry() *Entry {
	return f.entry
}

// Close commits the stream and updates the file entry.
func (f *FileStream) Close() error {
	d, err := f.ClusterStream.Commit()
	if err != nil {
		return err
	}
	return f.fs.commit(f.entry, f.access, f.ClusterStream.Modified(), d)
}

// Sync stores the current data location in the file entry without closing the stream.
func (f *FileStream) Sync() error {
	if f.access != ReadWrite || !f.ClusterStream.Modified() {
		return nil
	}
	return f.fs.commit(f.entry, ReadWrite, true, f.ClusterStream.Descriptor())
}

// OpenFile opens the content of a file.
func (fs *EntryFilesystem) OpenFile(e *Entry, access Access) (*FileStream, error) {
	if e.IsDirectory() {
		return nil, checkpoint.From(&KindError{Op: "open", Name: e.Name(), Expected: KindFile, Actual: KindDirectory})
	}
	return fs.openData(e, access)
}

func (fs *EntryFilesystem) openData(e *Entry, access Access) (*FileStream, error) {
	stream, err := fs.partition.OpenDataStream(e.DataDescriptor(), access)
	if err != nil {
		return nil, err
	}
	return &FileStream{ClusterStream: stream, fs: fs, entry: e, access: access}, nil
}

// commit stores the result of a content stream in the entry.
func (fs *EntryFilesystem) commit(e *Entry, access Access, modified bool, d DataDescriptor) error {
	if e.IsRoot() {
		return nil
	}

	cfg := fs.partition.cfg
	file := e.meta.File()
	changed := false

	if access == ReadOnly && cfg.updateLastAccessTime && !fs.partition.ReadOnly() {
		file.SetLastAccessTime(NewTimestamp(cfg.now()))
		changed = true
	}
	if modified {
		now := NewTimestamp(cfg.now())
		file.SetAttributes(file.Attributes() | AttrArchive)
		file.SetLastWriteTime(now)
		file.SetLastAccessTime(now)
		e.meta.Stream().SetDataDescriptor(d)
		changed = true
	}

	if !changed {
		return nil
	}
	return fs.Update(e)
}

// Update stores the entry set of e in its parent directory.
func (fs *EntryFilesystem) Update(e *Entry) error {
	if e.IsRoot() {
		return nil
	}
	return fs.partition.UpdateEntry(e.parent.DataDescriptor(), e.meta)
}

// setDirectoryDescriptor stores a changed descriptor of a directory after it grew.
func (fs *EntryFilesystem) setDirectoryDescriptor(dir *Entry, d DataDescriptor) error {
	if dir.IsRoot() || d == dir.DataDescriptor() {
		return nil
	}
	dir.meta.Stream().SetDataDescriptor(d)
	return fs.Update(dir)
}

func (fs *EntryFilesystem) createEntry(dir *Entry, name string, attributes FileAttributes) (*Entry, error) {
	hash, err := fs.partition.ComputeNameHash(name)
	if err != nil {
		return nil, err
	}
	meta, err := NewFileMeta(name, hash, attributes, NewTimestamp(fs.partition.now()))
	if err != nil {
		return nil, err
	}
	return &Entry{meta: meta, parent: dir}, nil
}

func (fs *EntryFilesystem) addEntry(dir, e *Entry) error {
	d, err := fs.partition.AddEntry(dir.DataDescriptor(), e.meta)
	if err != nil {
		return err
	}
	return fs.setDirectoryDescriptor(dir, d)
}

// CreateFile creates an empty file in dir and opens it for writing.
// An existing file is truncated.
func (fs *EntryFilesystem) CreateFile(dir *Entry, name string) (*FileStream, error) {
	if err := expectDirectory("create", dir); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, err := fs.FindChild(dir, name)
	switch {
	case err == nil:
		if existing.IsDirectory() {
			return nil, checkpoint.Wrapf(ErrExistsWithWrongKind, "%q is a directory", name)
		}
		stream, err := fs.openData(existing, ReadWrite)
		if err != nil {
			return nil, err
		}
		if err := stream.Truncate(0); err != nil {
			return nil, err
		}
		return stream, nil
	case !errors.Is(err, ErrNotExist):
		return nil, err
	}

	e, err := fs.createEntry(dir, name, AttrArchive)
	if err != nil {
		return nil, err
	}
	if err := fs.addEntry(dir, e); err != nil {
		return nil, err
	}

	fs.partition.log.Debug("created file", zap.String("name", name))
	return fs.openData(e, ReadWrite)
}

// CreateDirectory creates a directory in dir or returns the existing one.
// ErrExistsWithWrongKind is returned if a file with that name exists.
func (fs *EntryFilesystem) CreateDirectory(dir *Entry, name string) (*Entry, error) {
	if err := expectDirectory("mkdir", dir); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, err := fs.FindChild(dir, name)
	switch {
	case err == nil:
		if !existing.IsDirectory() {
			return nil, checkpoint.Wrapf(ErrExistsWithWrongKind, "%q is a file", name)
		}
		return existing, nil
	case !errors.Is(err, ErrNotExist):
		return nil, err
	}

	e, err := fs.createEntry(dir, name, AttrDirectory)
	if err != nil {
		return nil, err
	}

	// A directory always owns one zeroed cluster, which is an empty entry list.
	stream, err := fs.partition.CreateDataStream()
	if err != nil {
		return nil, err
	}
	if _, err := stream.Write(make([]byte, fs.partition.BytesPerCluster())); err != nil {
		return nil, err
	}
	d, err := stream.Commit()
	if err != nil {
		return nil, err
	}
	e.meta.Stream().SetDataDescriptor(d)

	if err := fs.addEntry(dir, e); err != nil {
		return nil, err
	}

	fs.partition.log.Debug("created directory", zap.String("name", name))
	return e, nil
}

// Delete frees the content of e and marks its entry set unused.
// Directories have to be empty.
func (fs *EntryFilesystem) Delete(e *Entry) error {
	if e.IsRoot() {
		return checkpoint.Wrapf(ErrNotSupported, "deleting the root directory")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.delete(e)
}

func (fs *EntryFilesystem) delete(e *Entry) error {
	if e.IsDirectory() {
		children, err := fs.Enumerate(e)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return checkpoint.Wrapf(ErrDirectoryNotEmpty, "%q", e.Name())
		}
	}

	if err := fs.partition.Deallocate(e.DataDescriptor()); err != nil {
		return err
	}
	e.meta.SetInUse(false)
	if err := fs.Update(e); err != nil {
		return err
	}

	fs.partition.log.Debug("deleted entry", zap.String("name", e.Name()))
	return nil
}

// DeleteTree deletes e and, for directories, everything below it.
func (fs *EntryFilesystem) DeleteTree(e *Entry) error {
	if e.IsRoot() {
		return checkpoint.Wrapf(ErrNotSupported, "deleting the root directory")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.deleteTree(e)
}

func (fs *EntryFilesystem) deleteTree(e *Entry) error {
	if e.IsDirectory() {
		children, err := fs.Enumerate(e)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := fs.deleteTree(child); err != nil {
				return err
			}
		}
	}
	return fs.delete(e)
}
