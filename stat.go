package exfat

import (
	"os"
	"path"
	"time"
)

// FileInfo returns the os.FileInfo of the entry.
func (e *Entry) FileInfo() os.FileInfo {
	return entryFileInfo{e}
}

type entryFileInfo struct {
	entry *Entry
}

func (e entryFileInfo) Name() string {
	if e.entry.IsRoot() {
		return "/"
	}
	return path.Base(e.entry.Name())
}

func (e entryFileInfo) Size() int64 {
	if e.entry.IsDirectory() {
		return 0
	}
	return e.entry.Size()
}

func (e entryFileInfo) Mode() os.FileMode {
	mode := os.FileMode(0666)
	if e.entry.Attributes()&AttrReadOnly != 0 {
		mode = 0444
	}
	if e.IsDir() {
		mode |= os.ModeDir | 0111
	}
	return mode
}

func (e entryFileInfo) ModTime() time.Time {
	return e.entry.LastWriteTime()
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDirectory()
}

// Sys returns the *MetaDirectoryEntry of the entry, nil for the root directory.
func (e entryFileInfo) Sys() interface{} {
	return e.entry.Meta()
}

// streamFileInfo reports the size of an open stream, which may differ from the stored one.
type streamFileInfo struct {
	entryFileInfo
	stream *FileStream
}

func (s streamFileInfo) Size() int64 {
	return int64(s.stream.Length())
}
