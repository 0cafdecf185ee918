package exfat

import (
	"strings"
	"unicode/utf16"

	"github.com/aligator/exfat/checkpoint"
)

// MetaDirectoryEntry is a primary entry together with the secondaries following it.
type MetaDirectoryEntry struct {
	Primary     DirectoryEntry
	Secondaries []DirectoryEntry
}

// Entries returns the primary followed by all secondaries.
func (m *MetaDirectoryEntry) Entries() []DirectoryEntry {
	return append([]DirectoryEntry{m.Primary}, m.Secondaries...)
}

// Position returns the position of the primary inside the directory stream.
func (m *MetaDirectoryEntry) Position() int64 {
	return m.Primary.Position()
}

// InUse reports whether the primary is in use.
func (m *MetaDirectoryEntry) InUse() bool {
	return m.Primary.InUse()
}

// SetInUse changes the InUse flag of every entry of the set.
func (m *MetaDirectoryEntry) SetInUse(inUse bool) {
	for _, e := range m.Entries() {
		e.SetInUse(inUse)
	}
}

// File returns the primary as file entry, nil if it is none.
func (m *MetaDirectoryEntry) File() *FileEntry {
	f, _ := m.Primary.(*FileEntry)
	return f
}

// Stream returns the first stream extension secondary, nil if there is none.
func (m *MetaDirectoryEntry) Stream() *StreamEntry {
	for _, e := range m.Secondaries {
		if s, ok := e.(*StreamEntry); ok {
			return s
		}
	}
	return nil
}

// IsDirectory reports whether the set describes a directory.
func (m *MetaDirectoryEntry) IsDirectory() bool {
	f := m.File()
	return f != nil && f.Attributes()&AttrDirectory != 0
}

// FileName concatenates the file name secondaries, cut to the name length of the stream extension.
// Names never contain U+0000, so a slot ends at its first padding unit.
func (m *MetaDirectoryEntry) FileName() string {
	var units []uint16
	for _, e := range m.Secondaries {
		n, ok := e.(*FileNameEntry)
		if !ok {
			continue
		}
		for _, u := range n.Name() {
			if u == 0 {
				break
			}
			units = append(units, u)
		}
	}

	if s := m.Stream(); s != nil && s.NameLength() < len(units) {
		units = units[:s.NameLength()]
	}
	return string(utf16.Decode(units))
}

// DataDescriptor returns the data location stored in the stream extension.
func (m *MetaDirectoryEntry) DataDescriptor() DataDescriptor {
	if s := m.Stream(); s != nil {
		return s.DataDescriptor()
	}
	return DataDescriptor{}
}

// Bytes returns all entries of the set as they are stored.
func (m *MetaDirectoryEntry) Bytes() []byte {
	entries := m.Entries()
	b := make([]byte, 0, len(entries)*EntrySize)
	for _, e := range entries {
		b = append(b, e.raw().data[:]...)
	}
	return b
}

// ComputeChecksum computes the entry set checksum over all entries.
// The stored checksum itself is skipped.
func (m *MetaDirectoryEntry) ComputeChecksum() uint16 {
	return entrySetChecksum(m.Bytes())
}

// ChecksumValid reports whether the stored checksum matches the entries.
// Only file sets carry a checksum; other sets are always valid.
func (m *MetaDirectoryEntry) ChecksumValid() bool {
	f := m.File()
	return f == nil || f.EntrySetChecksum() == m.ComputeChecksum()
}

// UpdateChecksum stores the computed checksum in the primary. It has to be called after
// changing any entry of the set and before writing it.
func (m *MetaDirectoryEntry) UpdateChecksum() {
	if f := m.File(); f != nil {
		f.setEntrySetChecksum(m.ComputeChecksum())
	}
}

func (m *MetaDirectoryEntry) setPosition(position int64) {
	for i, e := range m.Entries() {
		e.raw().position = position + int64(i*EntrySize)
	}
}

func rotateAdd16(sum uint16, b byte) uint16 {
	return ((sum >> 1) | (sum << 15)) + uint16(b)
}

// entrySetChecksum computes the checksum of an entry set. Bytes 2 and 3 hold the checksum.
func entrySetChecksum(set []byte) uint16 {
	var checksum uint16
	for i, b := range set {
		if i == fieldSetChecksum.Offset || i == fieldSetChecksum.Offset+1 {
			continue
		}
		checksum = rotateAdd16(checksum, b)
	}
	return checksum
}

// nameHash hashes the up-cased code units of a name, low byte first.
func nameHash(units []uint16, upCase *UpCaseTable) uint16 {
	var hash uint16
	for _, u := range units {
		u = upCase.ToUpper(u)
		hash = rotateAdd16(hash, byte(u))
		hash = rotateAdd16(hash, byte(u>>8))
	}
	return hash
}

// invalidNameChars may not be part of a file name, nor may control characters.
const invalidNameChars = "\"*/:<>?\\|"

// nameUnits validates a file name and returns its UTF-16 code units.
func nameUnits(name string) ([]uint16, error) {
	if name == "" || name == "." || name == ".." {
		return nil, checkpoint.Wrapf(ErrInvalidName, "%q", name)
	}
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidNameChars, r) {
			return nil, checkpoint.Wrapf(ErrInvalidName, "%q contains %q", name, r)
		}
	}

	units := utf16.Encode([]rune(name))
	if len(units) > maxNameLength {
		return nil, checkpoint.Wrapf(ErrInvalidName, "%q longer than %d characters", name, maxNameLength)
	}
	return units, nil
}

// NewFileMeta creates the entry set of a new, empty file or directory.
// hash has to be the name hash computed with the up-case table of the partition.
// The checksum is not computed until the set gets stored.
func NewFileMeta(name string, hash uint16, attributes FileAttributes, created Timestamp) (*MetaDirectoryEntry, error) {
	units, err := nameUnits(name)
	if err != nil {
		return nil, err
	}

	file := NewFileEntry()
	file.SetAttributes(attributes)
	file.SetCreationTime(created)
	file.SetLastWriteTime(created)
	file.SetLastAccessTime(created)

	stream := NewStreamEntry()
	stream.SetFlags(FlagAllocationPossible)
	stream.SetNameLength(len(units))
	stream.SetNameHash(hash)

	m := &MetaDirectoryEntry{
		Primary:     file,
		Secondaries: []DirectoryEntry{stream},
	}
	for i := 0; i < len(units); i += fileNameUnitsPerSlot {
		end := i + fileNameUnitsPerSlot
		if end > len(units) {
			end = len(units)
		}
		m.Secondaries = append(m.Secondaries, NewFileNameEntry(units[i:end]))
	}
	file.SetSecondaryCount(len(m.Secondaries))

	return m, nil
}
