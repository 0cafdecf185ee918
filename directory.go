package exfat

import (
	"io"
	"math"

	"github.com/aligator/exfat/checkpoint"
	"go.uber.org/zap"
)

// readEntries reads all entry slots of a directory up to the end of directory marker,
// including unused ones.
func readEntries(cio clusterIO, dir DataDescriptor) ([]DirectoryEntry, error) {
	stream := newClusterStream(cio, dir, ReadOnly)

	var entries []DirectoryEntry
	slot := make([]byte, EntrySize)
	for position := int64(0); ; position += EntrySize {
		if _, err := io.ReadFull(stream, slot); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return entries, nil
			}
			return nil, checkpoint.Wrapf(err, "reading directory entry at %d", position)
		}
		if EntryType(slot[0]) == EntryTypeEndOfDirectory {
			return entries, nil
		}

		e, err := DecodeEntry(slot, position)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// secondaryCount returns the number of secondaries announced by a primary entry.
func secondaryCount(e DirectoryEntry) int {
	switch v := e.(type) {
	case *FileEntry:
		return v.SecondaryCount()
	case *GenericEntry:
		return int(fieldSecondaryCount.Uint(v.data[:]))
	}
	return 0
}

// groupEntries groups in-use entries into entry sets. Sets with missing secondaries are dropped.
func groupEntries(entries []DirectoryEntry, log *zap.Logger) []*MetaDirectoryEntry {
	var metas []*MetaDirectoryEntry
	for i := 0; i < len(entries); i++ {
		primary := entries[i]
		if !primary.InUse() || primary.Type().IsSecondary() {
			continue
		}

		n := secondaryCount(primary)
		meta := &MetaDirectoryEntry{Primary: primary}
		for j := 1; j <= n && i+j < len(entries); j++ {
			s := entries[i+j]
			if !s.InUse() || !s.Type().IsSecondary() {
				break
			}
			meta.Secondaries = append(meta.Secondaries, s)
		}

		if len(meta.Secondaries) != n {
			log.Warn("dropping incomplete directory entry set",
				zap.Int64("position", primary.Position()),
				zap.Int("secondary_count", n),
				zap.Int("found", len(meta.Secondaries)))
			continue
		}

		metas = append(metas, meta)
		i += n
	}
	return metas
}

// Entries returns every entry slot of the directory, including unused ones.
func (p *Partition) Entries(dir DataDescriptor) ([]DirectoryEntry, error) {
	return readEntries(p, dir)
}

// MetaEntries returns the in-use entry sets of the directory.
func (p *Partition) MetaEntries(dir DataDescriptor) ([]*MetaDirectoryEntry, error) {
	entries, err := readEntries(p, dir)
	if err != nil {
		return nil, err
	}
	return groupEntries(entries, p.log), nil
}

// freeSlots returns the position of the first run of n unused slots.
// Without such a run the entries are appended at the end of the directory.
func freeSlots(entries []DirectoryEntry, n int) int64 {
	run := 0
	for i, e := range entries {
		if e.InUse() {
			run = 0
			continue
		}
		run++
		if run == n {
			return entries[i-n+1].Position()
		}
	}

	// A trailing run of unused slots can be continued past the end.
	return int64(len(entries)-run) * EntrySize
}

// AddEntry stores a new entry set in the directory and returns the new directory descriptor,
// which changes if the directory had to grow. The checksum is updated before writing.
// The length of a directory other than the root is kept a multiple of the cluster size.
func (p *Partition) AddEntry(dir DataDescriptor, meta *MetaDirectoryEntry) (DataDescriptor, error) {
	entries, err := readEntries(p, dir)
	if err != nil {
		return dir, err
	}
	position := freeSlots(entries, len(meta.Entries()))

	meta.UpdateChecksum()

	stream, err := p.OpenDataStream(dir, ReadWrite)
	if err != nil {
		return dir, err
	}
	if _, err := stream.Seek(position, io.SeekStart); err != nil {
		return dir, err
	}
	if _, err := stream.Write(meta.Bytes()); err != nil {
		return dir, err
	}

	bpc := uint64(p.BytesPerCluster())
	if rest := stream.Length() % bpc; rest != 0 && dir.Length != math.MaxUint64 {
		if err := stream.Truncate(stream.Length() + bpc - rest); err != nil {
			return dir, err
		}
	}

	result, err := stream.Commit()
	if err != nil {
		return dir, err
	}

	meta.setPosition(position)
	p.log.Debug("added directory entry set",
		zap.String("name", meta.FileName()),
		zap.Int64("position", position))
	return result, nil
}

// UpdateEntry rewrites an entry set at its stored position. The checksum is updated before writing.
func (p *Partition) UpdateEntry(dir DataDescriptor, meta *MetaDirectoryEntry) error {
	if meta.Position() < 0 {
		return checkpoint.Wrapf(ErrNotExist, "entry set %q was never stored", meta.FileName())
	}

	meta.UpdateChecksum()

	stream, err := p.OpenDataStream(dir, ReadWrite)
	if err != nil {
		return err
	}
	if _, err := stream.Seek(meta.Position(), io.SeekStart); err != nil {
		return err
	}
	if _, err := stream.Write(meta.Bytes()); err != nil {
		return err
	}
	_, err = stream.Commit()
	return err
}
