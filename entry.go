package exfat

import (
	"unicode/utf16"

	"github.com/aligator/exfat/checkpoint"
)

// EntrySize is the size of every directory entry slot.
const EntrySize = 32

// EntryType is the type byte at offset 0 of a directory entry.
type EntryType uint8

const (
	EntryInUse     EntryType = 0x80
	EntrySecondary EntryType = 0x40
	EntryBenign    EntryType = 0x20

	// EntryTypeEndOfDirectory marks the end of a directory, no entry follows it.
	EntryTypeEndOfDirectory EntryType = 0x00

	EntryTypeAllocationBitmap EntryType = 0x81
	EntryTypeUpCaseTable      EntryType = 0x82
	EntryTypeVolumeLabel      EntryType = 0x83
	EntryTypeFile             EntryType = 0x85
	EntryTypeStream           EntryType = EntryInUse | EntrySecondary | 0
	EntryTypeFileName         EntryType = EntryInUse | EntrySecondary | 1
)

// InUse reports whether the entry is alive. Deleted entries have the flag cleared.
func (t EntryType) InUse() bool {
	return t&EntryInUse != 0
}

// IsSecondary reports whether the entry extends a preceding primary entry.
func (t EntryType) IsSecondary() bool {
	return t&EntrySecondary != 0
}

// IsBenign reports whether an unknown entry of this type may be ignored.
func (t EntryType) IsBenign() bool {
	return t&EntryBenign != 0
}

// Code returns the type with the InUse flag set, so deleted entries compare equal to live ones.
func (t EntryType) Code() EntryType {
	return t | EntryInUse
}

// FileAttributes of a file entry.
type FileAttributes uint16

const (
	AttrReadOnly  FileAttributes = 0x01
	AttrHidden    FileAttributes = 0x02
	AttrSystem    FileAttributes = 0x04
	AttrDirectory FileAttributes = 0x10
	AttrArchive   FileAttributes = 0x20
)

// SecondaryFlags are the general flags of a secondary entry.
type SecondaryFlags uint8

const (
	FlagAllocationPossible SecondaryFlags = 0x01
	FlagNoFatChain         SecondaryFlags = 0x02
)

// Field layouts of the entry variants. Offset 0 always holds the type byte.
var (
	fieldSecondaryCount = Field{1, 1}
	fieldSetChecksum    = Field{2, 2}

	fileAttributes       = Field{4, 2}
	fileCreateStamp      = Field{8, 4}
	fileModifiedStamp    = Field{12, 4}
	fileAccessedStamp    = Field{16, 4}
	fileCreate10ms       = Field{20, 1}
	fileModified10ms     = Field{21, 1}
	fileCreateOffset     = Field{22, 1}
	fileModifiedOffset   = Field{23, 1}
	fileAccessedOffset   = Field{24, 1}
	secondaryFlags       = Field{1, 1}
	streamNameLength     = Field{3, 1}
	streamNameHash       = Field{4, 2}
	streamValidLength    = Field{8, 8}
	streamFirstCluster   = Field{20, 4}
	streamDataLength     = Field{24, 8}
	fileNameUnits        = Field{2, 30}
	bitmapFlags          = Field{1, 1}
	bitmapFirstCluster   = Field{20, 4}
	bitmapDataLength     = Field{24, 8}
	upCaseTableChecksum  = Field{4, 4}
	upCaseFirstCluster   = Field{20, 4}
	upCaseDataLength     = Field{24, 8}
	labelCharacterCount  = Field{1, 1}
	labelUnits           = Field{2, 22}
)

const (
	fileNameUnitsPerSlot = 15
	maxLabelLength       = 11
	maxNameLength        = 255
)

// entryLayouts lists the fields of each variant.
var entryLayouts = map[EntryType][]Field{
	EntryTypeFile: {
		fieldSecondaryCount, fieldSetChecksum, fileAttributes,
		fileCreateStamp, fileModifiedStamp, fileAccessedStamp,
		fileCreate10ms, fileModified10ms,
		fileCreateOffset, fileModifiedOffset, fileAccessedOffset,
	},
	EntryTypeStream: {
		secondaryFlags, streamNameLength, streamNameHash,
		streamValidLength, streamFirstCluster, streamDataLength,
	},
	EntryTypeFileName:         {secondaryFlags, fileNameUnits},
	EntryTypeAllocationBitmap: {bitmapFlags, bitmapFirstCluster, bitmapDataLength},
	EntryTypeUpCaseTable:      {upCaseTableChecksum, upCaseFirstCluster, upCaseDataLength},
	EntryTypeVolumeLabel:      {labelCharacterCount, labelUnits},
}

// RawEntry holds the bytes of one directory entry slot and where it is stored.
type RawEntry struct {
	data [EntrySize]byte
	// position is the byte offset inside the directory stream, -1 if not stored yet.
	position int64
}

func (e *RawEntry) raw() *RawEntry {
	return e
}

// Type returns the type byte.
func (e *RawEntry) Type() EntryType {
	return EntryType(e.data[0])
}

// InUse reports whether the entry is alive.
func (e *RawEntry) InUse() bool {
	return e.Type().InUse()
}

// SetInUse sets or clears the InUse flag.
func (e *RawEntry) SetInUse(inUse bool) {
	if inUse {
		e.data[0] |= byte(EntryInUse)
	} else {
		e.data[0] &^= byte(EntryInUse)
	}
}

// Position returns the byte offset inside the directory stream, -1 if the entry is not stored.
func (e *RawEntry) Position() int64 {
	return e.position
}

// Bytes returns a copy of the raw slot.
func (e *RawEntry) Bytes() []byte {
	b := make([]byte, EntrySize)
	copy(b, e.data[:])
	return b
}

// DirectoryEntry is one decoded directory entry slot.
// The concrete types are *FileEntry, *StreamEntry, *FileNameEntry, *AllocationBitmapEntry,
// *UpCaseTableEntry, *VolumeLabelEntry and *GenericEntry.
type DirectoryEntry interface {
	Type() EntryType
	InUse() bool
	SetInUse(bool)
	Position() int64
	Bytes() []byte

	raw() *RawEntry
}

func newRawEntry(t EntryType) *RawEntry {
	e := &RawEntry{position: -1}
	e.data[0] = byte(t)
	return e
}

// DecodeEntry decodes a 32 byte slot read from position of a directory stream.
// Unused slots decode to the same variant as used ones.
func DecodeEntry(b []byte, position int64) (DirectoryEntry, error) {
	if len(b) < EntrySize {
		return nil, checkpoint.Wrapf(ErrOutOfRange, "directory entry of %d bytes", len(b))
	}

	raw := &RawEntry{position: position}
	copy(raw.data[:], b)

	switch raw.Type().Code() {
	case EntryTypeFile:
		return &FileEntry{raw}, nil
	case EntryTypeStream:
		return &StreamEntry{raw}, nil
	case EntryTypeFileName:
		return &FileNameEntry{raw}, nil
	case EntryTypeAllocationBitmap:
		return &AllocationBitmapEntry{raw}, nil
	case EntryTypeUpCaseTable:
		return &UpCaseTableEntry{raw}, nil
	case EntryTypeVolumeLabel:
		return &VolumeLabelEntry{raw}, nil
	}
	return &GenericEntry{raw}, nil
}

// GenericEntry is an entry of a type without a dedicated variant.
type GenericEntry struct {
	*RawEntry
}

// FileEntry is the primary entry of a file or directory.
type FileEntry struct {
	*RawEntry
}

// NewFileEntry returns an in-use file entry without secondaries.
func NewFileEntry() *FileEntry {
	return &FileEntry{newRawEntry(EntryTypeFile)}
}

func (e *FileEntry) SecondaryCount() int {
	return int(fieldSecondaryCount.Uint(e.data[:]))
}

func (e *FileEntry) SetSecondaryCount(n int) {
	fieldSecondaryCount.SetUint(e.data[:], uint64(n))
}

// EntrySetChecksum returns the stored checksum of the entry set.
func (e *FileEntry) EntrySetChecksum() uint16 {
	return uint16(fieldSetChecksum.Uint(e.data[:]))
}

func (e *FileEntry) setEntrySetChecksum(checksum uint16) {
	fieldSetChecksum.SetUint(e.data[:], uint64(checksum))
}

func (e *FileEntry) Attributes() FileAttributes {
	return FileAttributes(fileAttributes.Uint(e.data[:]))
}

func (e *FileEntry) SetAttributes(a FileAttributes) {
	fileAttributes.SetUint(e.data[:], uint64(a))
}

func (e *FileEntry) timestamp(stamp, tenMs, offset Field) Timestamp {
	ts := Timestamp{
		Stamp:     uint32(stamp.Uint(e.data[:])),
		UTCOffset: uint8(offset.Uint(e.data[:])),
	}
	if tenMs.Width != 0 {
		ts.TenMs = uint8(tenMs.Uint(e.data[:]))
	}
	return ts
}

func (e *FileEntry) setTimestamp(stamp, tenMs, offset Field, ts Timestamp) {
	stamp.SetUint(e.data[:], uint64(ts.Stamp))
	offset.SetUint(e.data[:], uint64(ts.UTCOffset))
	if tenMs.Width != 0 {
		tenMs.SetUint(e.data[:], uint64(ts.TenMs))
	}
}

func (e *FileEntry) CreationTime() Timestamp {
	return e.timestamp(fileCreateStamp, fileCreate10ms, fileCreateOffset)
}

func (e *FileEntry) SetCreationTime(ts Timestamp) {
	e.setTimestamp(fileCreateStamp, fileCreate10ms, fileCreateOffset, ts)
}

func (e *FileEntry) LastWriteTime() Timestamp {
	return e.timestamp(fileModifiedStamp, fileModified10ms, fileModifiedOffset)
}

func (e *FileEntry) SetLastWriteTime(ts Timestamp) {
	e.setTimestamp(fileModifiedStamp, fileModified10ms, fileModifiedOffset, ts)
}

// LastAccessTime has no 10ms field on disk, TenMs is always 0.
func (e *FileEntry) LastAccessTime() Timestamp {
	return e.timestamp(fileAccessedStamp, Field{}, fileAccessedOffset)
}

func (e *FileEntry) SetLastAccessTime(ts Timestamp) {
	e.setTimestamp(fileAccessedStamp, Field{}, fileAccessedOffset, ts)
}

// StreamEntry is the stream extension secondary: name length, name hash and data location.
type StreamEntry struct {
	*RawEntry
}

// NewStreamEntry returns an in-use stream extension entry without data.
func NewStreamEntry() *StreamEntry {
	return &StreamEntry{newRawEntry(EntryTypeStream)}
}

func (e *StreamEntry) Flags() SecondaryFlags {
	return SecondaryFlags(secondaryFlags.Uint(e.data[:]))
}

func (e *StreamEntry) SetFlags(f SecondaryFlags) {
	secondaryFlags.SetUint(e.data[:], uint64(f))
}

// NameLength returns the length of the file name in UTF-16 code units.
func (e *StreamEntry) NameLength() int {
	return int(streamNameLength.Uint(e.data[:]))
}

func (e *StreamEntry) SetNameLength(n int) {
	streamNameLength.SetUint(e.data[:], uint64(n))
}

func (e *StreamEntry) NameHash() uint16 {
	return uint16(streamNameHash.Uint(e.data[:]))
}

func (e *StreamEntry) SetNameHash(h uint16) {
	streamNameHash.SetUint(e.data[:], uint64(h))
}

func (e *StreamEntry) ValidDataLength() uint64 {
	return streamValidLength.Uint(e.data[:])
}

func (e *StreamEntry) SetValidDataLength(n uint64) {
	streamValidLength.SetUint(e.data[:], n)
}

func (e *StreamEntry) FirstCluster() Cluster {
	return Cluster(streamFirstCluster.Uint(e.data[:]))
}

func (e *StreamEntry) SetFirstCluster(c Cluster) {
	streamFirstCluster.SetUint(e.data[:], uint64(c))
}

func (e *StreamEntry) DataLength() uint64 {
	return streamDataLength.Uint(e.data[:])
}

func (e *StreamEntry) SetDataLength(n uint64) {
	streamDataLength.SetUint(e.data[:], n)
}

// DataDescriptor returns where the stream data is stored.
func (e *StreamEntry) DataDescriptor() DataDescriptor {
	return DataDescriptor{
		FirstCluster: e.FirstCluster(),
		Contiguous:   e.Flags()&FlagNoFatChain != 0,
		Length:       e.DataLength(),
	}
}

// SetDataDescriptor stores d as the stream data, the whole length counts as valid data.
func (e *StreamEntry) SetDataDescriptor(d DataDescriptor) {
	flags := e.Flags() | FlagAllocationPossible
	if d.Contiguous && !d.IsEmpty() {
		flags |= FlagNoFatChain
	} else {
		flags &^= FlagNoFatChain
	}
	firstCluster := d.FirstCluster
	if d.IsEmpty() {
		firstCluster = ClusterFree
	}

	e.SetFlags(flags)
	e.SetFirstCluster(firstCluster)
	e.SetDataLength(d.Length)
	e.SetValidDataLength(d.Length)
}

// FileNameEntry holds up to 15 UTF-16 code units of a file name.
type FileNameEntry struct {
	*RawEntry
}

// NewFileNameEntry returns an in-use file name entry holding units.
func NewFileNameEntry(units []uint16) *FileNameEntry {
	e := &FileNameEntry{newRawEntry(EntryTypeFileName)}
	e.SetName(units)
	return e
}

// Name returns all code units of the slot, including trailing zeros.
func (e *FileNameEntry) Name() []uint16 {
	return fileNameUnits.Units(e.data[:])
}

// SetName stores the first 15 code units of units.
func (e *FileNameEntry) SetName(units []uint16) {
	fileNameUnits.SetUnits(e.data[:], units)
}

// AllocationBitmapEntry locates an allocation bitmap.
type AllocationBitmapEntry struct {
	*RawEntry
}

// NewAllocationBitmapEntry returns an in-use bitmap entry for the first bitmap.
func NewAllocationBitmapEntry(firstCluster Cluster, length uint64) *AllocationBitmapEntry {
	e := &AllocationBitmapEntry{newRawEntry(EntryTypeAllocationBitmap)}
	bitmapFirstCluster.SetUint(e.data[:], uint64(firstCluster))
	bitmapDataLength.SetUint(e.data[:], length)
	return e
}

// IsMirror reports whether the entry describes the second bitmap of a TexFAT volume.
func (e *AllocationBitmapEntry) IsMirror() bool {
	return bitmapFlags.Uint(e.data[:])&1 != 0
}

func (e *AllocationBitmapEntry) DataDescriptor() DataDescriptor {
	return DataDescriptor{
		FirstCluster: Cluster(bitmapFirstCluster.Uint(e.data[:])),
		Length:       bitmapDataLength.Uint(e.data[:]),
	}
}

// UpCaseTableEntry locates the up-case table.
type UpCaseTableEntry struct {
	*RawEntry
}

// NewUpCaseTableEntry returns an in-use up-case table entry.
func NewUpCaseTableEntry(firstCluster Cluster, length uint64, checksum uint32) *UpCaseTableEntry {
	e := &UpCaseTableEntry{newRawEntry(EntryTypeUpCaseTable)}
	upCaseTableChecksum.SetUint(e.data[:], uint64(checksum))
	upCaseFirstCluster.SetUint(e.data[:], uint64(firstCluster))
	upCaseDataLength.SetUint(e.data[:], length)
	return e
}

func (e *UpCaseTableEntry) TableChecksum() uint32 {
	return uint32(upCaseTableChecksum.Uint(e.data[:]))
}

func (e *UpCaseTableEntry) DataDescriptor() DataDescriptor {
	return DataDescriptor{
		FirstCluster: Cluster(upCaseFirstCluster.Uint(e.data[:])),
		Length:       upCaseDataLength.Uint(e.data[:]),
	}
}

// VolumeLabelEntry holds the volume label of up to 11 characters.
type VolumeLabelEntry struct {
	*RawEntry
}

// NewVolumeLabelEntry returns an in-use volume label entry.
func NewVolumeLabelEntry(label string) (*VolumeLabelEntry, error) {
	e := &VolumeLabelEntry{newRawEntry(EntryTypeVolumeLabel)}
	if err := e.SetLabel(label); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *VolumeLabelEntry) Label() string {
	return labelUnits.String(e.data[:], int(labelCharacterCount.Uint(e.data[:])))
}

func (e *VolumeLabelEntry) SetLabel(label string) error {
	units := utf16.Encode([]rune(label))
	if len(units) > maxLabelLength {
		return checkpoint.Wrapf(ErrInvalidName, "volume label %q longer than %d characters", label, maxLabelLength)
	}
	labelCharacterCount.SetUint(e.data[:], uint64(len(units)))
	labelUnits.SetUnits(e.data[:], units)
	return nil
}
