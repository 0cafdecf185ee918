package exfat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEntryType(t *testing.T) {
	tests := []struct {
		name          string
		t             EntryType
		wantInUse     bool
		wantSecondary bool
		wantBenign    bool
		wantCode      EntryType
	}{
		{name: "file", t: EntryTypeFile, wantInUse: true, wantCode: EntryTypeFile},
		{name: "deleted file", t: 0x05, wantCode: EntryTypeFile},
		{name: "stream", t: EntryTypeStream, wantInUse: true, wantSecondary: true, wantCode: EntryTypeStream},
		{name: "deleted file name", t: 0x41, wantSecondary: true, wantCode: EntryTypeFileName},
		{name: "vendor extension", t: 0xE0, wantInUse: true, wantSecondary: true, wantBenign: true, wantCode: 0xE0},
		{name: "end of directory", t: EntryTypeEndOfDirectory, wantCode: EntryInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.wantInUse, tt.t.InUse())
			require.Equal(t, tt.wantSecondary, tt.t.IsSecondary())
			require.Equal(t, tt.wantBenign, tt.t.IsBenign())
			require.Equal(t, tt.wantCode, tt.t.Code())
		})
	}
}

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name      string
		typ       byte
		wantType  string
		wantInUse bool
	}{
		{name: "file", typ: 0x85, wantType: "*exfat.FileEntry", wantInUse: true},
		{name: "deleted file", typ: 0x05, wantType: "*exfat.FileEntry"},
		{name: "stream", typ: 0xC0, wantType: "*exfat.StreamEntry", wantInUse: true},
		{name: "file name", typ: 0xC1, wantType: "*exfat.FileNameEntry", wantInUse: true},
		{name: "allocation bitmap", typ: 0x81, wantType: "*exfat.AllocationBitmapEntry", wantInUse: true},
		{name: "up-case table", typ: 0x82, wantType: "*exfat.UpCaseTableEntry", wantInUse: true},
		{name: "volume label", typ: 0x83, wantType: "*exfat.VolumeLabelEntry", wantInUse: true},
		{name: "volume guid", typ: 0xA0, wantType: "*exfat.GenericEntry", wantInUse: true},
		{name: "vendor extension", typ: 0xE0, wantType: "*exfat.GenericEntry", wantInUse: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, EntrySize)
			b[0] = tt.typ
			b[31] = 0x42

			got, err := DecodeEntry(b, 96)
			require.NoError(t, err)
			require.Equal(t, tt.wantType, fmt.Sprintf("%T", got))
			require.Equal(t, tt.wantInUse, got.InUse())
			require.Equal(t, EntryType(tt.typ), got.Type())
			require.Equal(t, int64(96), got.Position())
			require.Equal(t, b, got.Bytes())
		})
	}

	t.Run("short slot", func(t *testing.T) {
		_, err := DecodeEntry(make([]byte, 31), 0)
		require.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestRawEntry_SetInUse(t *testing.T) {
	e := NewFileEntry()
	require.True(t, e.InUse())
	require.Equal(t, int64(-1), e.Position(), "new entries are not stored")

	e.SetInUse(false)
	require.False(t, e.InUse())
	require.Equal(t, byte(0x05), e.Bytes()[0])

	e.SetInUse(true)
	require.Equal(t, EntryTypeFile, e.Type())
}

func TestFileEntry(t *testing.T) {
	e := NewFileEntry()
	e.SetSecondaryCount(3)
	e.SetAttributes(AttrDirectory | AttrHidden)
	e.setEntrySetChecksum(0xBEEF)

	require.Equal(t, 3, e.SecondaryCount())
	require.Equal(t, AttrDirectory|AttrHidden, e.Attributes())
	require.Equal(t, uint16(0xBEEF), e.EntrySetChecksum())

	ts := NewTimestamp(time.Date(2022, 6, 1, 12, 30, 15, 250*int(time.Millisecond), time.UTC))
	e.SetCreationTime(ts)
	e.SetLastWriteTime(ts)
	e.SetLastAccessTime(ts)

	require.Equal(t, ts, e.CreationTime())
	require.Equal(t, ts, e.LastWriteTime())
	require.Equal(t, Timestamp{Stamp: ts.Stamp, UTCOffset: ts.UTCOffset}, e.LastAccessTime(),
		"last access time has no 10ms field")
}

func TestStreamEntry_SetDataDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		d         DataDescriptor
		wantFlags SecondaryFlags
		want      DataDescriptor
	}{
		{
			name:      "contiguous",
			d:         DataDescriptor{FirstCluster: 10, Contiguous: true, Length: 5000},
			wantFlags: FlagAllocationPossible | FlagNoFatChain,
			want:      DataDescriptor{FirstCluster: 10, Contiguous: true, Length: 5000},
		},
		{
			name:      "chained",
			d:         DataDescriptor{FirstCluster: 10, Length: 5000},
			wantFlags: FlagAllocationPossible,
			want:      DataDescriptor{FirstCluster: 10, Length: 5000},
		},
		{
			name:      "empty",
			d:         DataDescriptor{FirstCluster: ClusterLast, Contiguous: true},
			wantFlags: FlagAllocationPossible,
			want:      DataDescriptor{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewStreamEntry()
			e.SetFlags(FlagNoFatChain)
			e.SetDataDescriptor(tt.d)

			require.Equal(t, tt.wantFlags, e.Flags())
			require.Equal(t, tt.want, e.DataDescriptor())
			require.Equal(t, tt.d.Length, e.ValidDataLength())
		})
	}
}

func TestStreamEntry_fields(t *testing.T) {
	e := NewStreamEntry()
	e.SetNameLength(42)
	e.SetNameHash(0x1234)
	e.SetValidDataLength(100)
	e.SetDataLength(200)
	e.SetFirstCluster(7)

	require.Equal(t, 42, e.NameLength())
	require.Equal(t, uint16(0x1234), e.NameHash())
	require.Equal(t, uint64(100), e.ValidDataLength())
	require.Equal(t, uint64(200), e.DataLength())
	require.Equal(t, Cluster(7), e.FirstCluster())
}

func TestFileNameEntry(t *testing.T) {
	e := NewFileNameEntry([]uint16{'a', 'b'})
	name := e.Name()
	require.Len(t, name, fileNameUnitsPerSlot)
	require.Equal(t, []uint16{'a', 'b', 0}, name[:3])
}

func TestSystemEntries(t *testing.T) {
	b := NewAllocationBitmapEntry(2, 128)
	require.False(t, b.IsMirror())
	require.Equal(t, DataDescriptor{FirstCluster: 2, Length: 128}, b.DataDescriptor())

	u := NewUpCaseTableEntry(3, 5836, 0xE619D30D)
	require.Equal(t, uint32(0xE619D30D), u.TableChecksum())
	require.Equal(t, DataDescriptor{FirstCluster: 3, Length: 5836}, u.DataDescriptor())
}

func TestVolumeLabelEntry(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{name: "empty", label: ""},
		{name: "ascii", label: "MY DISK"},
		{name: "eleven characters", label: "ABCDEFGHIJK"},
		{name: "non ascii", label: "Größe"},
		{name: "too long", label: "ABCDEFGHIJKL", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewVolumeLabelEntry(tt.label)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.label, e.Label())
		})
	}
}
