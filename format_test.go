package exfat

import (
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFormat_errors(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		opts    FormatOptions
		wantErr error
	}{
		{name: "too small", size: 16 << 10, wantErr: ErrOutOfRange},
		{name: "sector shift too small", size: testImageSize, opts: FormatOptions{BytesPerSectorShift: 8}, wantErr: ErrOutOfRange},
		{name: "sector shift too large", size: testImageSize, opts: FormatOptions{BytesPerSectorShift: 13}, wantErr: ErrOutOfRange},
		{name: "cluster above 32MB", size: testImageSize, opts: FormatOptions{BytesPerSectorShift: 12, SectorsPerClusterShift: 14}, wantErr: ErrOutOfRange},
		{name: "three FATs", size: testImageSize, opts: FormatOptions{NumberOfFats: 3}, wantErr: ErrOutOfRange},
		{name: "label too long", size: testImageSize, opts: FormatOptions{VolumeLabel: strings.Repeat("L", 12)}, wantErr: ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := afero.NewMemMapFs().Create("exfat.img")
			require.NoError(t, err)
			require.ErrorIs(t, Format(f, tt.size, tt.opts), tt.wantErr)
		})
	}
}

func TestFormat_bootSector(t *testing.T) {
	p := testPartition(t)
	boot := p.BootSector()

	require.Equal(t, uint64(testImageSize/512), boot.VolumeLength)
	require.Equal(t, uint32(24), boot.FatOffset)
	require.Equal(t, uint32(9), boot.FatLength)
	require.Equal(t, uint32(34), boot.ClusterHeapOffset)
	require.Equal(t, uint32(testClusterCount), boot.ClusterCount)
	require.Equal(t, uint32(testRootCluster), boot.FirstClusterOfRootDirectory)
	require.Equal(t, uint32(0xCAFE), boot.VolumeSerialNumber)
	require.Equal(t, uint16(0x0100), boot.FileSystemRevision)
	require.Equal(t, uint8(1), boot.NumberOfFats)
	require.Equal(t, uint8(0), boot.PercentInUse)
	require.NoError(t, boot.validate())
}

func TestFormat_backupBootRegion(t *testing.T) {
	f := testImage(t)

	regions := make([]byte, 2*bootRegionSectors*512)
	_, err := f.ReadAt(regions, 0)
	require.NoError(t, err)

	main, backup := regions[:bootRegionSectors*512], regions[bootRegionSectors*512:]
	require.Equal(t, main, backup)

	// Every extended boot sector ends with its signature.
	for s := 1; s <= 8; s++ {
		require.Equal(t, uint32(extendedBootSignature), binary.LittleEndian.Uint32(main[(s+1)*512-4:]), "sector %d", s)
	}
	require.Equal(t, bootChecksum(main, 512), binary.LittleEndian.Uint32(main[bootChecksumSector*512+508:]))
}

func TestFormat_systemChains(t *testing.T) {
	p := testPartition(t)

	for _, c := range []Cluster{FirstDataCluster, 3, testRootCluster} {
		next, err := p.NextCluster(c)
		require.NoError(t, err)
		require.True(t, next.IsLast(), "cluster %v", c)
	}

	first, err := p.NextCluster(0)
	require.NoError(t, err)
	require.Equal(t, Cluster(mediaDescriptorFATEntry), first)

	bitmap, err := p.AllocationBitmap()
	require.NoError(t, err)
	require.Equal(t, uint64(3), bitmap.UsedClusters())
	require.Equal(t, testFirstFree, bitmap.FindUnallocated(1))
}

func TestFormat_twoFATs(t *testing.T) {
	f, err := afero.NewMemMapFs().Create("exfat.img")
	require.NoError(t, err)
	opts := testFormat
	opts.NumberOfFats = 2
	require.NoError(t, Format(f, testImageSize, opts))

	p := testPartitionOn(t, f)
	boot := p.BootSector()
	require.Equal(t, uint8(2), boot.NumberOfFats)
	require.Equal(t, uint32(42), boot.ClusterHeapOffset)

	require.NoError(t, p.SetNextCluster(testFirstFree, 77))
	require.NoError(t, p.Flush())

	length := int(boot.FatLength) * 512
	fats := make([]byte, 2*length)
	require.NoError(t, p.ReadSectors(boot.FatOffsetSector(), fats))
	require.Equal(t, fats[:length], fats[length:])
	require.Equal(t, uint32(77), binary.LittleEndian.Uint32(fats[int(testFirstFree)*fatEntrySize:]))
}

func TestFormat_geometry(t *testing.T) {
	tests := []struct {
		name                string
		size                int64
		opts                FormatOptions
		wantBytesPerSector  int
		wantBytesPerCluster int
	}{
		{name: "defaults", size: 4 << 20, wantBytesPerSector: 512, wantBytesPerCluster: 4096},
		{name: "4K sectors", size: 8 << 20, opts: FormatOptions{BytesPerSectorShift: 12}, wantBytesPerSector: 4096, wantBytesPerCluster: 32 << 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := afero.NewMemMapFs().Create("exfat.img")
			require.NoError(t, err)
			require.NoError(t, Format(f, tt.size, tt.opts))

			size, err := f.Seek(0, io.SeekEnd)
			require.NoError(t, err)
			require.Equal(t, tt.size, size)

			p := testPartitionOn(t, f)
			require.Equal(t, tt.wantBytesPerSector, p.BytesPerSector())
			require.Equal(t, tt.wantBytesPerCluster, p.BytesPerCluster())

			// The file system is usable right away.
			d := writeStream(t, p, pattern(3*tt.wantBytesPerCluster))
			require.Equal(t, pattern(3*tt.wantBytesPerCluster), readStream(t, p, d))
		})
	}
}
