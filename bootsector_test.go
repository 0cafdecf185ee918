package exfat

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func Test_bootChecksum(t *testing.T) {
	region := make([]byte, bootRegionSectors*512)
	for i := range region {
		region[i] = byte(i)
	}
	want := bootChecksum(region, 512)

	t.Run("skips volume flags and percent in use", func(t *testing.T) {
		changed := append([]byte(nil), region...)
		changed[volumeFlagsOffset] ^= 0xFF
		changed[volumeFlagsOffset+1] ^= 0xFF
		changed[percentInUseOffset] ^= 0xFF
		require.Equal(t, want, bootChecksum(changed, 512))
	})

	t.Run("covers the boot code", func(t *testing.T) {
		changed := append([]byte(nil), region...)
		changed[200] ^= 0xFF
		require.NotEqual(t, want, bootChecksum(changed, 512))
	})

	t.Run("ignores the checksum sector", func(t *testing.T) {
		changed := append([]byte(nil), region...)
		changed[bootChecksumSector*512] ^= 0xFF
		require.Equal(t, want, bootChecksum(changed, 512))
	})

	t.Run("rotates right", func(t *testing.T) {
		b := make([]byte, bootRegionSectors*512)
		b[0] = 1
		b[1] = 1
		// (1 >>> 1) + 1, then rotated over the remaining zero bytes except the skipped ones.
		var sum uint32 = 0x80000001
		for i := 2; i < bootChecksumSector*512; i++ {
			if i == 106 || i == 107 || i == 112 {
				continue
			}
			sum = sum>>1 | sum<<31
		}
		require.Equal(t, sum, bootChecksum(b, 512))
	})
}

func TestBootSector_marshal(t *testing.T) {
	boot := testPartition(t).BootSector()

	raw, err := boot.marshal()
	require.NoError(t, err)
	require.Len(t, raw, bootSectorHeaderSize)
	require.Equal(t, exfatJumpBoot[:], raw[:3])
	require.Equal(t, []byte("EXFAT   "), raw[3:11])
	require.Equal(t, uint32(testClusterCount), binary.LittleEndian.Uint32(raw[92:]))
	require.Equal(t, byte(9), raw[108])
	require.Equal(t, byte(1), raw[109])
	require.Equal(t, []byte{0x55, 0xAA}, raw[510:])

	parsed, err := parseBootSector(raw)
	require.NoError(t, err)
	require.Equal(t, boot, parsed)
}

func TestBootSector_validate(t *testing.T) {
	valid := testPartition(t).BootSector()

	tests := []struct {
		name   string
		mutate func(b *BootSector)
	}{
		{name: "jump boot", mutate: func(b *BootSector) { b.JumpBoot[0] = 0xE9 }},
		{name: "file system name", mutate: func(b *BootSector) { b.FileSystemName[0] = 'F' }},
		{name: "boot signature", mutate: func(b *BootSector) { b.BootSignature = 0 }},
		{name: "sector shift too small", mutate: func(b *BootSector) { b.BytesPerSectorShift = 8 }},
		{name: "sector shift too large", mutate: func(b *BootSector) { b.BytesPerSectorShift = 13 }},
		{name: "cluster above 32MB", mutate: func(b *BootSector) { b.SectorsPerClusterShift = 17 }},
		{name: "no FAT", mutate: func(b *BootSector) { b.NumberOfFats = 0 }},
		{name: "three FATs", mutate: func(b *BootSector) { b.NumberOfFats = 3 }},
		{name: "empty FAT", mutate: func(b *BootSector) { b.FatLength = 0 }},
		{name: "empty cluster heap", mutate: func(b *BootSector) { b.ClusterCount = 0 }},
		{name: "root before the heap", mutate: func(b *BootSector) { b.FirstClusterOfRootDirectory = 1 }},
		{name: "root after the heap", mutate: func(b *BootSector) { b.FirstClusterOfRootDirectory = b.ClusterCount + 2 }},
		{name: "FAT too small", mutate: func(b *BootSector) { b.FatLength = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			require.ErrorIs(t, b.validate(), ErrUnrecognizedFormat)
		})
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid.validate())
	})
}

func Test_readBootSector_skipChecks(t *testing.T) {
	raw, err := testPartition(t).BootSector().marshal()
	require.NoError(t, err)
	raw[108] = 3
	raw[109] = 30

	core, logs := observer.New(zap.WarnLevel)
	b, err := readBootSector(bytes.NewReader(raw), false, zap.New(core))
	require.NoError(t, err)
	require.Equal(t, uint8(defaultBytesPerSectorShift), b.BytesPerSectorShift)
	require.Equal(t, uint8(0), b.SectorsPerClusterShift)
	require.Equal(t, 2, logs.Len())

	_, err = readBootSector(bytes.NewReader(raw), true, zap.NewNop())
	require.ErrorIs(t, err, ErrUnrecognizedFormat)
}
