package exfat

import (
	"encoding/binary"
	"io"

	"github.com/aligator/exfat/checkpoint"
	"github.com/go-restruct/restruct"
	"go.uber.org/zap"
)

// BootSector is the parsed main boot sector with the derived partition geometry.
// It is read once when a partition gets opened and never changes afterwards.
type BootSector struct {
	BootSectorHeader
}

// BytesPerSector returns the sector size.
func (b BootSector) BytesPerSector() int {
	return 1 << b.BytesPerSectorShift
}

// SectorsPerCluster returns the cluster size in sectors.
func (b BootSector) SectorsPerCluster() int {
	return 1 << b.SectorsPerClusterShift
}

// BytesPerCluster returns the cluster size.
func (b BootSector) BytesPerCluster() int {
	return 1 << (b.BytesPerSectorShift + b.SectorsPerClusterShift)
}

// RootDirectoryCluster returns the first cluster of the root directory.
func (b BootSector) RootDirectoryCluster() Cluster {
	return Cluster(b.FirstClusterOfRootDirectory)
}

// ClusterOffsetSector returns the absolute sector of cluster #2.
func (b BootSector) ClusterOffsetSector() int64 {
	return int64(b.ClusterHeapOffset)
}

// FatOffsetSector returns the absolute sector of the first FAT.
func (b BootSector) FatOffsetSector() int64 {
	return int64(b.FatOffset)
}

// FatLengthSectors returns the length of one FAT.
func (b BootSector) FatLengthSectors() int64 {
	return int64(b.FatLength)
}

func parseBootSector(raw []byte) (BootSector, error) {
	var b BootSector
	err := restruct.Unpack(raw[:bootSectorHeaderSize], binary.LittleEndian, &b.BootSectorHeader)
	if err != nil {
		return BootSector{}, checkpoint.Wrap(err, ErrUnrecognizedFormat)
	}
	return b, nil
}

func (b BootSector) marshal() ([]byte, error) {
	raw, err := restruct.Pack(binary.LittleEndian, &b.BootSectorHeader)
	return raw, checkpoint.From(err)
}

// plausibleSectorSize reports whether the sector size is inside 512..4096.
func (b BootSector) plausibleSectorSize() bool {
	return b.BytesPerSectorShift >= 9 && b.BytesPerSectorShift <= 12
}

// validate checks the header fields an exFAT implementation relies on.
func (b BootSector) validate() error {
	switch {
	case b.JumpBoot != exfatJumpBoot:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "invalid jump boot % x", b.JumpBoot)
	case b.FileSystemName != exfatFileSystemName:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "invalid file system name %q", b.FileSystemName[:])
	case b.BootSignature != bootSignature:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "invalid boot signature %#04x", b.BootSignature)
	case !b.plausibleSectorSize():
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "bytes per sector shift %d outside 9..12", b.BytesPerSectorShift)
	case int(b.SectorsPerClusterShift) > 25-int(b.BytesPerSectorShift):
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "cluster size above 32MB (sectors per cluster shift %d)", b.SectorsPerClusterShift)
	case b.NumberOfFats != 1 && b.NumberOfFats != 2:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "number of FATs %d", b.NumberOfFats)
	case b.FatLength == 0 || b.ClusterCount == 0:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "empty FAT (length %d) or cluster heap (count %d)", b.FatLength, b.ClusterCount)
	case b.FirstClusterOfRootDirectory < uint32(FirstDataCluster) || b.FirstClusterOfRootDirectory > b.ClusterCount+1:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "root directory cluster %d outside the cluster heap", b.FirstClusterOfRootDirectory)
	case uint64(b.FatLength)*uint64(b.BytesPerSector())/4 < uint64(b.ClusterCount)+2:
		return checkpoint.Wrapf(ErrUnrecognizedFormat, "FAT of %d sectors too small for %d clusters", b.FatLength, b.ClusterCount)
	}
	return nil
}

// bootChecksum computes the checksum of the first 11 sectors of a boot region.
// VolumeFlags and PercentInUse are excluded as they change without rewriting the region.
func bootChecksum(region []byte, bytesPerSector int) uint32 {
	var checksum uint32
	for i, b := range region[:bootChecksumSector*bytesPerSector] {
		if i == volumeFlagsOffset || i == volumeFlagsOffset+1 || i == percentInUseOffset {
			continue
		}
		checksum = (checksum >> 1) | (checksum << 31)
		checksum += uint32(b)
	}
	return checksum
}

// readBootSector reads the boot sector from the start of r.
// With checks enabled an implausible header is rejected with ErrUnrecognizedFormat;
// without, the header held by the first 512 bytes is accepted as it is.
func readBootSector(r io.ReadSeeker, checks bool, log *zap.Logger) (BootSector, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return BootSector{}, checkpoint.Wrap(err, ErrNotSeekable)
	}

	// The header always fits into the first 512 bytes, whatever the sector size is.
	raw := make([]byte, bootSectorHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return BootSector{}, checkpoint.Wrapf(ErrUnrecognizedFormat, "reading boot sector: %v", err)
	}

	b, err := parseBootSector(raw)
	if err != nil {
		return BootSector{}, err
	}

	if !checks {
		if !b.plausibleSectorSize() {
			log.Warn("implausible sector size, falling back to 512 bytes",
				zap.Uint8("bytes_per_sector_shift", b.BytesPerSectorShift))
			b.BytesPerSectorShift = defaultBytesPerSectorShift
		}
		if int(b.SectorsPerClusterShift) > 25-int(b.BytesPerSectorShift) {
			log.Warn("implausible cluster size, falling back to one sector per cluster",
				zap.Uint8("sectors_per_cluster_shift", b.SectorsPerClusterShift))
			b.SectorsPerClusterShift = 0
		}
		return b, nil
	}

	if err := b.validate(); err != nil {
		return BootSector{}, err
	}

	region := make([]byte, bootRegionSectors*b.BytesPerSector())
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return BootSector{}, checkpoint.From(err)
	}
	if _, err := io.ReadFull(r, region); err != nil {
		return BootSector{}, checkpoint.Wrapf(ErrUnrecognizedFormat, "reading boot region: %v", err)
	}

	want := bootChecksum(region, b.BytesPerSector())
	got := binary.LittleEndian.Uint32(region[bootChecksumSector*b.BytesPerSector():])
	if got != want {
		return BootSector{}, checkpoint.Wrapf(ErrUnrecognizedFormat, "boot checksum %#08x, computed %#08x", got, want)
	}

	return b, nil
}
