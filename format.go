package exfat

import (
	"encoding/binary"
	"io"

	"github.com/aligator/exfat/checkpoint"
)

// FormatOptions configure Format. Zero values select the defaults.
type FormatOptions struct {
	// BytesPerSectorShift is log2 of the sector size, 9 (512 bytes) by default.
	BytesPerSectorShift uint8
	// SectorsPerClusterShift is log2 of the sectors per cluster, 3 (8 sectors) by default.
	SectorsPerClusterShift uint8
	// NumberOfFats is 1 or 2, 1 by default.
	NumberOfFats uint8
	VolumeLabel  string
	SerialNumber uint32
}

const (
	defaultSectorsPerClusterShift = 3
	// fatOffsetSectors leaves room for the main and the backup boot region.
	fatOffsetSectors        = 2 * bootRegionSectors
	fileSystemRevision      = 0x0100
	extendedBootSignature   = 0xAA550000
	driveSelectFixed        = 0x80
	mediaDescriptorFATEntry = 0xFFFFFFF8
	minClusterCount         = 4
)

func (o FormatOptions) withDefaults() FormatOptions {
	if o.BytesPerSectorShift == 0 {
		o.BytesPerSectorShift = defaultBytesPerSectorShift
	}
	if o.SectorsPerClusterShift == 0 {
		o.SectorsPerClusterShift = defaultSectorsPerClusterShift
	}
	if o.NumberOfFats == 0 {
		o.NumberOfFats = 1
	}
	return o
}

// layout is the geometry of a volume to format.
type layout struct {
	bytesPerSector    int64
	sectorsPerCluster int64
	totalSectors      int64
	fatLength         int64
	heapOffset        int64
	clusterCount      uint32
}

func alignUp(v, to int64) int64 {
	return (v + to - 1) / to * to
}

func computeLayout(size int64, o FormatOptions) (layout, error) {
	l := layout{
		bytesPerSector:    1 << o.BytesPerSectorShift,
		sectorsPerCluster: 1 << o.SectorsPerClusterShift,
	}
	l.totalSectors = size / l.bytesPerSector

	// The FAT size depends on the cluster count and the other way round.
	// Sizing it for the whole volume gives a FAT which is large enough.
	clusters := l.totalSectors / l.sectorsPerCluster
	l.fatLength = alignUp((clusters+2)*fatEntrySize, l.bytesPerSector) / l.bytesPerSector
	l.heapOffset = alignUp(fatOffsetSectors+int64(o.NumberOfFats)*l.fatLength, l.sectorsPerCluster)
	clusters = (l.totalSectors - l.heapOffset) / l.sectorsPerCluster

	if clusters < minClusterCount {
		return layout{}, checkpoint.Wrapf(ErrOutOfRange, "volume of %d bytes too small", size)
	}
	if clusters > int64(ClusterBad-FirstDataCluster) {
		return layout{}, checkpoint.Wrapf(ErrOutOfRange, "volume of %d bytes needs larger clusters", size)
	}
	l.clusterCount = uint32(clusters)
	return l, nil
}

func (l layout) bytesPerCluster() int64 {
	return l.bytesPerSector * l.sectorsPerCluster
}

func (l layout) clusterOffset(c Cluster) int64 {
	return (l.heapOffset + int64(c-FirstDataCluster)*l.sectorsPerCluster) * l.bytesPerSector
}

func writeAt(w io.WriteSeeker, offset int64, p []byte) error {
	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	_, err := w.Write(p)
	return checkpoint.From(err)
}

// Format writes an empty exFAT volume of size bytes to w: boot regions, FATs,
// allocation bitmap, up-case table and the root directory.
func Format(w io.WriteSeeker, size int64, opts FormatOptions) error {
	o := opts.withDefaults()
	if o.BytesPerSectorShift < 9 || o.BytesPerSectorShift > 12 || o.BytesPerSectorShift+o.SectorsPerClusterShift > 25 {
		return checkpoint.Wrapf(ErrOutOfRange, "sector shift %d, cluster shift %d", o.BytesPerSectorShift, o.SectorsPerClusterShift)
	}
	if o.NumberOfFats > 2 {
		return checkpoint.Wrapf(ErrOutOfRange, "number of FATs %d", o.NumberOfFats)
	}

	l, err := computeLayout(size, o)
	if err != nil {
		return err
	}
	bpc := l.bytesPerCluster()

	// System clusters: bitmap, up-case table, root directory.
	bitmapLength := (uint64(l.clusterCount) + 7) / 8
	upCase := compressedDefaultUpCaseTable()
	bitmapCluster := FirstDataCluster
	upCaseCluster := bitmapCluster + Cluster(clusterSpan(bitmapLength, int(bpc)))
	rootCluster := upCaseCluster + Cluster(clusterSpan(uint64(len(upCase)), int(bpc)))
	used := uint32(rootCluster-FirstDataCluster) + 1
	if used >= l.clusterCount {
		return checkpoint.Wrapf(ErrOutOfRange, "volume of %d bytes too small", size)
	}

	// FAT with chains for the system clusters.
	fat := make([]byte, l.fatLength*l.bytesPerSector)
	binary.LittleEndian.PutUint32(fat[0:], mediaDescriptorFATEntry)
	binary.LittleEndian.PutUint32(fat[4:], uint32(ClusterLast))
	for _, chain := range [][2]Cluster{
		{bitmapCluster, upCaseCluster},
		{upCaseCluster, rootCluster},
		{rootCluster, rootCluster + 1},
	} {
		for c := chain[0]; c < chain[1]; c++ {
			next := c + 1
			if next == chain[1] {
				next = ClusterLast
			}
			binary.LittleEndian.PutUint32(fat[int(c)*fatEntrySize:], uint32(next))
		}
	}
	for i := int64(0); i < int64(o.NumberOfFats); i++ {
		if err := writeAt(w, (fatOffsetSectors+i*l.fatLength)*l.bytesPerSector, fat); err != nil {
			return err
		}
	}

	// Allocation bitmap, padded to whole clusters.
	bitmap := make([]byte, alignUp(int64(bitmapLength), bpc))
	for i := uint32(0); i < used; i++ {
		bitmap[i/8] |= 1 << (i & 7)
	}
	if err := writeAt(w, l.clusterOffset(bitmapCluster), bitmap); err != nil {
		return err
	}

	table := make([]byte, alignUp(int64(len(upCase)), bpc))
	copy(table, upCase)
	if err := writeAt(w, l.clusterOffset(upCaseCluster), table); err != nil {
		return err
	}

	// Root directory: label, bitmap and up-case table entries.
	label, err := NewVolumeLabelEntry(o.VolumeLabel)
	if err != nil {
		return err
	}
	root := make([]byte, bpc)
	copy(root[0:], label.Bytes())
	copy(root[EntrySize:], NewAllocationBitmapEntry(bitmapCluster, bitmapLength).Bytes())
	copy(root[2*EntrySize:], NewUpCaseTableEntry(upCaseCluster, uint64(len(upCase)), UpCaseTableChecksum(upCase)).Bytes())
	if err := writeAt(w, l.clusterOffset(rootCluster), root); err != nil {
		return err
	}

	boot := BootSector{BootSectorHeader{
		JumpBoot:                    exfatJumpBoot,
		FileSystemName:              exfatFileSystemName,
		VolumeLength:                uint64(l.totalSectors),
		FatOffset:                   fatOffsetSectors,
		FatLength:                   uint32(l.fatLength),
		ClusterHeapOffset:           uint32(l.heapOffset),
		ClusterCount:                l.clusterCount,
		FirstClusterOfRootDirectory: uint32(rootCluster),
		VolumeSerialNumber:          o.SerialNumber,
		FileSystemRevision:          fileSystemRevision,
		BytesPerSectorShift:         o.BytesPerSectorShift,
		SectorsPerClusterShift:      o.SectorsPerClusterShift,
		NumberOfFats:                o.NumberOfFats,
		DriveSelect:                 driveSelectFixed,
		PercentInUse:                uint8(uint64(used) * 100 / uint64(l.clusterCount)),
		BootSignature:               bootSignature,
	}}
	region, err := bootRegion(boot, int(l.bytesPerSector))
	if err != nil {
		return err
	}
	if err := writeAt(w, 0, region); err != nil {
		return err
	}
	if err := writeAt(w, int64(len(region)), region); err != nil {
		return err
	}

	// Make the image cover the whole volume.
	if err := writeAt(w, l.totalSectors*l.bytesPerSector-1, []byte{0}); err != nil {
		return err
	}
	return nil
}

// bootRegion builds the 12 sectors of a boot region including the checksum sector.
func bootRegion(boot BootSector, bytesPerSector int) ([]byte, error) {
	header, err := boot.marshal()
	if err != nil {
		return nil, err
	}

	region := make([]byte, bootRegionSectors*bytesPerSector)
	copy(region, header)

	// Extended boot sectors only carry their signature.
	for s := 1; s <= 8; s++ {
		end := (s + 1) * bytesPerSector
		binary.LittleEndian.PutUint32(region[end-4:], extendedBootSignature)
	}

	checksum := bootChecksum(region, bytesPerSector)
	sector := region[bootChecksumSector*bytesPerSector:]
	for i := 0; i+4 <= len(sector); i += 4 {
		binary.LittleEndian.PutUint32(sector[i:], checksum)
	}
	return region, nil
}
