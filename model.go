// File model contains the structs which match the direct structures of the exFAT filesystem.

package exfat

// BootSectorHeader is the first sector of the main boot region.
type BootSectorHeader struct {
	JumpBoot                    [3]byte
	FileSystemName              [8]byte
	MustBeZero                  [53]byte
	PartitionOffset             uint64
	VolumeLength                uint64
	FatOffset                   uint32
	FatLength                   uint32
	ClusterHeapOffset           uint32
	ClusterCount                uint32
	FirstClusterOfRootDirectory uint32
	VolumeSerialNumber          uint32
	FileSystemRevision          uint16
	VolumeFlags                 uint16
	BytesPerSectorShift         uint8
	SectorsPerClusterShift      uint8
	NumberOfFats                uint8
	DriveSelect                 uint8
	PercentInUse                uint8
	Reserved                    [7]byte
	BootCode                    [390]byte
	BootSignature               uint16
}

const (
	bootSectorHeaderSize = 512
	// The main boot region is 12 sectors, the last one holds the boot checksum.
	bootRegionSectors  = 12
	bootChecksumSector = 11

	bootSignature = 0xAA55

	defaultBytesPerSectorShift = 9
)

var (
	exfatJumpBoot       = [3]byte{0xEB, 0x76, 0x90}
	exfatFileSystemName = [8]byte{'E', 'X', 'F', 'A', 'T', ' ', ' ', ' '}
)

// Byte offsets of the boot sector fields excluded from the boot checksum.
const (
	volumeFlagsOffset  = 106
	percentInUseOffset = 112
)
