package exfat

import (
	"encoding/binary"

	"github.com/aligator/exfat/checkpoint"
	"go.uber.org/zap"
)

// sectorDevice gives raw access to whole sectors of the partition.
type sectorDevice interface {
	readSectors(sector int64, p []byte) error
	writeSectors(sector int64, p []byte) error
}

const fatEntrySize = 4

// fatTable resolves and updates cluster links through a cache of exactly one FAT page.
// A page is one or more sectors of the first FAT. Changes stay in the cached page until
// another page is needed or flush is called; they are then written to every FAT copy.
// It is not safe for concurrent use, the Partition serializes all calls.
type fatTable struct {
	dev            sectorDevice
	bytesPerSector int
	offsetSector   int64
	lengthSectors  int64
	numberOfFats   int
	sectorsPerPage int

	page      []byte
	pageIndex int64
	dirty     bool

	log     *zap.Logger
	metrics *Metrics
}

func newFATTable(dev sectorDevice, boot BootSector, sectorsPerPage int, log *zap.Logger, metrics *Metrics) *fatTable {
	return &fatTable{
		dev:            dev,
		bytesPerSector: boot.BytesPerSector(),
		offsetSector:   boot.FatOffsetSector(),
		lengthSectors:  boot.FatLengthSectors(),
		numberOfFats:   int(boot.NumberOfFats),
		sectorsPerPage: sectorsPerPage,
		pageIndex:      -1,
		log:            log,
		metrics:        metrics,
	}
}

func (f *fatTable) clustersPerPage() uint32 {
	return uint32(f.sectorsPerPage * f.bytesPerSector / fatEntrySize)
}

// pageSpan returns the part of the page buffer backed by the FAT for the given page.
// The last page may be cut short by the end of the FAT.
func (f *fatTable) pageSpan(pageIndex int64) []byte {
	sectors := f.lengthSectors - pageIndex*int64(f.sectorsPerPage)
	if sectors > int64(f.sectorsPerPage) {
		sectors = int64(f.sectorsPerPage)
	}
	if sectors < 0 {
		sectors = 0
	}
	return f.page[:sectors*int64(f.bytesPerSector)]
}

// load makes the page holding cluster the cached one and returns the entry offset inside it.
func (f *fatTable) load(cluster Cluster) (int, error) {
	if f.page == nil {
		f.page = make([]byte, f.sectorsPerPage*f.bytesPerSector)
	}

	pageIndex := int64(uint32(cluster) / f.clustersPerPage())
	offset := int(uint32(cluster)%f.clustersPerPage()) * fatEntrySize

	if pageIndex == f.pageIndex {
		return offset, nil
	}

	if err := f.flush(); err != nil {
		return 0, err
	}

	span := f.pageSpan(pageIndex)
	if len(span) < offset+fatEntrySize {
		return 0, checkpoint.Wrapf(ErrOutOfRange, "cluster %v beyond the FAT", cluster)
	}

	// Invalidate first so a failed read never leaves a half-loaded page marked as cached.
	f.pageIndex = -1
	if err := f.dev.readSectors(f.offsetSector+pageIndex*int64(f.sectorsPerPage), span); err != nil {
		return 0, checkpoint.From(err)
	}
	f.pageIndex = pageIndex

	f.metrics.incFATPageLoads()
	f.log.Debug("loaded FAT page", zap.Int64("page", pageIndex))

	return offset, nil
}

// next returns the FAT value of cluster, which is the next cluster of its chain or a sentinel.
func (f *fatTable) next(cluster Cluster) (Cluster, error) {
	offset, err := f.load(cluster)
	if err != nil {
		return ClusterFree, err
	}
	return Cluster(binary.LittleEndian.Uint32(f.page[offset:])), nil
}

// setNext changes the FAT value of cluster in the cached page.
func (f *fatTable) setNext(cluster, next Cluster) error {
	offset, err := f.load(cluster)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(f.page[offset:], uint32(next))
	f.dirty = true
	return nil
}

// flush writes the cached page to the first FAT and to the second one if present.
func (f *fatTable) flush() error {
	if f.page == nil || !f.dirty || f.pageIndex < 0 {
		return nil
	}

	span := f.pageSpan(f.pageIndex)
	firstSector := f.offsetSector + f.pageIndex*int64(f.sectorsPerPage)
	if err := f.dev.writeSectors(firstSector, span); err != nil {
		return checkpoint.From(err)
	}
	if f.numberOfFats == 2 {
		if err := f.dev.writeSectors(firstSector+f.lengthSectors, span); err != nil {
			return checkpoint.From(err)
		}
	}
	f.dirty = false

	f.metrics.incFATPageFlushes()
	f.log.Debug("flushed FAT page", zap.Int64("page", f.pageIndex))
	return nil
}
