package exfat

import (
	"io"
	"math"
	"sync"

	"github.com/aligator/exfat/checkpoint"
	"go.uber.org/zap"
)

// Partition gives access to the clusters, the FAT, the allocation bitmap and the directories
// of an exFAT partition stored in one seekable stream.
//
// All access to the stream is serialized by one lock, as the stream has one shared position.
// The FAT page, the allocation bitmap and the up-case table are loaded when they are needed
// first and stay owned by the partition.
type Partition struct {
	mu sync.Mutex

	stream io.ReadSeeker
	// writer is nil for read-only partitions.
	writer io.Writer

	boot BootSector
	fat  *fatTable

	bitmap *AllocationBitmap
	upCase *UpCaseTable

	cfg
}

// Open opens the partition stored in stream. The boot sector is validated strictly,
// ErrUnrecognizedFormat is returned for anything that does not look like exFAT.
// The partition is read-only unless stream also implements io.Writer.
func Open(stream io.ReadSeeker, opts ...Option) (*Partition, error) {
	return open(stream, true, opts)
}

// OpenSkipChecks opens the partition stored in stream, accepting the boot sector as it is.
// An implausible sector or cluster size falls back to the smallest one.
func OpenSkipChecks(stream io.ReadSeeker, opts ...Option) (*Partition, error) {
	return open(stream, false, opts)
}

func open(stream io.ReadSeeker, checks bool, opts []Option) (*Partition, error) {
	if stream == nil {
		return nil, checkpoint.From(ErrNotSeekable)
	}
	if _, err := stream.Seek(0, io.SeekCurrent); err != nil {
		return nil, checkpoint.Wrap(err, ErrNotSeekable)
	}

	p := &Partition{
		stream: stream,
		cfg:    newConfig(opts),
	}
	if w, ok := stream.(io.Writer); ok {
		p.writer = w
	}

	boot, err := readBootSector(stream, checks, p.log)
	if err != nil {
		return nil, err
	}
	p.boot = boot
	p.fat = newFATTable(p, boot, p.sectorsPerFATPage, p.log, p.metrics)

	p.log.Debug("opened partition",
		zap.Int("bytes_per_sector", boot.BytesPerSector()),
		zap.Int("bytes_per_cluster", boot.BytesPerCluster()),
		zap.Uint32("cluster_count", boot.ClusterCount),
		zap.Bool("read_only", p.writer == nil))

	return p, nil
}

// BootSector returns the boot sector read when the partition was opened.
func (p *Partition) BootSector() BootSector {
	return p.boot
}

// ReadOnly reports whether the backing stream can be written.
func (p *Partition) ReadOnly() bool {
	return p.writer == nil
}

func (p *Partition) BytesPerCluster() int {
	return p.boot.BytesPerCluster()
}

func (p *Partition) BytesPerSector() int {
	return p.boot.BytesPerSector()
}

// ClusterCount returns the number of clusters of the cluster heap.
func (p *Partition) ClusterCount() uint32 {
	return p.boot.ClusterCount
}

// RootDirectoryDescriptor returns the data location of the root directory.
// The root directory has no length of its own, it ends with its cluster chain.
func (p *Partition) RootDirectoryDescriptor() DataDescriptor {
	return DataDescriptor{
		FirstCluster: p.boot.RootDirectoryCluster(),
		Contiguous:   false,
		Length:       math.MaxUint64,
	}
}

// SectorOffset returns the byte offset of sector.
func (p *Partition) SectorOffset(sector int64) int64 {
	return sector << p.boot.BytesPerSectorShift
}

// ClusterOffset returns the byte offset of cluster.
func (p *Partition) ClusterOffset(cluster Cluster) int64 {
	sector := p.boot.ClusterOffsetSector() + int64(cluster-FirstDataCluster)<<p.boot.SectorsPerClusterShift
	return p.SectorOffset(sector)
}

func (p *Partition) checkCluster(cluster Cluster) error {
	if cluster < FirstDataCluster || uint64(cluster) >= uint64(FirstDataCluster)+uint64(p.boot.ClusterCount) {
		return checkpoint.Wrapf(ErrOutOfRange, "cluster %v outside of the cluster heap", cluster)
	}
	return nil
}

func (p *Partition) checkWritable() error {
	if p.writer == nil {
		return checkpoint.From(ErrReadOnly)
	}
	return nil
}

func (p *Partition) readAt(offset int64, b []byte) error {
	if _, err := p.stream.Seek(offset, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	if _, err := io.ReadFull(p.stream, b); err != nil {
		return checkpoint.Wrapf(err, "reading %d bytes at %d", len(b), offset)
	}
	return nil
}

func (p *Partition) writeAt(offset int64, b []byte) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if _, err := p.stream.Seek(offset, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	_, err := p.writer.Write(b)
	return checkpoint.From(err)
}

func (p *Partition) readSectors(sector int64, b []byte) error {
	return p.readAt(p.SectorOffset(sector), b)
}

func (p *Partition) writeSectors(sector int64, b []byte) error {
	return p.writeAt(p.SectorOffset(sector), b)
}

// ReadSectors reads len(b) bytes starting at sector.
func (p *Partition) ReadSectors(sector int64, b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readSectors(sector, b)
}

// WriteSectors writes b starting at sector.
func (p *Partition) WriteSectors(sector int64, b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeSectors(sector, b)
}

func (p *Partition) clusterRange(cluster Cluster, b []byte, offset int) error {
	if err := p.checkCluster(cluster); err != nil {
		return err
	}
	if offset < 0 || offset+len(b) > p.BytesPerCluster() {
		return checkpoint.Wrapf(ErrOutOfRange, "%d bytes at %d exceed cluster size %d", len(b), offset, p.BytesPerCluster())
	}
	return nil
}

func (p *Partition) readCluster(cluster Cluster, b []byte, offset int) error {
	if err := p.clusterRange(cluster, b, offset); err != nil {
		return err
	}
	return p.readAt(p.ClusterOffset(cluster)+int64(offset), b)
}

func (p *Partition) writeCluster(cluster Cluster, b []byte, offset int) error {
	if err := p.clusterRange(cluster, b, offset); err != nil {
		return err
	}
	return p.writeAt(p.ClusterOffset(cluster)+int64(offset), b)
}

// ReadCluster reads len(b) bytes starting at offset inside cluster.
func (p *Partition) ReadCluster(cluster Cluster, b []byte, offset int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readCluster(cluster, b, offset)
}

// WriteCluster writes b starting at offset inside cluster.
func (p *Partition) WriteCluster(cluster Cluster, b []byte, offset int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeCluster(cluster, b, offset)
}

// NextCluster returns the FAT value of cluster. Callers have to respect ClusterCount.
func (p *Partition) NextCluster(cluster Cluster) (Cluster, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fat.next(cluster)
}

// SetNextCluster changes the FAT value of cluster. The change is cached until the FAT page
// is replaced or the partition is flushed.
func (p *Partition) SetNextCluster(cluster, next Cluster) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setNextCluster(cluster, next)
}

func (p *Partition) setNextCluster(cluster, next Cluster) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	return p.fat.setNext(cluster, next)
}

// Clusters returns the clusters of d in order.
func (p *Partition) Clusters(d DataDescriptor) *ClusterIterator {
	return newClusterIterator(p, d)
}

// AllocationBitmap returns the allocation bitmap, loading it on first use.
func (p *Partition) AllocationBitmap() (*AllocationBitmap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocationBitmap()
}

// allocationBitmap loads the first non-mirror bitmap found in the root directory.
// The lock has to be held.
func (p *Partition) allocationBitmap() (*AllocationBitmap, error) {
	if p.bitmap != nil {
		return p.bitmap, nil
	}

	entries, err := readEntries(unlockedPartition{p}, p.RootDirectoryDescriptor())
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		b, ok := e.(*AllocationBitmapEntry)
		if !ok || !b.InUse() || b.IsMirror() {
			continue
		}

		access := ReadWrite
		if p.writer == nil {
			access = ReadOnly
		}
		stream := newClusterStream(unlockedPartition{p}, b.DataDescriptor(), access)
		bitmap, err := OpenAllocationBitmap(stream, FirstDataCluster, p.boot.ClusterCount)
		if err != nil {
			return nil, err
		}

		p.bitmap = bitmap
		used := bitmap.UsedClusters()
		p.metrics.setUsedClusters(used)
		p.log.Debug("loaded allocation bitmap",
			zap.Stringer("first_cluster", b.DataDescriptor().FirstCluster),
			zap.Uint64("used_clusters", used))
		return bitmap, nil
	}

	return nil, checkpoint.From(ErrNoAllocationBitmap)
}

// UpCaseTable returns the up-case table of the partition, loading it on first use.
// Without an up-case table entry ASCII upper-casing is used.
func (p *Partition) UpCaseTable() (*UpCaseTable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.upCaseTable()
}

func (p *Partition) upCaseTable() (*UpCaseTable, error) {
	if p.upCase != nil {
		return p.upCase, nil
	}

	entries, err := readEntries(unlockedPartition{p}, p.RootDirectoryDescriptor())
	if err != nil {
		return nil, err
	}

	table := NewUpCaseTable()
	for _, e := range entries {
		u, ok := e.(*UpCaseTableEntry)
		if !ok || !u.InUse() {
			continue
		}

		checksum, err := table.Read(newClusterStream(unlockedPartition{p}, u.DataDescriptor(), ReadOnly))
		if err != nil {
			return nil, err
		}
		if checksum != u.TableChecksum() {
			p.log.Warn("up-case table checksum mismatch",
				zap.Uint32("stored", u.TableChecksum()),
				zap.Uint32("computed", checksum))
		}
		p.log.Debug("loaded up-case table", zap.Uint64("length", u.DataDescriptor().Length))
		break
	}

	p.upCase = table
	return table, nil
}

// ComputeNameHash returns the case insensitive hash of name stored in stream extensions.
func (p *Partition) ComputeNameHash(name string) (uint16, error) {
	units, err := nameUnits(name)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	table, err := p.upCaseTable()
	if err != nil {
		return 0, err
	}
	return nameHash(units, table), nil
}

// AllocateCluster allocates a cluster. The cluster following hint is preferred,
// otherwise the first unallocated one is used. Use ClusterFree as hint if there is none.
func (p *Partition) AllocateCluster(hint Cluster) (Cluster, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocateCluster(hint)
}

func (p *Partition) allocateCluster(hint Cluster) (Cluster, error) {
	if err := p.checkWritable(); err != nil {
		return ClusterFree, err
	}
	bitmap, err := p.allocationBitmap()
	if err != nil {
		return ClusterFree, err
	}

	cluster := ClusterFree
	if hint.IsData() {
		if allocated, err := bitmap.Get(hint + 1); err == nil && !allocated {
			cluster = hint + 1
		}
	}
	if cluster == ClusterFree {
		cluster = bitmap.FindUnallocated(1)
	}
	if cluster == ClusterFree {
		return ClusterFree, checkpoint.From(ErrDiskFull)
	}

	if err := bitmap.Set(cluster, true); err != nil {
		return ClusterFree, err
	}

	p.metrics.incAllocated()
	p.log.Debug("allocated cluster", zap.Stringer("cluster", cluster), zap.Stringer("hint", hint))
	return cluster, nil
}

// FreeCluster marks cluster as unallocated. Its FAT value is left unchanged.
func (p *Partition) FreeCluster(cluster Cluster) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeCluster(cluster)
}

func (p *Partition) freeCluster(cluster Cluster) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	bitmap, err := p.allocationBitmap()
	if err != nil {
		return err
	}
	allocated, err := bitmap.Get(cluster)
	if err != nil {
		return err
	}
	if !allocated {
		return nil
	}
	if err := bitmap.Set(cluster, false); err != nil {
		return err
	}
	p.metrics.incFreed()
	return nil
}

// Deallocate frees all clusters of d. FAT links are not cleared, the bitmap alone
// tells whether a cluster is in use.
func (p *Partition) Deallocate(d DataDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkWritable(); err != nil {
		return err
	}

	// Collect first, freeing must not change the walked chain.
	var clusters []Cluster
	it := newClusterIterator(unlockedPartition{p}, d)
	for it.Next() {
		clusters = append(clusters, it.Cluster())
	}
	if err := it.Err(); err != nil {
		return err
	}

	for _, c := range clusters {
		if err := p.freeCluster(c); err != nil {
			return err
		}
	}

	p.log.Debug("deallocated clusters",
		zap.Stringer("first_cluster", d.FirstCluster),
		zap.Int("count", len(clusters)))
	return nil
}

// TotalSpace returns the size of the cluster heap in bytes.
func (p *Partition) TotalSpace() uint64 {
	return uint64(p.boot.ClusterCount) * uint64(p.BytesPerCluster())
}

// UsedSpace returns the size of all allocated clusters in bytes.
func (p *Partition) UsedSpace() (uint64, error) {
	bitmap, err := p.AllocationBitmap()
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return bitmap.UsedClusters() * uint64(p.BytesPerCluster()), nil
}

// AvailableSpace returns the size of all unallocated clusters in bytes.
func (p *Partition) AvailableSpace() (uint64, error) {
	used, err := p.UsedSpace()
	if err != nil {
		return 0, err
	}
	return p.TotalSpace() - used, nil
}

// OpenDataStream opens the data of d as stream.
func (p *Partition) OpenDataStream(d DataDescriptor, access Access) (*ClusterStream, error) {
	if access == ReadWrite {
		if err := p.checkWritable(); err != nil {
			return nil, err
		}
	}
	return newClusterStream(p, d, access), nil
}

// CreateDataStream returns a writable stream without any data.
func (p *Partition) CreateDataStream() (*ClusterStream, error) {
	return p.OpenDataStream(DataDescriptor{FirstCluster: ClusterFree}, ReadWrite)
}

// Flush writes the allocation bitmap and the cached FAT page, then flushes the stream
// if it supports it. Flush failures of the stream itself are only logged.
func (p *Partition) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}

	if p.bitmap != nil {
		if err := p.bitmap.Flush(); err != nil {
			return err
		}
	}
	if err := p.fat.flush(); err != nil {
		return err
	}

	var err error
	switch s := p.stream.(type) {
	case interface{ Sync() error }:
		err = s.Sync()
	case interface{ Flush() error }:
		err = s.Flush()
	}
	if err != nil {
		p.log.Warn("could not flush partition stream", zap.Error(err))
	}
	return nil
}

// Close flushes the partition. The stream is not closed.
func (p *Partition) Close() error {
	return p.Flush()
}

// unlockedPartition is the clusterIO of a Partition for callers already holding its lock.
type unlockedPartition struct {
	p *Partition
}

func (u unlockedPartition) BytesPerCluster() int {
	return u.p.BytesPerCluster()
}

func (u unlockedPartition) ClusterCount() uint32 {
	return u.p.ClusterCount()
}

func (u unlockedPartition) NextCluster(cluster Cluster) (Cluster, error) {
	return u.p.fat.next(cluster)
}

func (u unlockedPartition) SetNextCluster(cluster, next Cluster) error {
	return u.p.setNextCluster(cluster, next)
}

func (u unlockedPartition) AllocateCluster(hint Cluster) (Cluster, error) {
	return u.p.allocateCluster(hint)
}

func (u unlockedPartition) FreeCluster(cluster Cluster) error {
	return u.p.freeCluster(cluster)
}

func (u unlockedPartition) ReadCluster(cluster Cluster, b []byte, offset int) error {
	return u.p.readCluster(cluster, b, offset)
}

func (u unlockedPartition) WriteCluster(cluster Cluster, b []byte, offset int) error {
	return u.p.writeCluster(cluster, b, offset)
}

// ClusterIterator walks the clusters of a DataDescriptor.
//
//	it := p.Clusters(d)
//	for it.Next() {
//		use(it.Cluster())
//	}
//	err := it.Err()
type ClusterIterator struct {
	io   clusterIO
	desc DataDescriptor

	current Cluster
	index   uint64
	started bool
	err     error
}

func newClusterIterator(cio clusterIO, d DataDescriptor) *ClusterIterator {
	return &ClusterIterator{io: cio, desc: d}
}

// Next advances to the next cluster. It returns false at the end or on an error.
// Chains are limited to ClusterCount clusters, a longer one fails with ErrCorruptChain.
func (it *ClusterIterator) Next() bool {
	if it.err != nil || it.desc.IsEmpty() {
		return false
	}

	if it.started && !it.current.IsData() {
		return false
	}

	if it.desc.Contiguous {
		index := uint64(0)
		if it.started {
			index = it.index + 1
		}
		it.started = true
		if index >= clusterSpan(it.desc.Length, it.io.BytesPerCluster()) {
			it.current = ClusterLast
			return false
		}
		it.index = index
		it.current = it.desc.FirstCluster + Cluster(index)
		return true
	}

	if !it.started {
		it.started = true
		it.index = 0
		it.current = it.desc.FirstCluster
		return true
	}

	it.index++

	if it.index >= uint64(it.io.ClusterCount()) {
		it.err = checkpoint.Wrapf(ErrCorruptChain, "chain starting at %v longer than the cluster count", it.desc.FirstCluster)
		return false
	}

	next, err := it.io.NextCluster(it.current)
	if err != nil {
		it.err = err
		return false
	}
	if next.IsLast() {
		it.current = ClusterLast
		return false
	}
	if !next.IsData() {
		it.err = checkpoint.Wrapf(ErrCorruptChain, "cluster %v links to %v", it.current, next)
		return false
	}
	it.current = next
	return true
}

// Cluster returns the current cluster.
func (it *ClusterIterator) Cluster() Cluster {
	return it.current
}

// Err returns the error which stopped the iteration.
func (it *ClusterIterator) Err() error {
	return it.err
}

// Reset restarts the iteration at the first cluster.
func (it *ClusterIterator) Reset() {
	it.started = false
	it.current = ClusterFree
	it.index = 0
	it.err = nil
}
