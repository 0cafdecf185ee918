package exfat

import (
	"io"
	"math/bits"

	"github.com/aligator/exfat/checkpoint"
)

// AllocationBitmap is the in-memory mirror of the on-disk free space bitmap.
// Bit i of the bitmap tells whether cluster firstCluster+i is allocated.
//
// Every Set is written through to the backing stream immediately, Flush rewrites the whole
// bitmap. It is not safe for concurrent use.
type AllocationBitmap struct {
	stream       io.WriteSeeker
	bitmap       []byte
	firstCluster Cluster
	clusterCount uint32
}

// OpenAllocationBitmap loads the whole bitmap for clusterCount clusters from stream.
func OpenAllocationBitmap(stream io.ReadWriteSeeker, firstCluster Cluster, clusterCount uint32) (*AllocationBitmap, error) {
	b := &AllocationBitmap{
		stream:       stream,
		bitmap:       make([]byte, (uint64(clusterCount)+7)/8),
		firstCluster: firstCluster,
		clusterCount: clusterCount,
	}

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, checkpoint.From(err)
	}
	if _, err := io.ReadFull(stream, b.bitmap); err != nil {
		return nil, checkpoint.Wrapf(err, "reading allocation bitmap of %d clusters", clusterCount)
	}

	return b, nil
}

// ClusterCount returns the number of clusters covered by the bitmap.
func (b *AllocationBitmap) ClusterCount() uint32 {
	return b.clusterCount
}

func (b *AllocationBitmap) index(cluster Cluster) (uint32, error) {
	if cluster < b.firstCluster || uint64(cluster) >= uint64(b.firstCluster)+uint64(b.clusterCount) {
		return 0, checkpoint.Wrapf(ErrOutOfRange, "cluster %v outside of the allocation bitmap", cluster)
	}
	return uint32(cluster - b.firstCluster), nil
}

// Get returns the allocation state of cluster.
func (b *AllocationBitmap) Get(cluster Cluster) (bool, error) {
	i, err := b.index(cluster)
	if err != nil {
		return false, err
	}
	return b.bitmap[i/8]&(1<<(i&7)) != 0, nil
}

// Set changes the allocation state of cluster and writes the changed byte to the stream.
func (b *AllocationBitmap) Set(cluster Cluster, allocated bool) error {
	i, err := b.index(cluster)
	if err != nil {
		return err
	}

	byteIndex := int64(i / 8)
	mask := byte(1 << (i & 7))
	if allocated {
		b.bitmap[byteIndex] |= mask
	} else {
		b.bitmap[byteIndex] &^= mask
	}

	if _, err := b.stream.Seek(byteIndex, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	_, err = b.stream.Write(b.bitmap[byteIndex : byteIndex+1])
	return checkpoint.From(err)
}

// FindUnallocated returns the first cluster starting a run of contiguous unallocated clusters.
// It returns ClusterFree if no such run exists.
func (b *AllocationBitmap) FindUnallocated(contiguous int) Cluster {
	if contiguous < 1 {
		contiguous = 1
	}

	var runStart uint32
	run := 0
	for i := uint32(0); i < b.clusterCount; {
		// A full byte holds no free cluster, skip it as a whole.
		if i&7 == 0 && b.bitmap[i/8] == 0xFF {
			run = 0
			i += 8
			continue
		}

		if b.bitmap[i/8]&(1<<(i&7)) != 0 {
			run = 0
		} else {
			if run == 0 {
				runStart = i
			}
			run++
			if run == contiguous {
				return b.firstCluster + Cluster(runStart)
			}
		}
		i++
	}

	return ClusterFree
}

// UsedClusters returns the number of allocated clusters.
func (b *AllocationBitmap) UsedClusters() uint64 {
	var used uint64
	for i, v := range b.bitmap {
		// Ignore the padding bits of the last byte.
		if rest := b.clusterCount - uint32(i)*8; rest < 8 {
			v &= byte(1<<rest) - 1
		}
		used += uint64(bits.OnesCount8(v))
	}
	return used
}

// Flush rewrites the whole bitmap to the stream.
func (b *AllocationBitmap) Flush() error {
	if _, err := b.stream.Seek(0, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	_, err := b.stream.Write(b.bitmap)
	return checkpoint.From(err)
}
