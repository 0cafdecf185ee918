package exfat

import "fmt"

// Cluster is the index of an allocation unit in the cluster heap.
// Values below FirstDataCluster are reserved, values from ClusterBad on are sentinels.
type Cluster uint32

const (
	// ClusterFree marks an unused FAT slot and stands for "no cluster".
	ClusterFree Cluster = 0
	// FirstDataCluster is the index of the first cluster of the cluster heap.
	FirstDataCluster Cluster = 2
	// ClusterBad marks a cluster which must not be used.
	ClusterBad Cluster = 0xFFFFFFF7
	// ClusterLast is the canonical end-of-chain value. Every value from 0xFFFFFFF8 on ends a chain.
	ClusterLast Cluster = 0xFFFFFFFF

	clusterLastMin Cluster = 0xFFFFFFF8
)

// IsFree reports whether the value is the free marker.
func (c Cluster) IsFree() bool {
	return c == ClusterFree
}

// IsBad reports whether the value is the bad-cluster marker.
func (c Cluster) IsBad() bool {
	return c == ClusterBad
}

// IsLast reports whether the value ends a cluster chain.
func (c Cluster) IsLast() bool {
	return c >= clusterLastMin
}

// IsData reports whether the value can address a cluster of the heap.
func (c Cluster) IsData() bool {
	return c >= FirstDataCluster && c < ClusterBad
}

func (c Cluster) String() string {
	switch {
	case c.IsFree():
		return "free"
	case c.IsBad():
		return "bad"
	case c.IsLast():
		return "last"
	}
	return fmt.Sprintf("#%d", uint32(c))
}

// DataDescriptor locates the bytes of a stream in the partition.
// Contiguous data occupies FirstCluster, FirstCluster+1, ... and needs no FAT lookups,
// other data follows the FAT chain starting at FirstCluster.
type DataDescriptor struct {
	FirstCluster Cluster
	Contiguous   bool
	Length       uint64
}

// IsEmpty reports whether no cluster belongs to the descriptor.
func (d DataDescriptor) IsEmpty() bool {
	return !d.FirstCluster.IsData()
}

// clusterSpan returns the number of clusters needed to hold length bytes.
func clusterSpan(length uint64, bytesPerCluster int) uint64 {
	bpc := uint64(bytesPerCluster)
	n := length / bpc
	if length%bpc != 0 {
		n++
	}
	return n
}
