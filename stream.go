package exfat

import (
	"fmt"
	"io"
	"syscall"

	"github.com/aligator/exfat/checkpoint"
)

// clusterIO provides all methods needed from a partition for ClusterStream.
// It mainly exists to be able to mock the Partition in tests.
// Generated mock using mockgen:
//
//	mockgen -source=stream.go -destination=stream_mock_test.go -package exfat
type clusterIO interface {
	BytesPerCluster() int
	ClusterCount() uint32
	NextCluster(cluster Cluster) (Cluster, error)
	SetNextCluster(cluster, next Cluster) error
	AllocateCluster(hint Cluster) (Cluster, error)
	FreeCluster(cluster Cluster) error
	ReadCluster(cluster Cluster, p []byte, offset int) error
	WriteCluster(cluster Cluster, p []byte, offset int) error
}

// Access selects whether a stream may change its data.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// ClusterStream reads and writes the data of a DataDescriptor as one seekable stream.
// Writing beyond the allocated clusters allocates new ones, the final descriptor is
// returned by Commit. It is not safe for concurrent use.
type ClusterStream struct {
	io       clusterIO
	desc     DataDescriptor
	writable bool
	modified bool
	closed   bool

	position uint64

	// cursor is the last resolved cluster of a chain and its index.
	cursorIndex   uint64
	cursorCluster Cluster

	// tail caches the number of clusters and the last one.
	tailKnown bool
	count     uint64
	last      Cluster
}

func newClusterStream(cio clusterIO, desc DataDescriptor, access Access) *ClusterStream {
	s := &ClusterStream{
		io:       cio,
		desc:     desc,
		writable: access == ReadWrite,
	}
	s.resetCache()
	return s
}

func (s *ClusterStream) resetCache() {
	s.cursorCluster = ClusterFree
	s.tailKnown = false

	if s.desc.IsEmpty() {
		s.tailKnown = true
		s.count = 0
		s.last = ClusterFree
	} else if s.desc.Contiguous {
		s.tailKnown = true
		s.count = clusterSpan(s.desc.Length, s.io.BytesPerCluster())
		s.last = ClusterFree
		if s.count > 0 {
			s.last = s.desc.FirstCluster + Cluster(s.count) - 1
		}
	}
}

// Descriptor returns the current data location.
func (s *ClusterStream) Descriptor() DataDescriptor {
	return s.desc
}

// Modified reports whether the stream data changed.
func (s *ClusterStream) Modified() bool {
	return s.modified
}

// Length returns the stream length.
func (s *ClusterStream) Length() uint64 {
	return s.desc.Length
}

func (s *ClusterStream) bytesPerCluster() uint64 {
	return uint64(s.io.BytesPerCluster())
}

// clusterAt returns the cluster holding the data of cluster index i of the stream.
// It returns ClusterLast if the stream has no such cluster.
func (s *ClusterStream) clusterAt(i uint64) (Cluster, error) {
	if s.desc.IsEmpty() {
		return ClusterLast, nil
	}

	if s.desc.Contiguous {
		if i >= s.count {
			return ClusterLast, nil
		}
		return s.desc.FirstCluster + Cluster(i), nil
	}

	if s.tailKnown && i >= s.count {
		return ClusterLast, nil
	}

	index, cluster := uint64(0), s.desc.FirstCluster
	if s.cursorCluster.IsData() && s.cursorIndex <= i {
		index, cluster = s.cursorIndex, s.cursorCluster
	}

	for ; index < i; index++ {
		if index >= uint64(s.io.ClusterCount()) {
			return ClusterFree, checkpoint.Wrapf(ErrCorruptChain, "chain starting at %v longer than the cluster count", s.desc.FirstCluster)
		}

		next, err := s.io.NextCluster(cluster)
		if err != nil {
			return ClusterFree, err
		}
		if next.IsLast() {
			s.tailKnown, s.count, s.last = true, index+1, cluster
			return ClusterLast, nil
		}
		if !next.IsData() {
			return ClusterFree, checkpoint.Wrapf(ErrCorruptChain, "cluster %v links to %v", cluster, next)
		}
		cluster = next
	}

	s.cursorIndex, s.cursorCluster = i, cluster
	return cluster, nil
}

// tail returns the number of clusters and the last cluster of the stream.
func (s *ClusterStream) tail() (uint64, Cluster, error) {
	if s.tailKnown {
		return s.count, s.last, nil
	}

	for i := s.cursorIndex; ; i++ {
		c, err := s.clusterAt(i)
		if err != nil {
			return 0, ClusterFree, err
		}
		if c.IsLast() {
			return s.count, s.last, nil
		}
	}
}

// grow appends a new, zeroed cluster to the stream.
// Contiguous data stays contiguous as long as the next physical cluster is free.
func (s *ClusterStream) grow() (Cluster, error) {
	count, last, err := s.tail()
	if err != nil {
		return ClusterFree, err
	}

	c, err := s.io.AllocateCluster(last)
	if err != nil {
		return ClusterFree, err
	}
	if err := s.io.WriteCluster(c, make([]byte, s.io.BytesPerCluster()), 0); err != nil {
		return ClusterFree, err
	}

	switch {
	case count == 0:
		// A contiguous descriptor without data owns no cluster.
		s.desc.FirstCluster = c
		s.desc.Contiguous = true
	case s.desc.Contiguous && c == last+1:
	default:
		if s.desc.Contiguous {
			// The data so far has no FAT chain, write it before linking the new cluster.
			for i := uint64(0); i+1 < count; i++ {
				current := s.desc.FirstCluster + Cluster(i)
				if err := s.io.SetNextCluster(current, current+1); err != nil {
					return ClusterFree, err
				}
			}
			s.desc.Contiguous = false
		}
		if err := s.io.SetNextCluster(last, c); err != nil {
			return ClusterFree, err
		}
	}
	if !s.desc.Contiguous {
		if err := s.io.SetNextCluster(c, ClusterLast); err != nil {
			return ClusterFree, err
		}
	}

	s.tailKnown, s.count, s.last = true, count+1, c
	s.cursorIndex, s.cursorCluster = count, c
	return c, nil
}

// Read reads from the current position up to the stream length.
func (s *ClusterStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, checkpoint.From(ErrClosed)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.position >= s.desc.Length {
		return 0, io.EOF
	}

	bpc := s.bytesPerCluster()
	n := 0
	for n < len(p) && s.position < s.desc.Length {
		c, err := s.clusterAt(s.position / bpc)
		if err != nil {
			return n, err
		}
		if c.IsLast() {
			break
		}

		offset := s.position % bpc
		chunk := min64(uint64(len(p)-n), bpc-offset, s.desc.Length-s.position)
		if err := s.io.ReadCluster(c, p[n:n+int(chunk)], int(offset)); err != nil {
			return n, err
		}
		n += int(chunk)
		s.position += chunk
	}

	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes at the current position, allocating clusters as needed.
// Writing beyond the stream length fills the gap with zeros.
func (s *ClusterStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, checkpoint.From(ErrClosed)
	}
	if !s.writable {
		return 0, checkpoint.From(ErrReadOnly)
	}

	if s.position > s.desc.Length {
		target := s.position
		s.position = s.desc.Length
		if err := s.writeZeros(target - s.desc.Length); err != nil {
			return 0, err
		}
	}

	return s.write(p)
}

func (s *ClusterStream) write(p []byte) (int, error) {
	bpc := s.bytesPerCluster()
	n := 0
	for n < len(p) {
		c, err := s.clusterAt(s.position / bpc)
		if err != nil {
			return n, err
		}
		if c.IsLast() {
			if c, err = s.grow(); err != nil {
				return n, err
			}
		}

		offset := s.position % bpc
		chunk := min64(uint64(len(p)-n), bpc-offset)
		if err := s.io.WriteCluster(c, p[n:n+int(chunk)], int(offset)); err != nil {
			return n, err
		}
		n += int(chunk)
		s.position += chunk
		s.modified = true

		if s.position > s.desc.Length {
			s.desc.Length = s.position
		}
	}
	return n, nil
}

func (s *ClusterStream) writeZeros(n uint64) error {
	zeros := make([]byte, s.bytesPerCluster())
	for n > 0 {
		chunk := min64(n, uint64(len(zeros)))
		if _, err := s.write(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Seek sets the position for the next Read or Write.
// Seeking beyond the end is allowed, a following Write fills the gap with zeros.
func (s *ClusterStream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, checkpoint.From(ErrClosed)
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(s.position)
	case io.SeekEnd:
		base = int64(s.desc.Length)
	default:
		return 0, checkpoint.From(fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	target := base + offset
	if target < 0 {
		return 0, checkpoint.From(fmt.Errorf("%w, negative position %v", syscall.EINVAL, target))
	}

	s.position = uint64(target)
	return target, nil
}

// Truncate changes the stream length. Clusters no longer needed are freed.
func (s *ClusterStream) Truncate(size uint64) error {
	if s.closed {
		return checkpoint.From(ErrClosed)
	}
	if !s.writable {
		return checkpoint.From(ErrReadOnly)
	}

	if size > s.desc.Length {
		position := s.position
		s.position = s.desc.Length
		err := s.writeZeros(size - s.desc.Length)
		s.position = position
		return err
	}

	keep := clusterSpan(size, s.io.BytesPerCluster())
	count, _, err := s.tail()
	if err != nil {
		return err
	}

	if keep < count {
		var free []Cluster
		for i := keep; i < count; i++ {
			c, err := s.clusterAt(i)
			if err != nil {
				return err
			}
			free = append(free, c)
		}
		if keep > 0 && !s.desc.Contiguous {
			last, err := s.clusterAt(keep - 1)
			if err != nil {
				return err
			}
			if err := s.io.SetNextCluster(last, ClusterLast); err != nil {
				return err
			}
		}
		for _, c := range free {
			if err := s.io.FreeCluster(c); err != nil {
				return err
			}
		}
	}

	s.desc.Length = size
	if keep == 0 {
		s.desc = DataDescriptor{FirstCluster: ClusterFree}
	}
	s.modified = true
	s.resetCache()
	return nil
}

// Commit closes the stream and returns the final data location.
// It has to be stored in the owning directory entry if the stream was modified.
func (s *ClusterStream) Commit() (DataDescriptor, error) {
	if s.closed {
		return s.desc, checkpoint.From(ErrClosed)
	}
	s.closed = true
	return s.desc, nil
}

// Close closes the stream, discarding the commit result.
func (s *ClusterStream) Close() error {
	_, err := s.Commit()
	return err
}

func min64(v uint64, more ...uint64) uint64 {
	for _, m := range more {
		if m < v {
			v = m
		}
	}
	return v
}
