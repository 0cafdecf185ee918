package exfat

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testImageSize with testFormat results in 1024 byte clusters: 1007 clusters, the
// allocation bitmap in cluster 2, the up-case table in 3 and the root directory in 4.
const (
	testImageSize       = 1 << 20
	testBytesPerCluster = 1024
	testClusterCount    = 1007
	testRootCluster     = Cluster(4)
	testFirstFree       = Cluster(5)
)

var testFormat = FormatOptions{
	SectorsPerClusterShift: 1,
	VolumeLabel:            "TEST",
	SerialNumber:           0xCAFE,
}

// testImage returns an in-memory file holding a freshly formatted partition.
func testImage(t *testing.T) afero.File {
	t.Helper()
	f, err := afero.NewMemMapFs().Create("exfat.img")
	require.NoError(t, err)
	require.NoError(t, Format(f, testImageSize, testFormat))
	return f
}

func testPartitionOn(t *testing.T, stream io.ReadSeeker, opts ...Option) *Partition {
	t.Helper()
	p, err := Open(stream, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return p
}

func testPartition(t *testing.T, opts ...Option) *Partition {
	t.Helper()
	return testPartitionOn(t, testImage(t), opts...)
}

// readOnlyStream hides the io.Writer of a stream.
type readOnlyStream struct {
	io.ReadSeeker
}

// writeStream writes data to a new stream of p and returns the committed descriptor.
func writeStream(t *testing.T, p *Partition, data []byte) DataDescriptor {
	t.Helper()
	s, err := p.CreateDataStream()
	require.NoError(t, err)
	_, err = s.Write(data)
	require.NoError(t, err)
	d, err := s.Commit()
	require.NoError(t, err)
	return d
}

func readStream(t *testing.T, p *Partition, d DataDescriptor) []byte {
	t.Helper()
	s, err := p.OpenDataStream(d, ReadOnly)
	require.NoError(t, err)
	data, err := io.ReadAll(s)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	return data
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}
