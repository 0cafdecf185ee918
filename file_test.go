package exfat

import (
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFile_ReadWriteSeek(t *testing.T) {
	fs := testFs(t)
	f, err := fs.Create("file")
	require.NoError(t, err)
	defer f.Close()

	n, err := f.WriteString("Hello World")
	require.NoError(t, err)
	require.Equal(t, 11, n)

	pos, err := f.Seek(6, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(6), pos)
	_, err = f.Write([]byte("exFAT"))
	require.NoError(t, err)

	pos, err = f.Seek(-5, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, int64(6), pos)
	buf := make([]byte, 10)
	n, err = f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "exFAT", string(buf[:n]))

	n, err = f.Read(buf)
	require.Equal(t, io.EOF, err)
	require.Zero(t, n)

	_, err = f.Seek(0, 42)
	require.ErrorIs(t, err, syscall.EINVAL)
	require.ErrorIs(t, err, ErrSeekFile)
}

func TestFile_ReadAtWriteAt(t *testing.T) {
	fs := testFs(t)
	f, err := fs.Create("file")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(pattern(3000))
	require.NoError(t, err)

	n, err := f.WriteAt([]byte("middle"), 1500)
	require.NoError(t, err)
	require.Equal(t, 6, n)

	pos, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, int64(3000), pos, "WriteAt keeps the position")

	buf := make([]byte, 6)
	n, err = f.ReadAt(buf, 1500)
	require.NoError(t, err)
	require.Equal(t, "middle", string(buf[:n]))

	n, err = f.ReadAt(buf, 2997)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 3, n)
	require.Equal(t, pattern(3000)[2997:], buf[:3])

	_, err = f.ReadAt(buf, 3000)
	require.Equal(t, io.EOF, err)

	// Writing past the end fills the gap with zeros.
	_, err = f.WriteAt([]byte("end"), 4000)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(4003), info.Size())

	gap := make([]byte, 1000)
	_, err = f.ReadAt(gap, 3000)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 1000), gap)
}

func TestFile_Truncate(t *testing.T) {
	fs := testFs(t)
	require.NoError(t, afero.WriteFile(fs, "file", pattern(5000), 0666))

	f, err := fs.OpenFile("file", os.O_RDWR, 0)
	require.NoError(t, err)
	require.ErrorIs(t, f.Truncate(-1), syscall.EINVAL)
	require.NoError(t, f.Truncate(1000))
	require.NoError(t, f.Close())

	data, err := afero.ReadFile(fs, "file")
	require.NoError(t, err)
	require.Equal(t, pattern(5000)[:1000], data)

	f, err = fs.OpenFile("file", os.O_RDWR, 0)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(1500))
	require.NoError(t, f.Close())

	data, err = afero.ReadFile(fs, "file")
	require.NoError(t, err)
	require.Equal(t, append(pattern(5000)[:1000], make([]byte, 500)...), data)
}

func TestFile_Sync(t *testing.T) {
	fs := testFs(t)
	f, err := fs.Create("file")
	require.NoError(t, err)

	_, err = f.Write(pattern(2048))
	require.NoError(t, err)

	info, err := fs.Stat("file")
	require.NoError(t, err)
	require.Zero(t, info.Size(), "not stored before Sync")

	require.NoError(t, f.Sync())
	info, err = fs.Stat("file")
	require.NoError(t, err)
	require.Equal(t, int64(2048), info.Size())
	require.NoError(t, f.Close())
}

func TestFile_Readdir(t *testing.T) {
	fs := testFs(t)
	testFiles(t, fs)

	d, err := fs.Open("docs")
	require.NoError(t, err)
	defer d.Close()
	require.Equal(t, "docs", d.Name())

	infos, err := d.Readdir(2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "empty", infos[0].Name())
	require.True(t, infos[0].IsDir())

	infos, err = d.Readdir(2)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "empty.txt", infos[0].Name())

	_, err = d.Readdir(2)
	require.Equal(t, io.EOF, err)

	infos, err = d.Readdir(-1)
	require.NoError(t, err)
	require.Empty(t, infos)

	_, err = d.Seek(0, io.SeekStart)
	require.NoError(t, err)
	names, err := d.Readdirnames(0)
	require.NoError(t, err)
	require.Equal(t, []string{"empty", "README.md", "empty.txt"}, names)

	_, err = d.Seek(1, io.SeekStart)
	require.ErrorIs(t, err, syscall.EISDIR)
	_, err = d.Read(make([]byte, 1))
	require.ErrorIs(t, err, syscall.EISDIR)
	_, err = d.Write([]byte("x"))
	require.ErrorIs(t, err, syscall.EISDIR)
}

func TestFile_Readdir_notDirectory(t *testing.T) {
	fs := testFs(t)
	testFiles(t, fs)

	f, err := fs.Open("hello.txt")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Readdir(-1)
	require.ErrorIs(t, err, syscall.ENOTDIR)
	require.ErrorIs(t, err, ErrReadDir)
	_, err = f.Readdirnames(-1)
	require.ErrorIs(t, err, syscall.ENOTDIR)
}

func TestFile_closed(t *testing.T) {
	fs := testFs(t)
	testFiles(t, fs)

	f, err := fs.Open("hello.txt")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.ErrorIs(t, f.Close(), os.ErrClosed)
	_, err = f.Read(make([]byte, 1))
	require.ErrorIs(t, err, os.ErrClosed)
	_, err = f.Seek(0, io.SeekStart)
	require.ErrorIs(t, err, os.ErrClosed)
	_, err = f.Stat()
	require.ErrorIs(t, err, os.ErrClosed)
	_, err = f.Readdir(-1)
	require.ErrorIs(t, err, os.ErrClosed)
	require.ErrorIs(t, f.Sync(), os.ErrClosed)
}
