package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aligator/exfat"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var osFs = afero.NewOsFs()

var errNoImage = errors.New("no image given, use --image or EXFAT_IMAGE")

// readOnly hides the io.Writer of a file so the partition is opened read-only.
type readOnly struct {
	io.ReadSeeker
}

func newLogger() (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.Encoding = "console"
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	c.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if viper.GetBool(debugFlag) {
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return c.Build()
}

func imagePath() (string, error) {
	p := viper.GetString(imageFlag)
	if p == "" {
		return "", errNoImage
	}
	return p, nil
}

// decompress reads a whole compressed image into memory.
// It returns nil if the file extension names no known compression.
func decompress(name string, r io.Reader) (io.ReadSeeker, error) {
	var data []byte
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open gzip image: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("could not decompress gzip image: %w", err)
		}
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open zstd image: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("could not decompress zstd image: %w", err)
		}
	default:
		return nil, nil
	}
	return bytes.NewReader(data), nil
}

// openImage opens the image given by the flags as Fs. Compressed images are always read-only.
// The returned function flushes the filesystem and closes the image file.
func openImage(writable bool) (*exfat.Fs, func() error, error) {
	name, err := imagePath()
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("could not create logger: %w", err)
	}

	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := osFs.OpenFile(name, flag, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open image: %w", err)
	}

	var stream io.ReadSeeker = f
	if !writable {
		stream = readOnly{f}
	}

	compressed, err := decompress(name, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if compressed != nil {
		if writable {
			_ = f.Close()
			return nil, nil, fmt.Errorf("compressed image %s can only be read", name)
		}
		stream = compressed
	}

	newFs := exfat.New
	if viper.GetBool(skipChecksFlag) {
		newFs = exfat.NewSkipChecks
	}
	fs, err := newFs(stream, exfat.WithLogger(log.With(zap.String("image", name))))
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("could not open exFAT partition: %w", err)
	}

	closeFn := func() error {
		defer log.Sync()
		if writable {
			if err := fs.Flush(); err != nil {
				_ = f.Close()
				return fmt.Errorf("could not flush partition: %w", err)
			}
		}
		return f.Close()
	}
	return fs, closeFn, nil
}
