package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var putCMD = &cobra.Command{
	Use:   "put <local file> <path>",
	Short: "Copy a local file into the partition",
	Long:  `Copy a local file into the partition. An existing file is overwritten, the parent directory must exist.`,
	Args:  cobra.ExactArgs(2),
	RunE:  putFunc,
}

func putFunc(cmd *cobra.Command, args []string) (err error) {
	src, err := osFs.Open(args[0])
	if err != nil {
		return fmt.Errorf("could not open %s: %w", args[0], err)
	}
	defer src.Close()

	fs, closeFn, err := openImage(true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()

	dst, err := fs.Create(args[1])
	if err != nil {
		return err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		_ = dst.Close()
		return fmt.Errorf("could not write %s: %w", args[1], err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", args[1], err)
	}

	cmd.Printf("wrote %s to %s\n", humanize.IBytes(uint64(n)), args[1])
	return nil
}
