package main

import (
	"fmt"
	"os"

	"github.com/aligator/exfat"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const (
	labelFlag        = "label"
	clusterShiftFlag = "cluster-shift"
	fatsFlag         = "fats"
	serialFlag       = "serial"
)

var formatCMD = &cobra.Command{
	Use:   "format <size>",
	Short: "Create an empty exFAT image",
	Long: `Create an empty exFAT image of the given size, e.g. "64MiB".
An existing image file is overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: formatFunc,
}

func init() {
	ff := formatCMD.Flags()
	ff.StringP(labelFlag, "l", "", "Volume label, at most 11 characters")
	ff.Uint8(clusterShiftFlag, 3, "log2 of the sectors per cluster")
	ff.Uint8(fatsFlag, 1, "Number of FATs, 1 or 2")
	ff.Uint32(serialFlag, 0, "Volume serial number")
}

func formatFunc(cmd *cobra.Command, args []string) (err error) {
	size, err := humanize.ParseBytes(args[0])
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", args[0], err)
	}

	name, err := imagePath()
	if err != nil {
		return err
	}

	ff := cmd.Flags()
	label, _ := ff.GetString(labelFlag)
	clusterShift, _ := ff.GetUint8(clusterShiftFlag)
	fats, _ := ff.GetUint8(fatsFlag)
	serial, _ := ff.GetUint32(serialFlag)

	f, err := osFs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("could not create image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	err = exfat.Format(f, int64(size), exfat.FormatOptions{
		SectorsPerClusterShift: clusterShift,
		NumberOfFats:           fats,
		VolumeLabel:            label,
		SerialNumber:           serial,
	})
	if err != nil {
		return fmt.Errorf("could not format %s: %w", name, err)
	}

	cmd.Printf("formatted %s with %s\n", name, humanize.IBytes(size))
	return nil
}
