package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var infoCMD = &cobra.Command{
	Use:   "info",
	Short: "Print partition geometry and space usage",
	Long:  `Print the boot sector geometry, the volume label and the used and free space of the partition.`,
	Args:  cobra.NoArgs,
	RunE:  infoFunc,
}

func infoFunc(cmd *cobra.Command, _ []string) error {
	fs, closeFn, err := openImage(false)
	if err != nil {
		return err
	}
	defer closeFn()

	p := fs.Entries().Partition()
	boot := p.BootSector()

	label, err := fs.Label()
	if err != nil {
		return fmt.Errorf("could not read volume label: %w", err)
	}
	used, err := p.UsedSpace()
	if err != nil {
		return fmt.Errorf("could not read allocation bitmap: %w", err)
	}
	available, err := p.AvailableSpace()
	if err != nil {
		return fmt.Errorf("could not read allocation bitmap: %w", err)
	}

	out := tablewriter.NewWriter(cmd.OutOrStdout())
	out.SetHeader([]string{"Property", "Value"})
	out.SetAlignment(tablewriter.ALIGN_LEFT)

	out.Append([]string{"Label", label})
	out.Append([]string{"Serial number", fmt.Sprintf("%08X", boot.VolumeSerialNumber)})
	out.Append([]string{"Revision", fmt.Sprintf("%d.%02d", boot.FileSystemRevision>>8, boot.FileSystemRevision&0xFF)})
	out.Append([]string{"Bytes per sector", humanize.Comma(int64(boot.BytesPerSector()))})
	out.Append([]string{"Bytes per cluster", humanize.IBytes(uint64(boot.BytesPerCluster()))})
	out.Append([]string{"Cluster count", humanize.Comma(int64(boot.ClusterCount))})
	out.Append([]string{"FATs", fmt.Sprintf("%d", boot.NumberOfFats)})
	out.Append([]string{"FAT offset", fmt.Sprintf("sector %d", boot.FatOffsetSector())})
	out.Append([]string{"Cluster heap offset", fmt.Sprintf("sector %d", boot.ClusterOffsetSector())})
	out.Append([]string{"Root directory", boot.RootDirectoryCluster().String()})
	out.Append([]string{"Total space", humanize.IBytes(p.TotalSpace())})
	out.Append([]string{"Used space", humanize.IBytes(used)})
	out.Append([]string{"Available space", humanize.IBytes(available)})
	out.Render()

	return nil
}
