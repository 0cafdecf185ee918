package main

import (
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const recursiveFlag = "recursive"

var lsCMD = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory of the partition",
	Long:  `List the entries of a directory, the root directory by default.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  lsFunc,
}

func init() {
	lsCMD.Flags().BoolP(recursiveFlag, "r", false, "List sub directories recursively")
}

func lsFunc(cmd *cobra.Command, args []string) error {
	dir := "/"
	if len(args) > 0 {
		dir = args[0]
	}
	recursive, _ := cmd.Flags().GetBool(recursiveFlag)

	fs, closeFn, err := openImage(false)
	if err != nil {
		return err
	}
	defer closeFn()

	out := tablewriter.NewWriter(cmd.OutOrStdout())
	out.SetHeader([]string{"Mode", "Size", "Modified", "Name"})
	out.SetAlignment(tablewriter.ALIGN_LEFT)

	appendInfo := func(name string, info os.FileInfo) {
		size := ""
		if !info.IsDir() {
			size = humanize.IBytes(uint64(info.Size()))
		}
		out.Append([]string{info.Mode().String(), size, humanize.Time(info.ModTime()), name})
	}

	if !recursive {
		infos, err := afero.ReadDir(fs, dir)
		if err != nil {
			return fmt.Errorf("could not list %s: %w", dir, err)
		}
		for _, info := range infos {
			appendInfo(info.Name(), info)
		}
	} else {
		var rows []string
		infos := make(map[string]os.FileInfo)
		err := afero.Walk(fs, dir, func(name string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path.Clean(name) == path.Clean(dir) {
				return nil
			}
			rows = append(rows, name)
			infos[name] = info
			return nil
		})
		if err != nil {
			return fmt.Errorf("could not walk %s: %w", dir, err)
		}
		sort.Strings(rows)
		for _, name := range rows {
			appendInfo(name, infos[name])
		}
	}

	out.Render()
	return nil
}
