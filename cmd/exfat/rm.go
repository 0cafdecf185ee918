package main

import (
	"github.com/spf13/cobra"
)

var rmCMD = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE:  rmFunc,
}

func init() {
	rmCMD.Flags().BoolP(recursiveFlag, "r", false, "Remove directories and their content")
}

func rmFunc(cmd *cobra.Command, args []string) (err error) {
	recursive, _ := cmd.Flags().GetBool(recursiveFlag)

	fs, closeFn, err := openImage(true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()

	if recursive {
		return fs.RemoveAll(args[0])
	}
	return fs.Remove(args[0])
}
