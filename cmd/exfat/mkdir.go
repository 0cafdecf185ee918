package main

import (
	"github.com/spf13/cobra"
)

var mkdirCMD = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a directory and all missing parents",
	Args:  cobra.ExactArgs(1),
	RunE:  mkdirFunc,
}

func mkdirFunc(_ *cobra.Command, args []string) (err error) {
	fs, closeFn, err := openImage(true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()

	return fs.MkdirAll(args[0], 0777)
}
