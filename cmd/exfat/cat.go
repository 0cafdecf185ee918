package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var catCMD = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the content of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  catFunc,
}

func catFunc(cmd *cobra.Command, args []string) error {
	fs, closeFn, err := openImage(false)
	if err != nil {
		return err
	}
	defer closeFn()

	f, err := fs.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
		return fmt.Errorf("could not read %s: %w", args[0], err)
	}
	return nil
}
