package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "EXFAT"

const (
	imageFlag      = "image"
	debugFlag      = "debug"
	skipChecksFlag = "skip-checks"
)

var command = &cobra.Command{
	Use:   "exfat",
	Short: "exFAT image tool",
	Long: `exfat inspects and changes exFAT partition images.
The image can also be given as EXFAT_IMAGE, compressed images (.gz, .zst) are opened read-only.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// use stdout as default output for cmd.Print()
	command.SetOut(os.Stdout)

	ff := command.PersistentFlags()
	ff.StringP(imageFlag, "i", "", "Path to the partition image")
	ff.Bool(debugFlag, false, "Enable debug logging")
	ff.Bool(skipChecksFlag, false, "Open images whose boot sector fails the validation")
	bindFlags(ff, imageFlag, debugFlag, skipChecksFlag)

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	command.AddCommand(
		infoCMD,
		lsCMD,
		catCMD,
		putCMD,
		mkdirCMD,
		rmCMD,
		formatCMD,
	)
}

// bindFlags makes the flags available through viper, which also reads them from EXFAT_* variables.
func bindFlags(ff *pflag.FlagSet, keys ...string) {
	for _, key := range keys {
		_ = viper.BindPFlag(key, ff.Lookup(key))
	}
}

func main() {
	err := command.Execute()
	exitOnErr(command, err)
}

// exitOnErr prints error via cmd and exits with code 1.
// Does nothing if err is nil.
func exitOnErr(cmd *cobra.Command, err error) {
	if err != nil {
		cmd.PrintErrln(err)
		os.Exit(1)
	}
}
