package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// set at build time with -ldflags "-X"
var version string
var commitHash string
var buildDate string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of streamMixer",
	Long:  `Print the version number of streamMixer`,
	Run: func(cmd *cobra.Command, args []string) {
		printStreamMixerVersion()
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

func printStreamMixerVersion() {
	fmt.Printf("streamMixer Version: %s, %s/%s, BuildDate: %s, Commit: %s\n",
		version, runtime.GOOS, runtime.GOARCH, buildDate, commitHash)
}
