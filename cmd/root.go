package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "karaokebox",
	Short:   "Karaoke stem separation toolkit",
	Long:    "Splits a video's audio into vocal and instrumental stems with an external separation model and serves them for synchronized karaoke playback.",
	Version: "1.0.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
