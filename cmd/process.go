package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"karaokebox/config"
	"karaokebox/karaoke"
	"karaokebox/logger"
	"karaokebox/media"
	"karaokebox/separator"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <video>",
	Short: "Split one local video into stems without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log, err := logger.New(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		extractor, err := media.NewExtractor(cfg, log)
		if err != nil {
			return err
		}
		runner, err := separator.NewRunner(cfg, log)
		if err != nil {
			return err
		}
		pipeline := karaoke.NewPipeline(cfg, log, extractor, runner, separator.StemNames)

		videoPath := args[0]
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TaskTimeout)
		defer cancel()

		message, err := pipeline.Run(ctx, videoPath, shortuuid.New(), filepath.Base(videoPath))
		if err != nil {
			return err
		}

		fmt.Println(message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
