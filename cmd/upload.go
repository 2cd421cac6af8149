package cmd

import (
	"fmt"

	"karaokebox/client"
	"karaokebox/config"
	"karaokebox/logger"
	"karaokebox/task"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <video>",
	Short: "Upload a video to a running server and wait for the stems",
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

		c := client.New(cfg.ServerURL, cfg.PollInterval, log)
		defer c.Close()

		id, err := c.Upload(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("task %s created, waiting...\n", id)

		st, err := c.PollStatus(cmd.Context(), id, func(s client.TaskStatus) {
			if !s.Status.Terminal() {
				fmt.Printf("  %s: %s\n", s.Status, s.Message)
			}
		})
		if err != nil {
			return err
		}
		if st.Status == task.StatusFailed {
			return fmt.Errorf("processing failed: %s", st.Message)
		}

		fmt.Println(st.Message)
		fmt.Println("available tracks:")
		for _, name := range c.Tracks(cmd.Context()) {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
