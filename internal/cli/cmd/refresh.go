package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/ipc"
	"github.com/spf13/cobra"
)

func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rescan the image directory now",
		Long: `Asks the running slideframe to rescan its image directory and
re-query the display resolution. Intended to be called by whatever keeps the
directory in sync once it has finished copying files.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := ipc.SendRefresh(); err != nil {
				log.Fatalf("Failed to send 'refresh' command: %v", err)
			}
			log.Info("Refresh command sent")
		},
	}
}
