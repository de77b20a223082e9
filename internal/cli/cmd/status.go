package cmd

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/cli/cmd/utils"
	"github.com/matjam/slideframe/internal/ipc"
	"github.com/spf13/cobra"
)

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Get slideframe status",
		Long:  `Returns the current status of the slideframe process.`,
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("metrics"); v {
				metrics, err := ipc.SendMetrics()
				if err != nil {
					log.Errorf("Error fetching metrics: %v", err)
					return
				}
				fmt.Print(metrics)
				return
			}

			response, err := ipc.SendStatus()
			if err != nil {
				log.Errorf("Error sending command: %v", err)
				return
			}

			utils.PrintJSONColored(response)
		},
	}
	cmd.Flags().Bool("metrics", false, "Print metrics in Prometheus text format")
	return cmd
}
