package cli

import (
	"github.com/EgorLis/my-feed/internal/config"
	"github.com/spf13/cobra"
)

func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume fanout tasks from the newsfeeds queue",
		Long: `Отдельный потребитель очереди asynq без HTTP API.
Требует QUEUE_DRIVER=asynq.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load(config.RoleWorker)
			if err != nil {
				return err
			}
			return runApp(cfg)
		},
	}
}
