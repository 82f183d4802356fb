package cli

import (
	"github.com/EgorLis/my-feed/internal/config"
	"github.com/spf13/cobra"
)

type ServeOptions struct {
	*RootOptions
	Worker bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API",
		Long: `Поднимает HTTP API. По умолчанию роль берётся из APP_ROLE.

--worker=false оставляет только API (задачи fanout обработает feedd worker),
--worker=true дополнительно запускает потребителя очереди в этом процессе.

Example:
  feedd serve
  feedd serve --worker=false --port :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := ""
			if cmd.Flags().Changed("worker") {
				role = config.RoleAPI
				if opts.Worker {
					role = config.RoleAll
				}
			}
			cfg, err := opts.load(role)
			if err != nil {
				return err
			}
			return runApp(cfg)
		},
	}

	cmd.Flags().BoolVar(&opts.Worker, "worker", true, "also consume fanout tasks in this process")

	return cmd
}
