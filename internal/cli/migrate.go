package cli

import (
	"os"

	"github.com/EgorLis/my-feed/internal/infra/database/postgres"
	"github.com/EgorLis/my-feed/internal/logx"
	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load("")
			if err != nil {
				return err
			}
			logger := logx.Component(logx.New(os.Stdout, cfg.LogLevel), "postgres")
			return postgres.Migrate(cfg.GetDSN(), logger)
		},
	}
}
