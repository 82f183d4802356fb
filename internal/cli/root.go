// Package cli — команды feedd: serve, worker, migrate.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EgorLis/my-feed/internal/app"
	"github.com/EgorLis/my-feed/internal/config"
	"github.com/spf13/cobra"
)

// RootOptions — глобальные флаги поверх переменных окружения.
type RootOptions struct {
	LogLevel string
	Port     string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "feedd",
		Short: "feedd - social feed backend",
		Long: `Лента: посты, подписки, лайки и комментарии.

Конфигурация читается из окружения (и .env для локальной разработки),
флаги перекрывают LOG_LEVEL и APP_PORT.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Port, "port", "", "override APP_PORT, e.g. :8080")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// load читает конфиг, применяет флаги и роль процесса.
func (o *RootOptions) load(role string) (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Port != "" {
		cfg.AppPort = o.Port
	}
	if role != "" {
		cfg.AppRole = role
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runApp собирает приложение и работает до SIGINT/SIGTERM.
func runApp(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
