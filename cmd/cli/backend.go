package main

import (
	"context"
	"os/signal"
	"syscall"

	"datapilot/internal/container"

	"github.com/spf13/cobra"
)

func newBackendCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Start the development analytics backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.DevBackend.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := container.New(cfg)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if err := c.InitDevBackend(ctx); err != nil {
				return err
			}
			return c.DevBackend.ListenAndServe(ctx, ":"+cfg.DevBackend.Port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default DEV_BACKEND_PORT)")
	return cmd
}
