package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"multiscan/internal/api"
	"multiscan/internal/core/config"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "启动扫描 HTTP API 服务",
		Example: `  multiscan serve --listen :8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(&config.CLIOverrides{Listen: listen})
			if err != nil {
				return err
			}

			server, err := api.NewServer(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return server.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "API监听地址 (默认: 配置文件 server.listen 或 :8000)")
	return cmd
}
