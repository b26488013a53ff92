package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"
	"github.com/yujm888/finrag/internal/config"
	"github.com/yujm888/finrag/internal/server"
)

// serverCmd 启动 HTTP 服务
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动问答 HTTP 服务",
	Long:  `启动问答 HTTP 服务,提供 RAG 问答、Text-to-SQL 与混合路由接口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}

		application, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer application.close()

		httpServer := server.NewHTTPServer(cfg, application.ragPipeline, application.sqlEngine,
			application.hybridEng, application.memoryMgr, application.schemaCache)

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			logx.Info("Received signal %s, shutting down...", sig)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
