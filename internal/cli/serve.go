package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"CricketSync/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type ServeOptions struct {
	*RootOptions
	Port          int
	IngestOnStart bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Long: `启动 HTTP 服务，提供工具目录、工具调用、只读 SQL、数据概况与入库触发接口。

示例:
  cricketsync serve --config ./config
  cricketsync serve --port 9090 --ingest-on-start`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.Port, "port", 0, "服务端口，默认使用配置文件")
	cmd.Flags().BoolVar(&opts.IngestOnStart, "ingest-on-start", false, "启动后先按配置的数据源入库一次")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	a, err := newApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if opts.Port > 0 {
		port = opts.Port
	}

	gin.SetMode(a.cfg.Server.Mode)
	a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: api.NewRouter(a.query, a.ingest, a.registry, a.logger),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Infof("服务启动成功，端口：%d", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("启动服务失败: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("正在关闭服务…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("关闭服务失败: %w", err)
		}
		return nil
	})

	if opts.IngestOnStart {
		g.Go(func() error {
			report, err := a.ingest.Run(gctx, nil)
			if err != nil {
				// 入库失败不影响查询服务
				a.logger.WithError(err).Error("启动入库失败")
				return nil
			}
			a.logger.WithField("batch_id", report.BatchID).Info("启动入库完成")
			return nil
		})
	}

	return g.Wait()
}
