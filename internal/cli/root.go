// Package cli 命令行入口：serve / ingest / query / sql / tools / schema。
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigDir string
	Verbose   bool
}

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cricketsync",
		Short: "IPL 逐球数据入库与查询服务",
		Long: `CricketSync 把 CricSheet 格式的逐球比赛记录入库，
并通过一组封闭的参数化分析操作（以及只读 SQL）回答问题。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "./config", "config.yaml 所在目录")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "输出调试日志")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewToolsCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	return cmd
}

// Execute 供 main 调用，出错时以非零状态退出
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
