package cli

import (
	"fmt"
	"io"
	"time"

	"CricketSync/internal/config"
	"CricketSync/internal/ingest"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type IngestOptions struct {
	*RootOptions
	Source   string
	Location string
	Pattern  string
}

func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "批量入库比赛记录",
		Long: `读取数据源中的全部比赛记录并入库。重复入库同一文件不会产生重复数据，
格式错误的文件会被跳过并在汇总中列出。

示例:
  cricketsync ingest
  cricketsync ingest --source zip --location ./ipl_json.zip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			var override *config.DatasetConfig
			if opts.Source != "" || opts.Location != "" || opts.Pattern != "" {
				ds := a.cfg.Dataset
				if opts.Source != "" {
					ds.Source = opts.Source
				}
				if opts.Location != "" {
					ds.Location = opts.Location
				}
				if opts.Pattern != "" {
					ds.Pattern = opts.Pattern
				}
				override = &ds
			}

			report, err := a.ingest.Run(cmd.Context(), override)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Source, "source", "", "数据源类型：dir / zip / url")
	cmd.Flags().StringVar(&opts.Location, "location", "", "目录、zip 文件路径或下载地址")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", "", "文件匹配规则，如 **/*.json")
	return cmd
}

func printReport(w io.Writer, r *ingest.BatchReport) {
	fmt.Fprintf(w, "批次 %s（%s）耗时 %s\n", r.BatchID, r.Source, r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(w, "新增 %s，替换 %s，未变 %s，失败 %s\n",
		humanize.Comma(int64(r.Inserted)), humanize.Comma(int64(r.Replaced)),
		humanize.Comma(int64(r.Unchanged)), humanize.Comma(int64(r.Failed)))
	for _, res := range r.Results {
		if res.Error != "" {
			fmt.Fprintf(w, "  失败 %s: %s\n", res.Item, res.Error)
		}
	}
}
