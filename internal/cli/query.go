package cli

import (
	"fmt"
	"io"
	"strings"

	"CricketSync/internal/catalog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type QueryOptions struct {
	*RootOptions
	Format string
	Args   []string
}

func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <tool>",
		Short: "执行一个分析操作",
		Long: `按名称执行一个分析操作，参数以 key=value 形式传入。

示例:
  cricketsync query head_to_head --arg team_a=CSK --arg team_b=MI
  cricketsync query top_run_scorers --arg limit=5 --arg season=2019 --format narrative`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseArgs(opts.Args)
			if err != nil {
				return err
			}
			a, err := newApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.query.RunTool(cmd.Context(), args[0], raw, opts.Format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "table", "输出格式：table / narrative")
	cmd.Flags().StringArrayVar(&opts.Args, "arg", nil, "参数 key=value，可重复")
	return cmd
}

// parseArgs key=value 列表转为参数表，值保持字符串，由参数绑定负责类型转换
func parseArgs(pairs []string) (map[string]interface{}, error) {
	raw := make(map[string]interface{}, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("参数格式应为 key=value: %q", p)
		}
		if _, dup := raw[k]; dup {
			return nil, fmt.Errorf("参数重复: %s", k)
		}
		raw[k] = v
	}
	return raw, nil
}

type SQLOptions struct {
	*RootOptions
	Format string
}

func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <statement>",
		Short: "执行单条只读 SQL",
		Long: `执行单条 SELECT / WITH 查询，写操作与多语句会被拒绝。

示例:
  cricketsync sql "SELECT name, short_code FROM teams ORDER BY name"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.query.RunSQL(cmd.Context(), args[0], opts.Format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "table", "输出格式：table / narrative")
	return cmd
}

// NewToolsCommand 列出分析操作，不需要数据库
func NewToolsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "列出全部分析操作及其参数",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printTools(cmd.OutOrStdout(), catalog.Default().List())
			return nil
		},
	}
}

func printTools(w io.Writer, ops []*catalog.Operation) {
	for _, op := range ops {
		fmt.Fprintf(w, "%s\n  %s\n", op.Name, op.Description)
		for _, p := range op.Params {
			flag := "可选"
			if p.Required {
				flag = "必填"
			}
			line := fmt.Sprintf("  - %s (%s, %s): %s", p.Name, p.Kind, flag, p.Description)
			if p.Default != nil {
				line += fmt.Sprintf("，默认 %v", p.Default)
			}
			fmt.Fprintln(w, line)
		}
	}
}

func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "显示各表行数与赛季范围",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			guide, err := a.query.SchemaGuide(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if guide.FirstYear > 0 {
				fmt.Fprintf(w, "赛季: %d - %d\n", guide.FirstYear, guide.LastYear)
			}
			for _, t := range guide.Tables {
				fmt.Fprintf(w, "%-16s %s\n", t.Table, humanize.Comma(t.Rows))
			}
			return nil
		},
	}
}
