package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"state-tracer/internal/chain"
	"state-tracer/internal/tracer"
)

// traceCmd 代表 trace 命令
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "回溯变量在 [from, to) 区间内的历史取值",
	Long: `先用事件日志扫描出可能发生变化的区块，再分批读取这些区块上的变量值，
默认折叠相邻重复，输出 (区块号, 值) 变化轨迹。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags()
		if err != nil {
			return err
		}

		client, err := chain.Dial(flagRpc)
		if err != nil {
			return fmt.Errorf("连接 RPC 失败: %w", err)
		}
		defer client.Close()

		rows, err := tracer.New(client, nil).Trace(context.Background(), cfg, progressBar())
		if err != nil {
			return err
		}

		fmt.Printf("%-12s %s\n", "BLOCK", "VALUE")
		for _, r := range rows {
			fmt.Printf("%-12s %s\n", r.Block, r.Value)
		}
		fmt.Printf("共 %d 个变化点\n", len(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
}
