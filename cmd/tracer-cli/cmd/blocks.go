package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"state-tracer/internal/chain"
	"state-tracer/internal/tracer"
)

// blocksCmd 只跑扫描阶段，不做状态读取
var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "列出 [from, to) 内可能发生变化的区块号",
	Long: `只执行日志扫描阶段，输出去重升序后的候选区块列表。
配合 trace 的读取参数调优: 先用 blocks 看候选规模，再决定批大小。`,
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

		blocks, err := tracer.New(client, nil).CollectBlockNumbers(context.Background(), cfg, progressBar())
		if err != nil {
			return err
		}

		for _, bn := range blocks {
			fmt.Println(bn)
		}
		fmt.Printf("共 %d 个候选区块\n", len(blocks))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}
