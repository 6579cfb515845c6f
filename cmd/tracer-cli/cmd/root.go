package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"state-tracer/internal/chain"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/errno"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "tracer-cli",
	Short: "合约状态变量追踪命令行工具",
	Long: `追踪单个链上合约状态变量的历史取值。
通过事件日志定位可能发生变化的区块，只在这些区块上做历史状态读取，
支持一次性历史回溯 (trace) 和实时监听 (watch)。`,
}

var (
	flagRpc     string
	flagWs      string
	flagAddress string
	flagMethod  string
	flagInputs  []string
	flagReturns string
	flagArgs    []string
	flagEvents  []string
	flagFrom    uint64
	flagTo      uint64
	flagSpan    uint64
	flagBatch   int
	flagNoDedup bool
)

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRpc, "rpc", "http://localhost:8545", "HTTP RPC 节点地址")
	pf.StringVar(&flagWs, "ws", "ws://localhost:8546", "WebSocket 节点地址 (watch 用)")
	pf.StringVar(&flagAddress, "address", "", "目标合约地址 (必填)")
	pf.StringVar(&flagMethod, "method", "", "只读方法名，例如 totalSupply (必填)")
	pf.StringSliceVar(&flagInputs, "inputs", nil, "方法入参类型列表，例如 address")
	pf.StringVar(&flagReturns, "returns", "uint256", "方法返回值类型")
	pf.StringSliceVar(&flagArgs, "args", nil, "方法调用参数 (与 --inputs 一一对应)")
	pf.StringSliceVar(&flagEvents, "events", nil, "触发变化的事件签名，例如 'Transfer(address,address,uint256)' (必填)")
	pf.Uint64Var(&flagFrom, "from", 0, "起始区块 (含)")
	pf.Uint64Var(&flagTo, "to", 0, "结束区块 (不含)")
	pf.Uint64Var(&flagSpan, "span", 0, "单次 getLogs 的最大区块跨度 (0 = 默认 500)")
	pf.IntVar(&flagBatch, "batch", 0, "并发状态读取批大小 (0 = 默认 10)")
	pf.BoolVar(&flagNoDedup, "no-dedupe", false, "保留相邻重复值，不做压缩")
}

// configFromFlags 把命令行标志组装成 TraceConfig
func configFromFlags() (tracer.TraceConfig, error) {
	if !common.IsHexAddress(flagAddress) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: --address %q", errno.ErrConfig, flagAddress)
	}
	if len(flagArgs) != len(flagInputs) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: %d args for %d inputs", errno.ErrConfig, len(flagArgs), len(flagInputs))
	}

	args := make([]interface{}, 0, len(flagArgs))
	for i, raw := range flagArgs {
		v, err := chain.ParseArg(flagInputs[i], raw)
		if err != nil {
			return tracer.TraceConfig{}, err
		}
		args = append(args, v)
	}

	return tracer.TraceConfig{
		Address: common.HexToAddress(flagAddress),
		Method: chain.MethodSpec{
			Name:    flagMethod,
			Inputs:  flagInputs,
			Returns: flagReturns,
		},
		Args:          args,
		Events:        flagEvents,
		FromBlock:     flagFrom,
		ToBlock:       flagTo,
		LogQuerySpan:  flagSpan,
		ReadBatchSize: flagBatch,
		DisableDedupe: flagNoDedup,
	}, nil
}
