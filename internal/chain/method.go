package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"state-tracer/pkg/errno"
)

// MethodSpec 以显式描述符的方式声明一个只读合约方法:
// 方法名 + 有序的入参类型 + 单个返回值类型 (均为 Solidity 类型名)。
// 在配置校验阶段调用 Resolve 一次性解析成可调用的 Method，
// 解析失败立即报错，而不是等到第一次调用才发现。
type MethodSpec struct {
	Name    string   `json:"name" mapstructure:"name"`
	Inputs  []string `json:"inputs" mapstructure:"inputs"`
	Returns string   `json:"returns" mapstructure:"returns"`
}

// Method is a resolved, callable read method.
type Method struct {
	abiMethod abi.Method
}

// Resolve parses the descriptor into a fixed abi.Method.
func (s MethodSpec) Resolve() (*Method, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("%w: empty method name", errno.ErrMethodResolution)
	}
	if s.Returns == "" {
		return nil, fmt.Errorf("%w: method %q has no return type", errno.ErrMethodResolution, s.Name)
	}

	inputs := make(abi.Arguments, 0, len(s.Inputs))
	for i, typ := range s.Inputs {
		t, err := abi.NewType(typ, "", nil)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d of %q: %v", errno.ErrMethodResolution, i, s.Name, err)
		}
		inputs = append(inputs, abi.Argument{Name: fmt.Sprintf("arg%d", i), Type: t})
	}

	ret, err := abi.NewType(s.Returns, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: return type of %q: %v", errno.ErrMethodResolution, s.Name, err)
	}
	outputs := abi.Arguments{abi.Argument{Name: "", Type: ret}}

	m := abi.NewMethod(s.Name, s.Name, abi.Function, "view", false, false, inputs, outputs)
	return &Method{abiMethod: m}, nil
}

// Pack encodes the call data (selector + ABI-encoded args).
func (m *Method) Pack(args ...interface{}) ([]byte, error) {
	encoded, err := m.abiMethod.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", m.abiMethod.Name, err)
	}
	return append(append([]byte{}, m.abiMethod.ID...), encoded...), nil
}

// UnpackValue decodes the raw return data into a big integer.
// 合约状态变量按数值处理；bool 映射为 0/1。
func (m *Method) UnpackValue(data []byte) (*big.Int, error) {
	vals, err := m.abiMethod.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", m.abiMethod.Name, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: empty return", m.abiMethod.Name)
	}

	switch v := vals[0].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case bool:
		if v {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	default:
		return nil, fmt.Errorf("unpack %s: non-numeric return type %T", m.abiMethod.Name, vals[0])
	}
}

// ParseArg converts a string argument into the Go value the ABI encoder
// expects for the given Solidity type. CLI / HTTP 层的参数都是字符串，
// 打包前需要按类型转换。
func ParseArg(solType, raw string) (interface{}, error) {
	switch {
	case solType == "address":
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%w: %q is not an address", errno.ErrInvalidArgument, raw)
		}
		return common.HexToAddress(raw), nil
	case solType == "bool":
		switch raw {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a bool", errno.ErrInvalidArgument, raw)
	case solType == "string":
		return raw, nil
	case strings.HasPrefix(solType, "uint"), strings.HasPrefix(solType, "int"):
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a decimal integer", errno.ErrInvalidArgument, raw)
		}
		return sizedInt(solType, n)
	default:
		return nil, fmt.Errorf("%w: unsupported argument type %q", errno.ErrInvalidArgument, solType)
	}
}

// sizedInt 把 big.Int 转换成 ABI 编码器对定宽整型要求的 Go 类型
// (uint8/16/32/64 等)，其余宽度保持 *big.Int。
func sizedInt(solType string, n *big.Int) (interface{}, error) {
	signed := strings.HasPrefix(solType, "int")

	size := strings.TrimPrefix(strings.TrimPrefix(solType, "uint"), "int")
	if size == "" {
		size = "256"
	}

	switch {
	case signed && size == "8":
		return int8(n.Int64()), nil
	case signed && size == "16":
		return int16(n.Int64()), nil
	case signed && size == "32":
		return int32(n.Int64()), nil
	case signed && size == "64":
		return n.Int64(), nil
	case !signed && size == "8":
		return uint8(n.Uint64()), nil
	case !signed && size == "16":
		return uint16(n.Uint64()), nil
	case !signed && size == "32":
		return uint32(n.Uint64()), nil
	case !signed && size == "64":
		return n.Uint64(), nil
	default:
		return n, nil
	}
}
