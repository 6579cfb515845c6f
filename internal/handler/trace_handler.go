package handler

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"state-tracer/internal/chain"
	"state-tracer/internal/handler/request"
	"state-tracer/internal/handler/response"
	"state-tracer/internal/service"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/errno"
)

// TraceHandler 暴露历史追踪 REST 接口
type TraceHandler struct {
	svc *service.TraceService
}

func NewTraceHandler(svc *service.TraceService) *TraceHandler {
	return &TraceHandler{svc: svc}
}

// Trace godoc
// POST /api/v1/trace
func (h *TraceHandler) Trace(c *gin.Context) {
	cfg, err := h.bind(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, err := h.svc.Trace(c.Request.Context(), cfg, nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"rows": rows, "count": len(rows)})
}

// Blocks godoc
// POST /api/v1/blocks
func (h *TraceHandler) Blocks(c *gin.Context) {
	cfg, err := h.bind(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	blocks, err := h.svc.Blocks(c.Request.Context(), cfg, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	// 区块号以十进制字符串输出，避免 JSON number 精度问题
	out := make([]string, 0, len(blocks))
	for _, bn := range blocks {
		out = append(out, strconv.FormatUint(bn, 10))
	}
	response.Success(c, gin.H{"blocks": out, "count": len(out)})
}

func (h *TraceHandler) bind(c *gin.Context) (tracer.TraceConfig, error) {
	var req request.TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return tracer.TraceConfig{}, errno.ErrBind
	}

	if !common.IsHexAddress(req.Address) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: bad address %q", errno.ErrConfig, req.Address)
	}
	if len(req.Args) != len(req.Method.Inputs) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: %d args for %d inputs", errno.ErrConfig, len(req.Args), len(req.Method.Inputs))
	}

	args := make([]interface{}, 0, len(req.Args))
	for i, raw := range req.Args {
		v, err := chain.ParseArg(req.Method.Inputs[i], raw)
		if err != nil {
			return tracer.TraceConfig{}, err
		}
		args = append(args, v)
	}

	return tracer.TraceConfig{
		Address: common.HexToAddress(req.Address),
		Method: chain.MethodSpec{
			Name:    req.Method.Name,
			Inputs:  req.Method.Inputs,
			Returns: req.Method.Returns,
		},
		Args:          args,
		Events:        req.Events,
		FromBlock:     req.FromBlock,
		ToBlock:       req.ToBlock,
		LogQuerySpan:  req.LogQuerySpan,
		ReadBatchSize: req.ReadBatchSize,
		DisableDedupe: req.DisableDedupe,
	}, nil
}
