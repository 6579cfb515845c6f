package tracer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracer_Trace(t *testing.T) {
	reader := newFakeReader()
	reader.logBlocks = []uint64{10, 20, 30, 40, 50}
	reader.values = map[uint64]int64{10: 10, 20: 10, 30: 10, 40: 20, 50: 10}

	cfg := testConfig()
	cfg.FromBlock = 0
	cfg.ToBlock = 100

	rows, err := New(reader, nil).Trace(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, []SampleResult{
		{Block: "10", Value: "10"},
		{Block: "40", Value: "20"},
		{Block: "50", Value: "10"},
	}, rows)
}

func TestTracer_TraceBlocks(t *testing.T) {
	reader := newFakeReader()
	reader.values = map[uint64]int64{5: 1, 6: 2}

	rows, err := New(reader, nil).TraceBlocks(context.Background(), testConfig(), []uint64{5, 6}, nil)
	require.NoError(t, err)

	assert.Equal(t, []SampleResult{
		{Block: "5", Value: "1"},
		{Block: "6", Value: "2"},
	}, rows)
	// Scanner 阶段被跳过
	assert.Empty(t, reader.queries)
}
