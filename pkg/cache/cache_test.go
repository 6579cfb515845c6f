package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	blocks := []uint64{100, 250, 500}
	require.NoError(t, c.Set(ctx, "k", blocks, time.Minute))

	var got []uint64
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, blocks, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.Error(t, c.Get(ctx, "k", &got))
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	var got []uint64
	assert.ErrorIs(t, c.Get(context.Background(), "missing", &got), ErrMiss)
}

func TestMultiLevelCache_BackfillsLocal(t *testing.T) {
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewMemoryCache(time.Minute, time.Minute)
	ml := NewMultiLevelCache(local, remote)
	ctx := context.Background()

	// 只写 L2, 模拟其他实例留下的共享结果
	require.NoError(t, remote.Set(ctx, "k", []uint64{1, 2}, time.Minute))

	var got []uint64
	require.NoError(t, ml.Get(ctx, "k", &got))
	assert.Equal(t, []uint64{1, 2}, got)

	// L2 命中应回写到 L1
	var local1 []uint64
	assert.NoError(t, local.Get(ctx, "k", &local1))
}

func TestScanKey(t *testing.T) {
	k1 := ScanKey("0xAbC", []string{"Transfer(address,address,uint256)"}, 0, 600, 500)
	k2 := ScanKey("0xabc", []string{"Transfer(address,address,uint256)"}, 0, 600, 500)
	k3 := ScanKey("0xabc", []string{"Approval(address,address,uint256)"}, 0, 600, 500)

	// 地址大小写不敏感；事件集合不同则键不同
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k2, k3)
}
