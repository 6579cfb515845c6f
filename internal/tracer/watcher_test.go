package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"state-tracer/pkg/errno"
)

func newTestWatcher(reader *fakeReader) *Watcher {
	w := NewWatcher(reader, nil)
	w.retryDelay = time.Millisecond
	w.reconnectDelay = 5 * time.Millisecond
	return w
}

func waitSub(t *testing.T, reader *fakeReader) *fakeSub {
	t.Helper()
	select {
	case sub := <-reader.subCh:
		return sub
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not established")
		return nil
	}
}

type change struct {
	prev *SampleResult
	curr *SampleResult
}

func collectChanges() (ChangeFunc, chan change) {
	ch := make(chan change, 16)
	return func(prev, curr *SampleResult) { ch <- change{prev, curr} }, ch
}

func expectChange(t *testing.T, ch chan change) change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
		return change{}
	}
}

func expectNoChange(t *testing.T, ch chan change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change notification: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcher_NotifiesOnChange(t *testing.T) {
	reader := newFakeReader()
	reader.values[5] = 42

	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "1"},
	})
	require.NoError(t, err)
	defer handle.Stop()

	sub := waitSub(t, reader)
	sub.push(5)

	c := expectChange(t, changes)
	assert.Equal(t, "1", c.prev.Value)
	assert.Equal(t, SampleResult{Block: "5", Value: "42"}, *c.curr)
}

func TestWatcher_EqualValueSkipped(t *testing.T) {
	reader := newFakeReader()
	reader.values[5] = 1

	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "1"},
	})
	require.NoError(t, err)
	defer handle.Stop()

	waitSub(t, reader).push(5)
	expectNoChange(t, changes)
}

func TestWatcher_RetryThenSucceed(t *testing.T) {
	reader := newFakeReader()
	reader.values[5] = 42
	reader.failReads[5] = 2 // 失败两次后成功，仍在 MaxRetries=3 之内

	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "1"},
		MaxRetries:   3,
	})
	require.NoError(t, err)
	defer handle.Stop()

	waitSub(t, reader).push(5)

	c := expectChange(t, changes)
	assert.Equal(t, "42", c.curr.Value)
	// 恰好一条通知，且恰好读了三次
	expectNoChange(t, changes)
	assert.Equal(t, 3, reader.reads(5))
}

func TestWatcher_RetriesExhausted(t *testing.T) {
	reader := newFakeReader()
	reader.failReads[5] = -1

	errCh := make(chan error, 8)
	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "1"},
		OnError:      func(err error) { errCh <- err },
	})
	require.NoError(t, err)
	defer handle.Stop()

	waitSub(t, reader).push(5)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errno.ErrTransientRead)
	case <-time.After(2 * time.Second):
		t.Fatal("expected routed read error")
	}
	expectNoChange(t, changes)
	assert.Equal(t, 3, reader.reads(5))
}

// 过滤器返回 false 时跳过回调，但"当前值"仍然推进：
// 被过滤掉的值不会在后续比较中再次触发通知。
func TestWatcher_FilterGatesCallbackOnly(t *testing.T) {
	reader := newFakeReader()
	reader.values[2] = 20
	reader.values[3] = 20
	reader.values[4] = 30

	filtered := false
	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "10"},
		Filter: func(prev, curr *SampleResult) bool {
			if curr.Value == "20" && !filtered {
				filtered = true
				return false
			}
			return true
		},
	})
	require.NoError(t, err)
	defer handle.Stop()

	sub := waitSub(t, reader)

	sub.push(2) // 10 → 20, 被过滤：无回调
	expectNoChange(t, changes)

	sub.push(3) // 值仍是 20，等于已推进的当前值：静默跳过
	expectNoChange(t, changes)

	sub.push(4) // 20 → 30, 放行；prev 证明当前值此前已推进到 20
	c := expectChange(t, changes)
	assert.Equal(t, "20", c.prev.Value)
	assert.Equal(t, "30", c.curr.Value)
}

func TestWatcher_SeedsInitialValue(t *testing.T) {
	reader := newFakeReader()
	reader.head = 7
	reader.values[7] = 10
	reader.values[8] = 10
	reader.values[9] = 11

	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{})
	require.NoError(t, err)
	defer handle.Stop()

	sub := waitSub(t, reader)

	sub.push(8) // 与播种值相同
	expectNoChange(t, changes)

	sub.push(9)
	c := expectChange(t, changes)
	require.NotNil(t, c.prev)
	assert.Equal(t, "10", c.prev.Value)
	assert.Equal(t, "11", c.curr.Value)
}

func TestWatcher_Reconnect(t *testing.T) {
	reader := newFakeReader()
	reader.values[5] = 2

	reconnected := make(chan struct{}, 4)
	errCh := make(chan error, 8)
	onChange, changes := collectChanges()
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(), onChange, WatchOptions{
		InitialValue: &SampleResult{Block: "1", Value: "1"},
		OnReconnect:  func() { reconnected <- struct{}{} },
		OnError:      func(err error) { errCh <- err },
	})
	require.NoError(t, err)
	defer handle.Stop()

	sub1 := waitSub(t, reader)
	sub1.fail(errors.New("ws dropped"))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errno.ErrSubscription)
	case <-time.After(2 * time.Second):
		t.Fatal("expected routed subscription error")
	}

	// 延迟后自动重建订阅并回调
	sub2 := waitSub(t, reader)
	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("expected reconnect callback")
	}

	// 新订阅继续工作
	sub2.push(5)
	c := expectChange(t, changes)
	assert.Equal(t, "2", c.curr.Value)
}

func TestWatcher_CallbackPanicIsolated(t *testing.T) {
	reader := newFakeReader()
	reader.values[5] = 2
	reader.values[6] = 3

	errCh := make(chan error, 8)
	calls := make(chan string, 8)
	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(),
		func(prev, curr *SampleResult) {
			calls <- curr.Value
			if curr.Value == "2" {
				panic("boom")
			}
		},
		WatchOptions{
			InitialValue: &SampleResult{Block: "1", Value: "1"},
			OnError:      func(err error) { errCh <- err },
		})
	require.NoError(t, err)
	defer handle.Stop()

	sub := waitSub(t, reader)
	sub.push(5)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errno.ErrCallback)
	case <-time.After(2 * time.Second):
		t.Fatal("expected routed callback error")
	}

	// watcher 存活，继续处理后续日志
	sub.push(6)
	select {
	case v := <-calls:
		assert.Equal(t, "2", v)
	case <-time.After(2 * time.Second):
		t.Fatal("missing first callback")
	}
	select {
	case v := <-calls:
		assert.Equal(t, "3", v)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher died after callback panic")
	}
}

func TestWatcher_Stop(t *testing.T) {
	reader := newFakeReader()

	handle, err := newTestWatcher(reader).Watch(context.Background(), testConfig(),
		func(prev, curr *SampleResult) {}, WatchOptions{
			InitialValue: &SampleResult{Block: "1", Value: "1"},
		})
	require.NoError(t, err)

	waitSub(t, reader)
	assert.True(t, handle.IsWatching())

	handle.Stop()
	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not exit after Stop")
	}
	assert.False(t, handle.IsWatching())
}

func TestWatcher_ConfigErrorsAreFatal(t *testing.T) {
	reader := newFakeReader()
	w := newTestWatcher(reader)

	cfg := testConfig()
	cfg.Events = nil
	_, err := w.Watch(context.Background(), cfg, func(prev, curr *SampleResult) {}, WatchOptions{})
	assert.ErrorIs(t, err, errno.ErrConfig)

	cfg = testConfig()
	cfg.Method.Returns = "bogus"
	_, err = w.Watch(context.Background(), cfg, func(prev, curr *SampleResult) {}, WatchOptions{})
	assert.ErrorIs(t, err, errno.ErrMethodResolution)
}

func TestDrainLogs_SortsByBlock(t *testing.T) {
	ch := make(chan types.Log, 8)
	ch <- types.Log{BlockNumber: 12}
	ch <- types.Log{BlockNumber: 11}

	batch := drainLogs(ch, types.Log{BlockNumber: 13})
	require.Len(t, batch, 3)
	assert.Equal(t, uint64(11), batch[0].BlockNumber)
	assert.Equal(t, uint64(12), batch[1].BlockNumber)
	assert.Equal(t, uint64(13), batch[2].BlockNumber)
}
