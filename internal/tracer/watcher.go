package tracer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/pkg/errno"
	"state-tracer/pkg/monitor"
)

const (
	// DefaultMaxRetries watch 模式下单次取值的最大尝试次数
	DefaultMaxRetries = 3

	defaultRetryDelay     = 1 * time.Second
	defaultReconnectDelay = 5 * time.Second
)

// ChangeFunc 值变化回调。首个变化的 prev 可能为 nil (启动时播种失败)。
type ChangeFunc func(prev, curr *SampleResult)

// WatchOptions 调整一次 watch 的行为，零值即默认行为。
type WatchOptions struct {
	// Filter 显著性过滤：返回 false 时只跳过回调，"当前值"照常推进。
	Filter func(prev, curr *SampleResult) bool
	// OnError receives every contained failure. nil = log via the watcher's logger.
	OnError func(error)
	// OnReconnect fires after a dropped subscription is re-established.
	OnReconnect func()
	// MaxRetries per value check, linear backoff between attempts. 0 = DefaultMaxRetries.
	MaxRetries int
	// InitialValue seeds the current value, skipping the startup read.
	InitialValue *SampleResult
}

// Watch 是一次活动订阅的句柄。
type Watch struct {
	cancel   context.CancelFunc
	done     chan struct{}
	watching atomic.Bool
}

// Stop cancels the watch. In-flight reads are not interrupted, but no
// further work is scheduled once they settle.
func (w *Watch) Stop() {
	w.watching.Store(false)
	w.cancel()
}

// IsWatching reports liveness.
func (w *Watch) IsWatching() bool { return w.watching.Load() }

// Done closes once the watch loop has fully exited.
func (w *Watch) Done() <-chan struct{} { return w.done }

// Watcher 订阅目标地址的事件，在每条日志处发生处重新读取变量，
// 与最近一次确认值比较后推送变化通知。
// 错误永远不会终止 watcher：读取失败线性退避重试，
// 订阅断开固定延迟后无限次重连，只有显式 Stop 才会结束。
type Watcher struct {
	reader chain.Reader
	log    *zap.Logger

	// 测试中缩短
	retryDelay     time.Duration
	reconnectDelay time.Duration
}

func NewWatcher(reader chain.Reader, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		reader:         reader,
		log:            log,
		retryDelay:     defaultRetryDelay,
		reconnectDelay: defaultReconnectDelay,
	}
}

// Watch validates the config, resolves the read method, then starts the
// watch loop in the background. Config and method errors surface here,
// before any network activity.
func (w *Watcher) Watch(ctx context.Context, cfg TraceConfig, onChange ChangeFunc, opts WatchOptions) (*Watch, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	method, err := cfg.Method.Resolve()
	if err != nil {
		return nil, err
	}
	callData, err := method.Pack(cfg.Args...)
	if err != nil {
		return nil, err
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}

	ctx, cancel := context.WithCancel(ctx)
	handle := &Watch{cancel: cancel, done: make(chan struct{})}
	handle.watching.Store(true)

	go w.run(ctx, handle, cfg, method, callData, onChange, opts)
	return handle, nil
}

// watchState 只被 run goroutine 触碰，无需加锁
type watchState struct {
	current *SampleResult
}

func (w *Watcher) run(ctx context.Context, handle *Watch, cfg TraceConfig, method *chain.Method, callData []byte, onChange ChangeFunc, opts WatchOptions) {
	defer close(handle.done)
	defer handle.watching.Store(false)

	st := &watchState{current: opts.InitialValue}
	if st.current == nil {
		w.seed(ctx, st, cfg, method, callData, opts)
	}

	q := ethereum.FilterQuery{
		Addresses: []common.Address{cfg.Address},
		Topics:    [][]common.Hash{chain.EventTopics(cfg.Events)},
	}

	first := true
	for ctx.Err() == nil {
		logsCh := make(chan types.Log, 256)
		sub, err := w.reader.SubscribeFilterLogs(ctx, q, logsCh)
		if err != nil {
			w.routeErr(opts, fmt.Errorf("%w: open: %v", errno.ErrSubscription, err))
			if !w.sleep(ctx, w.reconnectDelay) {
				return
			}
			continue
		}

		if !first {
			if monitor.Tracer != nil {
				monitor.Tracer.ReconnectsTotal.Inc()
			}
			w.log.Info("subscription re-established", zap.String("address", cfg.Address.Hex()))
			if opts.OnReconnect != nil {
				w.safeCall(opts, "reconnect callback", opts.OnReconnect)
			}
		}
		first = false

		if !w.consume(ctx, handle, sub, logsCh, st, cfg, method, callData, onChange, opts) {
			return
		}
		// 订阅断开：固定延迟后重连，不设重试上限
		if !w.sleep(ctx, w.reconnectDelay) {
			return
		}
	}
}

// seed fetches the latest block and performs one read to establish the
// starting value. 失败只上报不中止：watch 以 current = nil 继续。
func (w *Watcher) seed(ctx context.Context, st *watchState, cfg TraceConfig, method *chain.Method, callData []byte, opts WatchOptions) {
	bn, err := w.reader.BlockNumber(ctx)
	if err != nil {
		w.routeErr(opts, fmt.Errorf("seed initial value: %w", err))
		return
	}
	value, err := w.readValue(ctx, cfg.Address, method, callData, bn)
	if err != nil {
		w.routeErr(opts, fmt.Errorf("seed initial value at block %d: %w", bn, err))
		return
	}
	st.current = &SampleResult{Block: strconv.FormatUint(bn, 10), Value: value}
}

// consume runs one subscription cycle. Returns false when the watch is done,
// true when the subscription dropped and should be re-established.
func (w *Watcher) consume(ctx context.Context, handle *Watch, sub ethereum.Subscription, logsCh chan types.Log, st *watchState, cfg TraceConfig, method *chain.Method, callData []byte, onChange ChangeFunc, opts WatchOptions) bool {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return false

		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			w.routeErr(opts, fmt.Errorf("%w: %v", errno.ErrSubscription, err))
			return true

		case lg := <-logsCh:
			// 订阅可能乱序送达，聚合后按区块号升序串行处理，
			// 保证 current 的更新与区块顺序因果一致
			batch := drainLogs(logsCh, lg)
			for _, l := range batch {
				if !handle.IsWatching() || ctx.Err() != nil {
					return false
				}
				w.check(ctx, handle, st, l.BlockNumber, cfg, method, callData, onChange, opts)
			}
		}
	}
}

// check re-reads the variable at the log's block and notifies on change.
func (w *Watcher) check(ctx context.Context, handle *Watch, st *watchState, bn uint64, cfg TraceConfig, method *chain.Method, callData []byte, onChange ChangeFunc, opts WatchOptions) {
	value, err := w.readWithRetry(ctx, handle, cfg.Address, method, callData, bn, opts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.routeErr(opts, err)
		}
		return
	}

	if st.current != nil && st.current.Value == value {
		w.log.Debug("value unchanged", zap.Uint64("block", bn))
		return
	}

	prev := st.current
	curr := &SampleResult{Block: strconv.FormatUint(bn, 10), Value: value}
	// current 先推进再过滤：被过滤掉的值不会在后续比较中再次触发通知
	st.current = curr

	if opts.Filter != nil && !opts.Filter(prev, curr) {
		w.log.Debug("change filtered out", zap.Uint64("block", bn), zap.String("value", value))
		return
	}

	if monitor.Tracer != nil {
		monitor.Tracer.ChangeEventsTotal.Inc()
	}
	w.safeCall(opts, "change callback", func() { onChange(prev, curr) })
}

// readWithRetry 有界重试循环：第 n 次失败后等待 n × retryDelay (线性退避)。
func (w *Watcher) readWithRetry(ctx context.Context, handle *Watch, addr common.Address, method *chain.Method, callData []byte, bn uint64, opts WatchOptions) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 1 {
			if monitor.Tracer != nil {
				monitor.Tracer.ReadRetriesTotal.Inc()
			}
			if !w.sleep(ctx, time.Duration(attempt-1)*w.retryDelay) {
				return "", context.Canceled
			}
			if !handle.IsWatching() {
				return "", context.Canceled
			}
		}

		value, err := w.readValue(ctx, addr, method, callData, bn)
		if err == nil {
			return value, nil
		}
		lastErr = err
		w.log.Warn("value check failed",
			zap.Uint64("block", bn),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return "", fmt.Errorf("%w: block %d after %d attempts: %v", errno.ErrTransientRead, bn, opts.MaxRetries, lastErr)
}

func (w *Watcher) readValue(ctx context.Context, addr common.Address, method *chain.Method, callData []byte, bn uint64) (string, error) {
	out, err := w.reader.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: callData}, new(big.Int).SetUint64(bn))
	if err != nil {
		return "", err
	}
	v, err := method.UnpackValue(out)
	if err != nil {
		return "", err
	}
	return decimal.NewFromBigInt(v, 0).String(), nil
}

// routeErr 是唯一的错误汇聚点：包上下文后交给调用方回调，
// 没有回调就走注入的 logger，绝不让错误冒泡杀死 watcher。
func (w *Watcher) routeErr(opts WatchOptions, err error) {
	if opts.OnError == nil {
		w.log.Error("watch error", zap.Error(err))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("error callback panicked", zap.Any("panic", r))
		}
	}()
	opts.OnError(err)
}

// safeCall 隔离调用方回调的 panic，不影响 watcher 存活
func (w *Watcher) safeCall(opts WatchOptions, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.routeErr(opts, fmt.Errorf("%w: %s: %v", errno.ErrCallback, name, r))
		}
	}()
	fn()
}

// sleep waits for d unless the context is cancelled first.
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// drainLogs 把当前已送达的日志聚成一批并按区块号升序排序
func drainLogs(ch <-chan types.Log, first types.Log) []types.Log {
	batch := []types.Log{first}
	for {
		select {
		case lg := <-ch:
			batch = append(batch, lg)
		default:
			sort.Slice(batch, func(i, j int) bool { return batch[i].BlockNumber < batch[j].BlockNumber })
			return batch
		}
	}
}
