package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/timer"
)

var ErrSidecarTimeout = errors.New("fleet sidecar call timed out")

// Recorder 记录 sidecar 调用失败（由 monitor.Monitor 实现）
type Recorder interface {
	IncFleetError(call string)
}

type Options struct {
	HealthInterval    time.Duration
	HealthTimeout     time.Duration
	IdleShutdownDelay time.Duration
	PlayerCapacity    int64
}

// Adapter 向编排系统汇报就绪、健康与玩家数，并在空服持续 IdleShutdownDelay 后请求关闭。
// 除启动握手外，所有 sidecar 调用失败只记录日志，不影响游戏状态。
type Adapter struct {
	sdk      SDK
	timers   *timer.TimerManager
	opts     Options
	recorder Recorder

	mu         sync.Mutex
	count      int64
	idleTimer  int64
	generation uint64

	shutdownRequested atomic.Bool
	healthInFlight    atomic.Bool
}

func NewAdapter(sdk SDK, timers *timer.TimerManager, opts Options, recorder Recorder) *Adapter {
	return &Adapter{
		sdk:      sdk,
		timers:   timers,
		opts:     opts,
		recorder: recorder,
	}
}

// Start 完成启动握手（ready）。失败时进程应退出。
func (a *Adapter) Start() error {
	if err := a.sdk.Ready(); err != nil {
		a.fail("ready", err)
		return fmt.Errorf("mark server ready: %w", err)
	}
	logger.Log.Info("server marked as ready")
	return nil
}

// Run 按固定间隔发送健康心跳，直到 ctx 结束
func (a *Adapter) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.ping(ctx); err != nil {
				a.fail("health", err)
				logger.Log.Warnw("failed to send health ping", "error", err)
			}
		}
	}
}

// ping 单次心跳，受 HealthTimeout 约束；上一次调用未返回时跳过本次
func (a *Adapter) ping(ctx context.Context) error {
	if !a.healthInFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("previous health ping still pending: %w", ErrSidecarTimeout)
	}

	done := make(chan error, 1)
	go func() {
		defer a.healthInFlight.Store(false)
		done <- a.sdk.Health()
	}()

	ctx, cancel := context.WithTimeout(ctx, a.opts.HealthTimeout)
	defer cancel()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ErrSidecarTimeout
	}
}

// PlayerJoined 本地计数加一并取消待执行的空服检查，然后上报容量与玩家
func (a *Adapter) PlayerJoined(id models.PlayerID) {
	a.mu.Lock()
	a.count++
	count := a.count
	a.cancelIdleLocked()
	a.mu.Unlock()

	if err := a.sdk.SetPlayerCapacity(a.opts.PlayerCapacity); err != nil {
		a.fail("set_player_capacity", err)
		logger.Log.Errorw("failed to set player capacity", "error", err)
	}
	if _, err := a.sdk.PlayerConnect(string(id)); err != nil {
		a.fail("player_connect", err)
		logger.Log.Errorw("failed to update player count", "player", id, "error", err)
		return
	}
	a.logOrchestratorCount("player connected", id, count)
}

// PlayerLeft 本地计数减一，归零时安排一次延迟检查
func (a *Adapter) PlayerLeft(id models.PlayerID) {
	a.mu.Lock()
	if a.count > 0 {
		a.count--
	}
	count := a.count
	if count == 0 {
		a.armIdleLocked()
	}
	a.mu.Unlock()

	if _, err := a.sdk.PlayerDisconnect(string(id)); err != nil {
		a.fail("player_disconnect", err)
		logger.Log.Errorw("failed to update player disconnect", "player", id, "error", err)
		return
	}
	a.logOrchestratorCount("player disconnected", id, count)
}

func (a *Adapter) logOrchestratorCount(msg string, id models.PlayerID, local int64) {
	remote, err := a.sdk.GetPlayerCount()
	if err != nil {
		a.fail("get_player_count", err)
		logger.Log.Warnw("failed to read player count", "error", err)
		return
	}
	logger.Log.Infow(msg, "player", id, "players", local, "orchestrator_players", remote)
}

func (a *Adapter) armIdleLocked() {
	a.cancelIdleLocked()
	gen := a.generation
	a.idleTimer = a.timers.AddTimer(a.opts.IdleShutdownDelay, 0, func() { a.idleCheck(gen) })
	logger.Log.Infow("no players connected, idle shutdown armed", "delay", a.opts.IdleShutdownDelay)
}

func (a *Adapter) cancelIdleLocked() {
	a.generation++
	if a.idleTimer != 0 {
		a.timers.RemoveTimer(a.idleTimer)
		a.idleTimer = 0
	}
}

// idleCheck 延迟到期后重新读取计数，只有仍为零且未被新的事件取代时才请求关闭
func (a *Adapter) idleCheck(gen uint64) {
	a.mu.Lock()
	if gen != a.generation || a.count != 0 {
		a.mu.Unlock()
		return
	}
	a.idleTimer = 0
	a.mu.Unlock()

	a.RequestShutdown()
}

// RequestShutdown 请求编排系统关闭本进程，至多成功发出一次
func (a *Adapter) RequestShutdown() {
	if !a.shutdownRequested.CompareAndSwap(false, true) {
		return
	}
	logger.Log.Info("no players connected, shutting down server")
	if err := a.sdk.Shutdown(); err != nil {
		a.shutdownRequested.Store(false)
		a.fail("shutdown", err)
		logger.Log.Errorw("failed to request shutdown", "error", err)
	}
}

// Count 本地跟踪的玩家数
func (a *Adapter) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

func (a *Adapter) ShutdownRequested() bool {
	return a.shutdownRequested.Load()
}

func (a *Adapter) fail(call string, err error) {
	if a.recorder != nil && err != nil {
		a.recorder.IncFleetError(call)
	}
}
