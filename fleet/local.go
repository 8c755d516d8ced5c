package fleet

import (
	"errors"
	"sync"

	"github.com/wfunc/gridserver/logger"
)

var ErrAtCapacity = errors.New("player capacity reached")

// LocalSDK 进程内的 sidecar 实现，用于脱离编排系统运行。
// Shutdown 时调用 onShutdown（通常是取消主 context）。
type LocalSDK struct {
	mu         sync.Mutex
	ready      bool
	healthPing int64
	capacity   int64
	players    map[string]struct{}
	shutdown   bool
	onShutdown func()
}

func NewLocalSDK(onShutdown func()) *LocalSDK {
	return &LocalSDK{
		players:    make(map[string]struct{}),
		onShutdown: onShutdown,
	}
}

func (l *LocalSDK) Ready() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready = true
	logger.Log.Info("local sidecar: ready")
	return nil
}

func (l *LocalSDK) Health() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.healthPing++
	return nil
}

func (l *LocalSDK) Shutdown() error {
	l.mu.Lock()
	already := l.shutdown
	l.shutdown = true
	cb := l.onShutdown
	l.mu.Unlock()

	if already {
		return nil
	}
	logger.Log.Info("local sidecar: shutdown requested")
	if cb != nil {
		cb()
	}
	return nil
}

func (l *LocalSDK) SetPlayerCapacity(capacity int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.capacity = capacity
	return nil
}

func (l *LocalSDK) PlayerConnect(playerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.players[playerID]; exists {
		return false, nil
	}
	if l.capacity > 0 && int64(len(l.players)) >= l.capacity {
		return false, ErrAtCapacity
	}
	l.players[playerID] = struct{}{}
	return true, nil
}

func (l *LocalSDK) PlayerDisconnect(playerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.players[playerID]; !exists {
		return false, nil
	}
	delete(l.players, playerID)
	return true, nil
}

func (l *LocalSDK) GetPlayerCount() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.players)), nil
}

// IsReady reports whether Ready has been called.
func (l *LocalSDK) IsReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// HealthPings returns how many health pings were received.
func (l *LocalSDK) HealthPings() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.healthPing
}

// IsShutdown reports whether Shutdown has been called.
func (l *LocalSDK) IsShutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shutdown
}
