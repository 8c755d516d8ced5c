package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/gridserver/timer"
)

// MockSDK records sidecar calls and can be told to fail or block.
type MockSDK struct {
	mu          sync.Mutex
	ready       int
	health      int
	shutdowns   int
	capacity    int64
	connects    []string
	disconnects []string
	readyErr    error
	connectErr  error
	shutdownErr error
	healthBlock chan struct{}
	playerCount int64
}

func (m *MockSDK) Ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready++
	return m.readyErr
}

func (m *MockSDK) Health() error {
	m.mu.Lock()
	block := m.healthBlock
	m.health++
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	return nil
}

func (m *MockSDK) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
	return m.shutdownErr
}

func (m *MockSDK) SetPlayerCapacity(capacity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = capacity
	return nil
}

func (m *MockSDK) PlayerConnect(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return false, m.connectErr
	}
	m.connects = append(m.connects, id)
	m.playerCount++
	return true, nil
}

func (m *MockSDK) PlayerDisconnect(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects = append(m.disconnects, id)
	m.playerCount--
	return true, nil
}

func (m *MockSDK) GetPlayerCount() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerCount, nil
}

func (m *MockSDK) Shutdowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdowns
}

func (m *MockSDK) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

type countingRecorder struct {
	mu     sync.Mutex
	errors map[string]int
}

func (r *countingRecorder) IncFleetError(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errors == nil {
		r.errors = make(map[string]int)
	}
	r.errors[call]++
}

func (r *countingRecorder) Count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors[call]
}

const testIdleDelay = 80 * time.Millisecond

func newTestAdapter(t *testing.T, sdk SDK, rec Recorder) *Adapter {
	t.Helper()
	timers := timer.NewTimerManager(5 * time.Millisecond)
	t.Cleanup(timers.Stop)
	return NewAdapter(sdk, timers, Options{
		HealthInterval:    20 * time.Millisecond,
		HealthTimeout:     10 * time.Millisecond,
		IdleShutdownDelay: testIdleDelay,
		PlayerCapacity:    10,
	}, rec)
}

func TestAdapter_StartReportsReady(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sdk.ready != 1 {
		t.Errorf("expected one ready call, got %d", sdk.ready)
	}
}

func TestAdapter_StartFailureIsReturned(t *testing.T) {
	boom := errors.New("sidecar unavailable")
	rec := &countingRecorder{}
	a := newTestAdapter(t, &MockSDK{readyErr: boom}, rec)
	if err := a.Start(); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped ready error, got %v", err)
	}
	if rec.Count("ready") != 1 {
		t.Error("expected ready failure to be recorded")
	}
}

func TestAdapter_JoinReportsCapacityAndPlayer(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)

	a.PlayerJoined("p1")
	a.PlayerJoined("p2")
	a.PlayerLeft("p1")

	if sdk.capacity != 10 {
		t.Errorf("expected capacity 10, got %d", sdk.capacity)
	}
	if len(sdk.connects) != 2 || len(sdk.disconnects) != 1 || sdk.disconnects[0] != "p1" {
		t.Errorf("unexpected calls: connects=%v disconnects=%v", sdk.connects, sdk.disconnects)
	}
	if a.Count() != 1 {
		t.Errorf("expected tracked count 1, got %d", a.Count())
	}
}

func TestAdapter_SidecarFailureDoesNotAffectCount(t *testing.T) {
	rec := &countingRecorder{}
	a := newTestAdapter(t, &MockSDK{connectErr: errors.New("rpc down")}, rec)

	a.PlayerJoined("p1")
	if a.Count() != 1 {
		t.Errorf("expected local count to track the join, got %d", a.Count())
	}
	if rec.Count("player_connect") != 1 {
		t.Error("expected player_connect failure to be recorded")
	}
}

func TestAdapter_IdleShutdownFiresOnce(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)

	a.PlayerJoined("p1")
	a.PlayerLeft("p1")
	// 再次归零的重复事件不能导致重复关闭
	a.PlayerLeft("p1")

	time.Sleep(testIdleDelay / 2)
	if sdk.Shutdowns() != 0 {
		t.Fatal("shutdown requested before the idle delay elapsed")
	}

	time.Sleep(3 * testIdleDelay)
	if got := sdk.Shutdowns(); got != 1 {
		t.Fatalf("expected exactly one shutdown request, got %d", got)
	}
	if !a.ShutdownRequested() {
		t.Error("adapter should report shutdown requested")
	}

	a.RequestShutdown()
	if got := sdk.Shutdowns(); got != 1 {
		t.Errorf("shutdown must be idempotent, got %d calls", got)
	}
}

func TestAdapter_JoinDuringDelayPreventsShutdown(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)

	a.PlayerJoined("p1")
	a.PlayerLeft("p1")
	time.Sleep(testIdleDelay / 2)
	a.PlayerJoined("p2")

	time.Sleep(3 * testIdleDelay)
	if got := sdk.Shutdowns(); got != 0 {
		t.Fatalf("expected no shutdown after a join, got %d", got)
	}
}

func TestAdapter_RearmUsesLatestDeadline(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)

	a.PlayerJoined("p1")
	a.PlayerLeft("p1")
	time.Sleep(testIdleDelay / 2)
	a.PlayerJoined("p2")
	a.PlayerLeft("p2")

	// 第一次计时的截止时间已过，但第二次尚未到期
	time.Sleep(testIdleDelay*3/4 - 10*time.Millisecond)
	if got := sdk.Shutdowns(); got != 0 {
		t.Fatalf("superseded idle check fired early: %d", got)
	}

	time.Sleep(2 * testIdleDelay)
	if got := sdk.Shutdowns(); got != 1 {
		t.Fatalf("expected one shutdown after the re-armed delay, got %d", got)
	}
}

func TestAdapter_FailedShutdownCanRetry(t *testing.T) {
	sdk := &MockSDK{shutdownErr: errors.New("unavailable")}
	a := newTestAdapter(t, sdk, nil)

	a.RequestShutdown()
	if a.ShutdownRequested() {
		t.Fatal("failed shutdown should not latch")
	}
	sdk.mu.Lock()
	sdk.shutdownErr = nil
	sdk.mu.Unlock()

	a.RequestShutdown()
	if !a.ShutdownRequested() || sdk.Shutdowns() != 2 {
		t.Errorf("expected retry to succeed, shutdowns=%d", sdk.Shutdowns())
	}
}

func TestAdapter_RunSendsHealthPings(t *testing.T) {
	sdk := &MockSDK{}
	a := newTestAdapter(t, sdk, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()

	time.Sleep(110 * time.Millisecond)
	cancel()
	<-done

	if got := sdk.HealthCalls(); got < 3 {
		t.Errorf("expected several health pings, got %d", got)
	}
}

func TestAdapter_HungHealthPingTimesOut(t *testing.T) {
	block := make(chan struct{})
	sdk := &MockSDK{healthBlock: block}
	rec := &countingRecorder{}
	a := newTestAdapter(t, sdk, rec)
	defer close(block)

	err := a.ping(context.Background())
	if !errors.Is(err, ErrSidecarTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	// 上一次仍未返回时不再堆积新的调用
	err = a.ping(context.Background())
	if !errors.Is(err, ErrSidecarTimeout) {
		t.Fatalf("expected pending ping to be reported, got %v", err)
	}
	if got := sdk.HealthCalls(); got != 1 {
		t.Errorf("expected a single in-flight health call, got %d", got)
	}
}
