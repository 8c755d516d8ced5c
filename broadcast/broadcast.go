// broadcast/broadcast.go
package broadcast

import (
	"sync"

	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/network"
)

// ConnectionSource 提供当前已注册连接的副本（由 session.Registry 实现）
type ConnectionSource interface {
	Connections() []network.Connection
}

// Recorder 广播相关指标（由 monitor.Monitor 实现）
type Recorder interface {
	IncBroadcasts()
	AddFramesDropped(n int)
}

// Broadcaster 全量状态广播器。
// 同一时刻只有一个广播在入队，版本低于上次已发出的快照直接丢弃，
// 保证每个连接收到的状态版本单调不减。
type Broadcaster struct {
	source      ConnectionSource
	recorder    Recorder
	mu          sync.Mutex
	lastVersion uint64
}

func NewBroadcaster(source ConnectionSource, recorder Recorder) *Broadcaster {
	return &Broadcaster{source: source, recorder: recorder}
}

// Broadcast 序列化一次，把同一份字节发给所有就绪连接。
// 未就绪、已关闭或发送队列已满的连接直接跳过，不重试。
func (b *Broadcaster) Broadcast(gs models.GameState) {
	data, err := network.EncodeState(gs)
	if err != nil {
		logger.Log.Errorw("failed to encode game state", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if gs.Version < b.lastVersion {
		return
	}
	b.lastVersion = gs.Version

	dropped := 0
	for _, conn := range b.source.Connections() {
		if !conn.Ready() {
			continue
		}
		if err := conn.Send(data); err != nil {
			dropped++
			logger.Log.Debugw("broadcast frame skipped", "remote", conn.RemoteAddr(), "error", err)
		}
	}

	if b.recorder != nil {
		b.recorder.IncBroadcasts()
		if dropped > 0 {
			b.recorder.AddFramesDropped(dropped)
		}
	}
}
