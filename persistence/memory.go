package persistence

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/wfunc/gridserver/models"
)

// DefaultMemoryLimit 内存记录默认保留的已结束会话数
const DefaultMemoryLimit = 1000

// Memory 进程内实现，未配置数据库时使用。
// 已结束的会话最多保留 limit 条，超出时按离开顺序淘汰最早的；进行中的会话不淘汰。
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.SessionRecord
	closed  *list.List // 已结束会话的 PlayerID，按离开顺序
	limit   int
	nextID  uint
}

func NewMemory() *Memory {
	return NewMemoryWithLimit(DefaultMemoryLimit)
}

func NewMemoryWithLimit(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Memory{
		records: make(map[string]*models.SessionRecord),
		closed:  list.New(),
		limit:   limit,
	}
}

func (m *Memory) RecordJoin(ctx context.Context, rec models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.records[rec.PlayerID] = &rec
	return nil
}

func (m *Memory) RecordLeave(ctx context.Context, rec models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[rec.PlayerID]
	if !ok {
		return ErrRecordNotFound
	}
	wasClosed := existing.Closed()
	existing.LeftAt = rec.LeftAt
	existing.Moves = rec.Moves
	existing.FinalX = rec.FinalX
	existing.FinalY = rec.FinalY

	if !wasClosed && existing.Closed() {
		m.closed.PushBack(rec.PlayerID)
		m.evictLocked()
	}
	return nil
}

func (m *Memory) evictLocked() {
	for m.closed.Len() > m.limit {
		front := m.closed.Front()
		id := m.closed.Remove(front).(string)
		// 同一标识可能已被新会话复用
		if r, ok := m.records[id]; ok && r.Closed() {
			delete(m.records, id)
		}
	}
}

// Len 当前保留的记录数
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]models.SessionRecord, 0, len(m.records))
	for _, r := range m.records {
		recs = append(recs, *r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].JoinedAt.Equal(recs[j].JoinedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].JoinedAt.After(recs[j].JoinedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *Memory) Close() error {
	return nil
}
