package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/gridserver/logger"
	"github.com/wfunc/gridserver/models"
	"github.com/wfunc/gridserver/persistence"
)

type journalOp int

const (
	opJoin journalOp = iota
	opLeave
)

type journalJob struct {
	op  journalOp
	rec models.SessionRecord
}

// Recorder 异步写入会话记录，存储延迟或失败都不会阻塞游戏循环。队列满时丢弃。
type Recorder struct {
	db      persistence.Database
	queue   chan journalJob
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewRecorder(db persistence.Database, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		db:      db,
		queue:   make(chan journalJob, buffer),
		timeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) Joined(rec models.SessionRecord) {
	r.enqueue(journalJob{op: opJoin, rec: rec})
}

func (r *Recorder) Left(rec models.SessionRecord) {
	r.enqueue(journalJob{op: opLeave, rec: rec})
}

func (r *Recorder) enqueue(job journalJob) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- job:
	default:
		logger.Log.Warnw("session journal queue full, dropping record", "player", job.rec.PlayerID)
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for job := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		var err error
		switch job.op {
		case opJoin:
			err = r.db.RecordJoin(ctx, job.rec)
		case opLeave:
			err = r.db.RecordLeave(ctx, job.rec)
		}
		cancel()
		if err != nil {
			logger.Log.Errorw("failed to write session record", "player", job.rec.PlayerID, "error", err)
		}
	}
}

// Recent 读取最近的会话记录
func (r *Recorder) Recent(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	return r.db.RecentSessions(ctx, limit)
}

// Close 停止接收新记录并等待队列写完
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}
