// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/gridserver/models"
)

// Database 会话记录存储
type Database interface {
	// RecordJoin 写入一条新会话
	RecordJoin(ctx context.Context, rec models.SessionRecord) error
	// RecordLeave 按 PlayerID 补全离开时间、移动次数与最终位置
	RecordLeave(ctx context.Context, rec models.SessionRecord) error
	// RecentSessions 按加入时间倒序返回最近的会话
	RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// PostgresOptions 连接参数
type PostgresOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN 组装 key=value 形式的连接串，lib/pq 与 pgx 都能识别
func (o PostgresOptions) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		o.Host, o.Port, o.User, o.Password, o.DBName)
}
