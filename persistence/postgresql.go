// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/gridserver/models"
)

// PostgreSQL 基于 database/sql + lib/pq 的实现，表结构与 GORM 版本一致
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(opts PostgresOptions) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS session_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            player_id TEXT UNIQUE NOT NULL,
            kind TEXT NOT NULL,
            remote_addr TEXT,
            joined_at TIMESTAMPTZ NOT NULL,
            left_at TIMESTAMPTZ,
            moves BIGINT DEFAULT 0,
            final_x BIGINT,
            final_y BIGINT
        )
    `)
	return err
}

func (p *PostgreSQL) RecordJoin(ctx context.Context, rec models.SessionRecord) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO session_records (player_id, kind, remote_addr, joined_at, moves, final_x, final_y)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.PlayerID, rec.Kind, rec.RemoteAddr, rec.JoinedAt, rec.Moves, rec.FinalX, rec.FinalY,
	)
	return err
}

func (p *PostgreSQL) RecordLeave(ctx context.Context, rec models.SessionRecord) error {
	res, err := p.db.ExecContext(ctx, `
        UPDATE session_records
        SET left_at = $2, moves = $3, final_x = $4, final_y = $5, updated_at = CURRENT_TIMESTAMP
        WHERE player_id = $1 AND deleted_at IS NULL`,
		rec.PlayerID, rec.LeftAt, rec.Moves, rec.FinalX, rec.FinalY,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *PostgreSQL) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT id, player_id, kind, COALESCE(remote_addr, ''), joined_at, left_at, moves,
               COALESCE(final_x, 0), COALESCE(final_y, 0)
        FROM session_records
        WHERE deleted_at IS NULL
        ORDER BY joined_at DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []models.SessionRecord
	for rows.Next() {
		var rec models.SessionRecord
		var leftAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.Kind, &rec.RemoteAddr, &rec.JoinedAt,
			&leftAt, &rec.Moves, &rec.FinalX, &rec.FinalY); err != nil {
			return nil, err
		}
		if leftAt.Valid {
			t := leftAt.Time
			rec.LeftAt = &t
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
