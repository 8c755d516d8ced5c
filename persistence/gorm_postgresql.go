// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/wfunc/gridserver/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(opts PostgresOptions) (*GormPostgreSQL, error) {
	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second, // 慢SQL阈值
			LogLevel:      logger.Warn, // 日志级别
			Colorful:      false,       // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(opts.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.SessionRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) RecordJoin(ctx context.Context, rec models.SessionRecord) error {
	return p.db.WithContext(ctx).Create(&rec).Error
}

func (p *GormPostgreSQL) RecordLeave(ctx context.Context, rec models.SessionRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SessionRecord
		if err := tx.Where("player_id = ?", rec.PlayerID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&existing).Updates(map[string]interface{}{
			"left_at": rec.LeftAt,
			"moves":   rec.Moves,
			"final_x": rec.FinalX,
			"final_y": rec.FinalY,
		}).Error
	})
}

func (p *GormPostgreSQL) RecentSessions(ctx context.Context, limit int) ([]models.SessionRecord, error) {
	var recs []models.SessionRecord
	err := p.db.WithContext(ctx).Order("joined_at desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
