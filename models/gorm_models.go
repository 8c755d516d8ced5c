// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionRecord 一次连接会话的记录（加入、离开、移动次数、最终位置）
type SessionRecord struct {
	gorm.Model
	PlayerID   string     `gorm:"uniqueIndex;not null" json:"player_id"`
	Kind       string     `gorm:"not null" json:"kind"`
	RemoteAddr string     `json:"remote_addr"`
	JoinedAt   time.Time  `gorm:"not null" json:"joined_at"`
	LeftAt     *time.Time `json:"left_at,omitempty"`
	Moves      int        `gorm:"default:0" json:"moves"`
	FinalX     int        `json:"final_x"`
	FinalY     int        `json:"final_y"`
}

// Closed reports whether the session has ended.
func (r *SessionRecord) Closed() bool {
	return r.LeftAt != nil
}
