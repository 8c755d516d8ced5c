package session

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/wfunc/gridserver/models"
)

// IDGenerator 生成玩家标识。Registry 会对结果做存活冲突检查。
type IDGenerator interface {
	NewID() models.PlayerID
}

// UUIDGenerator 随机 UUIDv4
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() models.PlayerID {
	return models.PlayerID(uuid.NewString())
}

// CounterGenerator 单调递增，构造上保证唯一
type CounterGenerator struct {
	Prefix string
	next   atomic.Uint64
}

func (g *CounterGenerator) NewID() models.PlayerID {
	return models.PlayerID(fmt.Sprintf("%s%d", g.Prefix, g.next.Add(1)))
}
