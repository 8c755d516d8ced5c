// movement/movement.go
package movement

import (
	"math/rand"

	"github.com/wfunc/gridserver/models"
)

// ParseDirection 校验客户端方向字段，只接受四个已知值
func ParseDirection(raw string) (models.Direction, bool) {
	switch d := models.Direction(raw); d {
	case models.DirUp, models.DirDown, models.DirLeft, models.DirRight:
		return d, true
	default:
		return "", false
	}
}

// Move 沿方向移动一格，越界时停在边界；未知方向不做任何改变
func Move(state models.PlayerState, dir models.Direction) models.PlayerState {
	switch dir {
	case models.DirUp:
		if state.Y > 0 {
			state.Y--
		}
	case models.DirDown:
		if state.Y < models.GridSize-1 {
			state.Y++
		}
	case models.DirLeft:
		if state.X > 0 {
			state.X--
		}
	case models.DirRight:
		if state.X < models.GridSize-1 {
			state.X++
		}
	}
	return state
}

// RandomPosition 在网格内均匀随机选取初始位置
func RandomPosition(rng *rand.Rand, kind models.PlayerKind) models.PlayerState {
	return models.PlayerState{
		X:    rng.Intn(models.GridSize),
		Y:    rng.Intn(models.GridSize),
		Kind: kind,
	}
}
