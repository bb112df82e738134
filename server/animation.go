package server

import (
	"math"
	"time"
)

// DefaultFrameInterval 动画帧间隔
const DefaultFrameInterval = 150 * time.Millisecond

// Animator 按固定节奏推进移动中实体的动画帧。
// 每个实体独立累计时间，与 Tick 频率无关。
type Animator struct {
	intervalMs float64
	acc        map[EntityID]float64
}

// NewAnimator 创建动画调度器；interval <= 0 时使用默认值
func NewAnimator(interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Animator{
		intervalMs: float64(interval) / float64(time.Millisecond),
		acc:        make(map[EntityID]float64),
	}
}

// SetInterval 热更新帧间隔，已累计的时间保留
func (a *Animator) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	a.intervalMs = float64(interval) / float64(time.Millisecond)
}

// Interval 当前帧间隔
func (a *Animator) Interval() time.Duration {
	return time.Duration(a.intervalMs * float64(time.Millisecond))
}

// Advance 累计 elapsedMs 并为跨过阈值的实体生成 UPDATE_ANIMATION。
// 静止实体不推进、不复位帧号，其累计时间清零。
func (a *Animator) Advance(s *GameState, elapsedMs float64) []Action {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	var out []Action
	seen := make(map[EntityID]struct{}, len(s.Enemies)+1)

	step := func(e MovableEntity) {
		seen[e.ID] = struct{}{}
		if !e.IsMoving {
			delete(a.acc, e.ID)
			return
		}
		acc := a.acc[e.ID] + elapsedMs
		steps := int(math.Floor(acc / a.intervalMs))
		if steps <= 0 {
			a.acc[e.ID] = acc
			return
		}
		a.acc[e.ID] = acc - float64(steps)*a.intervalMs
		out = append(out, UpdateAnimation(e.ID, wrapFrame(e.CurrentFrame+steps, e.FrameCount())))
	}

	step(s.Player)
	for _, e := range s.Enemies {
		step(e)
	}
	for id := range a.acc {
		if _, ok := seen[id]; !ok {
			delete(a.acc, id)
		}
	}
	return out
}

// Pending 返回实体当前累计的毫秒数（测试与指标用）
func (a *Animator) Pending(id EntityID) float64 {
	return a.acc[id]
}
