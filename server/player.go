package server

// EntityID 实体唯一标识（玩家固定为 "player"）
type EntityID string

// PlayerID 玩家实体的固定 ID
const PlayerID EntityID = "player"

// DefaultFrameCount 没有精灵描述时使用的帧数
const DefaultFrameCount = 4

// Position 世界坐标（连续值，像素单位）
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add 返回平移后的坐标
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Direction 8 方向朝向
type Direction string

const (
	DirUp        Direction = "up"
	DirDown      Direction = "down"
	DirLeft      Direction = "left"
	DirRight     Direction = "right"
	DirUpLeft    Direction = "up-left"
	DirUpRight   Direction = "up-right"
	DirDownLeft  Direction = "down-left"
	DirDownRight Direction = "down-right"
)

// Directions 全部朝向，按固定顺序
var Directions = []Direction{
	DirUp, DirDown, DirLeft, DirRight,
	DirUpLeft, DirUpRight, DirDownLeft, DirDownRight,
}

// Valid 是否为已知朝向
func (d Direction) Valid() bool {
	for _, v := range Directions {
		if v == d {
			return true
		}
	}
	return false
}

// SpriteConfig 精灵图描述，核心只关心 FrameCount
type SpriteConfig struct {
	URL              string            `json:"url" yaml:"url"`
	FrameWidth       int               `json:"frameWidth" yaml:"frame_width"`
	FrameHeight      int               `json:"frameHeight" yaml:"frame_height"`
	FrameCount       int               `json:"frameCount" yaml:"frame_count"`
	Scale            float64           `json:"scale,omitempty" yaml:"scale"`
	Directions       map[Direction]int `json:"directions,omitempty" yaml:"directions"`
	DefaultDirection Direction         `json:"defaultDirection,omitempty" yaml:"default_direction"`
}

// Row 返回朝向对应的精灵行：先查方向表，再查默认方向，最后为 0
func (s *SpriteConfig) Row(d Direction) int {
	if s == nil || s.Directions == nil {
		return 0
	}
	if row, ok := s.Directions[d]; ok {
		return row
	}
	if row, ok := s.Directions[s.DefaultDirection]; ok {
		return row
	}
	return 0
}

// MovableEntity 可移动实体（玩家与敌人共用）
type MovableEntity struct {
	ID           EntityID      `json:"id"`
	Name         string        `json:"name,omitempty"`
	Position     Position      `json:"position"`
	Direction    Direction     `json:"direction"`
	Speed        float64       `json:"speed"` // 每 Tick 移动的单位
	IsMoving     bool          `json:"isMoving"`
	CurrentFrame int           `json:"currentFrame"`
	Sprite       *SpriteConfig `json:"sprite,omitempty"`
	Health       int           `json:"health"`
	MaxHealth    int           `json:"maxHealth"`
	Mana         int           `json:"mana"`
	MaxMana      int           `json:"maxMana"`
}

// FrameCount 动画帧数，缺省为 DefaultFrameCount
func (e MovableEntity) FrameCount() int {
	if e.Sprite == nil || e.Sprite.FrameCount <= 0 {
		return DefaultFrameCount
	}
	return e.Sprite.FrameCount
}

// RestFrame 渲染用帧：静止时显示第 0 帧，状态本身不被修改
func (e MovableEntity) RestFrame() int {
	if !e.IsMoving {
		return 0
	}
	return e.CurrentFrame
}

// wrapFrame 把任意帧号归一化到 [0, count)
func wrapFrame(frame, count int) int {
	if count <= 0 {
		count = DefaultFrameCount
	}
	frame %= count
	if frame < 0 {
		frame += count
	}
	return frame
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
