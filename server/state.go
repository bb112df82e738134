package server

// GameState 权威快照。发布后不可修改，每次状态迁移产生新值
type GameState struct {
	Player       MovableEntity   `json:"player"`
	Enemies      []MovableEntity `json:"enemies"`
	Map          *GameMap        `json:"-"`
	CurrentMapID string          `json:"currentMapId"`
	Paused       bool            `json:"isGamePaused"`
	GameTime     float64         `json:"gameTime"` // 未暂停时累计的毫秒数
}

// Enemy 按 ID 查找敌人
func (s *GameState) Enemy(id EntityID) (MovableEntity, bool) {
	for _, e := range s.Enemies {
		if e.ID == id {
			return e, true
		}
	}
	return MovableEntity{}, false
}

// Entity 按 ID 查找任意可移动实体
func (s *GameState) Entity(id EntityID) (MovableEntity, bool) {
	if id == s.Player.ID {
		return s.Player, true
	}
	return s.Enemy(id)
}

// clone 浅拷贝；Enemies 切片与上一快照共享，修改前必须 withEnemy
func (s *GameState) clone() *GameState {
	next := *s
	return &next
}

// withEnemy 复制敌人切片并替换指定条目，旧快照保持不变
func (s *GameState) withEnemy(idx int, e MovableEntity) *GameState {
	next := s.clone()
	next.Enemies = make([]MovableEntity, len(s.Enemies))
	copy(next.Enemies, s.Enemies)
	next.Enemies[idx] = e
	return next
}

func newPlayer(spawn Position) MovableEntity {
	return MovableEntity{
		ID:        PlayerID,
		Name:      "Hero",
		Position:  spawn,
		Direction: DirDown,
		Speed:     3,
		Health:    100,
		MaxHealth: 100,
		Mana:      50,
		MaxMana:   50,
		Sprite: &SpriteConfig{
			URL:         "/assets/sprites/player_walk.png",
			FrameWidth:  32,
			FrameHeight: 32,
			FrameCount:  4,
			Scale:       2,
			Directions: map[Direction]int{
				DirDown:      0,
				DirLeft:      1,
				DirRight:     2,
				DirUp:        3,
				DirUpLeft:    3,
				DirUpRight:   3,
				DirDownLeft:  0,
				DirDownRight: 0,
			},
			DefaultDirection: DirDown,
		},
	}
}

func newSlime() MovableEntity {
	return MovableEntity{
		ID:        "enemy1",
		Name:      "Slime",
		Position:  Position{X: 500, Y: 400},
		Direction: DirDown,
		Speed:     1,
		IsMoving:  true,
		Health:    20,
		MaxHealth: 20,
		Sprite: &SpriteConfig{
			URL:              "/assets/sprites/slime_move.png",
			FrameWidth:       32,
			FrameHeight:      32,
			FrameCount:       4,
			Scale:            1.5,
			DefaultDirection: DirDown,
		},
	}
}

// NewInitialState 基于地图构造初始状态；m 为 nil 属于接线错误，直接 panic
func NewInitialState(m *GameMap) *GameState {
	if m == nil {
		panic("server: NewInitialState called without a map")
	}
	spawn, ok := m.Spawn(SpawnPlayer)
	if !ok {
		spawn = Position{X: 400, Y: 300}
	}
	return &GameState{
		Player:       newPlayer(spawn),
		Enemies:      []MovableEntity{newSlime()},
		Map:          m,
		CurrentMapID: m.ID,
	}
}
