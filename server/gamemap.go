package server

import (
	"embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed maps/*.yaml
var mapFS embed.FS

// EntityType 地图静态实体类型
type EntityType string

const (
	EntityEnemy  EntityType = "enemy"
	EntityNPC    EntityType = "npc"
	EntityChest  EntityType = "chest"
	EntityPortal EntityType = "portal"
	EntityItem   EntityType = "item"
)

// SpawnPointType 出生点类型
type SpawnPointType string

const (
	SpawnPlayer SpawnPointType = "player"
	SpawnEnemy  SpawnPointType = "enemy"
	SpawnNPC    SpawnPointType = "npc"
)

// MapLayer 瓦片层；Tiles 为空时按 Fill 填满整张地图
type MapLayer struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Fill       int     `json:"-" yaml:"fill"`
	Tiles      [][]int `json:"tiles,omitempty" yaml:"tiles"`
	Collision  bool    `json:"isCollision,omitempty" yaml:"collision"`
	Background bool    `json:"isBackground,omitempty" yaml:"background"`
}

// MapEntity 地图上的静态实体（宝箱、传送门等）
type MapEntity struct {
	ID         string            `json:"id" yaml:"id"`
	Type       EntityType        `json:"type" yaml:"type"`
	Position   Position          `json:"position" yaml:"position"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties"`
}

// Size 矩形尺寸
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// MapExit 地图出口
type MapExit struct {
	ID             string   `json:"id" yaml:"id"`
	Position       Position `json:"position" yaml:"position"`
	Size           Size     `json:"size" yaml:"size"`
	TargetMapID    string   `json:"targetMapId" yaml:"target_map_id"`
	TargetPosition Position `json:"targetPosition" yaml:"target_position"`
}

// Contains 判断点是否落在出口区域内
func (e MapExit) Contains(p Position) bool {
	return p.X >= e.Position.X && p.X < e.Position.X+e.Size.Width &&
		p.Y >= e.Position.Y && p.Y < e.Position.Y+e.Size.Height
}

// SpawnPoint 出生点
type SpawnPoint struct {
	ID       string         `json:"id" yaml:"id"`
	Type     SpawnPointType `json:"type" yaml:"type"`
	Position Position       `json:"position" yaml:"position"`
}

// GameMap 只读地图数据，核心从不修改
type GameMap struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Width       int          `json:"width" yaml:"width"`
	Height      int          `json:"height" yaml:"height"`
	TileSize    int          `json:"tileSize" yaml:"tile_size"`
	Layers      []MapLayer   `json:"layers" yaml:"layers"`
	Entities    []MapEntity  `json:"entities" yaml:"entities"`
	Exits       []MapExit    `json:"exits" yaml:"exits"`
	SpawnPoints []SpawnPoint `json:"spawnPoints" yaml:"spawn_points"`
}

// PixelSize 地图的世界尺寸（像素）
func (m *GameMap) PixelSize() (float64, float64) {
	return float64(m.Width * m.TileSize), float64(m.Height * m.TileSize)
}

// Spawn 返回首个指定类型的出生点
func (m *GameMap) Spawn(t SpawnPointType) (Position, bool) {
	for _, sp := range m.SpawnPoints {
		if sp.Type == t {
			return sp.Position, true
		}
	}
	return Position{}, false
}

// TileAt 返回某层在瓦片坐标处的值，越界返回 false
func (m *GameMap) TileAt(layerID string, tx, ty int) (int, bool) {
	for _, l := range m.Layers {
		if l.ID != layerID {
			continue
		}
		if ty < 0 || ty >= len(l.Tiles) || tx < 0 || tx >= len(l.Tiles[ty]) {
			return 0, false
		}
		return l.Tiles[ty][tx], true
	}
	return 0, false
}

// ExitAt 返回覆盖该坐标的出口
func (m *GameMap) ExitAt(p Position) (MapExit, bool) {
	for _, e := range m.Exits {
		if e.Contains(p) {
			return e, true
		}
	}
	return MapExit{}, false
}

// ParseMap 解析 YAML 地图并补全填充层
func ParseMap(data []byte) (*GameMap, error) {
	var m GameMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if m.ID == "" {
		return nil, errors.New("parse map: missing id")
	}
	if m.Width <= 0 || m.Height <= 0 || m.TileSize <= 0 {
		return nil, fmt.Errorf("parse map %s: invalid dimensions %dx%d tile %d", m.ID, m.Width, m.Height, m.TileSize)
	}
	for i := range m.Layers {
		l := &m.Layers[i]
		if len(l.Tiles) > 0 {
			if len(l.Tiles) != m.Height {
				return nil, fmt.Errorf("parse map %s: layer %s has %d rows, want %d", m.ID, l.ID, len(l.Tiles), m.Height)
			}
			continue
		}
		l.Tiles = make([][]int, m.Height)
		for y := range l.Tiles {
			row := make([]int, m.Width)
			for x := range row {
				row[x] = l.Fill
			}
			l.Tiles[y] = row
		}
	}
	return &m, nil
}

// LoadMap 从内嵌文件加载地图，如 LoadMap("initial")
func LoadMap(name string) (*GameMap, error) {
	data, err := mapFS.ReadFile("maps/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", name, err)
	}
	return ParseMap(data)
}

// MustLoadMap 加载地图，失败时 panic（启动期数据必须存在）
func MustLoadMap(name string) *GameMap {
	m, err := LoadMap(name)
	if err != nil {
		panic(err)
	}
	return m
}
