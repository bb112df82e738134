package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"miniarpg/server"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("228")) // Bright yellow
	styleGround  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	styleWall    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleExit    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // Bright cyan
	styleChest   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleEnemy   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Bright green
	stylePlayer  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	stylePlayerB = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	styleHealth  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleMana    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stylePaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("204"))
	styleFooter  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	hudLines      = 3
	barWidth      = 20
	minViewWidth  = 20
	minViewHeight = 8
)

var dirGlyph = map[server.Direction]rune{
	server.DirUp:        '↑',
	server.DirDown:      '↓',
	server.DirLeft:      '←',
	server.DirRight:     '→',
	server.DirUpLeft:    '↖',
	server.DirUpRight:   '↗',
	server.DirDownLeft:  '↙',
	server.DirDownRight: '↘',
}

var entityGlyph = map[server.EntityType]rune{
	server.EntityChest:  '$',
	server.EntityNPC:    '@',
	server.EntityPortal: 'O',
	server.EntityItem:   '!',
	server.EntityEnemy:  'e',
}

type cell struct {
	r     rune
	style lipgloss.Style
}

// tileOf 世界坐标 -> 瓦片坐标
func tileOf(p server.Position, tileSize int) (int, int) {
	ts := float64(tileSize)
	return int(math.Floor(p.X / ts)), int(math.Floor(p.Y / ts))
}

// Render 以玩家为中心绘制地图视口与状态栏
func Render(st *server.GameState, width, height int) string {
	if width < minViewWidth {
		width = minViewWidth
	}
	rows := height - hudLines
	if rows < minViewHeight {
		rows = minViewHeight
	}

	var sb strings.Builder
	sb.WriteString(styleTitle.Render(title(st)))
	sb.WriteByte('\n')

	if st.Map != nil {
		grid := viewport(st, width, rows)
		for _, line := range grid {
			for _, c := range line {
				sb.WriteString(c.style.Render(string(c.r)))
			}
			sb.WriteByte('\n')
		}
	}

	sb.WriteString(hud(st))
	sb.WriteByte('\n')
	sb.WriteString(styleFooter.Render("wasd/arrows move · p pause · ctrl+c quit"))
	return sb.String()
}

func title(st *server.GameState) string {
	name := st.CurrentMapID
	if st.Map != nil && st.Map.Name != "" {
		name = st.Map.Name
	}
	return fmt.Sprintf("miniarpg · %s", name)
}

func viewport(st *server.GameState, cols, rows int) [][]cell {
	m := st.Map
	ts := m.TileSize
	ptx, pty := tileOf(st.Player.Position, ts)
	startX, startY := ptx-cols/2, pty-rows/2

	grid := make([][]cell, rows)
	for y := range grid {
		grid[y] = make([]cell, cols)
		for x := range grid[y] {
			grid[y][x] = terrain(m, startX+x, startY+y)
		}
	}

	put := func(tx, ty int, c cell) {
		x, y := tx-startX, ty-startY
		if y < 0 || y >= rows || x < 0 || x >= cols {
			return
		}
		grid[y][x] = c
	}

	for _, e := range m.Exits {
		ex, ey := tileOf(e.Position, ts)
		w := int(math.Ceil(e.Size.Width / float64(ts)))
		h := int(math.Ceil(e.Size.Height / float64(ts)))
		for dy := 0; dy < h; dy++ {
			for dx := 0; dx < w; dx++ {
				put(ex+dx, ey+dy, cell{'>', styleExit})
			}
		}
	}
	for _, e := range m.Entities {
		tx, ty := tileOf(e.Position, ts)
		r, ok := entityGlyph[e.Type]
		if !ok {
			r = '?'
		}
		put(tx, ty, cell{r, styleChest})
	}
	for _, e := range st.Enemies {
		tx, ty := tileOf(e.Position, ts)
		put(tx, ty, cell{enemyGlyph(e), styleEnemy})
	}

	style := stylePlayer
	// 行走帧交替高亮
	if st.Player.RestFrame()%2 == 1 {
		style = stylePlayerB
	}
	r, ok := dirGlyph[st.Player.Direction]
	if !ok {
		r = '@'
	}
	put(ptx, pty, cell{r, style})
	return grid
}

func terrain(m *server.GameMap, tx, ty int) cell {
	for _, l := range m.Layers {
		if !l.Collision {
			continue
		}
		if v, ok := m.TileAt(l.ID, tx, ty); ok && v != 0 {
			return cell{'#', styleWall}
		}
	}
	for _, l := range m.Layers {
		if l.Collision || l.Background {
			continue
		}
		if v, ok := m.TileAt(l.ID, tx, ty); ok && v != 0 {
			return cell{'·', styleGround}
		}
	}
	return cell{' ', styleGround}
}

// enemyGlyph 史莱姆随帧起伏
func enemyGlyph(e server.MovableEntity) rune {
	if e.RestFrame()%2 == 1 {
		return 'S'
	}
	return 's'
}

func hud(st *server.GameState) string {
	p := st.Player
	parts := []string{
		styleHealth.Render(fmt.Sprintf("HP %d/%d %s", p.Health, p.MaxHealth, bar(p.Health, p.MaxHealth))),
		styleMana.Render(fmt.Sprintf("MP %d/%d %s", p.Mana, p.MaxMana, bar(p.Mana, p.MaxMana))),
		fmt.Sprintf("pos %.0f,%.0f", p.Position.X, p.Position.Y),
		fmt.Sprintf("frame %d/%d row %d", p.RestFrame(), p.FrameCount(), p.Sprite.Row(p.Direction)),
		fmt.Sprintf("time %.1fs", st.GameTime/1000),
	}
	if st.Paused {
		parts = append(parts, stylePaused.Render("PAUSED"))
	}
	return strings.Join(parts, "  ")
}

func bar(v, maxV int) string {
	if maxV <= 0 {
		return strings.Repeat("░", barWidth)
	}
	filled := v * barWidth / maxV
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
