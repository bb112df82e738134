// Package tui 在终端中本地运行一个会话，用于调试与演示
package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"miniarpg/server"
)

const (
	// 终端没有按键抬起事件，按下后保持这么久视为松开；自动重复会续期
	holdWindow    = 200 * time.Millisecond
	frameInterval = 50 * time.Millisecond
)

// 终端按键名 -> 浏览器按键名
var termKeys = map[string]string{
	"up":    "ArrowUp",
	"down":  "ArrowDown",
	"left":  "ArrowLeft",
	"right": "ArrowRight",
	"space": " ",
}

// FrameMsg 重绘与释放按键的节拍
type FrameMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// Model 终端视图，输入写入会话，画面读取会话快照
type Model struct {
	session *server.Session
	keys    server.KeyBindings
	held    map[server.InputAction]time.Time
	now     func() time.Time
	width   int
	height  int
	quit    bool
}

// New 创建绑定到会话 s 的终端模型
func New(s *server.Session) Model {
	return Model{
		session: s,
		keys:    server.DefaultKeyBindings(),
		held:    make(map[server.InputAction]time.Time),
		now:     time.Now,
		width:   80,
		height:  24,
	}
}

// Init 启动重绘节拍
func (m Model) Init() tea.Cmd {
	return frame()
}

// Update 处理按键、窗口尺寸与节拍消息
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		case "p":
			if err := m.session.Submit(server.TogglePause()); errors.Is(err, server.ErrSessionClosed) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.press(msg.String())
		return m, nil

	case FrameMsg:
		m.release(time.Time(msg))
		if m.session.Closed() {
			return m, tea.Quit
		}
		return m, frame()
	}
	return m, nil
}

// press 按下（或自动重复）某键
func (m Model) press(key string) {
	if k, ok := termKeys[key]; ok {
		key = k
	}
	a, err := m.keys.Lookup(key)
	if err != nil {
		return
	}
	if _, ok := m.held[a]; !ok {
		if err := m.session.SetInput(a, true); err != nil {
			server.Log.Debugf("tui: set input %s: %v", a, err)
			return
		}
	}
	m.held[a] = m.now()
}

// release 松开超过保持窗口的按键
func (m Model) release(now time.Time) {
	for a, at := range m.held {
		if now.Sub(at) < holdWindow {
			continue
		}
		if err := m.session.SetInput(a, false); err != nil {
			server.Log.Debugf("tui: release %s: %v", a, err)
			continue
		}
		delete(m.held, a)
	}
}

// View 渲染当前快照
func (m Model) View() string {
	if m.quit {
		return ""
	}
	return Render(m.session.Snapshot(), m.width, m.height)
}

// Run 运行终端界面直到退出
func Run(s *server.Session) error {
	_, err := tea.NewProgram(New(s), tea.WithAltScreen()).Run()
	return err
}
