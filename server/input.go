package server

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownInput 无法识别的输入动作或按键
var ErrUnknownInput = errors.New("unknown input")

// InputAction 逻辑输入动作（固定 14 个）
type InputAction int

const (
	InputMoveUp InputAction = iota
	InputMoveDown
	InputMoveLeft
	InputMoveRight
	InputAttack
	InputUseSkill1
	InputUseSkill2
	InputUseSkill3
	InputUseSkill4
	InputUsePotion
	InputOpenInventory
	InputOpenCharacterSheet
	InputOpenSkillTree
	InputOpenMap

	numInputActions
)

var inputNames = [numInputActions]string{
	"moveUp", "moveDown", "moveLeft", "moveRight",
	"attack",
	"useSkill1", "useSkill2", "useSkill3", "useSkill4",
	"usePotion",
	"openInventory", "openCharacterSheet", "openSkillTree", "openMap",
}

func (a InputAction) String() string {
	if a < 0 || a >= numInputActions {
		return fmt.Sprintf("InputAction(%d)", int(a))
	}
	return inputNames[a]
}

// ParseInputAction 解析动作名（大小写不敏感）
func ParseInputAction(name string) (InputAction, error) {
	for i, n := range inputNames {
		if strings.EqualFold(n, name) {
			return InputAction(i), nil
		}
	}
	return 0, fmt.Errorf("%w: action %q", ErrUnknownInput, name)
}

// InputState 每个动作是否按住；值类型，由输入方写入，核心只读
type InputState [numInputActions]bool

// Held 动作是否按住
func (s InputState) Held(a InputAction) bool {
	if a < 0 || a >= numInputActions {
		return false
	}
	return s[a]
}

// Set 设置按住状态
func (s *InputState) Set(a InputAction, held bool) {
	if a < 0 || a >= numInputActions {
		return
	}
	s[a] = held
}

// AnyMovement 是否按住任一移动键
func (s InputState) AnyMovement() bool {
	return s[InputMoveUp] || s[InputMoveDown] || s[InputMoveLeft] || s[InputMoveRight]
}

// Map 以名称输出，便于调试与 JSON
func (s InputState) Map() map[string]bool {
	out := make(map[string]bool, numInputActions)
	for i, held := range s {
		out[inputNames[i]] = held
	}
	return out
}

// InputEvent 输入事件，由 Tick 协程统一写入 InputState
type InputEvent struct {
	Action InputAction
	Held   bool
}

// defaultKeyBindings 与浏览器版按键一致
var defaultKeyBindings = map[string]InputAction{
	"w":          InputMoveUp,
	"ArrowUp":    InputMoveUp,
	"s":          InputMoveDown,
	"ArrowDown":  InputMoveDown,
	"a":          InputMoveLeft,
	"ArrowLeft":  InputMoveLeft,
	"d":          InputMoveRight,
	"ArrowRight": InputMoveRight,
	" ":          InputAttack,
	"1":          InputUseSkill1,
	"2":          InputUseSkill2,
	"3":          InputUseSkill3,
	"4":          InputUseSkill4,
	"q":          InputUsePotion,
	"i":          InputOpenInventory,
	"c":          InputOpenCharacterSheet,
	"k":          InputOpenSkillTree,
	"m":          InputOpenMap,
}

// KeyBindings 按键 -> 动作
type KeyBindings map[string]InputAction

// DefaultKeyBindings 返回默认绑定的副本
func DefaultKeyBindings() KeyBindings {
	kb := make(KeyBindings, len(defaultKeyBindings))
	for k, v := range defaultKeyBindings {
		kb[k] = v
	}
	return kb
}

// Lookup 查找按键对应的动作
func (kb KeyBindings) Lookup(key string) (InputAction, error) {
	if a, ok := kb[key]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("%w: key %q", ErrUnknownInput, key)
}

// ClientMessage 入站 WebSocket 文本消息
// 示例：{"type":"input","action":"moveUp","held":true}
//
//	{"type":"key","key":"w","down":true}
//	{"type":"pause"}
//	{"type":"action","action":"ATTACK"}
type ClientMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Held   bool   `json:"held,omitempty"`
	Key    string `json:"key,omitempty"`
	Down   bool   `json:"down,omitempty"`
}
