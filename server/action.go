package server

// ActionType 状态迁移种类（封闭集合，未实现的种类为空操作）
type ActionType string

const (
	ActionMovePlayer        ActionType = "MOVE_PLAYER"
	ActionAttack            ActionType = "ATTACK"
	ActionUseSkill          ActionType = "USE_SKILL"
	ActionTakeDamage        ActionType = "TAKE_DAMAGE"
	ActionUseItem           ActionType = "USE_ITEM"
	ActionEquipItem         ActionType = "EQUIP_ITEM"
	ActionUnequipItem       ActionType = "UNEQUIP_ITEM"
	ActionPickUpItem        ActionType = "PICK_UP_ITEM"
	ActionDropItem          ActionType = "DROP_ITEM"
	ActionInteractWithNPC   ActionType = "INTERACT_WITH_NPC"
	ActionCompleteObjective ActionType = "COMPLETE_OBJECTIVE"
	ActionCompleteQuest     ActionType = "COMPLETE_QUEST"
	ActionChangeMap         ActionType = "CHANGE_MAP"
	ActionGainExperience    ActionType = "GAIN_EXPERIENCE"
	ActionLevelUp           ActionType = "LEVEL_UP"
	ActionSpendStatPoint    ActionType = "SPEND_STAT_POINT"
	ActionLearnSkill        ActionType = "LEARN_SKILL"
	ActionUpgradeSkill      ActionType = "UPGRADE_SKILL"
	ActionBuyItem           ActionType = "BUY_ITEM"
	ActionSellItem          ActionType = "SELL_ITEM"
	ActionSaveGame          ActionType = "SAVE_GAME"
	ActionLoadGame          ActionType = "LOAD_GAME"
	ActionChangeSettings    ActionType = "CHANGE_SETTINGS"
	ActionTogglePause       ActionType = "TOGGLE_PAUSE"
	ActionUpdateAnimation   ActionType = "UPDATE_ANIMATION"
	ActionAdvanceTime       ActionType = "ADVANCE_TIME"
)

// Action 一次状态迁移请求
type Action struct {
	Type    ActionType
	Payload any
}

// MovePlayerPayload MOVE_PLAYER 载荷
type MovePlayerPayload struct {
	Position  Position
	Direction Direction
	IsMoving  bool
}

// UpdateAnimationPayload UPDATE_ANIMATION 载荷
type UpdateAnimationPayload struct {
	EntityID     EntityID
	CurrentFrame int
}

// TakeDamagePayload TAKE_DAMAGE 载荷
type TakeDamagePayload struct {
	Amount int
}

// AdvanceTimePayload ADVANCE_TIME 载荷（毫秒）
type AdvanceTimePayload struct {
	ElapsedMs float64
}

func MovePlayer(pos Position, dir Direction, moving bool) Action {
	return Action{Type: ActionMovePlayer, Payload: MovePlayerPayload{Position: pos, Direction: dir, IsMoving: moving}}
}

func UpdateAnimation(id EntityID, frame int) Action {
	return Action{Type: ActionUpdateAnimation, Payload: UpdateAnimationPayload{EntityID: id, CurrentFrame: frame}}
}

func TakeDamage(amount int) Action {
	return Action{Type: ActionTakeDamage, Payload: TakeDamagePayload{Amount: amount}}
}

func TogglePause() Action {
	return Action{Type: ActionTogglePause}
}

func AdvanceTime(ms float64) Action {
	return Action{Type: ActionAdvanceTime, Payload: AdvanceTimePayload{ElapsedMs: ms}}
}
