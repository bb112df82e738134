package server

// ResolveMovement 根据输入与玩家状态计算本 Tick 的移动迁移。
// 返回 false 表示无需迁移（暂停，或持续静止）。
// 不做碰撞检测，返回的是候选位置。
func ResolveMovement(in InputState, player MovableEntity, paused bool) (Action, bool) {
	if paused {
		return Action{}, false
	}

	var dx, dy float64
	dir := player.Direction
	moving := false

	// 顺序执行，后者覆盖前者的意图方向
	if in.Held(InputMoveUp) {
		dy -= player.Speed
		dir = DirUp
		moving = true
	}
	if in.Held(InputMoveDown) {
		dy += player.Speed
		dir = DirDown
		moving = true
	}
	if in.Held(InputMoveLeft) {
		dx -= player.Speed
		dir = DirLeft
		moving = true
	}
	if in.Held(InputMoveRight) {
		dx += player.Speed
		dir = DirRight
		moving = true
	}

	if d, ok := diagonal(in); ok {
		dir = d
	}

	if moving {
		return MovePlayer(player.Position.Add(dx, dy), dir, true), true
	}
	if player.IsMoving {
		// settle：停止移动，位置与朝向不变
		return MovePlayer(player.Position, player.Direction, false), true
	}
	return Action{}, false
}

func diagonal(in InputState) (Direction, bool) {
	up, down := in.Held(InputMoveUp), in.Held(InputMoveDown)
	left, right := in.Held(InputMoveLeft), in.Held(InputMoveRight)
	switch {
	case up && left:
		return DirUpLeft, true
	case up && right:
		return DirUpRight, true
	case down && left:
		return DirDownLeft, true
	case down && right:
		return DirDownRight, true
	}
	return "", false
}
