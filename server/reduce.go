package server

// Reduce 纯函数：(状态, 迁移) -> 新状态。
// 未知或未实现的种类、载荷类型不符时原样返回同一指针。
func Reduce(s *GameState, a Action) *GameState {
	switch a.Type {
	case ActionMovePlayer:
		p, ok := a.Payload.(MovePlayerPayload)
		if !ok {
			return s
		}
		next := s.clone()
		next.Player.Position = p.Position
		if p.Direction.Valid() {
			next.Player.Direction = p.Direction
		}
		next.Player.IsMoving = p.IsMoving
		return next

	case ActionUpdateAnimation:
		p, ok := a.Payload.(UpdateAnimationPayload)
		if !ok {
			return s
		}
		if p.EntityID == s.Player.ID {
			next := s.clone()
			next.Player.CurrentFrame = wrapFrame(p.CurrentFrame, s.Player.FrameCount())
			return next
		}
		for i, e := range s.Enemies {
			if e.ID == p.EntityID {
				e.CurrentFrame = wrapFrame(p.CurrentFrame, e.FrameCount())
				return s.withEnemy(i, e)
			}
		}
		return s

	case ActionTakeDamage:
		p, ok := a.Payload.(TakeDamagePayload)
		if !ok {
			return s
		}
		next := s.clone()
		next.Player.Health = clampInt(s.Player.Health-p.Amount, 0, s.Player.MaxHealth)
		return next

	case ActionTogglePause:
		next := s.clone()
		next.Paused = !s.Paused
		return next

	case ActionAdvanceTime:
		p, ok := a.Payload.(AdvanceTimePayload)
		if !ok || s.Paused || p.ElapsedMs <= 0 {
			return s
		}
		next := s.clone()
		next.GameTime += p.ElapsedMs
		return next

	default:
		// ATTACK, USE_SKILL 等尚未实现
		return s
	}
}
