package server

import "testing"

func held(actions ...InputAction) InputState {
	var in InputState
	for _, a := range actions {
		in.Set(a, true)
	}
	return in
}

func TestResolveMovementDirections(t *testing.T) {
	player := testState(t).Player // (400,300) speed 3

	tests := []struct {
		name string
		in   InputState
		pos  Position
		dir  Direction
	}{
		{"up", held(InputMoveUp), Position{400, 297}, DirUp},
		{"down", held(InputMoveDown), Position{400, 303}, DirDown},
		{"left", held(InputMoveLeft), Position{397, 300}, DirLeft},
		{"right", held(InputMoveRight), Position{403, 300}, DirRight},
		{"up-left", held(InputMoveUp, InputMoveLeft), Position{397, 297}, DirUpLeft},
		{"up-right", held(InputMoveUp, InputMoveRight), Position{403, 297}, DirUpRight},
		{"down-left", held(InputMoveDown, InputMoveLeft), Position{397, 303}, DirDownLeft},
		{"down-right", held(InputMoveDown, InputMoveRight), Position{403, 303}, DirDownRight},
		{"up-left with attack", held(InputMoveUp, InputMoveLeft, InputAttack), Position{397, 297}, DirUpLeft},
		// 相反方向：位移抵消，朝向取最后一个
		{"up+down", held(InputMoveUp, InputMoveDown), Position{400, 300}, DirDown},
		{"left+right", held(InputMoveLeft, InputMoveRight), Position{400, 300}, DirRight},
		{"all four", held(InputMoveUp, InputMoveDown, InputMoveLeft, InputMoveRight), Position{400, 300}, DirUpLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := ResolveMovement(tt.in, player, false)
			if !ok {
				t.Fatal("expected a move")
			}
			p := a.Payload.(MovePlayerPayload)
			if p.Position != tt.pos || p.Direction != tt.dir || !p.IsMoving {
				t.Fatalf("got %+v, want pos=%+v dir=%s moving", p, tt.pos, tt.dir)
			}
		})
	}
}

func TestResolveMovementSettles(t *testing.T) {
	player := testState(t).Player
	player.IsMoving = true
	player.Direction = DirLeft
	player.Position = Position{X: 12, Y: 34}

	a, ok := ResolveMovement(InputState{}, player, false)
	if !ok {
		t.Fatal("expected a settle move")
	}
	p := a.Payload.(MovePlayerPayload)
	if p.IsMoving || p.Position != player.Position || p.Direction != DirLeft {
		t.Fatalf("settle = %+v", p)
	}
}

func TestResolveMovementIdle(t *testing.T) {
	player := testState(t).Player
	if _, ok := ResolveMovement(held(InputAttack, InputOpenMap), player, false); ok {
		t.Fatal("idle player without movement input should not move")
	}
}

func TestResolveMovementPaused(t *testing.T) {
	player := testState(t).Player
	player.IsMoving = true
	if _, ok := ResolveMovement(held(InputMoveRight), player, true); ok {
		t.Fatal("paused game must not move")
	}
}

func TestResolveMovementThroughStore(t *testing.T) {
	st := NewStore(testState(t))
	a, _ := ResolveMovement(held(InputMoveRight), st.State().Player, false)
	got := st.Apply(a).Player
	if got.Position != (Position{X: 403, Y: 300}) || got.Direction != DirRight || !got.IsMoving {
		t.Fatalf("player = %+v", got)
	}
}
