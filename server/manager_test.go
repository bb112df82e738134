package server

import (
	"sort"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mgr, err := NewSessionManager(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	mgr.newSource = func() TickSource { return NewManualSource(time.Unix(0, 0)) }
	t.Cleanup(mgr.CloseAll)
	return mgr
}

func TestSessionManagerGetOrCreate(t *testing.T) {
	mgr := newTestManager(t)

	a := mgr.GetOrCreate("a")
	if mgr.GetOrCreate("a") != a {
		t.Fatal("expected the same session")
	}
	anon := mgr.GetOrCreate("")
	if anon.ID == "" || anon == a {
		t.Fatalf("anonymous session id = %q", anon.ID)
	}
	mgr.GetOrCreate("b")

	ids := mgr.IDs()
	if len(ids) != 3 || !sort.StringsAreSorted(ids) {
		t.Fatalf("ids = %v", ids)
	}
	for _, want := range []string{"a", "b", anon.ID} {
		if i := sort.SearchStrings(ids, want); i == len(ids) || ids[i] != want {
			t.Errorf("ids = %v, missing %q", ids, want)
		}
	}
	if _, ok := mgr.Get("b"); !ok {
		t.Fatal("Get(b) missing")
	}
}

func TestSessionManagerReplacesClosedSession(t *testing.T) {
	mgr := newTestManager(t)
	a := mgr.GetOrCreate("a")
	a.Close()

	b := mgr.GetOrCreate("a")
	if b == a || b.Closed() {
		t.Fatal("closed session should be replaced")
	}
}

func TestSessionManagerClose(t *testing.T) {
	mgr := newTestManager(t)
	s := mgr.GetOrCreate("a")
	if !mgr.Close("a") || !s.Closed() {
		t.Fatal("Close(a) failed")
	}
	if mgr.Close("a") {
		t.Fatal("second Close should report missing")
	}

	x, y := mgr.GetOrCreate("x"), mgr.GetOrCreate("y")
	mgr.CloseAll()
	if !x.Closed() || !y.Closed() || len(mgr.IDs()) != 0 {
		t.Fatal("CloseAll left sessions open")
	}
}

func TestSessionManagerUnknownMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Map.Name = "atlantis"
	if _, err := NewSessionManager(cfg); err == nil {
		t.Fatal("expected map load error")
	}
}

func TestSessionManagerClampOption(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.ClampToMap = true
	mgr, err := NewSessionManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if mgr.sessionOptions().MoveFilter == nil {
		t.Fatal("expected clamp filter")
	}
	cfg.Session.ClampToMap = false
	if mgr.sessionOptions().MoveFilter != nil {
		t.Fatal("unexpected move filter")
	}
}
