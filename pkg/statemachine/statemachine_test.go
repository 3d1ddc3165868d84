package statemachine

import "testing"

type counter struct {
	ticks int
	limit int
}

func stateTick(c *counter) StateFn[counter] {
	c.ticks++
	if c.ticks >= c.limit {
		return nil
	}
	return stateTick
}

func TestRun(t *testing.T) {
	c := &counter{limit: 5}
	m := New(c, stateTick)
	m.Run()

	if c.ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", c.ticks)
	}
	if m.Current() != nil {
		t.Error("Expected a terminated machine")
	}
	if m.Step() {
		t.Error("Expected Step to report no progress after termination")
	}
}

func TestStep(t *testing.T) {
	c := &counter{limit: 2}
	m := New(c, stateTick)

	if !m.Step() {
		t.Error("Expected progress on the first step")
	}
	if c.ticks != 1 {
		t.Errorf("Expected 1 tick after one step, got %d", c.ticks)
	}
	if m.Step() {
		t.Error("Expected the second step to terminate")
	}
}

func TestSet(t *testing.T) {
	c := &counter{limit: 100}
	m := New(c, stateTick)
	m.Step()

	m.Set(nil)
	if m.Step() {
		t.Error("Expected no progress after Set(nil)")
	}
	if c.ticks != 1 {
		t.Errorf("Expected the tick count untouched, got %d", c.ticks)
	}

	m.Set(stateTick)
	if !m.Step() {
		t.Error("Expected progress after repositioning")
	}
}
