package handle

import (
	"errors"
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

type closer struct {
	closed bool
}

func (c *closer) Close() {
	c.closed = true
}

func TestTable_Basic(t *testing.T) {
	table := NewTable(0x1000)

	h, err := table.Insert(1, "test")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h != 0x1001 {
		t.Fatalf("first handle = %#x, want 0x1001", h)
	}

	val, ok := table.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}
	if _, ok := table.GetKind(h, 1); !ok {
		t.Fatal("GetKind with matching kind failed")
	}
	if _, ok := table.GetKind(h, 2); ok {
		t.Fatal("GetKind with wrong kind should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d after Remove", table.Len())
	}
	if _, ok := table.Get(h); ok {
		t.Fatal("removed handle still resolves")
	}
}

func TestTable_InvalidHandles(t *testing.T) {
	table := NewTable(0x1000)
	_, _ = table.Insert(1, "a")

	for _, h := range []Handle{0, 0x1000, 0x0fff, 0x1002, 0x2001} {
		if _, ok := table.Get(h); ok {
			t.Errorf("Get(%#x) should fail", h)
		}
		if _, ok := table.Remove(h); ok {
			t.Errorf("Remove(%#x) should fail", h)
		}
	}
}

func TestTable_SlotReuse(t *testing.T) {
	table := NewTable(0)
	h1, _ := table.Insert(1, "a")
	h2, _ := table.Insert(1, "b")
	table.Remove(h1)
	h3, _ := table.Insert(1, "c")
	if h3 != h1 {
		t.Fatalf("freed slot not reused: got %#x, want %#x", h3, h1)
	}
	if v, _ := table.Get(h2); v != "b" {
		t.Fatalf("Get(h2) = %v", v)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable(0)
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert(7, "x")
	table.Remove(h)

	if len(obs.events) != 2 {
		t.Fatalf("got %d events, want 2", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h || obs.events[0].Kind != 7 {
		t.Fatalf("created event = %+v", obs.events[0])
	}
	if obs.events[1].Type != EventRemoved {
		t.Fatalf("removed event = %+v", obs.events[1])
	}

	table.Unsubscribe(obs)
	table.Insert(7, "y")
	if len(obs.events) != 2 {
		t.Fatal("unsubscribed observer still notified")
	}
}

func TestTable_CloseClosesValues(t *testing.T) {
	table := NewTable(0)
	c := &closer{}
	table.Insert(1, c)

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !c.closed {
		t.Fatal("Close should close live values")
	}
	if _, err := table.Insert(1, "late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Insert after Close = %v", err)
	}
}

func TestTyped(t *testing.T) {
	table := NewTable(0x100)
	files := NewTyped[*closer](table, 1)
	names := NewTyped[string](table, 2)

	fh, _ := files.Insert(&closer{})
	nh, _ := names.Insert("fs0")

	if _, ok := files.Get(nh); ok {
		t.Fatal("typed Get crossed kinds")
	}
	if _, ok := names.Remove(fh); ok {
		t.Fatal("typed Remove crossed kinds")
	}
	if files.Len() != 1 || names.Len() != 1 {
		t.Fatalf("Len files=%d names=%d", files.Len(), names.Len())
	}

	var seen []string
	names.Each(func(_ Handle, s string) bool {
		seen = append(seen, s)
		return true
	})
	if len(seen) != 1 || seen[0] != "fs0" {
		t.Fatalf("Each = %v", seen)
	}

	c, ok := files.Remove(fh)
	if !ok || !c.closed {
		t.Fatal("typed Remove should close the value")
	}
}
