package grid

import (
	"sync"
	"testing"

	"dnd-grid/internal/domain"
)

func TestAcquireReturnsSameEntry(t *testing.T) {
	c := NewCache()
	first := c.Acquire("abc")
	second := c.Acquire("abc")
	if first != second {
		t.Fatalf("expected same entry for same code")
	}
	if c.Len() != 1 {
		t.Fatalf("expected one entry, got %d", c.Len())
	}
}

func TestAcquireConcurrentSingleEntry(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	entries := make([]*Entry, 16)
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = c.Acquire("abc")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(entries); i++ {
		if entries[i] != entries[0] {
			t.Fatalf("concurrent Acquire produced distinct entries")
		}
	}
	if c.Len() != 1 {
		t.Fatalf("expected one entry, got %d", c.Len())
	}
}

func TestPeekDoesNotCreate(t *testing.T) {
	c := NewCache()
	if _, ok := c.Peek("abc"); ok {
		t.Fatalf("peek created an entry")
	}
	c.Acquire("abc")
	if _, ok := c.Peek("abc"); !ok {
		t.Fatalf("peek missed an existing entry")
	}
}

func TestSnapshotOrderedByCreation(t *testing.T) {
	e := &Entry{
		Name:   "Encounter abc",
		Width:  10,
		Height: 10,
		CellPX: 48,
		Tokens: map[int64]domain.Token{
			3: {ID: 3, Name: "c"},
			1: {ID: 1, Name: "a"},
			2: {ID: 2, Name: "b"},
		},
	}
	snap := e.snapshotLocked()
	if len(snap.Tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(snap.Tokens))
	}
	for i, id := range []int64{1, 2, 3} {
		if snap.Tokens[i].ID != id {
			t.Fatalf("token %d out of order: got id %d", i, snap.Tokens[i].ID)
		}
	}
	if snap.Grid.Name != "Encounter abc" || !snap.Exists {
		t.Fatalf("unexpected snapshot header %+v", snap)
	}
}

func TestSnapshotEmptyTokenListNotNil(t *testing.T) {
	e := &Entry{Tokens: map[int64]domain.Token{}}
	snap := e.snapshotLocked()
	if snap.Tokens == nil {
		t.Fatalf("tokens must serialize as [], not null")
	}
}
