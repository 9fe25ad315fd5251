package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeTabSwitchStore struct {
	ids    []uuid.UUID
	counts []int
	calls  int
	err    error
}

func (f *fakeTabSwitchStore) BulkAddTabSwitches(_ context.Context, attemptIDs []uuid.UUID, counts []int) error {
	f.calls++
	f.ids = attemptIDs
	f.counts = counts
	return f.err
}

func TestAggregateCollapsesDuplicates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()
	batch := []uuid.UUID{a, b, a, a, c, b}

	ids, deltas := aggregate(batch)

	if len(ids) != 3 || len(deltas) != 3 {
		t.Fatalf("got %d ids and %d deltas, want 3 each", len(ids), len(deltas))
	}
	// First-seen order must hold so deltas line up with ids.
	want := map[uuid.UUID]int{a: 3, b: 2, c: 1}
	for i, id := range ids {
		if deltas[i] != want[id] {
			t.Errorf("delta for %s = %d, want %d", id, deltas[i], want[id])
		}
	}
	if ids[0] != a || ids[1] != b || ids[2] != c {
		t.Errorf("ids not in first-seen order: %v", ids)
	}
}

func TestAggregateEmptyBatch(t *testing.T) {
	ids, deltas := aggregate(nil)
	if len(ids) != 0 || len(deltas) != 0 {
		t.Fatalf("expected empty result, got %v / %v", ids, deltas)
	}
}

func TestFlushSafeWritesThroughStore(t *testing.T) {
	store := &fakeTabSwitchStore{}
	w := &TabSwitchWorker{store: store, log: zerolog.Nop()}

	a := uuid.New()
	b := uuid.New()
	w.flushSafe(context.Background(), []uuid.UUID{a, a, b})

	if store.calls != 1 {
		t.Fatalf("store called %d times, want 1", store.calls)
	}
	if len(store.ids) != 2 {
		t.Fatalf("store received %d ids, want 2", len(store.ids))
	}
	if store.ids[0] != a || store.counts[0] != 2 {
		t.Errorf("first row = (%s, %d), want (%s, 2)", store.ids[0], store.counts[0], a)
	}
	if store.ids[1] != b || store.counts[1] != 1 {
		t.Errorf("second row = (%s, %d), want (%s, 1)", store.ids[1], store.counts[1], b)
	}
}
