package collection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

var epoch = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := epoch
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func order(id, status string, total float64) types.Record {
	return types.Record{
		ID:        id,
		Kind:      types.KindOrders,
		Status:    status,
		Total:     total,
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
}

func seeded(t *testing.T, records ...types.Record) *Store {
	t.Helper()
	s := New(WithClock(tickingClock()))
	require.NoError(t, s.ReplaceAll(records))
	return s
}

func ids(records []types.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAllKeepsInsertionOrder(t *testing.T) {
	s := seeded(t, order("3", "pending", 1), order("1", "pending", 2), order("2", "shipped", 3))
	assert.Equal(t, []string{"3", "1", "2"}, ids(s.All()))

	require.NoError(t, s.Insert(order("0", "pending", 4)))
	assert.Equal(t, []string{"3", "1", "2", "0"}, ids(s.All()))
	assert.Equal(t, 4, s.Len())
}

func TestAllReturnsCopies(t *testing.T) {
	r := order("1", "pending", 10)
	r.Payload = map[string]any{"note": "original"}
	s := seeded(t, r)

	all := s.All()
	all[0].Status = "cancelled"
	all[0].Payload["note"] = "changed"

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "original", got.Payload["note"])
}

func TestEmptyStore(t *testing.T) {
	s := New()
	assert.Empty(t, s.All())
	assert.Equal(t, 0, s.Len())
}

func TestUpsert(t *testing.T) {
	s := seeded(t, order("1", "pending", 87.99))

	got, err := s.Upsert("1", types.Patch{types.FieldStatus: "processing"})
	require.NoError(t, err)

	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "processing", got.Status)
	assert.Equal(t, 87.99, got.Total)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	stored, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestUpsertIsIdempotentOnDisplayedState(t *testing.T) {
	s := seeded(t, order("1", "pending", 87.99))
	patch := types.Patch{types.FieldStatus: "shipped", types.FieldTitle: "Blue sofa"}

	first, err := s.Upsert("1", patch)
	require.NoError(t, err)
	second, err := s.Upsert("1", patch)
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "UpdatedAt still advances")
	second.UpdatedAt = first.UpdatedAt
	assert.Equal(t, first, second)
}

func TestUpsertErrorsLeaveStoreUntouched(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		patch   types.Patch
		wantErr error
	}{
		{name: "missing id", id: "9", patch: types.Patch{types.FieldStatus: "shipped"}, wantErr: types.ErrNotFound},
		{name: "empty id", id: "", patch: types.Patch{types.FieldStatus: "shipped"}, wantErr: types.ErrInvalidID},
		{name: "immutable field", id: "1", patch: types.Patch{types.FieldID: "2"}, wantErr: types.ErrValidation},
		{name: "foreign status", id: "1", patch: types.Patch{types.FieldStatus: "archived"}, wantErr: types.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t, order("1", "pending", 5))
			before := s.All()

			_, err := s.Upsert(tt.id, tt.patch)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, s.All())
		})
	}
}

func TestInsertRejectsDuplicates(t *testing.T) {
	s := seeded(t, order("1", "pending", 5))
	assert.ErrorIs(t, s.Insert(order("1", "shipped", 6)), types.ErrDuplicateID)
	assert.ErrorIs(t, s.Insert(order("", "shipped", 6)), types.ErrInvalidID)
	assert.Equal(t, 1, s.Len())
}

func TestSwap(t *testing.T) {
	s := seeded(t, order("1", "pending", 5), order("2", "pending", 6))
	snapshot, err := s.Get("2")
	require.NoError(t, err)

	applied, err := s.Upsert("2", types.Patch{types.FieldStatus: "cancelled", types.FieldTotal: 0})
	require.NoError(t, err)

	assert.True(t, s.Swap(applied, snapshot))
	got, err := s.Get("2")
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
	assert.Equal(t, []string{"1", "2"}, ids(s.All()), "position is kept")

	assert.False(t, s.Swap(order("7", "pending", 1), order("7", "shipped", 1)))
	assert.False(t, s.Swap(snapshot, order("1", "shipped", 1)), "ids must match")
	assert.Equal(t, 2, s.Len())
}

func TestSwapSkipsChangedRecord(t *testing.T) {
	s := seeded(t, order("1", "pending", 5))
	stale, err := s.Get("1")
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAll([]types.Record{order("1", "pending", 99)}))

	assert.False(t, s.Swap(stale, order("1", "cancelled", 0)))
	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Total)
	assert.Equal(t, "pending", got.Status)
}

func TestRemove(t *testing.T) {
	s := seeded(t, order("1", "pending", 1), order("2", "pending", 2), order("3", "pending", 3))

	removed, err := s.Remove("2")
	require.NoError(t, err)
	assert.Equal(t, "2", removed.ID)
	assert.Equal(t, []string{"1", "3"}, ids(s.All()))

	_, err = s.Get("3")
	assert.NoError(t, err, "index is rebuilt after removal")

	_, err = s.Remove("2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReplaceAll(t *testing.T) {
	s := seeded(t, order("1", "pending", 1))

	require.NoError(t, s.ReplaceAll([]types.Record{order("5", "shipped", 1), order("6", "pending", 2)}))
	assert.Equal(t, []string{"5", "6"}, ids(s.All()))

	_, err := s.Get("1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReplaceAllRejectsBadInputAtomically(t *testing.T) {
	s := seeded(t, order("1", "pending", 1))

	err := s.ReplaceAll([]types.Record{order("5", "shipped", 1), order("5", "pending", 2)})
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	err = s.ReplaceAll([]types.Record{order("", "shipped", 1)})
	assert.ErrorIs(t, err, types.ErrInvalidID)

	assert.Equal(t, []string{"1"}, ids(s.All()))
}

func TestReplaceAllDetachesInput(t *testing.T) {
	in := []types.Record{order("1", "pending", 1)}
	s := seeded(t, in...)
	in[0].Status = "cancelled"

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "pending", got.Status)
}

func TestConcurrentUpserts(t *testing.T) {
	s := seeded(t, order("1", "pending", 0), order("2", "pending", 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "1"
			if i%2 == 0 {
				id = "2"
			}
			_, err := s.Upsert(id, types.Patch{types.FieldTotal: float64(i)})
			assert.NoError(t, err)
			_ = s.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 2, s.Len())
}
