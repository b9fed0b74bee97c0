package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haierkeys/lww-note-sync/internal/domain"
)

type memStateStore struct {
	mu      sync.Mutex
	snap    *domain.Snapshot
	saves   int
	failErr error
}

func (m *memStateStore) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return domain.Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *memStateStore) Save(ctx context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.snap = &snap
	m.saves++
	return nil
}

// fixedClock 返回固定时间，可手动拨动
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(ms int64) {
	c.mu.Lock()
	c.now = time.UnixMilli(ms)
	c.mu.Unlock()
}

func openStore(t *testing.T, persist *memStateStore, clock *fixedClock) *Store {
	t.Helper()
	s, err := Open(context.Background(), persist, WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestProperty_CreateAndUpdateTimestamps(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	nonEmpty := gen.AlphaString().SuchThat(func(s string) bool { return s != "" })

	properties.Property("create sets lastModified == createdAt", prop.ForAll(
		func(title, content string, at int64) bool {
			clock := &fixedClock{}
			clock.Set(at)
			s := openStore(t, &memStateStore{}, clock)

			n, err := s.Create(context.Background(), title, content)
			return err == nil && n.CreatedAt == at && n.LastModified == n.CreatedAt
		},
		nonEmpty, nonEmpty, gen.Int64Range(1, 1<<40),
	))

	properties.Property("update strictly increases lastModified and keeps createdAt", prop.ForAll(
		func(content string, at, drift int64) bool {
			clock := &fixedClock{}
			clock.Set(at)
			s := openStore(t, &memStateStore{}, clock)

			n, err := s.Create(context.Background(), "t", "c")
			if err != nil {
				return false
			}
			// 时钟可能回拨
			clock.Set(at + drift)
			u, err := s.Update(context.Background(), n.ID, "t2", content)
			if err != nil {
				return false
			}
			again, err := s.Update(context.Background(), n.ID, "t3", content)
			if err != nil {
				return false
			}
			return u.LastModified > n.LastModified &&
				again.LastModified > u.LastModified &&
				u.CreatedAt == n.CreatedAt &&
				again.CreatedAt == n.CreatedAt
		},
		nonEmpty, gen.Int64Range(1000, 1<<40), gen.Int64Range(-500, 500),
	))

	properties.TestingRun(t)
}

func TestStore_ValidationRejectsBlank(t *testing.T) {
	persist := &memStateStore{}
	s := openStore(t, persist, &fixedClock{})

	_, err := s.Create(context.Background(), "   ", "content")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)

	_, err = s.Create(context.Background(), "title", "\n\t")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "content", ve.Field)

	assert.Empty(t, s.List())
	assert.Zero(t, persist.saves)

	n, err := s.Create(context.Background(), "  x ", " y ")
	require.NoError(t, err)
	assert.Equal(t, "x", n.Title)
	assert.Equal(t, "y", n.Content)

	_, err = s.Update(context.Background(), n.ID, "", "y")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t, &memStateStore{}, &fixedClock{})

	_, err := s.Update(context.Background(), "missing", "t", "c")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, s.BeginEdit("missing"), domain.ErrNotFound)
}

func TestStore_DeleteAddsTombstone(t *testing.T) {
	persist := &memStateStore{}
	s := openStore(t, persist, &fixedClock{})

	n, err := s.Create(context.Background(), "t", "c")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), n.ID))

	assert.Empty(t, s.List())
	assert.Equal(t, []string{n.ID}, s.Tombstones())
	assert.Equal(t, []string{n.ID}, persist.snap.DeletedIDs)
	assert.ErrorIs(t, s.Delete(context.Background(), n.ID), domain.ErrNotFound)
}

func TestStore_ListOrder(t *testing.T) {
	clock := &fixedClock{}
	s := openStore(t, &memStateStore{}, clock)
	ctx := context.Background()

	clock.Set(100)
	a, _ := s.Create(ctx, "a", "a")
	clock.Set(300)
	b, _ := s.Create(ctx, "b", "b")
	clock.Set(100)
	c, _ := s.Create(ctx, "c", "c")
	clock.Set(200)
	d, _ := s.Create(ctx, "d", "d")

	ids := make([]string, 0, 4)
	for _, n := range s.List() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{b.ID, d.ID, a.ID, c.ID}, ids)
}

func TestStore_SurvivesReopen(t *testing.T) {
	persist := &memStateStore{}
	clock := &fixedClock{}
	clock.Set(1000)
	s := openStore(t, persist, clock)

	n, err := s.Create(context.Background(), "x", "y")
	require.NoError(t, err)
	gone, err := s.Create(context.Background(), "gone", "y")
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), gone.ID))

	reopened := openStore(t, persist, clock)
	got, ok := reopened.Get(n.ID)
	require.True(t, ok)
	assert.Equal(t, n, got)
	assert.Equal(t, []string{gone.ID}, reopened.Tombstones())
}

func TestStore_SaveFailureLeavesStateUntouched(t *testing.T) {
	persist := &memStateStore{}
	s := openStore(t, persist, &fixedClock{})

	n, err := s.Create(context.Background(), "t", "c")
	require.NoError(t, err)

	persist.failErr = errors.New("disk full")
	_, err = s.Create(context.Background(), "t2", "c2")
	assert.Error(t, err)
	_, err = s.Update(context.Background(), n.ID, "t3", "c3")
	assert.Error(t, err)
	assert.Error(t, s.Delete(context.Background(), n.ID))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, n, list[0])
	assert.Empty(t, s.Tombstones())
}

func TestStore_EditGuardDefersMerge(t *testing.T) {
	persist := &memStateStore{}
	s := openStore(t, persist, &fixedClock{})
	ctx := context.Background()

	n, err := s.Create(ctx, "t", "c")
	require.NoError(t, err)
	require.NoError(t, s.BeginEdit(n.ID))

	id, open := s.Editing()
	assert.True(t, open)
	assert.Equal(t, n.ID, id)

	incoming := domain.Note{ID: "remote", Title: "r", Content: "r", CreatedAt: 1, LastModified: 1}
	_, err = s.Merge(ctx, domain.Snapshot{Notes: []domain.Note{incoming}})
	assert.ErrorIs(t, err, domain.ErrMergeDeferred)
	_, ok := s.Get("remote")
	assert.False(t, ok, "merge must not touch state while editing")

	newer := incoming
	newer.Content = "r2"
	newer.LastModified = 2
	_, err = s.Merge(ctx, domain.Snapshot{Notes: []domain.Note{n, newer}})
	assert.ErrorIs(t, err, domain.ErrMergeDeferred)

	res, err := s.EndEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	got, ok := s.Get("remote")
	require.True(t, ok)
	assert.Equal(t, "r2", got.Content, "latest queued snapshot is applied")

	_, open = s.Editing()
	assert.False(t, open)

	res, err = s.EndEdit(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestStore_DeleteEditedNoteDrainsQueue(t *testing.T) {
	s := openStore(t, &memStateStore{}, &fixedClock{})
	ctx := context.Background()

	n, err := s.Create(ctx, "t", "c")
	require.NoError(t, err)
	require.NoError(t, s.BeginEdit(n.ID))

	remote := domain.Note{ID: "remote", Title: "r", Content: "r", CreatedAt: 1, LastModified: 1}
	_, err = s.Merge(ctx, domain.Snapshot{Notes: []domain.Note{remote, n}})
	require.ErrorIs(t, err, domain.ErrMergeDeferred)

	require.NoError(t, s.Delete(ctx, n.ID))

	_, open := s.Editing()
	assert.False(t, open)
	_, ok := s.Get("remote")
	assert.True(t, ok)
	_, ok = s.Get(n.ID)
	assert.False(t, ok, "queued snapshot must not resurrect the deleted note")
}

func TestStore_RepeatedMergeDoesNotSave(t *testing.T) {
	ctx := context.Background()
	persist := &memStateStore{}
	clock := &fixedClock{}
	clock.Set(1000)
	s := openStore(t, persist, clock)

	peer := domain.Snapshot{
		Notes:      []domain.Note{{ID: "a", Title: "t", Content: "c", CreatedAt: 10, LastModified: 10}},
		DeletedIDs: []string{"gone"},
	}

	res, err := s.Merge(ctx, peer)
	require.NoError(t, err)
	assert.True(t, res.Changed())
	assert.Equal(t, 1, persist.saves)

	for i := 0; i < 2; i++ {
		res, err = s.Merge(ctx, peer)
		require.NoError(t, err)
		assert.False(t, res.Changed(), "merge %d", i+2)
		assert.Zero(t, res.TombstonesAdded)
		assert.Zero(t, res.TombstonesPurged)
	}
	assert.Equal(t, 1, persist.saves)
	assert.Empty(t, s.Tombstones())
}
