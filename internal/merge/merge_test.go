package merge

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haierkeys/lww-note-sync/internal/domain"
)

// 小 ID 池保证本地与对端经常命中同一笔记
func genID() gopter.Gen {
	return gen.IntRange(0, 7).Map(func(i int) string { return "n" + strconv.Itoa(i) })
}

func genNote() gopter.Gen {
	return gopter.CombineGens(
		genID(),
		gen.Int64Range(1, 40),
		gen.Int64Range(0, 40),
		gen.AlphaString(),
	).Map(func(v []interface{}) domain.Note {
		created := v[1].(int64)
		return domain.Note{
			ID:           v[0].(string),
			Title:        "t",
			Content:      "c" + v[3].(string),
			CreatedAt:    created,
			LastModified: created + v[2].(int64),
		}
	})
}

type replicaInput struct {
	Notes      []domain.Note
	Tombstones []string
}

func genReplica() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOf(genNote()),
		gen.SliceOf(genID()),
	).Map(func(v []interface{}) replicaInput {
		return replicaInput{Notes: v[0].([]domain.Note), Tombstones: v[1].([]string)}
	})
}

func (in replicaInput) state() *domain.ReplicaState {
	return domain.NewReplicaStateFromSnapshot(domain.Snapshot{Notes: in.Notes, DeletedIDs: in.Tombstones})
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestProperty_MergeIdempotent(t *testing.T) {
	properties := newProperties()

	properties.Property("merging the same snapshot twice equals merging once", prop.ForAll(
		func(local, peer replicaInput, collect bool) bool {
			opts := Options{CollectTombstones: collect}

			once := local.state()
			Apply(once, peer.Notes, peer.Tombstones, opts)

			twice := local.state()
			Apply(twice, peer.Notes, peer.Tombstones, opts)
			second := Apply(twice, peer.Notes, peer.Tombstones, opts)

			return once.Equal(twice) && !second.Changed()
		},
		genReplica(),
		genReplica(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_TombstoneAbsolute(t *testing.T) {
	properties := newProperties()

	properties.Property("a tombstoned id never comes back to life", prop.ForAll(
		func(local, peer replicaInput, victim domain.Note, collect bool) bool {
			state := local.state()
			state.Remove(victim.ID)
			state.AddTombstone(victim.ID)

			peerNotes := append([]domain.Note{victim}, peer.Notes...)
			Apply(state, peerNotes, peer.Tombstones, Options{CollectTombstones: collect})

			_, alive := state.Get(victim.ID)
			return !alive && state.HasTombstone(victim.ID)
		},
		genReplica(),
		genReplica(),
		genNote(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_TombstoneCollected(t *testing.T) {
	properties := newProperties()

	properties.Property("a tombstone absent from peer live ids is purged", prop.ForAll(
		func(local, peer replicaInput, victim string) bool {
			state := local.state()
			state.Remove(victim)
			state.AddTombstone(victim)

			peerNotes := make([]domain.Note, 0, len(peer.Notes))
			for _, n := range peer.Notes {
				if n.ID != victim {
					peerNotes = append(peerNotes, n)
				}
			}
			Apply(state, peerNotes, peer.Tombstones, Options{CollectTombstones: true})

			_, alive := state.Get(victim)
			return !state.HasTombstone(victim) && !alive
		},
		genReplica(),
		genReplica(),
		genID(),
	))

	properties.TestingRun(t)
}

func TestProperty_NeverLosesNewerData(t *testing.T) {
	properties := newProperties()

	properties.Property("every surviving note is at least as new as both inputs", prop.ForAll(
		func(local, peer replicaInput) bool {
			state := local.state()
			before := state.Clone()
			Apply(state, peer.Notes, peer.Tombstones, Options{CollectTombstones: true})

			for _, n := range state.Notes() {
				if old, ok := before.Get(n.ID); ok && old.LastModified > n.LastModified {
					return false
				}
				for _, p := range peer.Notes {
					if p.ID == n.ID && p.LastModified > n.LastModified {
						return false
					}
				}
			}
			return true
		},
		genReplica(),
		genReplica(),
	))

	properties.TestingRun(t)
}

func TestApply_LastWriteWins(t *testing.T) {
	local := domain.Note{ID: "A", Title: "t", Content: "old", CreatedAt: 50, LastModified: 100}
	peer := domain.Note{ID: "A", Title: "t", Content: "new", CreatedAt: 50, LastModified: 200}

	t.Run("peer newer overwrites", func(t *testing.T) {
		state := domain.NewReplicaState()
		state.Put(local)

		res := Apply(state, []domain.Note{peer}, nil, Options{CollectTombstones: true})

		got, ok := state.Get("A")
		require.True(t, ok)
		assert.Equal(t, "new", got.Content)
		assert.Equal(t, int64(200), got.LastModified)
		assert.Equal(t, 1, res.Updated)
	})

	t.Run("peer older is ignored", func(t *testing.T) {
		state := domain.NewReplicaState()
		state.Put(peer)

		res := Apply(state, []domain.Note{local}, nil, Options{CollectTombstones: true})

		got, _ := state.Get("A")
		assert.Equal(t, "new", got.Content)
		assert.Equal(t, int64(200), got.LastModified)
		assert.Equal(t, 1, res.Kept)
		assert.False(t, res.Changed())
	})

	t.Run("same timestamp keeps local", func(t *testing.T) {
		state := domain.NewReplicaState()
		state.Put(local)

		same := local
		same.Content = "other"
		Apply(state, []domain.Note{same}, nil, Options{})

		got, _ := state.Get("A")
		assert.Equal(t, "old", got.Content)
	})
}

func TestApply_Steps(t *testing.T) {
	state := domain.NewReplicaState()
	state.Put(domain.Note{ID: "live", Title: "t", Content: "c", LastModified: 1})
	state.Put(domain.Note{ID: "doomed", Title: "t", Content: "c", LastModified: 99})
	state.AddTombstone("confirmed")
	state.AddTombstone("pending")

	peerNotes := []domain.Note{
		{ID: "pending", Title: "t", Content: "stale", LastModified: 500},
		{ID: "doomed", Title: "t", Content: "newer", LastModified: 500},
		{ID: "fresh", Title: "t", Content: "c", LastModified: 3},
	}

	t.Run("client collects tombstones", func(t *testing.T) {
		s := state.Clone()
		res := Apply(s, peerNotes, []string{"doomed"}, Options{CollectTombstones: true})

		assert.Equal(t, []string{"doomed", "pending"}, s.Tombstones())
		assert.Equal(t, Result{
			Inserted:         1,
			Suppressed:       2,
			Removed:          1,
			TombstonesAdded:  1,
			TombstonesPurged: 1,
		}, res)

		ids := make([]string, 0)
		for _, n := range s.Notes() {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []string{"live", "fresh"}, ids)
	})

	t.Run("server keeps every tombstone", func(t *testing.T) {
		s := state.Clone()
		res := Apply(s, peerNotes, nil, Options{})

		assert.Equal(t, []string{"confirmed", "pending"}, s.Tombstones())
		assert.Zero(t, res.TombstonesPurged)
		_, ok := s.Get("doomed")
		assert.True(t, ok)
	})
}

func TestApply_DoesNotAliasPeerNotes(t *testing.T) {
	state := domain.NewReplicaState()
	peer := []domain.Note{{ID: "x", Title: "t", Content: "c", LastModified: 1}}

	Apply(state, peer, nil, Options{})
	peer[0].Content = "mutated"

	got, _ := state.Get("x")
	assert.Equal(t, "c", got.Content)
}

func TestApply_TombstoneAddedAndCollectedIsNotAChange(t *testing.T) {
	state := domain.NewReplicaState()
	state.Put(domain.Note{ID: "x", Title: "t", Content: "c", LastModified: 1})
	opts := Options{CollectTombstones: true}

	first := Apply(state, nil, []string{"x", "never-seen"}, opts)
	assert.Equal(t, Result{Removed: 1}, first)
	assert.True(t, first.Changed())
	assert.Empty(t, state.Tombstones())

	second := Apply(state, nil, []string{"x", "never-seen"}, opts)
	assert.Equal(t, Result{}, second)
	assert.False(t, second.Changed())
}
