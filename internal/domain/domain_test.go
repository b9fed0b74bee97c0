package domain

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoteID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewNoteID(now)
	assert.Regexp(t, regexp.MustCompile(`^1700000000123-[0-9a-z]{9}$`), id)
	assert.NotEqual(t, id, NewNoteID(now))
}

func TestReplicaStateOrderAndTombstones(t *testing.T) {
	s := NewReplicaState()
	s.Put(Note{ID: "a", Title: "a", Content: "1", CreatedAt: 1, LastModified: 1})
	s.Put(Note{ID: "b", Title: "b", Content: "1", CreatedAt: 1, LastModified: 1})
	s.Put(Note{ID: "a", Title: "a2", Content: "2", CreatedAt: 1, LastModified: 5})

	notes := s.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].ID, "overwrite keeps insertion position")
	assert.Equal(t, "a2", notes[0].Title)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.True(t, s.AddTombstone("z"))
	assert.True(t, s.AddTombstone("a"))
	assert.False(t, s.AddTombstone("a"))
	assert.Equal(t, []string{"a", "z"}, s.Tombstones())

	c := s.Clone()
	assert.True(t, c.Equal(s))
	c.Put(Note{ID: "c", Title: "c", Content: "c"})
	assert.False(t, c.Equal(s))
}

func TestNewReplicaStateFromSnapshotTombstoneWins(t *testing.T) {
	s := NewReplicaStateFromSnapshot(Snapshot{
		Notes:      []Note{{ID: "x", Title: "t", Content: "c"}, {ID: "y", Title: "t", Content: "c"}},
		DeletedIDs: []string{"x"},
	})
	_, ok := s.Get("x")
	assert.False(t, ok)
	assert.True(t, s.HasTombstone("x"))
	assert.Equal(t, 1, s.Len())
}

func TestSortByLastModifiedStable(t *testing.T) {
	notes := []Note{
		{ID: "1", LastModified: 10},
		{ID: "2", LastModified: 30},
		{ID: "3", LastModified: 10},
		{ID: "4", LastModified: 20},
	}
	SortByLastModified(notes)
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids)
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = fmt.Errorf("wrap: %w", &NotFoundError{ID: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "x", nf.ID)

	netErr := &NetworkError{Op: "sync", Err: errors.New("refused")}
	assert.True(t, errors.Is(netErr, ErrNetwork))
	assert.Contains(t, netErr.Error(), "refused")

	assert.True(t, errors.Is(&ValidationError{Field: "title"}, ErrValidation))
	assert.Error(t, Note{ID: "1", Title: " ", Content: "c"}.Validate())
	assert.Error(t, Note{ID: "1", Title: "t", Content: "c", CreatedAt: 5, LastModified: 4}.Validate())
	assert.NoError(t, Note{ID: "1", Title: "t", Content: "c", CreatedAt: 5, LastModified: 5}.Validate())
}
