package upgrade

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/haierkeys/lww-note-sync/internal/config"
	"github.com/haierkeys/lww-note-sync/internal/dao"
	"github.com/haierkeys/lww-note-sync/internal/model"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dao.NewDBEngine(config.DatabaseConfig{
		Enabled:     true,
		Type:        "sqlite",
		Path:        filepath.Join(t.TempDir(), "replica.sqlite3"),
		TablePrefix: "lww_",
		AutoMigrate: true,
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dao.CloseDB(db) })
	return db
}

type fakeMigration struct {
	version string
	err     error
	calls   *[]string
}

func (m fakeMigration) Version() string     { return m.version }
func (m fakeMigration) Description() string { return "fake " + m.version }
func (m fakeMigration) Up(ctx context.Context, tx *gorm.DB) error {
	*m.calls = append(*m.calls, m.version)
	return m.err
}

func TestRun_OrderAndIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var calls []string

	m := NewMigrationManager(db, nil,
		fakeMigration{version: "0.2.0", calls: &calls},
		fakeMigration{version: "v0.1.0", calls: &calls},
		fakeMigration{version: "0.9.0", calls: &calls},
	)

	n, err := m.Run(ctx, "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"v0.1.0", "0.2.0"}, calls, "sorted by semver, newer than running skipped")

	n, err = m.Run(ctx, "0.3.0")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = m.Run(ctx, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, "v0.1.0", applied[0].Version)
}

func TestRun_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	var calls []string

	m := NewMigrationManager(db, nil, fakeMigration{version: "0.1.0", err: errors.New("boom"), calls: &calls})
	_, err := m.Run(ctx, "0.1.0")
	require.Error(t, err)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRun_InvalidRunningVersion(t *testing.T) {
	_, err := NewMigrationManager(openDB(t), nil).Run(context.Background(), "dev")
	assert.Error(t, err)
}

func TestBuiltin_BackfillAndCompact(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	require.NoError(t, db.Create(&[]model.ReplicaNote{
		{Replica: "server", ID: "a", Title: "a", Content: "a", Position: 4},
		{Replica: "server", ID: "b", Title: "b", Content: "b", Position: 9},
	}).Error)
	require.NoError(t, db.Create(&model.ReplicaTombstone{Replica: "server", NoteID: "gone"}).Error)
	require.NoError(t, db.Create(&model.ReplicaMeta{Replica: "server"}).Error)

	n, err := NewMigrationManager(db, nil).Run(ctx, "0.3.0")
	require.NoError(t, err)
	assert.Equal(t, len(Builtin()), n)

	var meta model.ReplicaMeta
	require.NoError(t, db.Where("replica = ?", "server").First(&meta).Error)
	assert.Equal(t, 2, meta.Notes)
	assert.Equal(t, 1, meta.Deleted)

	var notes []model.ReplicaNote
	require.NoError(t, db.Where("replica = ?", "server").Order("position").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, "a", notes[0].ID)
	assert.Equal(t, 0, notes[0].Position)
	assert.Equal(t, 1, notes[1].Position)
}
