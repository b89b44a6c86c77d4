package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"example.com/fitjournal/internal/domain"
	"example.com/fitjournal/internal/persistence/jsonfile"
)

func seededStore(t *testing.T, participants int) *jsonfile.Store {
	t.Helper()
	store := jsonfile.NewStore(filepath.Join(t.TempDir(), "db.json"))
	db := domain.NewDatabase("Bench 100kg")
	db.Challenge.Participants = participants
	require.NoError(t, store.Save(context.Background(), db))
	return store
}

func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestRunOnceAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 3)
	dir := filepath.Join(t.TempDir(), "backups")
	snapshotter := NewSnapshotter(store, dir, 5, nil)
	snapshotter.now = steppingClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))

	_, err := snapshotter.RunOnce(ctx)
	require.NoError(t, err)

	_, err = store.IncrementParticipants(ctx)
	require.NoError(t, err)

	path, err := snapshotter.RunOnce(ctx)
	require.NoError(t, err)

	latest, err := snapshotter.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, path, latest.Path)
	require.Equal(t, 4, latest.Document.Challenge.Participants)
	require.True(t, time.Date(2025, time.January, 1, 0, 2, 0, 0, time.UTC).Equal(latest.TakenAt))
}

func TestCleanupKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0o644))

	snapshotter := NewSnapshotter(store, dir, 2, nil)
	snapshotter.now = steppingClock(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	var paths []string
	for i := 0; i < 4; i++ {
		path, err := snapshotter.RunOnce(ctx)
		require.NoError(t, err)
		paths = append(paths, path)
	}

	files, err := snapshotter.list()
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, paths[3], files[0].path)
	require.Equal(t, paths[2], files[1].path)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
}

func TestLoadLatestWithoutSnapshots(t *testing.T) {
	snapshotter := NewSnapshotter(seededStore(t, 0), filepath.Join(t.TempDir(), "absent"), 3, nil)

	latest, err := snapshotter.LoadLatest()
	require.NoError(t, err)
	require.Nil(t, latest)
}

func TestRunOnceFailsWhenDocumentMissing(t *testing.T) {
	store := jsonfile.NewStore(filepath.Join(t.TempDir(), "missing.json"))
	dir := filepath.Join(t.TempDir(), "backups")
	snapshotter := NewSnapshotter(store, dir, 3, nil)

	_, err := snapshotter.RunOnce(context.Background())
	require.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestSchedule(t *testing.T) {
	snapshotter := NewSnapshotter(seededStore(t, 0), t.TempDir(), 3, nil)
	c := cron.New()

	_, err := snapshotter.Schedule(c, "@hourly")
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)

	_, err = snapshotter.Schedule(c, "every now and then")
	require.Error(t, err)
}
