package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskbridge/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{IssueKey: "PROJ-1", Project: "PROJ", Summary: "first", CreatedAt: base},
		{IssueKey: "PROJ-2", Project: "PROJ", Summary: "second", CreatedAt: base.Add(time.Hour)},
		{IssueKey: "PROJ-3", Project: "PROJ", Summary: "third", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e))
	}

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "PROJ-3", got[0].IssueKey)
	assert.Equal(t, "PROJ-2", got[1].IssueKey)
	assert.Equal(t, "PROJ-1", got[2].IssueKey)
	for _, e := range got {
		assert.NotEmpty(t, e.ID, "id should be generated when absent")
	}
}

func TestRecordRoundTripsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := Entry{
		IssueKey:          "OPS-7",
		Project:           "OPS",
		Summary:           "Fix login timeout",
		RequestedType:     "bug",
		ResolvedType:      "Bug",
		RequestedPriority: "urgent",
		ResolvedPriority:  "Highest",
		RequestedAssignee: "maria@example.com",
		ResolvedAssignee:  "5b10ac8d82e05b22cc7d4ef5",
		CreatedAt:         time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.Record(ctx, in))

	got, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, in.IssueKey, got[0].IssueKey)
	assert.Equal(t, in.Project, got[0].Project)
	assert.Equal(t, in.Summary, got[0].Summary)
	assert.Equal(t, in.RequestedType, got[0].RequestedType)
	assert.Equal(t, in.ResolvedType, got[0].ResolvedType)
	assert.Equal(t, in.RequestedPriority, got[0].RequestedPriority)
	assert.Equal(t, in.ResolvedPriority, got[0].ResolvedPriority)
	assert.Equal(t, in.RequestedAssignee, got[0].RequestedAssignee)
	assert.Equal(t, in.ResolvedAssignee, got[0].ResolvedAssignee)
	assert.WithinDuration(t, in.CreatedAt, got[0].CreatedAt, time.Second)
}

func TestRecordRequiresIssueKey(t *testing.T) {
	store := newTestStore(t)

	err := store.Record(context.Background(), Entry{Project: "PROJ", Summary: "no key"})
	assert.Error(t, err)
}

func TestListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{
			IssueKey:  fmt.Sprintf("PROJ-%d", i+1),
			Project:   "PROJ",
			Summary:   "entry",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "PROJ-5", got[0].IssueKey)
	assert.Equal(t, "PROJ-4", got[1].IssueKey)
}

func TestPruneByAge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.Record(ctx, Entry{IssueKey: "PROJ-1", Project: "PROJ", Summary: "old", CreatedAt: now.AddDate(0, 0, -200)}))
	require.NoError(t, store.Record(ctx, Entry{IssueKey: "PROJ-2", Project: "PROJ", Summary: "recent", CreatedAt: now}))

	cfg := config.HistoryRetentionConfig{RetentionDays: 90, MaxEntries: 0, CleanupEnabled: true}
	deleted, err := store.Prune(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "PROJ-2", got[0].IssueKey)
}

func TestPruneByCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 105; i++ {
		require.NoError(t, store.Record(ctx, Entry{
			IssueKey:  fmt.Sprintf("PROJ-%d", i+1),
			Project:   "PROJ",
			Summary:   "entry",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	cfg := config.HistoryRetentionConfig{RetentionDays: 365, MaxEntries: 100, CleanupEnabled: true}
	deleted, err := store.Prune(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	got, err := store.List(ctx, 200)
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, "PROJ-105", got[0].IssueKey, "newest entries survive the cap")
}

func TestPruneDisabled(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Entry{IssueKey: "PROJ-1", Project: "PROJ", Summary: "kept", CreatedAt: time.Now().UTC().AddDate(0, 0, -500)}))

	cfg := config.HistoryRetentionConfig{RetentionDays: 90, MaxEntries: 100, CleanupEnabled: false}
	deleted, err := store.Prune(ctx, cfg)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPruneRejectsInvalidConfig(t *testing.T) {
	store := newTestStore(t)

	cfg := config.HistoryRetentionConfig{RetentionDays: 0, MaxEntries: 100, CleanupEnabled: true}
	_, err := store.Prune(context.Background(), cfg)
	assert.Error(t, err)
}
