package status_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notdeathm/notdeath/internal/status"
)

func testDocument() *status.Document {
	return &status.Document{
		Summary:   "All systems operational",
		Status:    status.StatusOnline,
		UpdatedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Components: []status.Component{
			{ID: "site", Name: "Website", Status: status.StatusOnline, CheckedAt: time.Now().UTC()},
		},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := status.NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDocument()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, status.StatusOnline, loaded.Status)
	require.Len(t, loaded.Components, 1)
	assert.Equal(t, "site", loaded.Components[0].ID)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"status.json"}, names)
}

func TestFileStore_LoadAbsent(t *testing.T) {
	store := status.NewFileStore(t.TempDir())

	doc, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileStore_LoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status.json"), []byte("{not json"), 0o644))

	store := status.NewFileStore(dir)
	doc, err := store.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileStore_SaveReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	store := status.NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDocument()))

	updated := testDocument()
	updated.Status = status.StatusOffline
	updated.Summary = "Some services are down"
	require.NoError(t, store.Save(ctx, updated))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, status.StatusOffline, loaded.Status)
}

func TestFileStore_AppendHistoryTrimsToLimit(t *testing.T) {
	dir := t.TempDir()
	store := status.NewFileStore(dir)
	ctx := context.Background()

	for i := 0; i < status.HistoryLimit+1; i++ {
		entry := status.HistoryEntry{
			Time:    time.Now().UTC(),
			Status:  status.StatusOnline,
			Summary: fmt.Sprintf("run %d", i),
		}
		require.NoError(t, store.AppendHistory(ctx, entry))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "status-history.json"))
	require.NoError(t, err)

	var history []status.HistoryEntry
	require.NoError(t, json.Unmarshal(raw, &history))

	require.Len(t, history, status.HistoryLimit)
	// Oldest entry was evicted first.
	assert.Equal(t, "run 1", history[0].Summary)
	assert.Equal(t, fmt.Sprintf("run %d", status.HistoryLimit), history[len(history)-1].Summary)
}

func TestFileStore_AppendHistoryMalformedLogCountsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status-history.json"), []byte("garbage"), 0o644))

	store := status.NewFileStore(dir)
	entry := status.HistoryEntry{Time: time.Now().UTC(), Status: status.StatusOnline, Summary: "fresh"}
	require.NoError(t, store.AppendHistory(context.Background(), entry))

	raw, err := os.ReadFile(filepath.Join(dir, "status-history.json"))
	require.NoError(t, err)

	var history []status.HistoryEntry
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].Summary)
}
