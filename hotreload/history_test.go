package hotreload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func strPtr(s string) *string { return &s }

func TestNewHistory_Default(t *testing.T) {
	assert.Equal(t, DefaultMaxEntries, NewHistory(0).MaxEntries())
	assert.Equal(t, DefaultMaxEntries, NewHistory(-2).MaxEntries())
	assert.Equal(t, 3, NewHistory(3).MaxEntries())
}

func TestRecordReload_ReadableFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "echo.yaml", "name: echo")
	mod := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, mod, mod))

	h := NewHistory(5)
	entry := h.RecordReload("echo", path, true, nil, nil)

	assert.True(t, strings.HasPrefix(entry.ID, "echo-"))
	assert.Equal(t, path, entry.Path)
	assert.True(t, entry.ModifiedTime.Equal(mod))
	require.NotNil(t, entry.Hash)
	assert.Equal(t, hashBytes([]byte("name: echo")), *entry.Hash)
	assert.WithinDuration(t, time.Now(), entry.Timestamp, time.Second)
}

func TestRecordReload_UnreadableFile(t *testing.T) {
	h := NewHistory(5)
	before := time.Now()
	entry := h.RecordReload("ghost", filepath.Join(t.TempDir(), "missing"), false, strPtr("not found"), nil)

	assert.Nil(t, entry.Hash)
	assert.False(t, entry.ModifiedTime.Before(before))
	require.NotNil(t, entry.Error)
	assert.Equal(t, "not found", *entry.Error)
}

func TestRecordReload_UniqueIDs(t *testing.T) {
	h := NewHistory(1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.RecordReload("same", "", true, nil, nil)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, e := range h.History("same") {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
	}
	assert.Len(t, seen, 50)
}

func TestHistory_Bound(t *testing.T) {
	const k = 3
	h := NewHistory(k)

	var ids []string
	for i := 0; i < 7; i++ {
		ids = append(ids, h.RecordReload("p", "", i%2 == 0, nil, nil).ID)
	}

	got := h.History("p")
	require.Len(t, got, k)
	for i, e := range got {
		assert.Equal(t, ids[len(ids)-k+i], e.ID)
	}

	// fewer than k keeps everything
	h.RecordReload("q", "", true, nil, nil)
	assert.Len(t, h.History("q"), 1)
}

func TestHistory_LastAndSuccess(t *testing.T) {
	h := NewHistory(10)

	_, ok := h.Last("p")
	assert.False(t, ok)
	assert.True(t, h.WasLastSuccess("p"), "no history counts as success")

	first := h.RecordReload("p", "", true, nil, nil)
	h.RecordReload("p", "", false, strPtr("boom"), nil)

	last, ok := h.Last("p")
	require.True(t, ok)
	assert.False(t, last.Success)
	assert.False(t, h.WasLastSuccess("p"))

	success, ok := h.LastSuccess("p")
	require.True(t, ok)
	assert.Equal(t, first.ID, success.ID)
}

func TestHistory_RollbackData(t *testing.T) {
	h := NewHistory(10)

	_, ok := h.RollbackData("p")
	assert.False(t, ok)

	v1 := NewVersionData("1.0.0", []byte("one"))
	v2 := NewVersionData("2.0.0", []byte("two"))

	h.RecordReload("p", "", true, nil, nil)
	_, ok = h.RollbackData("p")
	assert.False(t, ok, "latest success has no previous data")

	h.RecordReload("p", "", true, nil, v1)
	h.RecordReload("p", "", true, nil, v2)
	h.RecordReload("p", "", false, strPtr("bad"), nil)

	got, ok := h.RollbackData("p")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", got.Version)
	assert.Equal(t, hashBytes([]byte("two")), got.Hash)
}

func TestHistory_History_ReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.RecordReload("p", "", true, nil, nil)

	got := h.History("p")
	got[0].Success = false

	last, _ := h.Last("p")
	assert.True(t, last.Success)
}

func TestHistory_ClearAndStats(t *testing.T) {
	h := NewHistory(10)
	h.RecordReload("a", "", true, nil, nil)
	h.RecordReload("a", "", false, strPtr("x"), nil)
	h.RecordReload("b", "", true, nil, nil)

	assert.Equal(t, Stats{TotalItems: 2, TotalEntries: 3, SuccessfulEntries: 2, FailedEntries: 1}, h.Stats())
	assert.Equal(t, []string{"a", "b"}, h.Names())

	h.Clear("a")
	assert.Empty(t, h.History("a"))
	assert.Equal(t, 1, h.Stats().TotalItems)

	h.ClearAll()
	assert.Equal(t, Stats{}, h.Stats())
}

func TestEntry_JSON(t *testing.T) {
	h := NewHistory(10)
	entry := h.RecordReload("p", "", false, strPtr("bad yaml"), nil)

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "bad yaml", raw["error"])
	assert.Equal(t, false, raw["success"])
	assert.Contains(t, raw, "modified_time")
	assert.NotContains(t, raw, "hash")
	assert.NotContains(t, raw, "previous_data")
}
