package checkpoint

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "checkpoint.json"), testLog())
}

func TestLoadFreshWhenNoFile(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, LoadFresh, s.Load())
	assert.Equal(t, Stats{}, s.Stats())
	assert.False(t, s.StartTime().IsZero())
}

func TestPendingPartition(t *testing.T) {
	s := newTestStore(t)
	s.Load()

	units := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	assert.Equal(t, 10, s.MergeUnits(units))

	s.MarkCompleted("1")
	s.MarkCompleted("2")
	s.MarkCompleted("3")
	s.MarkFailed("4", "status 404")

	assert.Equal(t, []string{"5", "6", "7", "8", "9", "10"}, s.Pending())
	assert.Equal(t, Stats{Total: 10, Completed: 3, Failed: 1, Pending: 6}, s.Stats())
}

func TestMergeUnitsGrowsOnly(t *testing.T) {
	s := newTestStore(t)
	s.Load()

	assert.Equal(t, 3, s.MergeUnits([]string{"a", "b", "c"}))
	assert.Equal(t, 1, s.MergeUnits([]string{"b", "c", "d"}))
	assert.Equal(t, 0, s.MergeUnits([]string{"a", "d"}))
	assert.Equal(t, 4, s.Stats().Total)
}

func TestMarkCompletedIdempotentAndWinsOverFailed(t *testing.T) {
	s := newTestStore(t)
	s.Load()
	s.MergeUnits([]string{"100"})

	s.MarkFailed("100", "status 503")
	assert.Equal(t, Stats{Total: 1, Failed: 1}, s.Stats())

	// A later success removes the failure record.
	s.MarkCompleted("100")
	s.MarkCompleted("100")
	assert.Equal(t, Stats{Total: 1, Completed: 1}, s.Stats())

	// Completion is sticky: a late failure cannot demote it.
	s.MarkFailed("100", "status 503")
	assert.Equal(t, Stats{Total: 1, Completed: 1}, s.Stats())
}

func TestClearFailed(t *testing.T) {
	s := newTestStore(t)
	s.Load()
	s.MergeUnits([]string{"1", "2", "3"})
	s.MarkFailed("1", "parse_failed")
	s.MarkFailed("2", "status 404")

	assert.Equal(t, 2, s.ClearFailed())
	assert.Equal(t, []string{"1", "2", "3"}, s.Pending())
	assert.Equal(t, 0, s.ClearFailed())
}

func TestPendingNumericOrder(t *testing.T) {
	s := newTestStore(t)
	s.Load()
	s.MergeUnits([]string{"10", "2", "1", "33"})
	assert.Equal(t, []string{"1", "2", "10", "33"}, s.Pending())

	// Non-numeric ids fall back to lexicographic order.
	s2 := newTestStore(t)
	s2.Load()
	s2.MergeUnits([]string{"b", "10", "a"})
	assert.Equal(t, []string{"10", "a", "b"}, s2.Pending())
}

func TestPersistAndResume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	s := NewStore(path, testLog())
	s.Load()
	s.MergeUnits([]string{"1", "2", "3", "4"})
	s.MarkCompleted("1")
	s.MarkFailed("2", "status 404")
	s.AddWorkIDs([]string{"777", "888"})
	require.NoError(t, s.Persist())

	s2 := NewStore(path, testLog())
	assert.Equal(t, LoadResumed, s2.Load())
	assert.Equal(t, Stats{Total: 4, Completed: 1, Failed: 1, Pending: 2}, s2.Stats())
	assert.Equal(t, []string{"3", "4"}, s2.Pending())
	assert.Equal(t, []string{"777", "888"}, s2.WorkIDs())
	assert.WithinDuration(t, s.StartTime(), s2.StartTime(), time.Second)
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "checkpoint.json"), testLog())
	s.Load()
	s.MergeUnits([]string{"1"})
	require.NoError(t, s.Persist())
	require.NoError(t, s.Persist())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())
}

func TestPersistedFileShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := NewStore(path, testLog())
	s.Load()
	s.MergeUnits([]string{"5", "6"})
	s.MarkCompleted("5")
	require.NoError(t, s.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cp Checkpoint
	require.NoError(t, json.Unmarshal(data, &cp))
	assert.Equal(t, SchemaVersion, cp.SchemaVersion)
	assert.Equal(t, []string{"5", "6"}, cp.TotalUnits)
	assert.Equal(t, []string{"5"}, cp.Completed)
	assert.False(t, cp.LastUpdate.IsZero())

	// pending is derived, never stored
	assert.NotContains(t, string(data), "\"pending\"")
}

func TestLoadRecoversFromCorruption(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"schema_version": 1, "total_units": ["1", "2"`},
		{"not json at all", "this is not a checkpoint"},
		{"wrong schema version", `{"schema_version": 99, "total_units": ["1"]}`},
		{"missing schema version", `{"total_units": ["1"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			s := NewStore(path, testLog())
			assert.Equal(t, LoadRecovered, s.Load())
			assert.Equal(t, Stats{}, s.Stats())
		})
	}
}

func TestLoadCompletedWinsOverFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	content := `{
		"schema_version": 1,
		"total_units": ["1", "2"],
		"completed": ["1"],
		"failed": {"1": {"error": "stale", "timestamp": "2026-01-01T00:00:00Z"}},
		"start_time": "2026-01-01T00:00:00Z"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s := NewStore(path, testLog())
	require.Equal(t, LoadResumed, s.Load())
	assert.Equal(t, Stats{Total: 2, Completed: 1, Pending: 1}, s.Stats())
}

func TestAddWorkIDsDeduplicates(t *testing.T) {
	s := newTestStore(t)
	s.Load()

	assert.Equal(t, 2, s.AddWorkIDs([]string{"10", "20"}))
	assert.Equal(t, 1, s.AddWorkIDs([]string{"20", "30"}))
	assert.Equal(t, []string{"10", "20", "30"}, s.WorkIDs())
}

func TestConcurrentMarks(t *testing.T) {
	s := newTestStore(t)
	s.Load()

	var ids []string
	for i := 0; i < 200; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	s.MergeUnits(ids)

	done := make(chan struct{})
	for _, id := range ids {
		go func(id string) {
			s.MarkCompleted(id)
			done <- struct{}{}
		}(id)
	}
	for range ids {
		<-done
	}
	assert.Equal(t, len(ids), s.Stats().Completed)
	assert.Empty(t, s.Pending())
}
