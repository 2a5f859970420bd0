package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadUnitIDsTextFile(t *testing.T) {
	path := writeInput(t, "ids.txt", `
# seed list
12345
67890

12345
  54321
`)
	ids, err := LoadUnitIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "67890", "54321"}, ids)
}

func TestLoadUnitIDsJSONCheckpoint(t *testing.T) {
	path := writeInput(t, "discover.json", `{
		"schema_version": 1,
		"work_ids": ["111", "222", "111", "333"]
	}`)
	ids, err := LoadUnitIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, ids)
}

func TestLoadUnitIDsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty text file", "\n\n# only comments\n"},
		{"json without work_ids", `{"schema_version": 1, "completed": ["1"]}`},
		{"malformed json", `{"work_ids": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeInput(t, "input", tt.content)
			_, err := LoadUnitIDs(path)
			assert.ErrorIs(t, err, utils.ErrNoUnits)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadUnitIDs(filepath.Join(t.TempDir(), "nope.txt"))
		assert.ErrorIs(t, err, utils.ErrNoUnits)
	})
}
