package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain work id", "123456", "123456"},
		{"path separators", "a/b\\c", "a_b_c"},
		{"windows reserved chars", `x<y>z:"w|v?u*`, "x_y_z_w_v_u"},
		{"control chars", "a\x00b\x1fc", "a_b_c"},
		{"consecutive underscores collapse", "a//b", "a_b"},
		{"leading and trailing noise", "__abc__ ", "abc"},
		{"empty input", "", "unit"},
		{"only invalid chars", "///", "unit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizeFilename(long)
	assert.Len(t, got, 100)
}
