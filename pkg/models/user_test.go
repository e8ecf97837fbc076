package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{" 42 ", 42},
		{"123456789012", 123456789012},
	}
	for _, tt := range tests {
		got, err := ParseUserID(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseUserIDRejectsInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "12.5", "-7", "0", "42x"} {
		_, err := ParseUserID(input)
		assert.Error(t, err, "input %q", input)
	}
}
