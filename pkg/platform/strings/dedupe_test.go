package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "trims and drops blanks", input: []string{"  IDLE ", "", "   "}, expected: []string{"IDLE"}},
		{name: "keeps first occurrence order", input: []string{"VOTING", "IDLE", "VOTING"}, expected: []string{"VOTING", "IDLE"}},
		{name: "case sensitive", input: []string{"idle", "IDLE"}, expected: []string{"idle", "IDLE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"IDLE", "VOTING", "DENIED"},
		SplitList([]string{"IDLE, VOTING", "DENIED,IDLE", ""}))
	assert.Empty(t, SplitList(nil))
}
