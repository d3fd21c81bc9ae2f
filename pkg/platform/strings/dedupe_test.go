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
		{name: "only blanks", input: []string{"", "  "}, expected: nil},
		{name: "trims and keeps order", input: []string{"  foo ", "bar", "foo", "", "  "}, expected: []string{"foo", "bar"}},
		{name: "case sensitive", input: []string{"READ_PEN_MATCH", "read_pen_match"}, expected: []string{"READ_PEN_MATCH", "read_pen_match"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sep      string
		expected []string
	}{
		{name: "comma list", input: "kafka-1:9092, kafka-2:9092,,kafka-1:9092", sep: ",", expected: []string{"kafka-1:9092", "kafka-2:9092"}},
		{name: "whitespace scopes", input: " READ_PEN_MATCH  WRITE  READ_PEN_MATCH", sep: "", expected: []string{"READ_PEN_MATCH", "WRITE"}},
		{name: "empty", input: "", sep: ",", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, tt.sep))
		})
	}
}
