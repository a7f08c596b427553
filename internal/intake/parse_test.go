package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"45", 45, true},
		{"i am 45 years old", 45, true},
		{"about 170 or 171", 170, true},
		{"one hundred", 0, false},
		{"", 0, false},
		{"no digits here", 0, false},
	}
	for _, tt := range tests {
		got, ok := FirstInt(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestYesNo(t *testing.T) {
	tests := []struct {
		in     string
		answer bool
		ok     bool
	}{
		{"yes", true, true},
		{"Yes I do", true, true},
		{"no thanks", false, true},
		{"NO", false, true},
		{"maybe", false, false},
		{"", false, false},
		// yes is tested first, so both present resolves to yes
		{"yes and no", true, true},
		{"no, well, yes", true, true},
	}
	for _, tt := range tests {
		answer, ok := YesNo(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.answer, answer, "input %q", tt.in)
	}
}

func TestParseLevelPriority(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"normal", LevelNormal, true},
		{"it's pretty low", LevelNormal, true},
		{"elevated", LevelElevated, true},
		{"a bit above normal", LevelElevated, true},
		{"high", LevelHigh, true},
		{"HIGH", LevelHigh, true},
		// high outranks elevated outranks normal, whatever else is said
		{"somewhere between elevated and high", LevelHigh, true},
		{"high, no wait, normal", LevelHigh, true},
		{"above normal", LevelElevated, true},
		{"fine", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
