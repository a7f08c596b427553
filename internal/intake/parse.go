package intake

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// FirstInt extracts the first run of digits from an utterance. Transcripts
// of spoken numbers often carry surrounding words ("I am 45 years old"),
// so anything around the digits is ignored.
func FirstInt(text string) (int, bool) {
	m := digitRun.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// YesNo resolves a boolean answer by case-insensitive substring match.
// "yes" is checked before "no", so an utterance containing both resolves
// to yes. Substring matching is deliberate: "no thanks" counts as no.
func YesNo(text string) (answer, ok bool) {
	t := strings.ToLower(text)
	if strings.Contains(t, "yes") {
		return true, true
	}
	if strings.Contains(t, "no") {
		return false, true
	}
	return false, false
}

// ParseLevel resolves a three-way biomarker answer in fixed priority order:
// "high" beats "elevated"/"above", which beat "normal"/"low". An utterance
// matching none of the tokens is rejected.
func ParseLevel(text string) (Level, bool) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "high"):
		return LevelHigh, true
	case strings.Contains(t, "elevated"), strings.Contains(t, "above"):
		return LevelElevated, true
	case strings.Contains(t, "normal"), strings.Contains(t, "low"):
		return LevelNormal, true
	default:
		return 0, false
	}
}
