package enhance

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/Alias1177/AgriPredictor/models"
)

// Delta bounds and the delta assumed when the reply carries none
const (
	DefaultConfidenceDelta = 0.05
	MaxConfidenceDelta     = 0.1
)

// ErrEmptyInsight is returned when a reply contains no insight text
var ErrEmptyInsight = errors.New("model reply has no insight")

// leadingFloat matches the numeric prefix of the confidence field, e.g. "+0.06" in "+0.06 (high)"
var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Insight is the parsed reply of the model: a sentence and a confidence adjustment
type Insight struct {
	Text            string
	ConfidenceDelta float64
}

// ParseInsight splits an "insight|delta" reply on its last separator.
// A missing or unreadable delta becomes DefaultConfidenceDelta and any
// delta is clamped to ±MaxConfidenceDelta.
func ParseInsight(reply string) (Insight, error) {
	reply = strings.TrimSpace(reply)

	text, deltaPart, found := cutLast(reply, "|")
	if !found {
		text = reply
	}

	text = strings.Trim(strings.TrimSpace(text), `"'`)
	text = strings.TrimSpace(text)
	if text == "" {
		return Insight{}, ErrEmptyInsight
	}

	delta := DefaultConfidenceDelta
	if found {
		deltaPart = strings.Trim(strings.TrimSpace(deltaPart), `"'`)
		if m := leadingFloat.FindString(deltaPart); m != "" {
			if v, err := strconv.ParseFloat(m, 64); err == nil {
				delta = v
			}
		}
	}

	return Insight{
		Text:            text,
		ConfidenceDelta: models.Clamp(delta, -MaxConfidenceDelta, MaxConfidenceDelta),
	}, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
