package recommend

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/desertthunder/brandmix/internal/models"
)

type marker int

const (
	noMarker marker = iota
	songMarker
	artistMarker
	reasonMarker
)

var (
	// Accepts "Song: x", "**Song:** x", "1. Song: x", "- **Artist**: x" and the like.
	markerLine = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s+)?(?:\d+[.)]\s*)?(?:\*\*|__)?\s*(song|artist|why it fits)\s*(?:\*\*|__)?\s*:\s*(.*)$`)
	spaces     = regexp.MustCompile(`\s+`)
	plainText  = bluemonday.StrictPolicy()
)

func classify(line string) (marker, string) {
	m := markerLine.FindStringSubmatch(line)
	if m == nil {
		return noMarker, line
	}
	switch strings.ToLower(m[1]) {
	case "song":
		return songMarker, m[2]
	case "artist":
		return artistMarker, m[2]
	default:
		return reasonMarker, m[2]
	}
}

// clean strips markup, emphasis and surrounding quotes and collapses whitespace.
func clean(s string) string {
	s = html.UnescapeString(plainText.Sanitize(s))
	s = strings.Trim(strings.TrimSpace(s), "*_")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"') {
		s = s[1 : len(s)-1]
	}
	return spaces.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseSuggestions extracts song suggestions from free text. It never fails; malformed sections are skipped.
//
// Text is split into sections on blank lines, and a section holding several Song markers is split again
// at each one. A section becomes a suggestion when it has a non-empty Song line and a non-empty Artist line.
// The lines after both markers form the reason, with any "Why it fits:" marker removed.
func ParseSuggestions(text string) []models.SongSuggestion {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	suggestions := []models.SongSuggestion{}
	for _, section := range sections(text) {
		if s, ok := parseSection(section); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

func sections(text string) [][]string {
	var out [][]string
	var current []string

	flush := func() {
		if len(current) > 0 {
			out = append(out, current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if kind, _ := classify(line); kind == songMarker && hasSong(current) {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return out
}

func hasSong(lines []string) bool {
	for _, line := range lines {
		if kind, _ := classify(line); kind == songMarker {
			return true
		}
	}
	return false
}

func parseSection(lines []string) (models.SongSuggestion, bool) {
	var s models.SongSuggestion
	songAt, artistAt := -1, -1

	for i, line := range lines {
		kind, value := classify(line)
		switch {
		case kind == songMarker && songAt < 0:
			songAt = i
			s.Track = clean(value)
		case kind == artistMarker && artistAt < 0:
			artistAt = i
			s.Artist = clean(value)
		}
	}

	if songAt < 0 || artistAt < 0 || s.Track == "" || s.Artist == "" {
		return models.SongSuggestion{}, false
	}

	var reason []string
	for _, line := range lines[max(songAt, artistAt)+1:] {
		kind, value := classify(line)
		if kind == reasonMarker {
			line = value
		}
		if c := clean(line); c != "" {
			reason = append(reason, c)
		}
	}
	s.Reason = strings.Join(reason, " ")
	return s, true
}
