// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	slugDisallow = regexp.MustCompile(`[^a-z0-9_-]`)
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// ConfigureLogger applies the level and formatter from [LogConfig] to l.
//
// Unknown levels fall back to info; unknown formats fall back to text.
func ConfigureLogger(l *log.Logger, c LogConfig) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(c.Format) {
	case "json":
		l.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.SetFormatter(log.LogfmtFormatter)
	default:
		l.SetFormatter(log.TextFormatter)
	}
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey builds a comparison key from a title and artist: lower-cased with collapsed whitespace.
func NormalizeTrackKey(title, artist string) string {
	return normalize(title) + "|" + normalize(artist)
}

func normalize(s string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Slugify derives a filesystem-safe identifier from a display name.
//
// The name is lower-cased, spaces become underscores and anything outside [a-z0-9_-] is dropped,
// so "Acme Brand" becomes "acme_brand".
func Slugify(name string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	return slugDisallow.ReplaceAllString(slug, "")
}
