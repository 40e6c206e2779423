// package formatter renders suggestions, track listings and reconcile results as CSV, Markdown, JSON or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts a format name or common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	case JSON:
		return ".json"
	default:
		return ".txt"
	}
}

// SuggestionsToCSV writes columns Track, Artist, Reason.
func SuggestionsToCSV(suggestions []models.SongSuggestion) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Track", "Artist", "Reason"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, s := range suggestions {
		if err := writer.Write([]string{s.Track, s.Artist, s.Reason}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// SuggestionsToMarkdown renders a numbered list under a heading naming the brand.
func SuggestionsToMarkdown(brand string, suggestions []models.SongSuggestion) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", brand)
	fmt.Fprintf(&buf, "**Suggestions**: %d\n\n", len(suggestions))
	buf.WriteString("## Songs\n\n")
	for i, s := range suggestions {
		fmt.Fprintf(&buf, "%d. **%s** by %s\n", i+1, s.Track, s.Artist)
		if s.Reason != "" {
			fmt.Fprintf(&buf, "   %s\n", s.Reason)
		}
	}
	return buf.Bytes(), nil
}

// SuggestionsToText renders one suggestion per block in the same Song/Artist/Why it fits layout the model is asked for.
func SuggestionsToText(brand string, suggestions []models.SongSuggestion) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Brand: %s\n", brand)
	fmt.Fprintf(&buf, "Suggestions: %d\n", len(suggestions))
	for _, s := range suggestions {
		fmt.Fprintf(&buf, "\nSong: %s\nArtist: %s\n", s.Track, s.Artist)
		if s.Reason != "" {
			fmt.Fprintf(&buf, "Why it fits: %s\n", s.Reason)
		}
	}
	return buf.Bytes(), nil
}

// RenderSuggestions dispatches on f.
func RenderSuggestions(f Format, brand string, suggestions []models.SongSuggestion) ([]byte, error) {
	switch f {
	case CSV:
		return SuggestionsToCSV(suggestions)
	case Markdown:
		return SuggestionsToMarkdown(brand, suggestions)
	case JSON:
		return json.MarshalIndent(map[string]any{"brand": brand, "suggestions": suggestions}, "", "  ")
	default:
		return SuggestionsToText(brand, suggestions)
	}
}

// TracksToCSV writes columns ID, Name, Artists, Album, Duration, URI.
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Artists", "Album", "Duration", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range tracks {
		record := []string{t.ID, t.Name, t.ArtistList(), t.Album, FormatDuration(t.DurationMs), t.URI}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ReconcileToText summarizes a reconcile result.
func ReconcileToText(result *models.ReconcileResult) []byte {
	var buf bytes.Buffer

	action := "Updated"
	if result.Created {
		action = "Created"
	}
	fmt.Fprintf(&buf, "%s playlist: %s\n", action, result.PlaylistName)
	fmt.Fprintf(&buf, "URL: %s\n", result.PlaylistURL)
	fmt.Fprintf(&buf, "Added: %d  Kept: %d  Dropped: %d\n", result.TracksAdded, result.TracksKept, result.TracksDropped)
	if result.Partial {
		buf.WriteString("Warning: the existing track listing was incomplete\n")
	}
	if len(result.TracksNotFound) > 0 {
		fmt.Fprintf(&buf, "\nNot found (%d):\n", len(result.TracksNotFound))
		for _, nf := range result.TracksNotFound {
			fmt.Fprintf(&buf, "  - %s\n", nf)
		}
	}
	return buf.Bytes()
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "0:00"
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// WriteExport writes data to path, creating parent directories. An empty path derives
// "<base><ext>" in the working directory.
func WriteExport(path, base string, f Format, data []byte) (string, error) {
	if path == "" {
		path = base + f.Extension()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
