package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/brandmix/internal/models"
	"github.com/desertthunder/brandmix/internal/shared"
	th "github.com/desertthunder/brandmix/internal/testing"
)

var suggestions = []models.SongSuggestion{
	{Track: "Midnight City", Artist: "M83", Reason: "Expansive, nocturnal synths."},
	{Track: "Dreams, Again", Artist: "Fleetwood Mac"},
}

func TestFormats(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tests := map[string]Format{"": Text, "txt": Text, "MD": Markdown, "csv": CSV, " json ": JSON}
		for in, want := range tests {
			got, err := ParseFormat(in)
			if err != nil || got != want {
				t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
			}
		}
		if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Extension", func(t *testing.T) {
		if Markdown.Extension() != ".md" || Text.Extension() != ".txt" || CSV.Extension() != ".csv" {
			t.Error("unexpected extensions")
		}
	})
}

func TestExporters(t *testing.T) {
	t.Run("SuggestionsToCSV", func(t *testing.T) {
		data, err := SuggestionsToCSV(suggestions)
		if err != nil {
			t.Fatalf("SuggestionsToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Track,Artist,Reason" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[2][0] != "Dreams, Again" {
			t.Errorf("expected comma in title to round trip, got %q", records[2][0])
		}
	})

	t.Run("SuggestionsToMarkdown", func(t *testing.T) {
		data, _ := SuggestionsToMarkdown("Acme", suggestions)
		output := string(data)

		for _, want := range []string{"# Acme", "**Suggestions**: 2", "1. **Midnight City** by M83", "   Expansive, nocturnal synths."} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("SuggestionsToText", func(t *testing.T) {
		data, _ := SuggestionsToText("Acme", suggestions)
		output := string(data)

		if !strings.Contains(output, "Song: Midnight City\nArtist: M83\nWhy it fits: Expansive") {
			t.Errorf("unexpected text output:\n%s", output)
		}
		if strings.Count(output, "Why it fits:") != 1 {
			t.Error("expected reason line to be omitted when empty")
		}
	})

	t.Run("RenderSuggestions JSON", func(t *testing.T) {
		data, err := RenderSuggestions(JSON, "Acme", suggestions)
		if err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Brand       string                  `json:"brand"`
			Suggestions []models.SongSuggestion `json:"suggestions"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.Brand != "Acme" || len(decoded.Suggestions) != 2 {
			t.Errorf("unexpected JSON %+v", decoded)
		}
	})

	t.Run("TracksToCSV", func(t *testing.T) {
		data, err := TracksToCSV([]models.Track{{ID: "t1", Name: "Song", Artists: []string{"A", "B"}, DurationMs: 185000, URI: "spotify:track:t1"}})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `t1,Song,"A, B",,3:05,spotify:track:t1`) {
			t.Errorf("unexpected CSV %s", data)
		}
	})

	t.Run("ReconcileToText", func(t *testing.T) {
		out := string(ReconcileToText(&models.ReconcileResult{
			PlaylistName:   "Acme Brand Playlist",
			PlaylistURL:    "https://open.spotify.com/playlist/p1",
			Created:        true,
			TracksAdded:    8,
			TracksNotFound: []string{"Ghost by Nobody"},
			Partial:        true,
		}))

		for _, want := range []string{"Created playlist: Acme Brand Playlist", "Added: 8", "incomplete", "  - Ghost by Nobody"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("FormatDuration", func(t *testing.T) {
		tests := map[int]string{0: "0:00", -5: "0:00", 59999: "0:59", 60000: "1:00", 3723000: "62:03"}
		for in, want := range tests {
			if got := FormatDuration(in); got != want {
				t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("Explicit Path Creates Directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "out.csv")
		got, err := WriteExport(path, "ignored", CSV, []byte("a,b\n"))
		if err != nil {
			t.Fatal(err)
		}
		th.AssertFileExists(t, got)
		if th.MustReadFile(t, got) != "a,b\n" {
			t.Error("unexpected file contents")
		}
	})

	t.Run("Derived Path", func(t *testing.T) {
		dir := t.TempDir()
		orig := th.MustGetwd(t)
		th.MustChdir(t, dir)
		defer th.MustChdir(t, orig)

		got, err := WriteExport("", "acme", Markdown, []byte("# Acme\n"))
		if err != nil {
			t.Fatal(err)
		}
		if got != "acme.md" {
			t.Errorf("expected acme.md, got %s", got)
		}
		th.AssertFileExists(t, filepath.Join(dir, "acme.md"))
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if _, err := WriteExport(blocker, "", Text, []byte("x")); err != nil {
			t.Fatal(err)
		}
		if _, err := WriteExport(filepath.Join(blocker, "child.txt"), "", Text, []byte("x")); err == nil {
			t.Error("expected error writing beneath a regular file")
		}
	})
}
