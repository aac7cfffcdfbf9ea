package record

import (
	"bytes"
	"strings"
	"testing"
)

func TestCSVRoundTrip(t *testing.T) {
	records := []Record{
		{
			Slug:        "ok-computer",
			Name:        "OK Computer",
			Artist:      "Radiohead",
			RatingValue: "4.31",
			Description: "Contains a comma, a \"quote\", and\na newline.",
			URL:         "https://example.org/release/album/radiohead/ok-computer/",
			FirstSeen:   "2026-08-01T09:00:00Z",
			UpdatedAt:   "2026-08-30T10:00:00Z",
		},
		{
			Slug:        "abbey-road",
			Name:        "Abbey Road",
			Artist:      "The Beatles",
			RatingValue: "4.23",
			URL:         "https://example.org/release/album/the-beatles/abbey-road/",
			UpdatedAt:   "2026-08-30T10:00:00Z",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	parsed, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d records, want 2", len(parsed))
	}

	// Export is sorted by name.
	if parsed[0].Slug != "abbey-road" || parsed[1].Slug != "ok-computer" {
		t.Errorf("unexpected order: %q, %q", parsed[0].Slug, parsed[1].Slug)
	}
	if parsed[1].Description != records[0].Description {
		t.Errorf("Description = %q, want quoted text to survive", parsed[1].Description)
	}
}

func TestWriteCSVQuoting(t *testing.T) {
	records := []Record{{
		Slug:        "x",
		Name:        `Songs, "Quoted"`,
		RatingValue: "4.0",
		UpdatedAt:   "2026-08-30T10:00:00Z",
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.Contains(buf.String(), `"Songs, ""Quoted"""`) {
		t.Errorf("expected RFC-4180 quoting, got:\n%s", buf.String())
	}
}

func TestReadCSVSkipsSluglessRows(t *testing.T) {
	in := "name,slug,artist\nAbbey Road,abbey-road,The Beatles\nNo Slug,,Nobody\n"
	parsed, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Slug != "abbey-road" {
		t.Errorf("got %+v, want only the slugged row", parsed)
	}
}

func TestReadCSVOlderExportMissingColumns(t *testing.T) {
	in := "name,slug,artist,ratingValue\nAbbey Road,abbey-road,The Beatles,4.23\n"
	parsed, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(parsed) != 1 {
		t.Fatalf("got %d records, want 1", len(parsed))
	}
	if parsed[0].RatingValue != "4.23" || parsed[0].Languages != "" {
		t.Errorf("unexpected record: %+v", parsed[0])
	}
}
