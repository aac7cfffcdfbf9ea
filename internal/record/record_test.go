package record

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalCoercesScalars(t *testing.T) {
	raw := `{
		"slug": "abbey-road",
		"name": "Abbey Road",
		"artist": "The Beatles",
		"ratingValue": 4.23,
		"ratingCount": 12345,
		"maxRating": null,
		"url": "https://example.org/release/album/the-beatles/abbey-road/",
		"updatedAt": "2026-08-30T10:00:00Z"
	}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.RatingValue != "4.23" {
		t.Errorf("RatingValue = %q, want 4.23", r.RatingValue)
	}
	if r.RatingCount != "12345" {
		t.Errorf("RatingCount = %q, want 12345", r.RatingCount)
	}
	if r.MaxRating != "" {
		t.Errorf("MaxRating = %q, want empty for null", r.MaxRating)
	}
}

func TestUnmarshalPassthroughExtras(t *testing.T) {
	raw := `{"slug":"half-life","name":"Half-Life","developer":"Valve","platforms":"PC","ratingValue":"4.1","updatedAt":"2026-08-30T10:00:00Z","url":"https://example.org/game/half-life"}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.Extra["developer"] != "Valve" || r.Extra["platforms"] != "PC" {
		t.Errorf("Extra = %v, want developer/platforms preserved", r.Extra)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("Unmarshal round-trip: %v", err)
	}
	if round["developer"] != "Valve" {
		t.Errorf("marshalled record lost passthrough attribute: %s", out)
	}
}

func TestIsTrack(t *testing.T) {
	tests := []struct {
		slug, url string
		want      bool
	}{
		{"/release/album/x/y/", "https://example.org/release/album/x/y/", false},
		{"/song/x/y/", "", true},
		{"", "https://example.org/track/123", true},
		{"/Song/X/Y/", "", true},
		{"", "", false},
	}
	for _, tt := range tests {
		r := Record{Slug: tt.slug, URL: tt.url}
		if got := r.IsTrack(); got != tt.want {
			t.Errorf("IsTrack(slug=%q url=%q) = %v, want %v", tt.slug, tt.url, got, tt.want)
		}
	}
}
