// Package record defines the cached metadata entity shared by the ingestion,
// lookup, and export paths, along with the merge policy that reconciles
// partial listing-page scrapes with full detail-page scrapes.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one cached metadata entity (album, song, film, game), keyed by
// slug. Metric fields are numeric-as-string: absent means empty string,
// never null. Fields the matcher does not care about are carried verbatim.
type Record struct {
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Artist          string `json:"artist"`
	Type            string `json:"type,omitempty"`
	ReleaseDate     string `json:"releaseDate,omitempty"`
	Rank            string `json:"rank,omitempty"`
	RatingValue     string `json:"ratingValue"`
	MaxRating       string `json:"maxRating,omitempty"`
	RatingCount     string `json:"ratingCount,omitempty"`
	ReviewCount     string `json:"reviewCount,omitempty"`
	PrimaryGenres   string `json:"primaryGenres,omitempty"`
	SecondaryGenres string `json:"secondaryGenres,omitempty"`
	Descriptors     string `json:"descriptors,omitempty"`
	Languages       string `json:"languages,omitempty"`
	Image           string `json:"image,omitempty"`
	Description     string `json:"description,omitempty"`
	URL             string `json:"url"`
	FirstSeen       string `json:"firstSeen,omitempty"`
	UpdatedAt       string `json:"updatedAt"`
	IsPartial       bool   `json:"isPartial,omitempty"`

	// Extra holds domain-specific passthrough attributes (cast, platforms,
	// developer, ...) that have no bearing on matching.
	Extra map[string]string `json:"-"`
}

// knownFields maps JSON keys to setters on Record. Anything not listed here
// lands in Extra.
var knownFields = map[string]func(*Record, string){
	"slug":            func(r *Record, v string) { r.Slug = v },
	"name":            func(r *Record, v string) { r.Name = v },
	"artist":          func(r *Record, v string) { r.Artist = v },
	"type":            func(r *Record, v string) { r.Type = v },
	"releaseDate":     func(r *Record, v string) { r.ReleaseDate = v },
	"rank":            func(r *Record, v string) { r.Rank = v },
	"ratingValue":     func(r *Record, v string) { r.RatingValue = v },
	"maxRating":       func(r *Record, v string) { r.MaxRating = v },
	"ratingCount":     func(r *Record, v string) { r.RatingCount = v },
	"reviewCount":     func(r *Record, v string) { r.ReviewCount = v },
	"primaryGenres":   func(r *Record, v string) { r.PrimaryGenres = v },
	"secondaryGenres": func(r *Record, v string) { r.SecondaryGenres = v },
	"descriptors":     func(r *Record, v string) { r.Descriptors = v },
	"languages":       func(r *Record, v string) { r.Languages = v },
	"image":           func(r *Record, v string) { r.Image = v },
	"description":     func(r *Record, v string) { r.Description = v },
	"url":             func(r *Record, v string) { r.URL = v },
	"firstSeen":       func(r *Record, v string) { r.FirstSeen = v },
	"updatedAt":       func(r *Record, v string) { r.UpdatedAt = v },
}

// UnmarshalJSON decodes a record-shaped object, coercing scalar values to
// strings once at the boundary and collecting unknown keys into Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		if key == "isPartial" {
			var b bool
			if err := json.Unmarshal(val, &b); err == nil {
				r.IsPartial = b
			}
			continue
		}

		s, ok := coerceString(val)
		if !ok {
			continue
		}
		if set, known := knownFields[key]; known {
			set(r, s)
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[key] = s
	}
	return nil
}

// MarshalJSON emits the known fields plus any passthrough attributes.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record // shed the custom marshaller
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// coerceString converts a scalar JSON value to its string form. Null,
// objects, and arrays report false; numeric metrics become their literal
// text so "4.2" and 4.2 ingest identically.
func coerceString(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return fmt.Sprintf("%t", b), true
	default:
		return trimmed, true
	}
}

// IsTrack reports whether the record is track-like, inferred from a /track/
// or /song/ path segment in its slug or URL.
func (r Record) IsTrack() bool {
	for _, s := range []string{r.Slug, r.URL} {
		lower := strings.ToLower(s)
		if strings.Contains(lower, "/track/") || strings.Contains(lower, "/song/") {
			return true
		}
	}
	return false
}

// Valid reports whether the record carries the minimum to be indexed.
func (r Record) Valid() bool {
	return r.Slug != ""
}
