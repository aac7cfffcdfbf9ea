package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// csvColumns is the fixed export column order. It matches the CSV files the
// tracker userscripts have always produced, so existing exports and imports
// round-trip without translation.
var csvColumns = []string{
	"name", "slug", "artist", "type", "releaseDate", "rank",
	"ratingValue", "maxRating", "ratingCount", "reviewCount",
	"primaryGenres", "secondaryGenres", "descriptors", "languages",
	"image", "description", "url", "firstSeen", "updatedAt",
}

func (r Record) csvValue(column string) string {
	switch column {
	case "name":
		return r.Name
	case "slug":
		return r.Slug
	case "artist":
		return r.Artist
	case "type":
		return r.Type
	case "releaseDate":
		return r.ReleaseDate
	case "rank":
		return r.Rank
	case "ratingValue":
		return r.RatingValue
	case "maxRating":
		return r.MaxRating
	case "ratingCount":
		return r.RatingCount
	case "reviewCount":
		return r.ReviewCount
	case "primaryGenres":
		return r.PrimaryGenres
	case "secondaryGenres":
		return r.SecondaryGenres
	case "descriptors":
		return r.Descriptors
	case "languages":
		return r.Languages
	case "image":
		return r.Image
	case "description":
		return r.Description
	case "url":
		return r.URL
	case "firstSeen":
		return r.FirstSeen
	case "updatedAt":
		return r.UpdatedAt
	}
	return ""
}

func (r *Record) setCSVValue(column, value string) {
	if set, ok := knownFields[column]; ok {
		set(r, value)
	}
}

// WriteCSV writes the records as RFC-4180 CSV with a header row, sorted by
// name for stable diffs between exports.
func WriteCSV(w io.Writer, records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	row := make([]string, len(csvColumns))
	for _, rec := range sorted {
		for i, col := range csvColumns {
			row[i] = rec.csvValue(col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %q: %w", rec.Slug, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a tracker CSV export. Columns are resolved by header name
// so older exports with fewer columns still import; rows without a slug are
// skipped rather than failing the whole file.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}

		var rec Record
		for i, value := range row {
			if i >= len(header) {
				break
			}
			rec.setCSVValue(header[i], value)
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
