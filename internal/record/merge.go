package record

// Merge reconciles an incoming record with whatever already exists under the
// same slug. Listing pages are scraped far more often than detail pages but
// yield incomplete data; the rules here keep ratings fresh without ever
// regressing a field only a detail page could have populated.
//
// A partial incoming record landing on a full existing record overlays only
// its non-empty fields; the merged record stays full. Any other combination
// is a wholesale overlay, which also heals a previously-partial record when
// a full scrape arrives. firstSeen is set on first write and never moves.
func Merge(existing, incoming Record) Record {
	if !existing.Valid() {
		merged := incoming
		if merged.FirstSeen == "" {
			merged.FirstSeen = incoming.UpdatedAt
		}
		return merged
	}

	if incoming.IsPartial && !existing.IsPartial {
		return overlayNonEmpty(existing, incoming)
	}

	merged := incoming
	merged.FirstSeen = existing.FirstSeen
	if merged.FirstSeen == "" {
		merged.FirstSeen = incoming.UpdatedAt
	}
	merged.Extra = mergeExtras(existing.Extra, incoming.Extra, false)
	return merged
}

// overlayNonEmpty takes existing as the base and applies only the populated
// fields of incoming. The url moves only when it actually differs, and the
// partial flag is never copied onto the merged result.
func overlayNonEmpty(existing, incoming Record) Record {
	merged := existing
	merged.Slug = incoming.Slug

	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	overlay(&merged.Name, incoming.Name)
	overlay(&merged.Artist, incoming.Artist)
	overlay(&merged.Type, incoming.Type)
	overlay(&merged.ReleaseDate, incoming.ReleaseDate)
	overlay(&merged.Rank, incoming.Rank)
	overlay(&merged.RatingValue, incoming.RatingValue)
	overlay(&merged.MaxRating, incoming.MaxRating)
	overlay(&merged.RatingCount, incoming.RatingCount)
	overlay(&merged.ReviewCount, incoming.ReviewCount)
	overlay(&merged.PrimaryGenres, incoming.PrimaryGenres)
	overlay(&merged.SecondaryGenres, incoming.SecondaryGenres)
	overlay(&merged.Descriptors, incoming.Descriptors)
	overlay(&merged.Languages, incoming.Languages)
	overlay(&merged.Image, incoming.Image)
	overlay(&merged.Description, incoming.Description)

	if incoming.URL != "" && incoming.URL != existing.URL {
		merged.URL = incoming.URL
	}

	merged.UpdatedAt = incoming.UpdatedAt
	merged.FirstSeen = existing.FirstSeen
	if merged.FirstSeen == "" {
		merged.FirstSeen = incoming.UpdatedAt
	}
	merged.IsPartial = false
	merged.Extra = mergeExtras(existing.Extra, incoming.Extra, true)
	return merged
}

// mergeExtras unions passthrough attributes, incoming winning. When
// nonEmptyOnly is set, empty incoming values do not clobber existing ones.
func mergeExtras(existing, incoming map[string]string, nonEmptyOnly bool) map[string]string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	merged := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if nonEmptyOnly && v == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}
