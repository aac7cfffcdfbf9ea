package match

import (
	"regexp"
	"strings"
)

// Upstream title-cleaning heuristics. Foreign sites decorate titles with
// qualifiers ("(Official Video)", "- 2011 Remaster", "[Full Album]") that
// never appear on the source site; callers of the exact-key lookup strip
// them before computing keys.
var (
	bracketedRegex     = regexp.MustCompile(`\[[^\]]*\]`)
	parenNoiseRegex    = regexp.MustCompile(`(?i)\([^)]*(official|video|audio|album|visuali[sz]er|lyrics?|explicit|full\s+album)[^)]*\)`)
	parenEditionRegex  = regexp.MustCompile(`(?i)\([^)]*\b(remaster(ed)?|remix|live|explicit)\b[^)]*\)`)
	bareNoiseRegex     = regexp.MustCompile(`(?i)\b(official\s+(music\s+)?video|official\s+audio|lyric\s+video|lyrics?|visuali[sz]er|full\s+album|album\s+stream|album\s+visuali[sz]er)\b`)
	trailingNoiseRegex = regexp.MustCompile(`(?i)\s*(\||-|\x{2013}|\x{2014}|\x{2022})\s*(official.*|full\s+album.*|album\s+visuali[sz]er.*|visuali[sz]er.*|lyrics?.*|lyric\s+video.*)$`)
	dashEditionRegex   = regexp.MustCompile(`(?i)-\s*(remaster(ed)?\s*\d{2,4}|live|remix)`)
	topicSuffixRegex   = regexp.MustCompile(`(?i)\s*-\s*topic$`)
	titleSplitRegex    = regexp.MustCompile(`[-|\x{2013}\x{2014}\x{2022}]`)
	artistSplitRegex   = regexp.MustCompile(`[,&\x{00b7}\x{2022}]`)
	separatorClass     = `[-|\x{2022}\x{2013}\x{2014}]`
)

// CleanTitle strips bracketed qualifiers, video/lyric/visualizer markers,
// remaster/remix/live suffixes, and an optional leading "Artist - " prefix.
func CleanTitle(input, artist string) string {
	if input == "" {
		return ""
	}
	t := input
	t = bracketedRegex.ReplaceAllString(t, "")
	t = parenNoiseRegex.ReplaceAllString(t, "")
	t = parenEditionRegex.ReplaceAllString(t, "")
	t = trailingNoiseRegex.ReplaceAllString(t, "")
	t = bareNoiseRegex.ReplaceAllString(t, "")
	t = dashEditionRegex.ReplaceAllString(t, "")
	if artist != "" {
		prefix := regexp.QuoteMeta(strings.TrimSpace(artist))
		if re, err := regexp.Compile(`(?i)^` + prefix + `\s*` + separatorClass + `\s*`); err == nil {
			t = re.ReplaceAllString(t, "")
		}
	}
	return strings.TrimSpace(t)
}

// CleanArtist reduces a credit line to its primary artist: drops a YouTube
// "- Topic" channel suffix and keeps only the first name of a multi-artist
// listing.
func CleanArtist(input string) string {
	if input == "" {
		return ""
	}
	trimmed := topicSuffixRegex.ReplaceAllString(input, "")
	parts := artistSplitRegex.Split(trimmed, 2)
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		return strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(trimmed)
}

// TitleCandidates returns cleaned variants of a raw title for exact-key
// lookup, most literal first, deduplicated. Callers try each in sequence
// and take the first key that hits.
func TitleCandidates(raw, artist string) []string {
	base := strings.TrimSpace(raw)
	cleaned := CleanTitle(base, artist)

	simpler := cleaned
	if parts := titleSplitRegex.Split(cleaned, 2); len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		simpler = strings.TrimSpace(parts[0])
	}

	noArtist := cleaned
	if artist != "" && len(cleaned) > len(artist) && strings.EqualFold(cleaned[:len(artist)], artist) {
		rest := strings.TrimSpace(cleaned[len(artist):])
		if stripped := strings.TrimLeft(rest, "-|•–—"); stripped != rest {
			noArtist = strings.TrimSpace(stripped)
		}
	}

	seen := make(map[string]struct{}, 4)
	var out []string
	for _, c := range []string{base, cleaned, simpler, noArtist} {
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
