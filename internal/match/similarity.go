package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Weights control the relative contribution of title and artist similarity
// to a combined fuzzy score. The defaults are empirically chosen and kept
// configurable rather than derived.
type Weights struct {
	Title  float64
	Artist float64
}

// DefaultWeights returns the standard title/artist weighting.
func DefaultWeights() Weights {
	return Weights{Title: 0.6, Artist: 0.4}
}

// DefaultThreshold is the minimum combined score a fuzzy match must strictly
// exceed to be accepted.
const DefaultThreshold = 0.75

// Similarity scores how alike two strings are on a [0,1] scale using
// unit-cost Levenshtein distance over the longer string's length. Two empty
// strings score 1.0. Inputs are lower-cased defensively; callers normally
// pass already-normalized text.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	longer := len([]rune(a))
	if l := len([]rune(b)); l > longer {
		longer = l
	}
	if longer == 0 {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longer)
}

// CombinedScore is the weighted sum of title and artist similarity used for
// full-scan fuzzy matching.
func CombinedScore(titleSim, artistSim float64, w Weights) float64 {
	return titleSim*w.Title + artistSim*w.Artist
}
