// Package resolver maintains the durable record collection and its derived
// lookup indexes, and answers (artist, title) queries from annotation
// clients. One Resolver instance owns one storage namespace; there is no
// ambient global state.
package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sydlexius/backbeat/internal/match"
	"github.com/sydlexius/backbeat/internal/record"
)

// Result is the outcome of a single lookup. Key is always populated, even
// when Match is nil, so callers can log what was actually probed.
type Result struct {
	Match *record.Record `json:"match"`
	Key   string         `json:"key"`
}

// BulkResult maps each hitting key to its record, split by index.
type BulkResult struct {
	Matches      map[string]record.Record `json:"matches"`
	TrackMatches map[string]record.Record `json:"trackMatches"`
	LastSync     int64                    `json:"lastSync"`
}

// Snapshot is the persisted representation of the resolver state.
type Snapshot struct {
	Entries      []record.Record          `json:"entries"`
	PrimaryIndex map[string]record.Record `json:"primaryIndex"`
	TrackIndex   map[string]record.Record `json:"trackIndex"`
	LastSync     int64                    `json:"lastSync"`
	Source       string                   `json:"source"`
}

// Resolver owns a slug-keyed record collection plus two derived indexes:
// primaryIndex covers every entry, trackIndex only track-like entries.
// Both are rebuilt wholesale whenever the collection changes; rebuild cost
// is linear and changes arrive at page-visit cadence.
type Resolver struct {
	mu        sync.RWMutex
	records   map[string]record.Record
	order     []string // slugs in first-insertion order; fuzzy ties are broken by it
	primary   map[string]record.Record
	tracks    map[string]record.Record
	lastSync  time.Time
	source    string
	weights   match.Weights
	threshold float64
	logger    *slog.Logger
}

// New creates an empty resolver with default fuzzy tuning.
func New(logger *slog.Logger) *Resolver {
	return &Resolver{
		records:   make(map[string]record.Record),
		primary:   make(map[string]record.Record),
		tracks:    make(map[string]record.Record),
		weights:   match.DefaultWeights(),
		threshold: match.DefaultThreshold,
		logger:    logger.With(slog.String("component", "resolver")),
	}
}

// SetTuning replaces the fuzzy weighting and acceptance threshold.
func (r *Resolver) SetTuning(w match.Weights, threshold float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights = w
	r.threshold = threshold
}

// Tuning returns the current fuzzy weighting and threshold.
func (r *Resolver) Tuning() (match.Weights, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights, r.threshold
}

// Upsert merges one record into the collection by slug and rebuilds the
// indexes. Slugless records are ignored.
func (r *Resolver) Upsert(rec record.Record) {
	if !rec.Valid() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertLocked(rec)
	r.rebuildLocked()
	r.lastSync = time.Now().UTC()
}

// Ingest accepts a JSON payload that is either an ordered array of
// record-shaped objects or a string-keyed object of them. Null and
// non-object entries are discarded. Returns the number of records applied.
func (r *Resolver) Ingest(payload []byte, source string) (int, error) {
	raws, err := splitPayload(payload)
	if err != nil {
		return 0, err
	}

	var records []record.Record
	for _, raw := range raws {
		var rec record.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}

	r.IngestRecords(records, source)
	return len(records), nil
}

// IngestRecords merges a batch of already-decoded records, then rebuilds
// the indexes once for the whole batch.
func (r *Resolver) IngestRecords(records []record.Record, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		r.upsertLocked(rec)
	}
	r.rebuildLocked()
	r.lastSync = time.Now().UTC()
	if source != "" {
		r.source = source
	}
	r.logger.Debug("batch ingested",
		slog.Int("records", len(records)),
		slog.Int("total", len(r.order)),
		slog.String("source", source))
}

// Replace swaps in a complete collection, e.g. when reloading from the
// durable store at startup.
func (r *Resolver) Replace(records []record.Record, lastSync time.Time, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]record.Record, len(records))
	r.order = r.order[:0]
	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		if _, seen := r.records[rec.Slug]; !seen {
			r.order = append(r.order, rec.Slug)
		}
		r.records[rec.Slug] = rec
	}
	r.rebuildLocked()
	r.lastSync = lastSync
	r.source = source
}

func (r *Resolver) upsertLocked(rec record.Record) {
	existing, seen := r.records[rec.Slug]
	if !seen {
		r.order = append(r.order, rec.Slug)
	}
	r.records[rec.Slug] = record.Merge(existing, rec)
}

// rebuildLocked recomputes both indexes from scratch. Track entries always
// land in the track index and seed the primary index only when no release
// already claims the key; everything else is last-write-wins per key in
// insertion order.
func (r *Resolver) rebuildLocked() {
	primary := make(map[string]record.Record, len(r.records))
	tracks := make(map[string]record.Record)

	for _, slug := range r.order {
		rec := r.records[slug]
		key := match.KeyFor(rec.Artist, rec.Name)
		if match.EmptyKey(key) {
			continue
		}
		if rec.IsTrack() {
			tracks[key] = rec
			if _, claimed := primary[key]; !claimed {
				primary[key] = rec
			}
			continue
		}
		primary[key] = rec
	}

	r.primary = primary
	r.tracks = tracks
}

// Lookup resolves an (artist, title) query via the exact-key indexes.
// An empty normalized key never matches; preferTrack consults the track
// index first and falls back to the primary index.
func (r *Resolver) Lookup(artist, title string, preferTrack bool) Result {
	key := match.KeyFor(artist, title)
	if match.EmptyKey(key) {
		return Result{Key: key}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if preferTrack {
		if rec, ok := r.tracks[key]; ok {
			return Result{Match: &rec, Key: key}
		}
	}
	if rec, ok := r.primary[key]; ok {
		return Result{Match: &rec, Key: key}
	}
	return Result{Key: key}
}

// LookupTrack is the strict variant: it answers only from the track index,
// never falling back to the primary index.
func (r *Resolver) LookupTrack(artist, title string) Result {
	key := match.KeyFor(artist, title)
	if match.EmptyKey(key) {
		return Result{Key: key}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.tracks[key]; ok {
		return Result{Match: &rec, Key: key}
	}
	return Result{Key: key}
}

// LookupRaw resolves a query whose fields arrive as a foreign site displays
// them, qualifiers and all. It reduces the artist to its primary credit,
// derives cleaned title candidates, and answers with the first candidate
// whose exact key hits. A miss reports the key of the most-cleaned candidate.
func (r *Resolver) LookupRaw(artist, title string, preferTrack bool) Result {
	cleaned := match.CleanArtist(artist)
	var last Result
	for _, candidate := range match.TitleCandidates(title, cleaned) {
		last = r.Lookup(cleaned, candidate, preferTrack)
		if last.Match != nil {
			return last
		}
	}
	if last.Key == "" {
		last.Key = match.KeyFor(cleaned, title)
	}
	return last
}

// FindMatch linearly scans the whole collection and returns the record with
// the highest combined similarity score, provided it strictly exceeds the
// threshold. Ties keep the first-seen maximum; iteration follows insertion
// order. Returns nil when nothing clears the bar.
func (r *Resolver) FindMatch(artist, title string) *record.Record {
	normArtist := match.Normalize(artist)
	normTitle := match.Normalize(title)

	r.mu.RLock()
	defer r.mu.RUnlock()

	bestScore := r.threshold
	var best *record.Record
	for _, slug := range r.order {
		rec := r.records[slug]
		titleSim := match.Similarity(normTitle, match.Normalize(rec.Name))
		artistSim := match.Similarity(normArtist, match.Normalize(rec.Artist))
		score := match.CombinedScore(titleSim, artistSim, r.weights)
		if score > bestScore {
			bestScore = score
			cp := rec
			best = &cp
		}
	}
	return best
}

// BulkLookup resolves a list of pre-computed keys in one call, returning
// the hits from each index.
func (r *Resolver) BulkLookup(keys []string) BulkResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := BulkResult{
		Matches:      make(map[string]record.Record),
		TrackMatches: make(map[string]record.Record),
		LastSync:     r.lastSync.UnixMilli(),
	}
	if r.lastSync.IsZero() {
		out.LastSync = 0
	}
	for _, key := range keys {
		if match.EmptyKey(key) {
			continue
		}
		if rec, ok := r.primary[key]; ok {
			out.Matches[key] = rec
		}
		if rec, ok := r.tracks[key]; ok {
			out.TrackMatches[key] = rec
		}
	}
	return out
}

// Records returns the collection in insertion order.
func (r *Resolver) Records() []record.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]record.Record, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.records[slug])
	}
	return out
}

// Get returns the record stored under slug, if any.
func (r *Resolver) Get(slug string) (record.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[slug]
	return rec, ok
}

// Len returns the number of cached records.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// LastSync returns when the collection last changed and which collaborator
// drove the change.
func (r *Resolver) LastSync() (time.Time, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync, r.source
}

// Snapshot captures the full resolver state for persistence or diagnostics.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Entries:      make([]record.Record, 0, len(r.order)),
		PrimaryIndex: make(map[string]record.Record, len(r.primary)),
		TrackIndex:   make(map[string]record.Record, len(r.tracks)),
		Source:       r.source,
	}
	if !r.lastSync.IsZero() {
		snap.LastSync = r.lastSync.UnixMilli()
	}
	for _, slug := range r.order {
		snap.Entries = append(snap.Entries, r.records[slug])
	}
	for k, v := range r.primary {
		snap.PrimaryIndex[k] = v
	}
	for k, v := range r.tracks {
		snap.TrackIndex[k] = v
	}
	return snap
}

// splitPayload accepts either a JSON array or a string-keyed JSON object
// and returns the raw elements. Anything else is an error for the caller
// to report; individual bad elements are filtered later.
//
// The object form is walked token by token rather than decoded into a map
// so that values come out in document order. Insertion order feeds the
// fuzzy tie-break, and map iteration would shuffle it.
func splitPayload(payload []byte) ([]json.RawMessage, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(payload, &arr); err == nil {
		return arr, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("payload must be a JSON array or object")
	}

	var out []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	return out, nil
}
