package resolver

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sydlexius/backbeat/internal/match"
	"github.com/sydlexius/backbeat/internal/record"
)

func testResolver() *Resolver {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func abbeyRoad() record.Record {
	return record.Record{
		Slug:        "abbey-road",
		Name:        "Abbey Road",
		Artist:      "The Beatles",
		RatingValue: "4.2",
		URL:         "https://x/abbey-road",
		UpdatedAt:   "2026-08-30T10:00:00Z",
	}
}

func TestLookupExactKey(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	res := r.Lookup("the beatles", "Abbey Road", false)
	if res.Match == nil {
		t.Fatalf("expected match, got nil (key %q)", res.Key)
	}
	if res.Match.Slug != "abbey-road" {
		t.Errorf("Match.Slug = %q, want abbey-road", res.Match.Slug)
	}
	if res.Key != "the beatles|abbey road" {
		t.Errorf("Key = %q", res.Key)
	}
}

func TestLookupMissReturnsKey(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	res := r.Lookup("Radiohead", "Kid A", false)
	if res.Match != nil {
		t.Errorf("expected no match, got %+v", res.Match)
	}
	if res.Key != "radiohead|kid a" {
		t.Errorf("Key = %q, want it populated on a miss", res.Key)
	}
}

func TestLookupEmptyKeyGuard(t *testing.T) {
	r := testResolver()
	// A record whose artist and name both normalize to nothing must not be
	// reachable, and a blank query must not match anything.
	r.Upsert(record.Record{Slug: "degenerate", Name: "!!!???", Artist: "...", UpdatedAt: "2026-08-30T10:00:00Z"})

	if res := r.Lookup("", "", false); res.Match != nil {
		t.Errorf("blank query matched %+v", res.Match)
	}
	if res := r.Lookup("...", "??", true); res.Match != nil {
		t.Errorf("degenerate query matched %+v", res.Match)
	}
}

func TestFuzzyTypoMatch(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	got := r.FindMatch("The Beattles", "abbey road")
	if got == nil {
		t.Fatal("expected fuzzy match for one-letter typo")
	}
	if got.Slug != "abbey-road" {
		t.Errorf("Slug = %q, want abbey-road", got.Slug)
	}

	if got := r.FindMatch("Radiohead", "Abbey Road"); got != nil {
		t.Errorf("wrong artist matched: %+v", got)
	}
}

func TestFuzzyThresholdIsStrict(t *testing.T) {
	r := testResolver()
	// With equal weights, an exact title (1.0) and a half-similar artist
	// (distance 1 over length 2) combine to exactly 0.75.
	r.SetTuning(match.Weights{Title: 0.5, Artist: 0.5}, 0.75)
	r.Upsert(record.Record{Slug: "x", Name: "song", Artist: "aa", UpdatedAt: "2026-08-30T10:00:00Z"})

	if got := r.FindMatch("ab", "song"); got != nil {
		t.Errorf("score exactly at threshold must not match, got %+v", got)
	}

	r.SetTuning(match.Weights{Title: 0.5, Artist: 0.5}, 0.7)
	if got := r.FindMatch("ab", "song"); got == nil {
		t.Error("score above lowered threshold should match")
	}
}

func TestFuzzyTieKeepsFirstSeen(t *testing.T) {
	r := testResolver()
	first := record.Record{Slug: "first", Name: "Dreams", Artist: "Cranberries", UpdatedAt: "2026-08-30T10:00:00Z"}
	second := record.Record{Slug: "second", Name: "Dreams", Artist: "Cranberries", UpdatedAt: "2026-08-30T11:00:00Z"}
	r.Upsert(first)
	r.Upsert(second)

	got := r.FindMatch("Cranberries", "Dreams")
	if got == nil || got.Slug != "first" {
		t.Errorf("tie should keep the first-seen maximum, got %+v", got)
	}
}

func TestTrackVsReleaseDisambiguation(t *testing.T) {
	r := testResolver()
	release := record.Record{
		Slug: "/release/album/opeth/damnation/", Name: "Damnation", Artist: "Opeth",
		URL: "https://x/release/album/opeth/damnation/", UpdatedAt: "2026-08-30T10:00:00Z",
	}
	track := record.Record{
		Slug: "/song/opeth/damnation/", Name: "Damnation", Artist: "Opeth",
		URL: "https://x/song/opeth/damnation/", UpdatedAt: "2026-08-30T10:00:00Z",
	}
	r.Upsert(release)
	r.Upsert(track)

	if res := r.Lookup("Opeth", "Damnation", true); res.Match == nil || res.Match.Slug != track.Slug {
		t.Errorf("preferTrack=true got %+v, want the track record", res.Match)
	}
	if res := r.Lookup("Opeth", "Damnation", false); res.Match == nil || res.Match.Slug != release.Slug {
		t.Errorf("preferTrack=false got %+v, want the release record", res.Match)
	}
}

func TestTrackSeedsPrimaryWhenNoRelease(t *testing.T) {
	r := testResolver()
	track := record.Record{
		Slug: "/song/opeth/harvest/", Name: "Harvest", Artist: "Opeth",
		UpdatedAt: "2026-08-30T10:00:00Z",
	}
	r.Upsert(track)

	if res := r.Lookup("Opeth", "Harvest", false); res.Match == nil {
		t.Error("track entry should seed the primary index when no release claims the key")
	}

	// A release arriving later takes the primary slot; the track stays
	// reachable via the track index.
	release := record.Record{
		Slug: "/release/album/opeth/harvest/", Name: "Harvest", Artist: "Opeth",
		UpdatedAt: "2026-08-30T11:00:00Z",
	}
	r.Upsert(release)

	if res := r.Lookup("Opeth", "Harvest", false); res.Match == nil || res.Match.Slug != release.Slug {
		t.Errorf("primary index should now hold the release, got %+v", res.Match)
	}
	if res := r.LookupTrack("Opeth", "Harvest"); res.Match == nil || res.Match.Slug != track.Slug {
		t.Errorf("track index should still hold the track, got %+v", res.Match)
	}
}

func TestLookupTrackStrictNoFallback(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	if res := r.LookupTrack("The Beatles", "Abbey Road"); res.Match != nil {
		t.Errorf("strict track lookup must not fall back to the primary index, got %+v", res.Match)
	}
}

func TestIngestArrayAndObjectForms(t *testing.T) {
	r := testResolver()

	asArray := `[
		{"slug":"a","name":"A","artist":"X","ratingValue":"4.0","url":"https://x/a","updatedAt":"2026-08-30T10:00:00Z"},
		null,
		"garbage",
		{"slug":"","name":"slugless"}
	]`
	n, err := r.Ingest([]byte(asArray), "test-array")
	if err != nil {
		t.Fatalf("Ingest array: %v", err)
	}
	if n != 1 {
		t.Errorf("array ingest applied %d records, want 1", n)
	}

	asObject := `{
		"b": {"slug":"b","name":"B","artist":"Y","ratingValue":"3.5","url":"https://x/b","updatedAt":"2026-08-30T10:00:00Z"},
		"junk": null
	}`
	n, err = r.Ingest([]byte(asObject), "test-object")
	if err != nil {
		t.Fatalf("Ingest object: %v", err)
	}
	if n != 1 {
		t.Errorf("object ingest applied %d records, want 1", n)
	}

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	if _, src := r.LastSync(); src != "test-object" {
		t.Errorf("source = %q, want test-object", src)
	}
}

func TestIngestObjectPreservesDocumentOrder(t *testing.T) {
	// Map-shaped payloads must keep the document's entry order: the fuzzy
	// tie-break and last-write-wins indexing both lean on insertion order.
	asObject := `{
		"s1": {"slug":"s1","name":"One","artist":"X","url":"https://x/1","updatedAt":"2026-08-30T10:00:00Z"},
		"s2": {"slug":"s2","name":"Two","artist":"X","url":"https://x/2","updatedAt":"2026-08-30T10:00:00Z"},
		"s3": {"slug":"s3","name":"Three","artist":"X","url":"https://x/3","updatedAt":"2026-08-30T10:00:00Z"}
	}`
	want := []string{"s1", "s2", "s3"}

	for i := 0; i < 30; i++ {
		r := testResolver()
		if _, err := r.Ingest([]byte(asObject), "test"); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		for j, rec := range r.Records() {
			if rec.Slug != want[j] {
				t.Fatalf("run %d: record %d = %q, want %q", i, j, rec.Slug, want[j])
			}
		}
	}
}

func TestIngestObjectSameKeyLastEntryWins(t *testing.T) {
	asObject := `{
		"a": {"slug":"early","name":"Dreams","artist":"Cranberries","url":"https://x/a","updatedAt":"2026-08-30T10:00:00Z"},
		"b": {"slug":"late","name":"Dreams","artist":"Cranberries","url":"https://x/b","updatedAt":"2026-08-30T11:00:00Z"}
	}`
	for i := 0; i < 30; i++ {
		r := testResolver()
		if _, err := r.Ingest([]byte(asObject), "test"); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		res := r.Lookup("Cranberries", "Dreams", false)
		if res.Match == nil || res.Match.Slug != "late" {
			t.Fatalf("run %d: index holds %+v, want the later document entry", i, res.Match)
		}
	}
}

func TestLookupRawCleansForeignTitles(t *testing.T) {
	r := testResolver()
	r.Upsert(record.Record{
		Slug: "/song/radiohead/creep/", Name: "Creep", Artist: "Radiohead",
		URL: "https://x/song/radiohead/creep/", UpdatedAt: "2026-08-30T10:00:00Z",
	})

	// YouTube-style display strings: decorated title, "- Topic" channel.
	res := r.LookupRaw("Radiohead - Topic", "Radiohead - Creep (Official Video)", true)
	if res.Match == nil || res.Match.Slug != "/song/radiohead/creep/" {
		t.Fatalf("raw lookup got %+v, want the creep track", res.Match)
	}

	// The literal string misses; only a cleaned candidate hits.
	if res := r.Lookup("Radiohead - Topic", "Radiohead - Creep (Official Video)", true); res.Match != nil {
		t.Errorf("uncleaned lookup matched %+v, expected a miss", res.Match)
	}

	if res := r.LookupRaw("Nobody", "Nothing At All [Full Album]", false); res.Match != nil {
		t.Errorf("raw lookup matched %+v, expected a miss", res.Match)
	}
}

func TestIngestMalformedPayload(t *testing.T) {
	r := testResolver()
	if _, err := r.Ingest([]byte("{corrupt"), "x"); err == nil {
		t.Error("expected error for malformed payload")
	}
	if r.Len() != 0 {
		t.Errorf("malformed payload must not mutate the collection, Len = %d", r.Len())
	}
}

func TestBulkLookup(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())
	r.Upsert(record.Record{
		Slug: "/song/the-beatles/something/", Name: "Something", Artist: "The Beatles",
		UpdatedAt: "2026-08-30T10:00:00Z",
	})

	keys := []string{
		match.KeyFor("The Beatles", "Abbey Road"),
		match.KeyFor("The Beatles", "Something"),
		match.KeyFor("Nobody", "Nothing"),
		"|",
	}
	res := r.BulkLookup(keys)

	if len(res.Matches) != 2 {
		t.Errorf("Matches = %d keys, want 2", len(res.Matches))
	}
	if len(res.TrackMatches) != 1 {
		t.Errorf("TrackMatches = %d keys, want 1", len(res.TrackMatches))
	}
	if res.LastSync == 0 {
		t.Error("LastSync should be set after upserts")
	}
}

func TestSnapshotShape(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	snap := r.Snapshot()
	if len(snap.Entries) != 1 {
		t.Fatalf("Entries = %d, want 1", len(snap.Entries))
	}
	key := match.KeyFor("The Beatles", "Abbey Road")
	if _, ok := snap.PrimaryIndex[key]; !ok {
		t.Errorf("PrimaryIndex missing %q", key)
	}
	if snap.LastSync == 0 {
		t.Error("LastSync missing from snapshot")
	}
}

func TestReplace(t *testing.T) {
	r := testResolver()
	r.Upsert(abbeyRoad())

	loaded := []record.Record{
		{Slug: "kid-a", Name: "Kid A", Artist: "Radiohead", UpdatedAt: "2026-08-30T10:00:00Z"},
	}
	syncedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	r.Replace(loaded, syncedAt, "store")

	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1 after replace", r.Len())
	}
	if res := r.Lookup("Radiohead", "Kid A", false); res.Match == nil {
		t.Error("replaced collection should serve lookups")
	}
	if ts, src := r.LastSync(); !ts.Equal(syncedAt) || src != "store" {
		t.Errorf("LastSync = %v/%q, want %v/store", ts, src, syncedAt)
	}
}
