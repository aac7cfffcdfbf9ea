package api

import (
	"encoding/json"
	"net/http"
)

func (r *Router) handleLookup(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	artist := q.Get("artist")
	title := q.Get("title")
	if artist == "" && title == "" {
		writeError(w, http.StatusBadRequest, "artist or title is required")
		return
	}

	preferTrack := q.Get("track") == "1" || q.Get("track") == "true"
	raw := q.Get("raw") == "1" || q.Get("raw") == "true"

	var result any
	switch {
	case q.Get("strict") == "track":
		result = r.resolver.LookupTrack(artist, title)
	case raw:
		// The query carries a foreign site's display strings; try cleaned
		// title candidates in sequence before giving up.
		result = r.resolver.LookupRaw(artist, title, preferTrack)
	default:
		result = r.resolver.Lookup(artist, title, preferTrack)
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleFuzzyLookup(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	artist := q.Get("artist")
	title := q.Get("title")
	if artist == "" && title == "" {
		writeError(w, http.StatusBadRequest, "artist or title is required")
		return
	}

	match := r.resolver.FindMatch(artist, title)
	writeJSON(w, http.StatusOK, map[string]any{"match": match})
}

func (r *Router) handleBulkLookup(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Keys) == 0 {
		writeError(w, http.StatusBadRequest, "keys are required")
		return
	}

	writeJSON(w, http.StatusOK, r.resolver.BulkLookup(body.Keys))
}
