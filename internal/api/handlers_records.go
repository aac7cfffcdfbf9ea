package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/sydlexius/backbeat/internal/event"
)

// maxIngestBytes caps the ingest payload size. Full-site exports run a
// few megabytes; anything larger is likely a mistake.
const maxIngestBytes = 32 << 20

func (r *Router) handleIngestRecords(w http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(req.Body, maxIngestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	if len(payload) > maxIngestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	source := req.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}

	n, err := r.resolver.Ingest(payload, source)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	r.persistResolver(req, source)

	r.eventBus.Publish(event.Event{
		Type: event.RecordsUpdated,
		Data: map[string]any{"records": n, "source": source},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"ingested": n,
		"total":    r.resolver.Len(),
	})
}

func (r *Router) handleListRecords(w http.ResponseWriter, req *http.Request) {
	records := r.resolver.Records()

	q := req.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   r.resolver.Len(),
	})
}

func (r *Router) handleGetRecord(w http.ResponseWriter, req *http.Request) {
	slug := req.PathValue("slug")

	rec, ok := r.resolver.Get(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// persistResolver writes the full resolver state through to SQLite. The
// in-memory resolver stays authoritative; persistence failures are logged
// and the request still succeeds.
func (r *Router) persistResolver(req *http.Request, source string) {
	lastSync, _ := r.resolver.LastSync()
	if err := r.store.SaveBatch(req.Context(), r.resolver.Records(), lastSync, source); err != nil {
		r.logger.Error("persisting records", "error", err)
	}
}
