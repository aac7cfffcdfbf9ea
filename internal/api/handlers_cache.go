package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sydlexius/backbeat/internal/event"
	"github.com/sydlexius/backbeat/internal/record"
)

// handleSync replaces the entire cache with a collaborator's export,
// typically pushed by a userscript syncing from another install.
func (r *Router) handleSync(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Records  []record.Record `json:"records"`
		LastSync int64           `json:"lastSync"`
		Source   string          `json:"source"`
	}
	if err := json.NewDecoder(limitBody(req)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Source == "" {
		body.Source = "sync"
	}

	lastSync := time.Now().UTC()
	if body.LastSync > 0 {
		lastSync = time.UnixMilli(body.LastSync).UTC()
	}

	r.resolver.Replace(body.Records, lastSync, body.Source)

	if err := r.store.Clear(req.Context()); err != nil {
		r.logger.Error("clearing store before sync", "error", err)
	}
	r.persistResolver(req, body.Source)

	r.eventBus.Publish(event.Event{
		Type: event.SyncCompleted,
		Data: map[string]any{"records": len(body.Records), "source": body.Source},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "synced",
		"total":  r.resolver.Len(),
	})
}

func (r *Router) handleCacheStatus(w http.ResponseWriter, req *http.Request) {
	lastSync, source := r.resolver.LastSync()
	persisted, err := r.store.Count(req.Context())
	if err != nil {
		r.logger.Error("counting persisted records", "error", err)
		persisted = -1
	}

	var lastSyncMilli int64
	if !lastSync.IsZero() {
		lastSyncMilli = lastSync.UnixMilli()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":   r.resolver.Len(),
		"persisted": persisted,
		"lastSync":  lastSyncMilli,
		"source":    source,
	})
}

func (r *Router) handleCacheSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, r.resolver.Snapshot())
}

func (r *Router) handleClearCache(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Clear(req.Context()); err != nil {
		r.logger.Error("clearing store", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	r.resolver.Replace(nil, time.Time{}, "")

	r.eventBus.Publish(event.Event{Type: event.CacheCleared})

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (r *Router) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="backbeat-export.csv"`)

	if err := record.WriteCSV(w, r.resolver.Records()); err != nil {
		r.logger.Error("writing csv export", "error", err)
	}
}

func (r *Router) handleImportCSV(w http.ResponseWriter, req *http.Request) {
	records, err := record.ReadCSV(limitBody(req))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid csv: "+err.Error())
		return
	}

	source := req.URL.Query().Get("source")
	if source == "" {
		source = "csv-import"
	}

	r.resolver.IngestRecords(records, source)
	r.persistResolver(req, source)

	r.eventBus.Publish(event.Event{
		Type: event.ImportCompleted,
		Data: map[string]any{"records": len(records), "source": source},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"imported": len(records),
		"total":    r.resolver.Len(),
	})
}
