package api

import (
	"encoding/json"
	"net/http"

	"github.com/sydlexius/backbeat/internal/logging"
	"github.com/sydlexius/backbeat/internal/match"
	"github.com/sydlexius/backbeat/internal/store"
)

type matchSettings struct {
	Threshold    float64 `json:"threshold"`
	TitleWeight  float64 `json:"title_weight"`
	ArtistWeight float64 `json:"artist_weight"`
}

func (r *Router) handleGetMatchSettings(w http.ResponseWriter, _ *http.Request) {
	weights, threshold := r.resolver.Tuning()
	writeJSON(w, http.StatusOK, matchSettings{
		Threshold:    threshold,
		TitleWeight:  weights.Title,
		ArtistWeight: weights.Artist,
	})
}

func (r *Router) handleUpdateMatchSettings(w http.ResponseWriter, req *http.Request) {
	var body matchSettings
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Threshold < 0 || body.Threshold > 1 {
		writeError(w, http.StatusBadRequest, "threshold must be between 0 and 1")
		return
	}
	if body.TitleWeight < 0 || body.ArtistWeight < 0 || body.TitleWeight+body.ArtistWeight == 0 {
		writeError(w, http.StatusBadRequest, "weights must be non-negative and not both zero")
		return
	}

	weights := match.Weights{Title: body.TitleWeight, Artist: body.ArtistWeight}
	r.resolver.SetTuning(weights, body.Threshold)

	if err := r.store.SaveTuning(req.Context(), store.Tuning{
		Threshold:    body.Threshold,
		TitleWeight:  body.TitleWeight,
		ArtistWeight: body.ArtistWeight,
	}); err != nil {
		r.logger.Error("persisting match settings", "error", err)
	}

	writeJSON(w, http.StatusOK, body)
}

func (r *Router) handleGetLogging(w http.ResponseWriter, _ *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"level": r.logManager.Level()})
}

func (r *Router) handleUpdateLogging(w http.ResponseWriter, req *http.Request) {
	if r.logManager == nil {
		writeError(w, http.StatusServiceUnavailable, "logging manager not available")
		return
	}

	var body struct {
		Level string `json:"level"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !logging.ValidLevel(body.Level) {
		writeError(w, http.StatusBadRequest, "invalid level; must be debug, info, warn, or error")
		return
	}

	r.logManager.SetLevel(body.Level)
	r.logger.Info("log level changed", "level", body.Level)

	writeJSON(w, http.StatusOK, map[string]string{"level": r.logManager.Level()})
}
