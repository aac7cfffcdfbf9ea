package api

import (
	"net/http"

	"github.com/sydlexius/backbeat/internal/backup"
)

func (r *Router) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	if r.backupService == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	backups, err := r.backupService.List()
	if err != nil {
		r.logger.Error("listing backups", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if backups == nil {
		backups = []backup.Info{}
	}
	writeJSON(w, http.StatusOK, backups)
}

func (r *Router) handleCreateBackup(w http.ResponseWriter, req *http.Request) {
	if r.backupService == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	info, err := r.backupService.Backup(req.Context())
	if err != nil {
		r.logger.Error("creating backup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := r.backupService.Prune(); err != nil {
		r.logger.Warn("pruning backups", "error", err)
	}
	writeJSON(w, http.StatusCreated, info)
}

func (r *Router) handleDeleteBackup(w http.ResponseWriter, req *http.Request) {
	if r.backupService == nil {
		writeError(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}
	filename := req.PathValue("filename")
	if !backup.ValidFilename(filename) {
		writeError(w, http.StatusBadRequest, "invalid backup filename")
		return
	}
	if err := r.backupService.Delete(filename); err != nil {
		writeError(w, http.StatusNotFound, "backup not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handleMaintenanceStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenanceService == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	status, err := r.maintenanceService.Status(req.Context())
	if err != nil {
		r.logger.Error("reading maintenance status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (r *Router) handleMaintenanceOptimize(w http.ResponseWriter, req *http.Request) {
	if r.maintenanceService == nil {
		writeError(w, http.StatusServiceUnavailable, "maintenance not configured")
		return
	}
	if err := r.maintenanceService.Optimize(req.Context()); err != nil {
		r.logger.Error("optimize failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}
