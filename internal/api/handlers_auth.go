package api

import (
	"encoding/json"
	"net/http"

	"github.com/sydlexius/backbeat/internal/api/middleware"
	"github.com/sydlexius/backbeat/internal/auth"
)

func (r *Router) handleSetup(w http.ResponseWriter, req *http.Request) {
	hasUsers, err := r.authService.HasUsers(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if hasUsers {
		writeError(w, http.StatusConflict, "admin account already exists")
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(body.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	created, err := r.authService.Setup(req.Context(), body.Username, body.Password)
	if err != nil {
		r.logger.Error("initial setup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !created {
		writeError(w, http.StatusConflict, "admin account already exists")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := r.authService.Login(req.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   true,
		MaxAge:   86400,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if cookie, err := req.Cookie("session"); err == nil {
		if logoutErr := r.authService.Logout(req.Context(), cookie.Value); logoutErr != nil {
			r.logger.Warn("failed to delete session", "error", logoutErr)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":     userID,
		"auth_method": middleware.AuthMethodFromContext(req.Context()),
	})
}

func (r *Router) handleCreateAPIToken(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	plaintext, id, err := r.authService.CreateAPIToken(req.Context(), userID, body.Name)
	if err != nil {
		r.logger.Error("creating api token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The plaintext is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":    id,
		"name":  body.Name,
		"token": plaintext,
	})
}

func (r *Router) handleListAPITokens(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())

	tokens, err := r.authService.ListAPITokens(req.Context(), userID)
	if err != nil {
		r.logger.Error("listing api tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if tokens == nil {
		tokens = []auth.APIToken{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (r *Router) handleRevokeAPIToken(w http.ResponseWriter, req *http.Request) {
	userID := middleware.UserIDFromContext(req.Context())
	tokenID := req.PathValue("id")

	if err := r.authService.RevokeAPIToken(req.Context(), tokenID, userID); err != nil {
		writeError(w, http.StatusNotFound, "token not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
