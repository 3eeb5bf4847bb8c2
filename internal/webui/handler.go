// Package webui serves the browser front end for photo backups: a form at
// "/" and the POST /upload endpoint it submits to. The same handler runs
// locally under net/http and on Lambda behind API Gateway.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
	"github.com/fpang/photo-backup/internal/backup"
	"github.com/fpang/photo-backup/internal/logging"
	"github.com/fpang/photo-backup/internal/store"
)

//go:embed static
var staticFS embed.FS

// Runner executes one backup run.
type Runner interface {
	Run(ctx context.Context, req backup.Request) (*backup.Result, error)
}

// RunLister lists recorded runs for an owner.
type RunLister interface {
	ListRuns(ctx context.Context, ownerID string, limit int) ([]*store.Run, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithRunHistory enables GET /api/runs.
func WithRunHistory(runs RunLister) Option {
	return func(h *Handler) {
		h.runs = runs
	}
}

// WithDefaultFolder sets the folder used when a request leaves it blank.
func WithDefaultFolder(folder string) Option {
	return func(h *Handler) {
		h.defaultFolder = folder
	}
}

// Handler is the web front end's http.Handler.
type Handler struct {
	runner        Runner
	logPath       string
	defaultFolder string
	runs          RunLister

	// Runs share the staging directory and manifest, so only one at a time.
	runMu sync.Mutex
	mux   *http.ServeMux
}

// NewHandler creates a Handler. logPath is the file whose tail is returned
// with every /upload response.
func NewHandler(runner Runner, logPath string, opts ...Option) *Handler {
	h := &Handler{
		runner:  runner,
		logPath: logPath,
	}
	for _, opt := range opts {
		opt(h)
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embedded directory is fixed at build time.
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/runs", h.handleRuns)
	mux.HandleFunc("POST /upload", h.handleUpload)
	mux.Handle("GET /", http.FileServer(http.FS(static)))
	h.mux = mux
	return h
}

// ServeHTTP adds security headers and request logging around the routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

	h.mux.ServeHTTP(w, r)

	if r.URL.Path != "/" && !strings.HasPrefix(r.URL.Path, "/static") {
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("API request")
	}
}

type uploadResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
	RunID   string                `json:"runId,omitempty"`
	Files   []backup.UploadRecord `json:"files,omitempty"`
	Log     []string              `json:"log,omitempty"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.FormValue("user_id"))
	diskToken := strings.TrimSpace(r.FormValue("yandex_token"))
	folder := strings.Trim(strings.TrimSpace(r.FormValue("folder_path")), "/")
	if folder == "" {
		folder = h.defaultFolder
	}

	log.Info().Str("ownerId", ownerID).Str("folder", folder).Msg("Upload request received")

	if ownerID == "" || diskToken == "" {
		msg := "VK user ID and Yandex.Disk token are required"
		log.Error().Msg(msg)
		respondJSON(w, http.StatusBadRequest, uploadResponse{Error: msg})
		return
	}

	h.runMu.Lock()
	// A run is not cancelled when the client goes away.
	result, err := h.runner.Run(context.WithoutCancel(r.Context()), backup.Request{
		OwnerID:    ownerID,
		DiskToken:  diskToken,
		FolderPath: folder,
	})
	h.runMu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("kind", apierr.Kind(err)).Msg("Photo upload failed")
		status := http.StatusInternalServerError
		if errors.Is(err, apierr.ErrBusy) {
			status = http.StatusConflict
		}
		respondJSON(w, status, uploadResponse{
			Error: apierr.UserMessage(err),
			Log:   logging.Tail(h.logPath, logging.TailLines),
		})
		return
	}

	msg := fmt.Sprintf("Uploaded %d photos", len(result.Records))
	log.Info().Str("runId", result.RunID).Msg(msg)
	respondJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Message: msg,
		RunID:   result.RunID,
		Files:   result.Records,
		Log:     logging.Tail(h.logPath, logging.TailLines),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		httpError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	ownerID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if ownerID == "" {
		httpError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httpError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), ownerID, limit)
	if err != nil {
		log.Error().Err(err).Str("ownerId", ownerID).Msg("Failed to list runs")
		httpError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
