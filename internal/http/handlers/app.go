package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/mixer"
	"studio/internal/views"
)

const defaultMaxUploadBytes = 32 << 20

// App carries the dependencies shared by every handler.
type App struct {
	Mixer          *mixer.Orchestrator
	Views          *views.Cache
	Logger         *infra.Logger
	MaxUploadBytes int64

	upgrader websocket.Upgrader
}

// NewApp wires handlers to the orchestrator and the view cache. checkOrigin
// decides which browser origins may open the event stream; nil allows all.
func NewApp(orch *mixer.Orchestrator, cache *views.Cache, logger *infra.Logger, checkOrigin func(*http.Request) bool) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &App{
		Mixer:          orch,
		Views:          cache,
		Logger:         logger,
		MaxUploadBytes: defaultMaxUploadBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// fail maps a domain error onto a response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSlot), errors.Is(err, domain.ErrInvalidChannel):
		a.error(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrNoSource), errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrViewPending):
		a.error(w, http.StatusAccepted, "pending", "view is still being computed")
	case errors.Is(err, domain.ErrRejected):
		a.error(w, http.StatusBadGateway, "worker_rejected", err.Error())
	case domain.IsTransport(err):
		a.error(w, http.StatusServiceUnavailable, "worker_unreachable", err.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decode reads a JSON body, rejecting unknown fields.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) image(w http.ResponseWriter, img domain.Image) {
	mime := img.MIME
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// AllowOrigins returns a websocket origin check accepting requests without an
// Origin header and those from the listed origins ("*" accepts any).
func AllowOrigins(origins []string) func(*http.Request) bool {
	allow := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allow[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allow[origin]
		return ok
	}
}
