package refworker

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/worker"
)

const maxUploadBytes = 32 << 20

// NewRouter exposes s over the worker wire protocol.
func NewRouter(s *Service) http.Handler {
	h := &handler{svc: s}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.Recoverer, middleware.Logger(*s.logger))

	r.Post("/upload/{slot}", h.upload)
	r.Get("/get_view/{slot}/{component}", h.view)
	r.Post("/start_mix", h.startMix)
	r.Get("/progress", h.progress)
	return r
}

type handler struct {
	svc *Service
}

func (h *handler) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		h.json(w, http.StatusBadRequest, worker.UploadResponse{Error: err.Error()})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		h.json(w, http.StatusBadRequest, worker.UploadResponse{Error: "No file part"})
		return
	}
	defer file.Close()
	if header.Filename == "" {
		h.json(w, http.StatusBadRequest, worker.UploadResponse{Error: "No selected file"})
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		h.json(w, http.StatusBadRequest, worker.UploadResponse{Error: err.Error()})
		return
	}
	dims, err := h.svc.Upload(r.Context(), slot, header.Filename, data)
	if err != nil {
		h.json(w, http.StatusInternalServerError, worker.UploadResponse{Error: err.Error()})
		return
	}
	h.json(w, http.StatusOK, worker.UploadResponse{Status: "success", Dims: dims[:]})
}

func (h *handler) view(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		h.json(w, http.StatusNotFound, worker.ViewPayload{Error: "No image"})
		return
	}
	ch, err := domain.ParseChannel(chi.URLParam(r, "component"))
	if err != nil {
		h.json(w, http.StatusBadRequest, worker.ViewPayload{Error: err.Error()})
		return
	}
	png, err := h.svc.View(slot, ch)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.json(w, http.StatusNotFound, worker.ViewPayload{Error: "No image"})
	case errors.Is(err, domain.ErrViewPending):
		h.json(w, http.StatusAccepted, worker.ViewPayload{Error: "Processing"})
	case err != nil:
		h.json(w, http.StatusInternalServerError, worker.ViewPayload{Error: err.Error()})
	default:
		h.json(w, http.StatusOK, worker.ViewPayload{Image: base64.StdEncoding.EncodeToString(png)})
	}
}

func (h *handler) startMix(w http.ResponseWriter, r *http.Request) {
	var p worker.MixPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil {
		h.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	id := h.svc.Start(r.Context(), p)
	h.json(w, http.StatusOK, worker.StartMixResponse{TaskID: id})
}

func (h *handler) progress(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, h.svc.Progress())
}
