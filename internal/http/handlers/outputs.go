package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
)

func (a *App) ListOutputs(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.outputViews()})
}

type selectOutputRequest struct {
	Output domain.OutputID `json:"output"`
}

// SelectOutput handles PUT /outputs/active. The next result lands in the
// selected slot; selecting does not start a mix.
func (a *App) SelectOutput(w http.ResponseWriter, r *http.Request) {
	var req selectOutputRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Mixer.Outputs().Select(req.Output); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": a.outputViews()})
}

// GetOutputImage handles GET /outputs/{output}/image.
func (a *App) GetOutputImage(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseOutputID(chi.URLParam(r, "output"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	slot, err := a.Mixer.Outputs().Get(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !slot.HasImage() {
		a.error(w, http.StatusNotFound, "not_found", "output has no result yet")
		return
	}
	if slot.Simulated {
		w.Header().Set("X-Result-Simulated", "true")
	}
	a.image(w, slot.Image)
}
