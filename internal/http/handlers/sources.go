package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
)

// UploadSource handles POST /slots/{slot}/image with the file in the
// multipart field "image".
func (a *App) UploadSource(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds upload limit")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid_argument", "multipart field \"image\" is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_argument", "failed to read image")
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "invalid_argument", "image is empty")
		return
	}

	res, err := a.Mixer.Upload(r.Context(), slot, header.Filename, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if a.Views != nil {
		a.Views.Invalidate(slot)
	}
	a.json(w, http.StatusCreated, res)
}

// GetSource handles GET /slots/{slot}/image.
func (a *App) GetSource(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := a.Mixer.Source(r.Context(), slot)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.image(w, img)
}

// GetView handles GET /slots/{slot}/views/{channel}: the worker's rendering
// of one spectral component, 202 while it is still being computed.
func (a *App) GetView(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlotID(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	channel, err := domain.ParseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !a.Mixer.Model().Snapshot().Slots[slot.Index()].HasSource {
		a.fail(w, r, domain.ErrNoSource)
		return
	}
	img, err := a.Views.Get(r.Context(), slot, channel)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.image(w, img)
}
