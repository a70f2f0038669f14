package handlers

import (
	"net/http"
)

// Health reports liveness plus whether the worker is currently reachable and
// where the mix cycle stands. It never fails: an offline worker is a degraded
// mode, not an unhealthy server.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	st := a.Mixer.Status()
	a.json(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"backend_active": st.Reachable,
		"phase":          st.Phase,
		"is_processing":  st.Processing,
	})
}
