package handlers

import (
	"fmt"
	"net/http"
	"time"

	"studio/internal/domain"
	"studio/pkg/zip"
)

// DownloadArchive handles GET /archive: every stored source and output
// packed into one zip.
func (a *App) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	var entries []zip.Entry
	for _, info := range a.Mixer.Model().Snapshot().SourceSlots() {
		img, err := a.Mixer.Source(r.Context(), info.ID)
		if err != nil {
			a.Logger.Warn().Err(err).Int("slot", int(info.ID)).Msg("archive: source unreadable")
			continue
		}
		entries = append(entries, zip.Entry{
			Name:     fmt.Sprintf("sources/slot-%d", info.ID),
			MIME:     img.MIME,
			Data:     img.Data,
			Modified: info.UpdatedAt,
		})
	}
	for _, out := range a.Mixer.Outputs().List() {
		if !out.HasImage() {
			continue
		}
		name := fmt.Sprintf("outputs/output-%d", out.ID)
		if out.Simulated {
			name += "-simulated"
		}
		entries = append(entries, zip.Entry{Name: name, MIME: out.Image.MIME, Data: out.Image.Data, Modified: out.UpdatedAt})
	}
	if len(entries) == 0 {
		a.fail(w, r, domain.ErrNoSource)
		return
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=mix-%s.zip", time.Now().UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
