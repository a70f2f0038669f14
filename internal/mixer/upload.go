package mixer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
)

// UploadResult reports how an upload went. The source is usable locally even
// when the worker could not be reached.
type UploadResult struct {
	Slot      domain.ImageSlot `json:"slot"`
	Reachable bool             `json:"backend_active"`
}

// Upload stores a new source image for slot, forwards it to the worker and
// records it in the model, which schedules a mix. The slot is filled from the
// local copy whatever the worker answers: success marks the worker reachable
// again, any failure switches the orchestrator to simulated results.
func (o *Orchestrator) Upload(ctx context.Context, slot domain.SlotID, filename string, data []byte) (UploadResult, error) {
	if !slot.Valid() {
		return UploadResult{}, fmt.Errorf("mixer: %w: %d", domain.ErrInvalidSlot, slot)
	}
	if len(data) == 0 {
		return UploadResult{}, errors.New("mixer: empty upload")
	}

	key, err := o.store.Write(ctx, sourceKey(slot, filename), data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("mixer: store source: %w", err)
	}

	err = o.svc.UploadSource(ctx, slot, filename, data)
	switch {
	case err == nil:
		o.setReachable(true)
	case ctx.Err() != nil:
		o.discard(key)
		return UploadResult{}, ctx.Err()
	default:
		o.logger.Warn().Err(err).Int("slot", int(slot)).Msg("mixer: worker did not take the upload, switching to simulated results")
		o.setReachable(false)
	}

	info := domain.ImageSlot{
		ID:        slot,
		HasSource: true,
		SourceKey: key,
		Filename:  strings.TrimSpace(filename),
		MIME:      http.DetectContentType(data),
		UpdatedAt: time.Now().UTC(),
	}
	prev, err := o.model.ReplaceSource(slot, info)
	if err != nil {
		o.discard(key)
		return UploadResult{}, err
	}
	if prev.HasSource && prev.SourceKey != "" && prev.SourceKey != key {
		o.retire(prev.SourceKey)
	}
	o.logger.Info().Int("slot", int(slot)).Str("key", key).Int("bytes", len(data)).Msg("mixer: source uploaded")
	return UploadResult{Slot: info, Reachable: o.Status().Reachable}, nil
}

// Source returns the stored bytes of slot's current image. A replacement
// racing with the read leaves the old bytes in place until Source is done.
func (o *Orchestrator) Source(ctx context.Context, slot domain.SlotID) (domain.Image, error) {
	if !slot.Valid() {
		return domain.Image{}, fmt.Errorf("mixer: %w: %d", domain.ErrInvalidSlot, slot)
	}
	o.beginRead()
	defer o.endRead()
	info := o.model.Snapshot().Slots[slot.Index()]
	if !info.HasSource {
		return domain.Image{}, fmt.Errorf("mixer: slot %d: %w", slot, domain.ErrNoSource)
	}
	data, err := o.store.Read(ctx, info.SourceKey)
	if err != nil {
		return domain.Image{}, err
	}
	return domain.Image{Data: data, MIME: info.MIME}, nil
}

// sourceKey builds a fresh key for every upload so a replacement never
// overwrites bytes a simulation may still be reading.
func sourceKey(slot domain.SlotID, filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if ext == "" || len(ext) > 5 {
		ext = ".bin"
	}
	return fmt.Sprintf("sources/slot-%d/%s%s", slot, uuid.NewString(), ext)
}

// retire deletes a replaced source, or parks it until running simulations,
// which may hold its key, are done.
func (o *Orchestrator) retire(key string) {
	o.retireMu.Lock()
	if o.reading > 0 {
		o.retired = append(o.retired, key)
		o.retireMu.Unlock()
		return
	}
	o.retireMu.Unlock()
	o.discard(key)
}

func (o *Orchestrator) beginRead() {
	o.retireMu.Lock()
	o.reading++
	o.retireMu.Unlock()
}

func (o *Orchestrator) endRead() {
	o.retireMu.Lock()
	o.reading--
	var keys []string
	if o.reading == 0 {
		keys, o.retired = o.retired, nil
	}
	o.retireMu.Unlock()
	for _, key := range keys {
		o.discard(key)
	}
}

func (o *Orchestrator) discard(key string) {
	if err := o.store.Delete(context.Background(), key); err != nil {
		o.logger.Warn().Err(err).Str("key", key).Msg("mixer: could not delete source")
	}
}
