package mixer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"studio/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n....")

func TestUploadStoresForwardsAndSchedulesMix(t *testing.T) {
	model, store, svc := NewModel(), newMemStore(), &fakeService{}
	o := New(model, NewOutputs(), svc, store, fastOptions)
	rec := start(t, o)

	res, err := o.Upload(context.Background(), 2, "Cat.PNG", pngHeader)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !res.Reachable || !res.Slot.HasSource || res.Slot.MIME != "image/png" || res.Slot.Filename != "Cat.PNG" {
		t.Fatalf("result = %+v", res)
	}
	keys := store.keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "sources/slot-2/") || !strings.HasSuffix(keys[0], ".png") {
		t.Fatalf("stored keys = %v", keys)
	}
	if len(svc.uploads) != 1 || svc.uploads[0] != 2 {
		t.Fatalf("forwarded uploads = %v", svc.uploads)
	}

	waitFor(t, "mix after upload", func() bool { return rec.count(EventOutput) == 1 })

	img, err := o.Source(context.Background(), 2)
	if err != nil || string(img.Data) != string(pngHeader) {
		t.Fatalf("Source() = %q, %v", img.Data, err)
	}
}

func TestUploadWhileWorkerDown(t *testing.T) {
	model, store := NewModel(), newMemStore()
	svc := &fakeService{uploadErr: fmt.Errorf("worker: upload: %w: refused", domain.ErrTransport)}
	o := New(model, NewOutputs(), svc, store, fastOptions)
	rec := start(t, o)

	res, err := o.Upload(context.Background(), 1, "a.png", pngHeader)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Reachable || o.Status().Reachable {
		t.Fatalf("worker should be marked unreachable")
	}
	if !model.Snapshot().Slots[0].HasSource {
		t.Fatalf("source should still be recorded locally")
	}
	// The reachability event comes from Upload's goroutine, the simulated
	// result from the loop; subscribers get both.
	waitFor(t, "simulated result", func() bool { return rec.count(EventOutput) == 1 })
	offline := false
	for _, ev := range rec.snapshot() {
		if ev.Type == EventStatus && !ev.Status.Reachable {
			offline = true
		}
	}
	if !offline {
		t.Fatalf("no status event reported the worker offline")
	}
}

func TestUploadRejected(t *testing.T) {
	model, store := NewModel(), newMemStore()
	svc := &fakeService{uploadErr: fmt.Errorf("worker: upload status 500: %w", domain.ErrRejected)}
	o := New(model, NewOutputs(), svc, store, fastOptions)

	res, err := o.Upload(context.Background(), 1, "a.png", pngHeader)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Reachable || o.Status().Reachable {
		t.Fatalf("a rejected upload should switch to simulated results")
	}
	slot := model.Snapshot().Slots[0]
	if !slot.HasSource {
		t.Fatalf("rejected upload should still fill the slot from the local copy")
	}
	keys := store.keys()
	if len(keys) != 1 || keys[0] != slot.SourceKey {
		t.Fatalf("stored keys = %v, want only %s", keys, slot.SourceKey)
	}
}

func TestUploadCancelledLeavesStoreClean(t *testing.T) {
	model, store := NewModel(), newMemStore()
	svc := &fakeService{uploadErr: context.Canceled}
	o := New(model, NewOutputs(), svc, store, fastOptions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Upload(ctx, 1, "a.png", pngHeader); !errors.Is(err, context.Canceled) {
		t.Fatalf("Upload() err = %v", err)
	}
	if model.Snapshot().Slots[0].HasSource {
		t.Fatalf("cancelled upload must not fill the slot")
	}
	if keys := store.keys(); len(keys) != 0 {
		t.Fatalf("stored keys = %v, want none", keys)
	}
	if !o.Status().Reachable {
		t.Fatalf("cancellation says nothing about the worker")
	}
}

func TestUploadReplacementDeletesOldSource(t *testing.T) {
	model, store := NewModel(), newMemStore()
	o := New(model, NewOutputs(), &fakeService{}, store, fastOptions)
	ctx := context.Background()

	if _, err := o.Upload(ctx, 1, "a.png", pngHeader); err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	if _, err := o.Upload(ctx, 1, "b.png", pngHeader); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	keys := store.keys()
	if len(keys) != 1 || keys[0] != model.Snapshot().Slots[0].SourceKey {
		t.Fatalf("stored keys = %v, want only the current source", keys)
	}
}

func TestUploadReplacementWaitsForSimulation(t *testing.T) {
	model, store := NewModel(), newMemStore()
	o := New(model, NewOutputs(), &fakeService{}, store, fastOptions)
	ctx := context.Background()

	if _, err := o.Upload(ctx, 2, "a.png", pngHeader); err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	o.beginRead()
	if _, err := o.Upload(ctx, 2, "b.png", pngHeader); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if n := len(store.keys()); n != 2 {
		t.Fatalf("%d keys stored while a simulation reads, want 2", n)
	}
	o.endRead()
	keys := store.keys()
	if len(keys) != 1 || keys[0] != model.Snapshot().Slots[1].SourceKey {
		t.Fatalf("stored keys = %v after simulation, want only the current source", keys)
	}
}

func TestSourceReadSurvivesReplacement(t *testing.T) {
	model := NewModel()
	store := &gatedStore{memStore: newMemStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	o := New(model, NewOutputs(), &fakeService{}, store, fastOptions)
	ctx := context.Background()

	first := []byte(string(pngHeader) + "first")
	if _, err := o.Upload(ctx, 2, "a.png", first); err != nil {
		t.Fatalf("first Upload: %v", err)
	}

	type result struct {
		img domain.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, err := o.Source(ctx, 2)
		done <- result{img, err}
	}()
	<-store.entered

	if _, err := o.Upload(ctx, 2, "b.png", []byte(string(pngHeader)+"second")); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if n := len(store.keys()); n != 2 {
		t.Fatalf("%d keys stored while Source reads, want 2", n)
	}
	close(store.release)

	res := <-done
	if res.err != nil || string(res.img.Data) != string(first) {
		t.Fatalf("Source() = %q, %v; want the bytes it started reading", res.img.Data, res.err)
	}
	keys := store.keys()
	if len(keys) != 1 || keys[0] != model.Snapshot().Slots[1].SourceKey {
		t.Fatalf("stored keys = %v after read, want only the current source", keys)
	}
}

func TestUploadValidation(t *testing.T) {
	o := New(NewModel(), NewOutputs(), &fakeService{}, newMemStore(), fastOptions)
	if _, err := o.Upload(context.Background(), 7, "a.png", pngHeader); !errors.Is(err, domain.ErrInvalidSlot) {
		t.Fatalf("slot 7 err = %v", err)
	}
	if _, err := o.Upload(context.Background(), 1, "a.png", nil); err == nil {
		t.Fatalf("empty upload expected error")
	}
	if _, err := o.Source(context.Background(), 3); !errors.Is(err, domain.ErrNoSource) {
		t.Fatalf("Source(3) err = %v", err)
	}
}

func TestSourceKey(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":          ".jpg",
		`C:\images\scan.png`: ".png",
		"noext":              ".bin",
		"weird.extension":    ".bin",
	}
	for name, ext := range cases {
		key := sourceKey(3, name)
		if !strings.HasPrefix(key, "sources/slot-3/") || !strings.HasSuffix(key, ext) {
			t.Fatalf("sourceKey(%q) = %q, want suffix %s", name, key, ext)
		}
	}
	if sourceKey(1, "a.png") == sourceKey(1, "a.png") {
		t.Fatalf("keys should be unique per upload")
	}
}
