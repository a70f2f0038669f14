package mixer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"studio/internal/domain"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Write(_ context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *memStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	return out
}

// gatedStore holds every Read after it has been entered until release is
// closed.
type gatedStore struct {
	*memStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.memStore.Read(ctx, key)
}

// fakeService records submissions. submit, when set, answers the nth
// SubmitJob call instead of submitErr. poll decides the PollStatus answer from
// the number of jobs submitted so far; nil answers completed with "result".
type fakeService struct {
	mu        sync.Mutex
	submits   []domain.JobRequest
	submitErr error
	submit    func(ctx context.Context, n int) error
	uploadErr error
	uploads   []domain.SlotID
	polls     int
	poll      func(ctx context.Context, submitted int) (domain.JobStatus, error)
}

func (f *fakeService) SubmitJob(ctx context.Context, req domain.JobRequest) error {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	n, hook, err := len(f.submits), f.submit, f.submitErr
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, n)
	}
	return err
}

func (f *fakeService) PollStatus(ctx context.Context) (domain.JobStatus, error) {
	f.mu.Lock()
	f.polls++
	submitted := len(f.submits)
	poll := f.poll
	f.mu.Unlock()
	if poll == nil {
		return completed("result"), nil
	}
	return poll(ctx, submitted)
}

func (f *fakeService) UploadSource(_ context.Context, slot domain.SlotID, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, slot)
	return nil
}

func (f *fakeService) FetchChannelView(context.Context, domain.SlotID, domain.Channel) (domain.Image, error) {
	return domain.Image{}, domain.ErrNotFound
}

func (f *fakeService) submitted() []domain.JobRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.JobRequest(nil), f.submits...)
}

func (f *fakeService) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func completed(body string) domain.JobStatus {
	return domain.JobStatus{
		State:    domain.JobCompleted,
		Progress: 100,
		Result:   domain.Image{Data: []byte(body), MIME: "image/png"},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(kind EventType) int {
	n := 0
	for _, ev := range r.snapshot() {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

var fastOptions = Options{
	Debounce:      40 * time.Millisecond,
	PollInterval:  5 * time.Millisecond,
	FallbackDelay: 20 * time.Millisecond,
}

// seedSource puts bytes for slot into store and the model without notifying
// anyone; call it before the orchestrator starts.
func seedSource(t *testing.T, m *Model, store *memStore, slot domain.SlotID, body string) {
	t.Helper()
	key := fmt.Sprintf("sources/slot-%d/seed.png", slot)
	if _, err := store.Write(context.Background(), key, []byte(body)); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	if err := m.SetSource(slot, domain.ImageSlot{SourceKey: key, MIME: "image/png"}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
}

func observerCount(m *Model) int {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	return len(m.observers)
}

// start runs o until the test ends and returns once it observes the model.
func start(t *testing.T, o *Orchestrator) *recorder {
	t.Helper()
	rec := &recorder{}
	o.Subscribe(rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = o.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	waitFor(t, "orchestrator to observe the model", func() bool { return observerCount(o.Model()) > 0 })
	return rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func idle(o *Orchestrator) func() bool {
	return func() bool {
		s := o.Status()
		return s.Phase == PhaseIdle && !s.Processing
	}
}
