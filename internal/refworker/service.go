package refworker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/worker"
)

// source is one uploaded image. spectrum stays nil until the background
// transform finishes.
type source struct {
	filename string
	width    int
	height   int
	grid     []float64
	spectrum *Spectrum
}

type task struct {
	id       int
	progress int
	status   string
	result   string
	err      string
}

type fftJob struct {
	slot domain.SlotID
	src  *source
}

// Service is an in-process implementation of the job-processing worker: it
// keeps four source slots, transforms uploads in the background and runs
// one mix task at a time. Starting a task replaces the previous one; a
// replaced task keeps computing but can no longer touch the visible state.
type Service struct {
	size   int
	logger *infra.Logger

	mu      sync.RWMutex
	sources [domain.SlotCount]*source
	task    task

	queue chan fftJob
}

func NewService(size int, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{
		size:   size,
		logger: logger,
		task:   task{status: worker.StatusIdle},
		queue:  make(chan fftJob, 16),
	}
}

// Run transforms uploaded images until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info().Int("fft_size", s.size).Msg("refworker: transform loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-s.queue:
			spec, err := Forward(ctx, job.src.grid, s.size)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				s.logger.Error().Err(err).Int("slot", int(job.slot)).Msg("refworker: transform failed")
				continue
			}
			s.mu.Lock()
			job.src.spectrum = spec
			s.mu.Unlock()
			s.logger.Debug().Int("slot", int(job.slot)).Msg("refworker: transform ready")
		}
	}
}

// Upload decodes data into slot and queues its transform. It returns the
// original height and width.
func (s *Service) Upload(ctx context.Context, slot domain.SlotID, filename string, data []byte) ([2]int, error) {
	if !slot.Valid() {
		return [2]int{}, fmt.Errorf("refworker: %w: %d", domain.ErrInvalidSlot, slot)
	}
	gray, err := decodeGray(data)
	if err != nil {
		return [2]int{}, err
	}
	b := gray.Bounds()
	src := &source{
		filename: filename,
		width:    b.Dx(),
		height:   b.Dy(),
		grid:     resampleGrid(gray, s.size),
	}
	s.mu.Lock()
	s.sources[slot.Index()] = src
	s.mu.Unlock()

	select {
	case s.queue <- fftJob{slot: slot, src: src}:
	case <-ctx.Done():
		return [2]int{}, ctx.Err()
	}
	return [2]int{src.height, src.width}, nil
}

// View renders one channel of slot as a PNG at the transform size.
// ErrNotFound means the slot is empty, ErrViewPending that its transform has
// not finished yet.
func (s *Service) View(slot domain.SlotID, ch domain.Channel) ([]byte, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("refworker: %w: %d", domain.ErrInvalidSlot, slot)
	}
	s.mu.RLock()
	src := s.sources[slot.Index()]
	var spec *Spectrum
	if src != nil {
		spec = src.spectrum
	}
	s.mu.RUnlock()
	switch {
	case src == nil:
		return nil, domain.ErrNotFound
	case spec == nil:
		return nil, domain.ErrViewPending
	}
	return encodePNG(spec.View(ch), s.size, s.size, s.size, s.size)
}

// Start replaces the current task with a new one and runs it in the
// background. It returns the new task id.
func (s *Service) Start(ctx context.Context, p worker.MixPayload) int {
	s.mu.Lock()
	s.task = task{id: s.task.id + 1, status: worker.StatusRunning}
	id := s.task.id
	s.mu.Unlock()

	go s.runTask(context.WithoutCancel(ctx), id, p)
	return id
}

// Progress reports the current task.
func (s *Service) Progress() worker.ProgressPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return worker.ProgressPayload{
		ID:       s.task.id,
		Progress: s.task.progress,
		Status:   s.task.status,
		Result:   s.task.result,
		Error:    s.task.err,
	}
}

func (s *Service) runTask(ctx context.Context, id int, p worker.MixPayload) {
	progress := func(pct int) {
		s.mu.Lock()
		if s.task.id == id {
			s.task.progress = pct
		}
		s.mu.Unlock()
	}
	progress(5)

	out, err := s.mix(ctx, p, progress)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.task.id != id {
		s.logger.Debug().Int("task_id", id).Msg("refworker: superseded task finished")
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Int("task_id", id).Msg("refworker: mix failed")
		s.task.status = worker.StatusError
		s.task.err = err.Error()
		return
	}
	s.task.result = base64.StdEncoding.EncodeToString(out)
	s.task.progress = 100
	s.task.status = worker.StatusCompleted
}

func (s *Service) mix(ctx context.Context, p worker.MixPayload, progress func(int)) ([]byte, error) {
	var (
		layers []layer
		ref    *source
	)
	s.mu.RLock()
	for _, slot := range domain.AllSlots() {
		src := s.sources[slot.Index()]
		if src == nil || src.spectrum == nil {
			continue
		}
		if ref == nil {
			ref = src
		}
		layers = append(layers, layer{slot: slot, spectrum: src.spectrum})
	}
	s.mu.RUnlock()
	progress(10)

	mixed, err := mixSpectra(layers, p, s.size, progress)
	if err != nil {
		return nil, err
	}
	return reconstruct(ctx, mixed, s.size, ref.width, ref.height, progress)
}
