package mixer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
)

// Phase is where the orchestrator is in the current mix cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseSubmitting Phase = "submitting"
	PhasePolling    Phase = "polling"
)

const (
	defaultDebounce      = 400 * time.Millisecond
	defaultPollInterval  = 500 * time.Millisecond
	defaultFallbackDelay = 1500 * time.Millisecond
)

// Status is the externally visible orchestrator state.
type Status struct {
	Phase      Phase  `json:"phase"`
	Processing bool   `json:"is_processing"`
	Reachable  bool   `json:"backend_active"`
	Progress   int    `json:"progress"`
	Cycle      uint64 `json:"cycle"`
	Submitted  uint64 `json:"jobs_submitted"`
	LastError  string `json:"last_error,omitempty"`
}

// EventType classifies orchestrator events.
type EventType string

const (
	EventStatus   EventType = "status"
	EventOutput   EventType = "output"
	EventJobError EventType = "job_error"
)

// Event is delivered to subscribers on every status change, result write and
// worker-reported failure.
type Event struct {
	Type      EventType       `json:"type"`
	Status    Status          `json:"status"`
	Output    domain.OutputID `json:"output,omitempty"`
	Simulated bool            `json:"simulated,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Options tunes the orchestrator timing and result targeting.
type Options struct {
	Debounce      time.Duration
	PollInterval  time.Duration
	FallbackDelay time.Duration
	// PinOutputOnSubmit sends a result to the output that was active when the
	// job was submitted instead of the one active when it completes.
	PinOutputOnSubmit bool
	// Pick chooses the simulated source index; nil picks uniformly at random.
	Pick   func(n int) int
	Logger *infra.Logger
}

// message is anything posted to the event loop.
type message interface{}

type (
	msgChange    struct{ change Change }
	msgDebounced struct{ gen uint64 }
	msgSubmitted struct {
		gen uint64
		err error
	}
	msgPolled struct {
		gen    uint64
		status domain.JobStatus
		err    error
	}
	msgSimulated struct {
		gen uint64
		img domain.Image
		ok  bool
		err error
	}
)

// Orchestrator turns configuration changes into mix jobs. It debounces
// bursts of changes, keeps at most one job in flight, polls the worker for
// the result and falls back to a local simulation while the worker is
// unreachable. All cycle state is owned by the Run goroutine.
type Orchestrator struct {
	model   *Model
	outputs *Outputs
	svc     domain.JobService
	store   domain.SourceStore
	sim     *Simulator
	opts    Options
	logger  *infra.Logger

	inbox   chan message
	stopped chan struct{}
	running atomic.Bool

	statusMu sync.RWMutex
	status   Status

	// Sources replaced while a simulation may still read them.
	retireMu sync.Mutex
	reading  int
	retired  []string

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	// Owned by the Run goroutine.
	gen      uint64
	live     bool
	cycleCtx context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	target   domain.OutputID
}

// New wires an orchestrator. Call Run to start processing changes.
func New(model *Model, outputs *Outputs, svc domain.JobService, store domain.SourceStore, opts Options) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = defaultFallbackDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Orchestrator{
		model:   model,
		outputs: outputs,
		svc:     svc,
		store:   store,
		sim:     NewSimulator(opts.FallbackDelay, store, opts.Pick),
		opts:    opts,
		logger:  logger,
		inbox:   make(chan message, 64),
		stopped: make(chan struct{}),
		status:  Status{Phase: PhaseIdle, Reachable: true},
		subs:    make(map[int]func(Event)),
	}
}

// Model returns the configuration the orchestrator watches.
func (o *Orchestrator) Model() *Model { return o.model }

// Outputs returns the output slots the orchestrator writes.
func (o *Orchestrator) Outputs() *Outputs { return o.outputs }

// Status returns a copy of the current status.
func (o *Orchestrator) Status() Status {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

// Subscribe registers fn for every event and returns a function removing it.
// fn runs on whichever goroutine changed the status: usually the Run loop,
// but Upload reports reachability from the caller's goroutine. fn must be
// safe for concurrent use and must not block.
func (o *Orchestrator) Subscribe(fn func(Event)) func() {
	o.subsMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.subsMu.Unlock()
	return func() {
		o.subsMu.Lock()
		delete(o.subs, id)
		o.subsMu.Unlock()
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.subsMu.Lock()
	fns := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.subsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// updateStatus applies mutate and emits a status event when anything changed.
func (o *Orchestrator) updateStatus(mutate func(s *Status)) Status {
	o.statusMu.Lock()
	before := o.status
	mutate(&o.status)
	after := o.status
	o.statusMu.Unlock()
	if after != before {
		o.emit(Event{Type: EventStatus, Status: after})
	}
	return after
}

// ErrAlreadyRunning is returned by every Run call after the first.
var ErrAlreadyRunning = errors.New("mixer: orchestrator already running")

// Run processes configuration changes until ctx is done. Only the first call
// runs the loop; later calls return ErrAlreadyRunning at once, even after the
// loop has stopped.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	return o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) error {
	stopObserving := o.model.Observe(o.onChange)
	defer func() {
		stopObserving()
		o.endCycle()
		close(o.stopped)
	}()

	o.logger.Info().
		Dur("debounce", o.opts.Debounce).
		Dur("poll_interval", o.opts.PollInterval).
		Msg("mixer: orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("mixer: orchestrator stopped")
			return ctx.Err()
		case m := <-o.inbox:
			o.handle(ctx, m)
		}
	}
}

func (o *Orchestrator) onChange(c Change) {
	select {
	case o.inbox <- msgChange{change: c}:
	case <-o.stopped:
	}
}

// post delivers a helper goroutine's outcome unless its cycle is already gone.
func (o *Orchestrator) post(cycle context.Context, m message) {
	select {
	case o.inbox <- m:
	case <-cycle.Done():
	case <-o.stopped:
	}
}

func (o *Orchestrator) handle(ctx context.Context, m message) {
	switch m := m.(type) {
	case msgChange:
		o.handleChange(ctx, m.change)
	case msgDebounced:
		if o.current(m.gen) {
			o.submit()
		}
	case msgSubmitted:
		if o.current(m.gen) {
			o.handleSubmitted(m.err)
		}
	case msgPolled:
		if o.current(m.gen) {
			o.handlePolled(m.status, m.err)
		} else {
			o.logger.Debug().Uint64("cycle", m.gen).Msg("mixer: discarded poll result of superseded job")
		}
	case msgSimulated:
		if o.current(m.gen) {
			o.handleSimulated(m.img, m.ok, m.err)
		}
	}
}

func (o *Orchestrator) current(gen uint64) bool {
	return o.live && gen == o.gen
}

// handleChange starts (or restarts) the debounce window. Whatever the previous
// cycle was doing is cancelled first, so at most one job is ever awaited.
func (o *Orchestrator) handleChange(ctx context.Context, c Change) {
	if !c.TriggersMix() {
		return
	}
	if !o.model.Snapshot().HasSource() {
		o.logger.Debug().Str("change", string(c.Kind)).Msg("mixer: change ignored, no sources")
		return
	}

	if o.live {
		o.logger.Debug().Uint64("cycle", o.gen).Msg("mixer: superseding current cycle")
	}
	o.endCycle()
	o.gen++
	o.live = true
	cycle, cancel := context.WithCancel(ctx)
	o.cycleCtx, o.cancel = cycle, cancel
	gen := o.gen
	o.timer = time.AfterFunc(o.opts.Debounce, func() {
		o.post(cycle, msgDebounced{gen: gen})
	})

	o.updateStatus(func(s *Status) {
		s.Phase = PhaseDebouncing
		s.Processing = false
		s.Progress = 0
		s.Cycle = gen
	})
}

// submit builds the request from one snapshot and hands it to the worker, or
// to the simulator when the worker is known to be down.
func (o *Orchestrator) submit() {
	snap := o.model.Snapshot()
	if !snap.HasSource() {
		o.finish()
		return
	}
	req := BuildJobRequest(snap)
	if o.opts.PinOutputOnSubmit {
		o.target = o.outputs.Active()
	} else {
		o.target = 0
	}

	status := o.updateStatus(func(s *Status) {
		s.Phase = PhaseSubmitting
		s.Processing = true
		s.Progress = 0
		s.LastError = ""
	})

	cycle, gen := o.cycleCtx, o.gen
	if !status.Reachable {
		o.simulate(cycle, gen)
		return
	}

	o.updateStatus(func(s *Status) { s.Submitted++ })
	o.logger.Info().
		Uint64("cycle", gen).
		Str("mix_mode", string(req.MixMode)).
		Str("region", string(req.Region.Kind)).
		Msg("mixer: submitting job")
	go func() {
		err := o.svc.SubmitJob(cycle, req)
		o.post(cycle, msgSubmitted{gen: gen, err: err})
	}()
}

func (o *Orchestrator) handleSubmitted(err error) {
	switch {
	case err == nil:
		o.updateStatus(func(s *Status) { s.Phase = PhasePolling })
		go o.poll(o.cycleCtx, o.gen)
	case domain.IsTransport(err):
		o.logger.Warn().Err(err).Msg("mixer: worker unreachable, simulating result")
		o.setReachable(false)
		o.simulate(o.cycleCtx, o.gen)
	default:
		o.logger.Error().Err(err).Msg("mixer: job submission failed")
		o.failJob(err.Error())
	}
}

// poll queries the worker every PollInterval until it reports a terminal
// state or the cycle is cancelled. A response that lands after cancellation
// is dropped here and, should it slip through, by the generation check.
func (o *Orchestrator) poll(cycle context.Context, gen uint64) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cycle.Done():
			return
		case <-ticker.C:
		}
		status, err := o.svc.PollStatus(cycle)
		if cycle.Err() != nil {
			return
		}
		o.post(cycle, msgPolled{gen: gen, status: status, err: err})
		if err != nil || status.State != domain.JobPending {
			return
		}
	}
}

func (o *Orchestrator) handlePolled(status domain.JobStatus, err error) {
	if err != nil {
		o.logger.Warn().Err(err).Uint64("cycle", o.gen).Msg("mixer: poll failed, dropping job")
		o.finish()
		return
	}
	switch status.State {
	case domain.JobCompleted:
		out := o.writeResult(status.Result, false)
		o.logger.Info().Uint64("cycle", o.gen).Int("output", int(out)).Msg("mixer: job completed")
		o.updateStatus(func(s *Status) { s.Progress = 100 })
		o.finish()
	case domain.JobFailed:
		o.logger.Warn().Str("message", status.Message).Uint64("cycle", o.gen).Msg("mixer: worker reported job error")
		o.failJob((&domain.JobError{Message: status.Message}).Error())
	default:
		o.updateStatus(func(s *Status) { s.Progress = status.Progress })
	}
}

// simulate holds the read guard from before it looks up the sources, so a
// replacement landing in between cannot delete a key it is about to read.
func (o *Orchestrator) simulate(cycle context.Context, gen uint64) {
	o.beginRead()
	slots := o.model.Snapshot().SourceSlots()
	go func() {
		img, ok, err := o.sim.Simulate(cycle, slots)
		o.endRead()
		o.post(cycle, msgSimulated{gen: gen, img: img, ok: ok, err: err})
	}()
}

func (o *Orchestrator) handleSimulated(img domain.Image, ok bool, err error) {
	if err != nil {
		o.logger.Error().Err(err).Msg("mixer: simulation failed")
	}
	if ok {
		out := o.writeResult(img, true)
		o.logger.Info().Uint64("cycle", o.gen).Int("output", int(out)).Msg("mixer: wrote simulated result")
	}
	o.finish()
}

// writeResult stores img in the output slot chosen for this cycle and
// returns that slot.
func (o *Orchestrator) writeResult(img domain.Image, simulated bool) domain.OutputID {
	target := o.target
	if !target.Valid() {
		target = o.outputs.Active()
	}
	o.outputs.write(target, img, simulated)
	o.emit(Event{Type: EventOutput, Status: o.Status(), Output: target, Simulated: simulated})
	return target
}

func (o *Orchestrator) failJob(message string) {
	status := o.updateStatus(func(s *Status) { s.LastError = message })
	o.emit(Event{Type: EventJobError, Status: status, Message: message})
	o.finish()
}

// finish closes the current cycle and returns to idle.
func (o *Orchestrator) finish() {
	o.endCycle()
	o.updateStatus(func(s *Status) {
		s.Phase = PhaseIdle
		s.Processing = false
	})
}

func (o *Orchestrator) endCycle() {
	o.live = false
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) setReachable(reachable bool) {
	o.updateStatus(func(s *Status) { s.Reachable = reachable })
}
