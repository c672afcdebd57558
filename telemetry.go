// Package telemetry orchestrates in-process product telemetry: events are
// recorded from any goroutine, batched into pings on a single worker lane,
// persisted, and scheduled for upload.
//
// Typical usage:
//
//	cfg, err := config.Load()
//	tel, err := telemetry.Initialize(cfg, store, client, scheduler)
//	tel.AddPingBuilder(coreBuilder)
//	tel.AddPingBuilder(eventsBuilder)
//
//	telemetry.Record(event.New("action", "click", "menu"))
//	tel.QueuePing(ping.TypeCore)
//	tel.ScheduleUpload()
//
//	telemetry.Shutdown()
package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/event"
	"codeberg.org/mutker/telemetry/internal/logger"
	"codeberg.org/mutker/telemetry/internal/worker"
	"codeberg.org/mutker/telemetry/measurement"
	"codeberg.org/mutker/telemetry/ping"
)

// State is the lifecycle state of the process-wide telemetry instance.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
)

const defaultDrainTimeout = 5 * time.Second

// Worker lane operation names, reported to observers on failure.
const (
	opBatchEvent        = "batch_event"
	opBuildPing         = "build_ping"
	opScheduleUpload    = "schedule_upload"
	opSessionStart      = "record_session_start"
	opSessionEnd        = "record_session_end"
	opRecordSearch      = "record_search"
	opSetSearchProvider = "set_default_search_provider"
)

// Telemetry coordinates recording, batching, ping building, storage and
// upload scheduling. All builder and measurement mutation happens on one
// worker lane, in submission order, so callers never contend on locks and
// never observe half-applied batches.
type Telemetry struct {
	cfg       *config.Configuration
	storage   Storage
	client    Client
	scheduler Scheduler
	handler   EventHandler
	observer  Observer

	queue        *worker.Queue
	drainTimeout time.Duration

	mu       sync.RWMutex
	builders map[string]ping.Builder
}

// eventsBuilder is satisfied by ping builders that accumulate discrete
// events.
type eventsBuilder interface {
	ping.Builder
	EventsMeasurement() *measurement.Events
}

var (
	instanceMu sync.RWMutex
	state      State
	instance   *Telemetry
)

// Initialize wires the process-wide telemetry instance. It fails while an
// instance is live; after Shutdown it may be called again.
func Initialize(cfg *config.Configuration, storage Storage, client Client, scheduler Scheduler, opts ...Option) (*Telemetry, error) {
	errFactory := errors.New()

	if cfg == nil || storage == nil || client == nil || scheduler == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument,
			"configuration, storage, client and scheduler are required")
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()

	if state == StateInitialized {
		return nil, errFactory.New(ErrAlreadyInitialized)
	}

	t := &Telemetry{
		cfg:          cfg,
		storage:      storage,
		client:       client,
		scheduler:    scheduler,
		drainTimeout: defaultDrainTimeout,
		builders:     map[string]ping.Builder{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.queue = worker.New("telemetry", t.reportFailure)

	instance = t
	state = StateInitialized
	logger.Debug().Str("app", cfg.AppName).Msg("Telemetry initialized")

	return t, nil
}

// Get returns the live instance.
func Get() (*Telemetry, error) {
	instanceMu.RLock()
	defer instanceMu.RUnlock()

	if state != StateInitialized {
		return nil, errors.New().New(ErrNotInitialized)
	}

	return instance, nil
}

// Record routes one event through the live instance. When telemetry is not
// initialized the event is silently dropped, so early and late callers
// never fail.
func Record(ev *event.Event) {
	instanceMu.RLock()
	t := instance
	live := state == StateInitialized
	instanceMu.RUnlock()

	if !live {
		return
	}
	t.Record(ev)
}

// Shutdown stops intake, waits for queued work to finish and clears the
// process-wide instance. The wait is bounded by the drain timeout.
func Shutdown() error {
	instanceMu.Lock()
	if state != StateInitialized {
		instanceMu.Unlock()

		return errors.New().New(ErrNotInitialized)
	}
	t := instance
	instance = nil
	state = StateUninitialized
	instanceMu.Unlock()

	// Drain outside the holder lock so Record keeps its non-blocking shape
	// while the backlog finishes.
	return t.close()
}

func (t *Telemetry) close() error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(context.Background(), t.drainTimeout)
	defer cancel()
	if err := t.queue.Close(ctx); err != nil {
		return errFactory.Wrap(ErrDrainTimeout, err)
	}
	logger.Debug().Msg("Telemetry shut down")

	return nil
}

func (t *Telemetry) reportFailure(op string, err error) {
	if t.observer != nil {
		t.observer.WorkerFailure(op, err)
	}
}

// AddPingBuilder registers b for its ping type, replacing any previously
// registered builder of the same type. Builders are expected to be
// registered right after Initialize, before events are recorded.
func (t *Telemetry) AddPingBuilder(b ping.Builder) error {
	errFactory := errors.New()

	if b == nil {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "ping builder is required")
	}
	if t.queue.Closed() {
		return errFactory.New(ErrNotInitialized)
	}

	t.mu.Lock()
	t.builders[b.Type()] = b
	t.mu.Unlock()
	logger.Debug().Str("type", b.Type()).Msg("Ping builder registered")

	return nil
}

// Builders returns the registered builders, ordered by ping type.
func (t *Telemetry) Builders() []ping.Builder {
	t.mu.RLock()
	out := make([]ping.Builder, 0, len(t.builders))
	for _, b := range t.builders {
		out = append(out, b)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })

	return out
}

func (t *Telemetry) lookupBuilder(pingType string) (ping.Builder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.builders[pingType]

	return b, ok
}

// Record runs the interception chain for ev on the calling goroutine and,
// unless the event is suppressed or collection is disabled, submits one
// batching unit. It never blocks and never fails.
func (t *Telemetry) Record(ev *event.Event) {
	if ev == nil {
		return
	}
	if t.handler != nil && t.handler.Handle(ev) == Suppress {
		return
	}
	t.queueEvent(ev)
}

func (t *Telemetry) queueEvent(ev *event.Event) {
	if !t.cfg.IsCollectionEnabled() {
		return
	}
	// A rejected submission means shutdown has begun; the event is dropped
	// like any other post-shutdown record.
	_ = t.queue.Submit(opBatchEvent, func(ctx context.Context) error {
		return t.batchEvent(ctx, ev)
	})
}

// batchEvent runs on the worker lane: it adds ev to the events builder and
// promotes a full batch into a ping build. Recording events without an
// events builder registered is a wiring bug; the panic is recovered per
// unit and reported, and the lane keeps running.
func (t *Telemetry) batchEvent(_ context.Context, ev *event.Event) error {
	builder, ok := t.eventsBuilder()
	if !ok {
		panic(errors.New().New(ErrNoEventsBuilder))
	}

	m := builder.EventsMeasurement()
	m.Add(ev)
	if m.Count() >= t.cfg.MaxEventsPerPing {
		// The full batch is promoted even if collection was disabled after
		// the events were accepted. The build unit queues behind pending
		// work rather than running inline.
		if err := t.submitPingBuild(builder.Type()); err != nil {
			logger.Debug().Str("type", builder.Type()).Msg("Batch promotion skipped, queue closed")
		}
	}

	return nil
}

// eventsBuilder resolves the builder receiving recorded events: the
// mobile-events builder when registered, the legacy events builder
// otherwise.
func (t *Telemetry) eventsBuilder() (eventsBuilder, bool) {
	for _, pingType := range []string{ping.TypeMobileEvents, ping.TypeEvents} {
		b, ok := t.lookupBuilder(pingType)
		if !ok {
			continue
		}
		if eb, ok := b.(eventsBuilder); ok {
			return eb, true
		}
	}

	return nil, false
}

// QueuePing submits a build of the named ping type. The ping is built and
// stored on the worker lane; a builder reporting no buildable data is
// skipped. Disabled collection makes this a no-op.
func (t *Telemetry) QueuePing(pingType string) error {
	if !t.cfg.IsCollectionEnabled() {
		return nil
	}

	return t.submitPingBuild(pingType)
}

func (t *Telemetry) submitPingBuild(pingType string) error {
	return t.submit(opBuildPing, func(ctx context.Context) error {
		return t.buildPing(ctx, pingType)
	})
}

// buildPing runs on the worker lane. Queueing an unregistered ping type is
// a wiring bug and fails like a missing events builder.
func (t *Telemetry) buildPing(ctx context.Context, pingType string) error {
	errFactory := errors.New()

	builder, ok := t.lookupBuilder(pingType)
	if !ok {
		panic(errFactory.WithData(ErrUnknownPingType, pingType))
	}
	if !builder.CanBuild() {
		logger.Debug().Str("type", pingType).Msg("Nothing to upload for ping type")

		return nil
	}

	p, err := builder.Build()
	if err != nil {
		return errFactory.Wrap(ErrPingBuildFailed, err)
	}
	if err := t.storage.Store(ctx, p); err != nil {
		return errFactory.Wrap(ErrPingStoreFailed, err)
	}
	logger.Debug().Str("type", p.Type).Str("document", p.DocumentID).Msg("Ping queued")

	return nil
}

// ScheduleUpload asks the scheduler to arrange an upload pass for stored
// pings. Disabled upload makes this a no-op.
func (t *Telemetry) ScheduleUpload() error {
	if !t.cfg.IsUploadEnabled() {
		return nil
	}

	return t.submit(opScheduleUpload, func(ctx context.Context) error {
		errFactory := errors.New()
		if err := t.scheduler.ScheduleUpload(ctx, t.cfg); err != nil {
			return errFactory.Wrap(ErrScheduleUploadFailed, err)
		}

		return nil
	})
}

// RecordSessionStart marks the beginning of a user session on the core
// ping. It requires a registered core builder and no-ops while collection
// is disabled.
func (t *Telemetry) RecordSessionStart() error {
	if !t.cfg.IsCollectionEnabled() {
		return nil
	}
	builder, err := t.coreBuilder()
	if err != nil {
		return err
	}

	return t.submit(opSessionStart, func(context.Context) error {
		if err := builder.SessionDurationMeasurement().RecordSessionStart(); err != nil {
			return err
		}

		return builder.SessionCountMeasurement().CountSession()
	})
}

// RecordSessionEnd marks the end of the running session.
func (t *Telemetry) RecordSessionEnd() error {
	if !t.cfg.IsCollectionEnabled() {
		return nil
	}
	builder, err := t.coreBuilder()
	if err != nil {
		return err
	}

	return t.submit(opSessionEnd, func(context.Context) error {
		return builder.SessionDurationMeasurement().RecordSessionEnd()
	})
}

// RecordSearch counts one search action against the core ping's counters.
func (t *Telemetry) RecordSearch(location, identifier string) error {
	if !t.cfg.IsCollectionEnabled() {
		return nil
	}
	builder, err := t.coreBuilder()
	if err != nil {
		return err
	}

	return t.submit(opRecordSearch, func(context.Context) error {
		return builder.SearchesMeasurement().RecordSearch(location, identifier)
	})
}

// SetDefaultSearchProvider installs the callback queried for the default
// search engine when a core ping is built. Unlike the other session
// operations it stays available while collection is disabled, so the
// provider is already in place when collection is re-enabled.
func (t *Telemetry) SetDefaultSearchProvider(provider measurement.DefaultSearchEngineProvider) error {
	builder, err := t.coreBuilder()
	if err != nil {
		return err
	}

	return t.submit(opSetSearchProvider, func(context.Context) error {
		builder.DefaultSearchMeasurement().SetProvider(provider)

		return nil
	})
}

func (t *Telemetry) coreBuilder() (*ping.CoreBuilder, error) {
	b, ok := t.lookupBuilder(ping.TypeCore)
	if !ok {
		return nil, errors.New().New(ErrNoCoreBuilder)
	}
	builder, ok := b.(*ping.CoreBuilder)
	if !ok {
		return nil, errors.New().WithData(ErrNoCoreBuilder, b.Type())
	}

	return builder, nil
}

func (t *Telemetry) submit(op string, fn worker.UnitFunc) error {
	if err := t.queue.Submit(op, fn); err != nil {
		return errors.New().Wrap(ErrNotInitialized, err)
	}

	return nil
}

// Configuration returns the shared configuration.
func (t *Telemetry) Configuration() *config.Configuration {
	return t.cfg
}

// Client returns the upload client.
func (t *Telemetry) Client() Client {
	return t.client
}

// Storage returns the ping store.
func (t *Telemetry) Storage() Storage {
	return t.storage
}

// Flush blocks until every unit submitted before the call has executed. It
// exists for tests and controlled teardown points; regular callers never
// need it.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.queue.Flush(ctx)
}
