// Package schedule drives upload passes for stored pings, on demand and on
// a fixed interval. Passes run one at a time on a dedicated goroutine;
// requests arriving while a pass is pending coalesce into it.
package schedule

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"codeberg.org/mutker/telemetry/config"
	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/logger"
)

type CronScheduler struct {
	store    PingStore
	uploader Uploader
	cron     *cron.Cron
	requests chan *config.Configuration
	stopChan chan struct{}
	doneChan chan struct{}
	started  *atomic.Bool
	closed   *atomic.Bool
}

func NewCronScheduler(store PingStore, uploader Uploader) *CronScheduler {
	return &CronScheduler{
		store:    store,
		uploader: uploader,
		cron:     cron.New(),
		requests: make(chan *config.Configuration, 1),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		started:  atomic.NewBool(false),
		closed:   atomic.NewBool(false),
	}
}

// Start launches the pass goroutine and the periodic trigger. Calling it
// again is a no-op. A scheduler is single use: Start after Close reports
// ErrClosed.
func (s *CronScheduler) Start(cfg *config.Configuration) error {
	errFactory := errors.New()

	if cfg == nil {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "configuration is required")
	}
	if s.closed.Load() {
		return errFactory.New(ErrClosed)
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if _, err := s.cron.AddFunc("@every "+cfg.UploadInterval.String(), func() {
		s.request(cfg)
	}); err != nil {
		s.started.Store(false)

		return errFactory.Wrap(ErrScheduleFailed, err)
	}
	s.cron.Start()
	go s.run()

	logger.Debug().
		Dur("interval", cfg.UploadInterval).
		Msg("Upload scheduler started")

	return nil
}

// ScheduleUpload requests an upload pass. A request arriving while one is
// already pending rides along with it instead of queueing another.
func (s *CronScheduler) ScheduleUpload(_ context.Context, cfg *config.Configuration) error {
	if !s.started.Load() {
		return errors.New().New(ErrNotStarted)
	}
	s.request(cfg)

	return nil
}

// Close stops the periodic trigger, waits for a running pass to finish and
// drops pending requests. Closing is terminal.
func (s *CronScheduler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	<-s.cron.Stop().Done()
	close(s.stopChan)
	<-s.doneChan
	logger.Debug().Msg("Upload scheduler stopped")

	return nil
}

func (s *CronScheduler) request(cfg *config.Configuration) {
	select {
	case s.requests <- cfg:
	default:
	}
}

func (s *CronScheduler) run() {
	defer close(s.doneChan)

	for {
		select {
		case cfg := <-s.requests:
			s.uploadPass(cfg)
		case <-s.stopChan:
			return
		}
	}
}

// uploadPass drains every stored ping type once. A ping the server did not
// accept stops its type's drain; the rest wait for the next pass.
func (s *CronScheduler) uploadPass(cfg *config.Configuration) {
	if !cfg.IsUploadEnabled() {
		logger.Debug().Msg("Upload disabled, skipping pass")

		return
	}

	ctx := context.Background()
	types, err := s.store.Types(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list stored ping types")

		return
	}

	for _, pingType := range types {
		processed := 0
		complete, err := s.store.Process(ctx, pingType, func(documentID, uploadPath string, payload []byte) bool {
			done, err := s.uploader.Upload(ctx, cfg, uploadPath, payload)
			if err != nil {
				logger.Error().
					Err(err).
					Str("document", documentID).
					Msg("Ping upload failed")
			}
			if done {
				processed++
			}

			return done
		})
		if err != nil {
			logger.Error().Err(err).Str("type", pingType).Msg("Upload pass failed")

			continue
		}
		logger.Debug().
			Str("type", pingType).
			Int("processed", processed).
			Bool("complete", complete).
			Msg("Upload pass finished")
	}
}
