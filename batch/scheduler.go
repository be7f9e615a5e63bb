package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/go-equiptest/equipment"
	"github.com/arloliu/go-equiptest/internal/util"
	"github.com/arloliu/go-equiptest/logger"
	"github.com/arloliu/go-equiptest/suite"
)

// DefaultMaxWorkers is the pool size used when a parallel batch sets no MaxWorkers.
const DefaultMaxWorkers = 4

// Executor runs a suite on one device. *suite.Runner implements it.
type Executor interface {
	RunTestSuite(ctx context.Context, s *suite.Suite, deviceID string) []equipment.TestResult
}

// ExecutorFactory creates the executor for one device.
type ExecutorFactory func(deviceID string) (Executor, error)

// Batch describes one batch run.
type Batch struct {
	// Devices is treated as an ordered set; later duplicates are dropped.
	Devices []string
	Suite   *suite.Suite
	Mode    Mode
	// MaxWorkers bounds a parallel batch; values <= 0 select DefaultMaxWorkers.
	MaxWorkers int
}

func (b Batch) workers() int {
	if b.MaxWorkers <= 0 {
		return DefaultMaxWorkers
	}

	return b.MaxWorkers
}

// Scheduler runs batches.
type Scheduler struct {
	exec    Executor
	factory ExecutorFactory
	logger  logger.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExecutorFactory makes the scheduler create one executor per device instead of
// sharing the scheduler's executor.
func WithExecutorFactory(f ExecutorFactory) SchedulerOption {
	return func(s *Scheduler) {
		s.factory = f
	}
}

// NewScheduler creates a scheduler. exec may be nil when WithExecutorFactory is given.
func NewScheduler(exec Executor, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		exec:   exec,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunBatch runs b and returns the results keyed by device id.
//
// The error is non-nil only when b cannot be scheduled. Devices that panicked, whose
// executor could not be created, or that were not started before ctx was done map to
// an empty slice.
func (s *Scheduler) RunBatch(ctx context.Context, b Batch) (map[string][]equipment.TestResult, error) {
	if b.Suite == nil {
		return nil, fmt.Errorf("%w: suite is nil", ErrInvalidBatch)
	}
	if !b.Mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidBatch, uint8(b.Mode))
	}
	if s.exec == nil && s.factory == nil {
		return nil, fmt.Errorf("%w: no executor", ErrInvalidBatch)
	}

	devices, dropped := util.Dedupe(b.Devices)

	batchID := uuid.NewString()
	log := s.logger.With("batch_id", batchID, "suite", b.Suite.Name)
	if len(dropped) > 0 {
		log.Warn("duplicate devices dropped", "devices", dropped)
	}

	log.Info("batch started", "mode", b.Mode.String(), "devices", len(devices), "max_workers", b.workers())
	start := time.Now()

	collected := xsync.NewMapOf[string, []equipment.TestResult]()

	switch b.Mode {
	case Sequential:
		for _, dev := range devices {
			if ctx.Err() != nil {
				break
			}
			collected.Store(dev, s.runDevice(ctx, log, b.Suite, dev))
		}
	case Parallel:
		var g errgroup.Group
		g.SetLimit(b.workers())

		for _, dev := range devices {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				collected.Store(dev, s.runDevice(ctx, log, b.Suite, dev))

				return nil
			})
		}

		_ = g.Wait()
	}

	out := make(map[string][]equipment.TestResult, len(devices))
	skipped := 0
	for _, dev := range devices {
		results, ok := collected.Load(dev)
		if !ok {
			skipped++
		}
		if results == nil {
			results = []equipment.TestResult{}
		}
		out[dev] = results
	}

	if skipped > 0 {
		log.Warn("batch cancelled before all devices started", "skipped", skipped, "error", ctx.Err())
	}
	log.Info("batch finished", "devices", len(devices), "elapsed", time.Since(start))

	return out, nil
}

func (s *Scheduler) runDevice(ctx context.Context, log logger.Logger, st *suite.Suite, deviceID string) []equipment.TestResult {
	exec := s.exec
	if s.factory != nil {
		var err error
		exec, err = s.factory(deviceID)
		if err != nil || exec == nil {
			log.Error("cannot create executor for device", "device_id", deviceID, "error", err)
			return nil
		}
	}

	results, ok := callWithRecover(log, deviceID, func() []equipment.TestResult {
		return exec.RunTestSuite(ctx, st, deviceID)
	})
	if !ok {
		return nil
	}

	return results
}
