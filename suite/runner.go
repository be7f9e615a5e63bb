package suite

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-equiptest/equipment"
	"github.com/arloliu/go-equiptest/internal/util"
	"github.com/arloliu/go-equiptest/logger"
)

// unknownStepName labels a step without a name.
const unknownStepName = "Unknown Test"

// Tester executes one test on a device. *equipment.Controller implements it.
type Tester interface {
	RunTest(ctx context.Context, deviceID string, params []string) equipment.TestResult
}

// Runner executes suites through a Tester.
//
// A Runner is safe for concurrent use; concurrent suites share the Tester, so the Tester
// must be safe for concurrent use as well.
type Runner struct {
	tester Tester
	hook   CommandHook
	logger logger.Logger

	suites *xsync.MapOf[string, *Suite]

	mu      sync.Mutex
	results []equipment.TestResult
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCommandHook sets the hook that executes setup and teardown commands.
// The default hook only logs the commands.
func WithCommandHook(h CommandHook) RunnerOption {
	return func(r *Runner) {
		r.hook = h
	}
}

// NewRunner creates a runner that executes steps through tester.
func NewRunner(tester Tester, opts ...RunnerOption) *Runner {
	r := &Runner{
		tester: tester,
		logger: logger.GetLogger(),
		suites: xsync.NewMapOf[string, *Suite](),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.hook == nil {
		r.hook = logHook{logger: r.logger}
	}

	return r
}

// RunSingleTest executes one step on deviceID.
//
// When the step has an expected range and the raw result passed, a measurement outside
// the range, or a missing measurement, turns the result into a failure. The notes are
// always prefixed with the step name.
func (r *Runner) RunSingleTest(ctx context.Context, deviceID string, step Step) equipment.TestResult {
	name := step.Name
	if name == "" {
		name = unknownStepName
	}

	r.logger.Info("running test", "test", name, "device_id", deviceID)

	result := r.tester.RunTest(ctx, deviceID, util.CloneSlice(step.Parameters, 0))

	if step.ExpectedRange != nil && result.Passed {
		v, ok := result.Measurement()
		if !ok || !step.ExpectedRange.Contains(v) {
			result.Passed = false
			result.Notes += " (Outside expected range: " + step.ExpectedRange.String() + ")"
		}
	}

	result.Notes = "Test: " + name + ". " + result.Notes

	return result
}

// RunTestSuite executes s on deviceID and returns the results of the executed steps.
//
// Setup commands run first; a setup error skips every step. Steps run in order until
// one critical step fails or ctx is done. Teardown commands always run, with a context
// that is not cancelled by ctx. A panic during the suite is logged and the results
// gathered so far are returned.
func (r *Runner) RunTestSuite(ctx context.Context, s *Suite, deviceID string) (results []equipment.TestResult) {
	if s == nil {
		r.logger.Error("cannot run nil test suite", "device_id", deviceID)
		return nil
	}

	log := r.logger.With("suite", s.Name, "device_id", deviceID)
	log.Info("running test suite")

	defer r.runCommands(context.WithoutCancel(ctx), TeardownPhase, s.TeardownCommands, deviceID, log)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("error running test suite", "panic", rec, "completed", len(results))
		}
	}()

	if err := r.runCommands(ctx, SetupPhase, s.SetupCommands, deviceID, log); err != nil {
		log.Error("setup failed, skipping tests", "error", err)
		return results
	}

	for _, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			log.Warn("test suite cancelled", "error", err, "completed", len(results))
			break
		}

		result := r.RunSingleTest(ctx, deviceID, step)
		results = append(results, result)
		r.record(result)

		if !result.Passed && step.Critical {
			log.Error("critical test failed, stopping suite execution", "test", step.Name)
			break
		}
	}

	return results
}

// runCommands executes the commands of one phase.
// Setup stops at the first error; teardown logs errors and continues.
func (r *Runner) runCommands(ctx context.Context, phase Phase, commands []string, deviceID string, log logger.Logger) error {
	for _, cmd := range commands {
		err := r.execHook(ctx, phase, deviceID, cmd)
		if err == nil {
			continue
		}

		log.Error("suite command failed", "phase", phase.String(), "command", cmd, "error", err)
		if phase == SetupPhase {
			return err
		}
	}

	return nil
}

func (r *Runner) execHook(ctx context.Context, phase Phase, deviceID string, cmd string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("suite: %s command %q panicked: %v", phase, cmd, rec)
		}
	}()

	return r.hook.Execute(ctx, phase, deviceID, cmd)
}

func (r *Runner) record(result equipment.TestResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
}

// Results returns a copy of every result produced by RunTestSuite, in completion order.
func (r *Runner) Results() []equipment.TestResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.results)
}

// ResetResults clears the result log.
func (r *Runner) ResetResults() {
	r.mu.Lock()
	r.results = nil
	r.mu.Unlock()
}

// RegisterSuite validates s and registers a copy under its name, replacing any suite
// with the same name.
func (r *Runner) RegisterSuite(s *Suite) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if _, loaded := r.suites.LoadAndStore(s.Name, s.Clone()); loaded {
		r.logger.Warn("test suite replaced", "suite", s.Name)
	} else {
		r.logger.Info("test suite registered", "suite", s.Name)
	}

	return nil
}

// Suite returns a copy of the registered suite with the given name.
func (r *Runner) Suite(name string) (*Suite, bool) {
	s, ok := r.suites.Load(name)
	if !ok {
		return nil, false
	}

	return s.Clone(), true
}

// SuiteNames returns the registered suite names in sorted order.
func (r *Runner) SuiteNames() []string {
	names := make([]string, 0, r.suites.Size())
	r.suites.Range(func(name string, _ *Suite) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)

	return names
}

// RunSuiteByName runs the registered suite name on deviceID.
func (r *Runner) RunSuiteByName(ctx context.Context, name string, deviceID string) ([]equipment.TestResult, error) {
	s, ok := r.suites.Load(name)
	if !ok {
		r.logger.Error("test suite not found", "suite", name)
		return nil, fmt.Errorf("%w: %s", ErrSuiteNotFound, name)
	}

	return r.RunTestSuite(ctx, s, deviceID), nil
}

// LoadSuiteFile loads the suite file at path and registers it.
func (r *Runner) LoadSuiteFile(path string) error {
	s, err := LoadSuite(path)
	if err != nil {
		r.logger.Error("failed to load test suite", "path", path, "error", err)
		return err
	}

	return r.RegisterSuite(s)
}
