package equipment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-equiptest/logger"
	"github.com/arloliu/go-equiptest/protocol"
	"github.com/arloliu/go-equiptest/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type statusEvent struct {
	status  Status
	message string
}

type statusRecorder struct {
	mu     sync.Mutex
	events []statusEvent
}

func (r *statusRecorder) OnStatusChanged(status Status, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, statusEvent{status, message})

	return nil
}

func (r *statusRecorder) Events() []statusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]statusEvent(nil), r.events...)
}

func newSimController(t *testing.T, opts ...sim.Option) *Controller {
	t.Helper()

	env, err := sim.NewEnvironment(append([]sim.Option{sim.WithSeed(42)}, opts...)...)
	require.NoError(t, err)

	return NewController(WithSimulator(env), WithLogger(logger.NewDiscard()))
}

func TestController_InitialState(t *testing.T) {
	require := require.New(t)

	c := NewController()
	require.Equal(IdleStatus, c.Status())
	require.Empty(c.LastError())
	require.False(c.IsChannelOpen())
	require.True(c.Config().IsSimulation())
	require.NoError(c.Close())
}

func TestController_Transitions(t *testing.T) {
	type op struct {
		name    string
		run     func(c *Controller) error
		allowed []Status
		target  Status
		reason  string
	}

	ops := []op{
		{"Start", (*Controller).Start, []Status{IdleStatus, PausedStatus}, RunningStatus, errMsgStart},
		{"Pause", (*Controller).Pause, []Status{RunningStatus}, PausedStatus, errMsgPause},
		{"Resume", (*Controller).Resume, []Status{PausedStatus}, RunningStatus, errMsgResume},
	}

	for _, o := range ops {
		for _, from := range AllStatuses {
			t.Run(o.name+"_from_"+from.String(), func(t *testing.T) {
				require := require.New(t)

				c := newSimController(t)
				c.status.Store(uint32(from))
				rec := &statusRecorder{}
				c.AddObserver(rec)

				err := o.run(c)

				allowed := false
				for _, s := range o.allowed {
					if s == from {
						allowed = true
					}
				}

				if allowed {
					require.NoError(err)
					require.Equal(o.target, c.Status())
					require.Len(rec.Events(), 1)
					require.Equal(o.target, rec.Events()[0].status)
					require.Empty(c.LastError())
				} else {
					require.ErrorIs(err, ErrInvalidTransition)
					require.Equal(from, c.Status())
					require.Empty(rec.Events())
					require.Equal(o.reason, c.LastError())
				}
			})
		}
	}
}

func TestController_StopFromAnyStatus(t *testing.T) {
	for _, from := range AllStatuses {
		t.Run(from.String(), func(t *testing.T) {
			c := newSimController(t)
			c.status.Store(uint32(from))
			rec := &statusRecorder{}
			c.AddObserver(rec)

			c.Stop()

			require.Equal(t, IdleStatus, c.Status())
			require.Equal(t, []statusEvent{{IdleStatus, "Equipment stopped"}}, rec.Events())
		})
	}
}

func TestController_ObserverOrder(t *testing.T) {
	require := require.New(t)

	c := newSimController(t)

	var order []int
	for i := range 3 {
		c.AddObserver(StatusObserverFunc(func(Status, string) error {
			order = append(order, i)
			return nil
		}))
	}
	c.AddObserver(nil)

	require.NoError(c.Start())
	require.Equal([]int{0, 1, 2}, order)
}

func TestController_ObserverFailures(t *testing.T) {
	require := require.New(t)

	mockLogger := logger.NewPermissiveMockLogger()
	c := NewController(WithLogger(mockLogger), WithSimulator(sim.MustNewEnvironment(sim.WithSeed(1))))

	rec := &statusRecorder{}
	c.AddObserver(
		StatusObserverFunc(func(Status, string) error { return errors.New("observer broken") }),
		StatusObserverFunc(func(Status, string) error { panic("observer panic") }),
		rec,
	)

	require.NoError(c.Start())
	require.Equal(RunningStatus, c.Status())
	require.Equal([]statusEvent{{RunningStatus, "Equipment started"}}, rec.Events())

	mockLogger.AssertCalled(t, "Error", "status observer failed", mock.Anything)
	mockLogger.AssertCalled(t, "Error", "status observer panicked", mock.Anything)
}

func TestController_InitializeSimulation(t *testing.T) {
	require := require.New(t)

	c := newSimController(t)
	rec := &statusRecorder{}
	c.AddObserver(rec)

	require.ErrorIs(c.Initialize(context.Background(), nil), ErrConfigNil)

	cfg, err := NewConfig("")
	require.NoError(err)
	require.NoError(c.Initialize(context.Background(), cfg))

	require.Equal(IdleStatus, c.Status())
	require.False(c.IsChannelOpen())
	require.Same(cfg, c.Config())
	require.Equal([]statusEvent{{IdleStatus, "Equipment initialized (simulation mode)"}}, rec.Events())
}

func TestController_InitializeFailure(t *testing.T) {
	require := require.New(t)

	opener := func(context.Context, string, int) (Channel, error) {
		return nil, errors.New("no such device")
	}
	c := NewController(WithChannelOpener(opener), WithLogger(logger.NewDiscard()))
	rec := &statusRecorder{}
	c.AddObserver(rec)

	cfg, err := NewConfig("/dev/ttyUSB9")
	require.NoError(err)

	err = c.Initialize(context.Background(), cfg)
	require.ErrorIs(err, ErrConnectionFailure)
	require.Equal(ErrorStatus, c.Status())
	require.False(c.IsChannelOpen())
	require.Equal("Initialization failed: no such device", c.LastError())
	require.Len(rec.Events(), 1)
	require.Equal(ErrorStatus, rec.Events()[0].status)

	// recovery through Stop
	c.Stop()
	require.Equal(IdleStatus, c.Status())
	require.NoError(c.Start())
}

func TestController_RunTestNotRunning(t *testing.T) {
	require := require.New(t)

	c, fi := newChannelController(t, fixedReply("RESULT:5.0:V:PASS\r\n"))

	for _, status := range []Status{IdleStatus, PausedStatus, ErrorStatus, MaintenanceStatus} {
		c.status.Store(uint32(status))

		result := c.RunTest(context.Background(), "DEV001", nil)
		require.False(result.Passed)
		require.Nil(result.MeasurementValue)
		require.Equal(NoteNotRunning, result.Notes)
		require.True(strings.HasPrefix(result.TestID, "TEST_"))
		require.Equal("DEV001", result.DeviceID)
	}

	require.Empty(fi.Requests())
	require.Equal(uint64(4), c.Metrics().TestFailCount.Load())
	require.Zero(c.Metrics().TestRunCount.Load())
}

func TestController_RunTestSimulation(t *testing.T) {
	require := require.New(t)

	c := newSimController(t, sim.WithFailureProbability(0))
	require.NoError(c.Start())

	result := c.RunTest(context.Background(), "DEV001", []string{"VOLTAGE"})
	v, ok := result.Measurement()
	require.True(ok)
	require.InDelta(sim.FallbackNominal, v, 1)
	require.Equal(sim.FallbackUnits, result.Units)
	require.Equal(sim.NoteFallbackCompleted, result.Notes)
	require.Equal(uint64(1), c.Metrics().TestRunCount.Load())
}

func TestController_RunTestChannel(t *testing.T) {
	tests := []struct {
		name      string
		reply     replyFunc
		passed    bool
		value     *float64
		units     string
		notes     string
		notesPref string
	}{
		{
			name:   "pass",
			reply:  fixedReply("RESULT:5.02:V:PASS\r\n"),
			passed: true,
			value:  Value(5.02),
			units:  "V",
			notes:  NoteCompleted,
		},
		{
			name:   "fail",
			reply:  fixedReply("RESULT:4.10:V:FAIL\r\n"),
			passed: false,
			value:  Value(4.10),
			units:  "V",
			notes:  NoteCompleted,
		},
		{
			name:   "lowercase pass is a failure",
			reply:  fixedReply("RESULT:5.0:V:pass\r\n"),
			passed: false,
			value:  Value(5.0),
			units:  "V",
			notes:  NoteCompleted,
		},
		{
			name:      "three fields",
			reply:     fixedReply("RESULT:5.0:V\r\n"),
			notesPref: NoteInvalidFormat,
		},
		{
			name:  "wrong token",
			reply: fixedReply("ERROR:5.0:V:PASS\r\n"),
			notes: NoteInvalidFormat + ": ERROR:5.0:V:PASS",
		},
		{
			name:  "bad number",
			reply: fixedReply("RESULT:abc:V:PASS\r\n"),
			notes: NoteInvalidValue + ": abc",
		},
		{
			name:  "empty line",
			reply: fixedReply("\r\n"),
			notes: NoteNoResponse,
		},
		{
			name:  "silent",
			reply: silentReply(),
			notes: NoteNoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			c, fi := newChannelController(t, tt.reply)
			require.NoError(c.Start())

			result := c.RunTest(context.Background(), "DEV001", []string{"VOLTAGE", "5V"})

			require.Equal(tt.passed, result.Passed)
			if tt.value != nil {
				require.NotNil(result.MeasurementValue)
				require.InDelta(*tt.value, *result.MeasurementValue, 1e-9)
			} else {
				require.Nil(result.MeasurementValue)
			}
			require.Equal(tt.units, result.Units)
			if tt.notesPref != "" {
				require.True(strings.HasPrefix(result.Notes, tt.notesPref), result.Notes)
			} else {
				require.Equal(tt.notes, result.Notes)
			}

			require.Equal([]string{"TEST:DEV001:VOLTAGE:5V"}, fi.Requests())
			// a failed test never changes the equipment status
			require.Equal(RunningStatus, c.Status())
		})
	}
}

func TestController_RunTestInvalidCommand(t *testing.T) {
	require := require.New(t)

	c, fi := newChannelController(t, fixedReply("RESULT:5.0:V:PASS\r\n"))
	require.NoError(c.Start())

	result := c.RunTest(context.Background(), "DEV:001", nil)
	require.False(result.Passed)
	require.True(strings.HasPrefix(result.Notes, NoteInvalidCommand), result.Notes)
	require.Empty(fi.Requests())
}

func TestController_RunTestCancel(t *testing.T) {
	require := require.New(t)

	c, _ := newChannelController(t, silentReply(), WithResponseTimeout(10*time.Second))
	require.NoError(c.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := c.RunTest(ctx, "DEV001", nil)
	require.Less(time.Since(start), 5*time.Second)
	require.False(result.Passed)
	require.True(strings.HasPrefix(result.Notes, NoteExecutionError), result.Notes)
}

func TestController_RunTestLateReply(t *testing.T) {
	require := require.New(t)

	var mu sync.Mutex
	calls := 0
	c, _ := newChannelController(t, func(req string) (string, bool) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			// answered after the first request gave up
			time.Sleep(90 * time.Millisecond)
			return "RESULT:1.0:V:PASS\r\n", true
		}

		return "RESULT:2.0:V:FAIL\r\n", true
	}, WithResponseTimeout(60*time.Millisecond))
	require.NoError(c.Start())

	first := c.RunTest(context.Background(), "DEV001", nil)
	require.Equal(NoteNoResponse, first.Notes)

	second := c.RunTest(context.Background(), "DEV002", nil)
	require.Equal(NoteCompleted, second.Notes)
	require.False(second.Passed)
	require.Equal(Value(2.0), second.MeasurementValue)
}

func TestController_RunTestConcurrent(t *testing.T) {
	require := require.New(t)

	c, fi := newChannelController(t, func(req string) (string, bool) {
		// echo the device id back as the units field
		fields := strings.Split(req, protocol.Delimiter)
		return "RESULT:1.0:" + fields[1] + ":PASS\r\n", true
	})
	require.NoError(c.Start())

	var wg sync.WaitGroup
	results := make([]TestResult, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.RunTest(context.Background(), "D"+string(rune('A'+i)), nil)
		}()
	}
	wg.Wait()

	ids := make(map[string]struct{})
	for i, r := range results {
		require.True(r.Passed)
		require.Equal("D"+string(rune('A'+i)), r.Units)
		ids[r.TestID] = struct{}{}
	}
	require.Len(ids, len(results))
	require.Len(fi.Requests(), len(results))
}

func TestController_Calibrate(t *testing.T) {
	t.Run("simulation", func(t *testing.T) {
		require := require.New(t)

		c := newSimController(t)
		cfg, err := NewConfig("", WithCalibrationDelay(0))
		require.NoError(err)
		require.NoError(c.Initialize(context.Background(), cfg))

		rec := &statusRecorder{}
		c.AddObserver(rec)

		require.NoError(c.Calibrate(context.Background()))
		require.Equal(IdleStatus, c.Status())
		require.Equal([]statusEvent{
			{MaintenanceStatus, "Calibration in progress"},
			{IdleStatus, "Calibration completed (simulation)"},
		}, rec.Events())
	})

	t.Run("ack", func(t *testing.T) {
		require := require.New(t)

		c, fi := newChannelController(t, fixedReply("CAL_OK\r\n"))
		rec := &statusRecorder{}
		c.AddObserver(rec)

		require.NoError(c.Calibrate(context.Background()))
		require.Equal(IdleStatus, c.Status())
		require.Equal([]string{"CALIBRATE"}, fi.Requests())
		require.Equal([]statusEvent{
			{MaintenanceStatus, "Calibration in progress"},
			{IdleStatus, "Calibration completed successfully"},
		}, rec.Events())
		require.Equal(uint64(1), c.Metrics().CalibrationCount.Load())
	})

	t.Run("negative ack", func(t *testing.T) {
		require := require.New(t)

		c, _ := newChannelController(t, fixedReply("CAL_ERR\r\n"))

		err := c.Calibrate(context.Background())
		require.ErrorIs(err, ErrCalibrationFailure)
		require.Equal(ErrorStatus, c.Status())
		require.Equal("Calibration failed", c.LastError())
		require.Equal(uint64(1), c.Metrics().CalibrationFailCount.Load())
	})

	t.Run("no response", func(t *testing.T) {
		require := require.New(t)

		c, _ := newChannelController(t, silentReply())

		require.ErrorIs(c.Calibrate(context.Background()), ErrCalibrationFailure)
		require.Equal(ErrorStatus, c.Status())
	})

	t.Run("not idle", func(t *testing.T) {
		require := require.New(t)

		c := newSimController(t)
		require.NoError(c.Start())

		require.ErrorIs(c.Calibrate(context.Background()), ErrInvalidTransition)
		require.Equal(RunningStatus, c.Status())
		require.Equal("Equipment must be idle for calibration", c.LastError())
	})

	t.Run("cancelled", func(t *testing.T) {
		require := require.New(t)

		c := newSimController(t)
		cfg, err := NewConfig("", WithCalibrationDelay(time.Minute))
		require.NoError(err)
		require.NoError(c.Initialize(context.Background(), cfg))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = c.Calibrate(ctx)
		require.ErrorIs(err, ErrCalibrationFailure)
		require.ErrorIs(err, context.Canceled)
		require.Equal(ErrorStatus, c.Status())
		require.True(strings.HasPrefix(c.LastError(), "Calibration error: "))
	})

	t.Run("stop and start while calibrating", func(t *testing.T) {
		require := require.New(t)

		c := newSimController(t)
		cfg, err := NewConfig("", WithCalibrationDelay(100*time.Millisecond))
		require.NoError(err)
		require.NoError(c.Initialize(context.Background(), cfg))

		done := make(chan error, 1)
		go func() { done <- c.Calibrate(context.Background()) }()

		require.Eventually(func() bool { return c.Status() == MaintenanceStatus },
			time.Second, time.Millisecond)
		c.Stop()
		require.NoError(c.Start())

		require.NoError(<-done)
		require.Equal(RunningStatus, c.Status())
	})

	t.Run("failure after stop keeps status", func(t *testing.T) {
		require := require.New(t)

		c, _ := newChannelController(t, fixedReply("CAL_ERR\r\n"), WithCalibrationDelay(100*time.Millisecond))

		done := make(chan error, 1)
		go func() { done <- c.Calibrate(context.Background()) }()

		require.Eventually(func() bool { return c.Status() == MaintenanceStatus },
			time.Second, time.Millisecond)
		c.Stop()

		require.ErrorIs(<-done, ErrCalibrationFailure)
		require.Equal(IdleStatus, c.Status())
		require.Empty(c.LastError())
	})
}

func TestController_HealthMetrics(t *testing.T) {
	c := newSimController(t)

	hm := c.HealthMetrics()
	for _, name := range []string{
		sim.MetricTemperature, sim.MetricVibration, sim.MetricPowerConsumption,
		sim.MetricUptimeHours, sim.MetricErrorRate,
	} {
		assert.Contains(t, hm, name)
	}
}

func TestController_CloseDetachesChannel(t *testing.T) {
	require := require.New(t)

	c, _ := newChannelController(t, fixedReply("RESULT:5.0:V:PASS\r\n"))
	require.NoError(c.Start())
	require.NoError(c.Close())
	require.False(c.IsChannelOpen())
	require.Equal(RunningStatus, c.Status())

	// without a channel the simulator takes over
	result := c.RunTest(context.Background(), "DEV001", nil)
	require.Equal(sim.FallbackUnits, result.Units)
}
