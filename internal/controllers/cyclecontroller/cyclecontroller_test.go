package cyclecontroller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vst-systems/gm-controller/internal/controllers/modecontroller"
	"github.com/vst-systems/gm-controller/internal/hwio"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/pinset"
)

type fakeSettings struct {
	mu     sync.Mutex
	puts   map[string]string
	cycles []string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{puts: map[string]string{}}
}

func (f *fakeSettings) PutSetting(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = value
	return nil
}

func (f *fakeSettings) RecordCycleEvent(sequence string, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, sequence)
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *modecontroller.Controller, *hwio.FakeLineDriver, *fakeSettings) {
	t.Helper()
	driver := hwio.NewFakeLineDriver()
	pins, err := pinset.New(driver, []pinset.Pin{
		{Name: model.PinMotor, Line: 0, Direction: hwio.Output},
		{Name: model.PinV1, Line: 1, Direction: hwio.Output},
		{Name: model.PinV2, Line: 2, Direction: hwio.Output},
		{Name: model.PinV5, Line: 3, Direction: hwio.Output},
	})
	require.NoError(t, err)
	modes := modecontroller.New(pins, 0)
	settings := newFakeSettings()
	return New(modes, settings), modes, driver, settings
}

func allAtRest(driver *hwio.FakeLineDriver) bool {
	for line := 0; line < 4; line++ {
		if driver.Level(line) {
			return false
		}
	}
	return true
}

func TestNaturalCompletionEndsAtRestComplete(t *testing.T) {
	s, modes, driver, _ := newTestScheduler(t)

	s.Start("short", model.Sequence{
		{Mode: model.ModeRun, Duration: 10 * time.Millisecond},
		{Mode: model.ModeRest, Duration: 10 * time.Millisecond},
	})

	assert.Eventually(t, func() bool {
		return modes.Mode() == model.ModeComplete
	}, time.Second, time.Millisecond)
	assert.True(t, allAtRest(driver))
}

func TestStopAppliesRestBeforeReturning(t *testing.T) {
	s, modes, driver, _ := newTestScheduler(t)

	s.Start("long", model.Sequence{
		{Mode: model.ModeRun, Duration: 5 * time.Second},
	})

	// wait until the run step has energized the motor
	assert.Eventually(t, func() bool {
		return driver.Level(0)
	}, time.Second, time.Millisecond)

	s.Stop()

	assert.True(t, allAtRest(driver))
	assert.Equal(t, model.ModeComplete, modes.Mode())
}

func TestStartReplacesRunningCycle(t *testing.T) {
	s, modes, driver, settings := newTestScheduler(t)

	s.Start("first", model.Sequence{{Mode: model.ModeRun, Duration: 5 * time.Second}})
	s.Start("second", model.Sequence{{Mode: model.ModeLeak, Duration: 10 * time.Millisecond}})

	assert.Eventually(t, func() bool {
		return modes.Mode() == model.ModeComplete
	}, time.Second, time.Millisecond)
	assert.True(t, allAtRest(driver))
	assert.Equal(t, []string{"first", "second"}, settings.cycles)
}

func TestStartStopsStandaloneModeTask(t *testing.T) {
	driver := hwio.NewFakeLineDriver()
	pins, err := pinset.New(driver, []pinset.Pin{
		{Name: model.PinMotor, Line: 0, Direction: hwio.Output},
		{Name: model.PinV1, Line: 1, Direction: hwio.Output},
		{Name: model.PinV2, Line: 2, Direction: hwio.Output},
		{Name: model.PinV5, Line: 3, Direction: hwio.Output},
	})
	require.NoError(t, err)
	modes := modecontroller.New(pins, 20*time.Millisecond)
	s := New(modes, newFakeSettings())

	modes.Start(model.ModeLeak)
	assert.Eventually(t, func() bool {
		return len(driver.Writes()) >= 1
	}, time.Second, time.Millisecond)

	s.Start("short", model.Sequence{{Mode: model.ModeRun, Duration: 10 * time.Millisecond}})
	assert.Eventually(t, func() bool {
		return modes.Mode() == model.ModeComplete
	}, time.Second, time.Millisecond)

	// the leak task was joined before the cycle touched a pin, so the run
	// assignment and the final rest are contiguous blocks in the write log
	writes := driver.Writes()
	runStart := -1
	for i, w := range writes {
		if w == (hwio.FakeWrite{Line: 0, Level: true}) {
			runStart = i
			break
		}
	}
	require.NotEqual(t, -1, runStart)
	require.Len(t, writes, runStart+8)
	assert.Equal(t, []hwio.FakeWrite{
		{Line: 0, Level: true},
		{Line: 1, Level: true},
		{Line: 2, Level: false},
		{Line: 3, Level: true},
	}, writes[runStart:runStart+4])
	assert.Equal(t, []hwio.FakeWrite{
		{Line: 0, Level: false},
		{Line: 1, Level: false},
		{Line: 2, Level: false},
		{Line: 3, Level: false},
	}, writes[runStart+4:])
}

func TestSetModeStopsRunningCycle(t *testing.T) {
	s, modes, driver, _ := newTestScheduler(t)

	s.Start("long", model.Sequence{{Mode: model.ModeRun, Duration: 5 * time.Second}})
	assert.Eventually(t, func() bool {
		return driver.Level(0)
	}, time.Second, time.Millisecond)

	s.SetMode(model.ModeBurp)

	assert.Eventually(t, func() bool {
		return modes.Mode() == model.ModeBurp && driver.Level(3) && !driver.Level(0)
	}, time.Second, time.Millisecond)
}

func TestRunCyclePersistsLastRunMarker(t *testing.T) {
	s, _, _, settings := newTestScheduler(t)

	s.RunCycle()
	s.Stop()

	settings.mu.Lock()
	marker, ok := settings.puts[lastRunCycleKey]
	settings.mu.Unlock()
	assert.True(t, ok)
	_, err := time.Parse(time.RFC3339, marker)
	assert.NoError(t, err)
	assert.Equal(t, []string{"run_cycle"}, settings.cycles)
}

func TestRunCycleSequenceShape(t *testing.T) {
	seq := RunCycleSequence()

	require.Len(t, seq, 15)
	assert.Equal(t, model.SequenceStep{Mode: model.ModeRun, Duration: 30 * time.Second}, seq[0])
	assert.Equal(t, model.SequenceStep{Mode: model.ModeRest, Duration: 2 * time.Second}, seq[1])
	for i := 0; i < 6; i++ {
		assert.Equal(t, model.ModePurge, seq[2+2*i].Mode)
		assert.Equal(t, 10*time.Second, seq[2+2*i].Duration)
		assert.Equal(t, model.ModeBurp, seq[3+2*i].Mode)
		assert.Equal(t, 5*time.Second, seq[3+2*i].Duration)
	}
	assert.Equal(t, model.SequenceStep{Mode: model.ModeRest, Duration: 2 * time.Second}, seq[14])
}

func TestLeakTestSequence(t *testing.T) {
	seq := LeakTestSequence()
	require.Len(t, seq, 1)
	assert.Equal(t, model.SequenceStep{Mode: model.ModeLeak, Duration: 120 * time.Second}, seq[0])
}

func TestUnknownModeInSequenceIsSkippedNotFatal(t *testing.T) {
	s, modes, driver, _ := newTestScheduler(t)

	s.Start("odd", model.Sequence{
		{Mode: model.Mode("spin"), Duration: 5 * time.Millisecond},
		{Mode: model.ModeBurp, Duration: 5 * time.Millisecond},
	})

	assert.Eventually(t, func() bool {
		return modes.Mode() == model.ModeComplete
	}, time.Second, time.Millisecond)
	assert.True(t, allAtRest(driver))
}
