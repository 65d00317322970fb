// Package cyclecontroller executes named operating cycles: ordered
// (mode, duration) sequences run as one cancellable background task that
// delegates each step to the mode controller. Whatever way a cycle ends,
// the actuators are returned to rest.
package cyclecontroller

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/controllers/modecontroller"
	"github.com/vst-systems/gm-controller/internal/datadog"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/task"
)

const lastRunCycleKey = "last_run_cycle"

// Settings is the persisted key-value capability the scheduler uses for the
// last-run marker and the cycle event log.
type Settings interface {
	PutSetting(key, value string) error
	RecordCycleEvent(sequence string, startedAt time.Time) error
}

type Scheduler struct {
	modes    *modecontroller.Controller
	settings Settings

	mu      sync.Mutex
	current *task.Task
}

func New(modes *modecontroller.Controller, settings Settings) *Scheduler {
	return &Scheduler{modes: modes, settings: settings}
}

// Start runs seq as a new background cycle. Any cycle still running and any
// standalone mode task are cancelled and joined first, so only one unit of
// work ever writes to the pins. The started cycle is recorded in the event log.
func (s *Scheduler) Start(name string, seq model.Sequence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Stop()
	}
	s.modes.Stop()

	log.Info().Str("sequence", name).Int("steps", len(seq)).Msg("Starting cycle")
	datadog.Incr("cycle.started", "sequence:"+name)
	if s.settings != nil {
		if err := s.settings.RecordCycleEvent(name, time.Now()); err != nil {
			log.Warn().Err(err).Str("sequence", name).Msg("Failed to record cycle event")
		}
	}

	s.current = task.Go(func(tok *task.Token) {
		s.run(tok, seq)
	})
}

func (s *Scheduler) run(tok *task.Token, seq model.Sequence) {
	// Rest is unconditional: completion, cancellation and faults all end
	// with de-energized actuators and the complete marker.
	defer func() {
		if err := s.modes.Apply(task.NewToken(), model.ModeRest); err != nil {
			log.Error().Err(err).Msg("Failed to apply rest at end of cycle")
		}
		s.modes.MarkComplete()
	}()

	for _, step := range seq {
		if tok.Cancelled() {
			log.Info().Msg("Cycle cancelled")
			return
		}
		if err := s.modes.Apply(tok, step.Mode); err != nil {
			log.Error().Err(err).Str("mode", string(step.Mode)).Msg("Cycle step failed, aborting")
			return
		}
		if !task.Sleep(tok, step.Duration) {
			log.Info().Msg("Cycle cancelled during step wait")
			return
		}
	}
}

// Stop cancels the running cycle, waits for it to exit, stops any
// independently running mode task, and forces rest once more as a safety net.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Msg("Stopping cycle")
	if s.current != nil {
		s.current.Stop()
		s.current = nil
	}
	s.modes.Stop()
	s.modes.ForceRest()
}

// SetMode stops any running cycle, then drives mode as a standalone task.
// Manual mode changes go through here so a cycle worker and a mode task can
// never write to the pins at the same time.
func (s *Scheduler) SetMode(mode model.Mode) {
	s.Stop()
	s.modes.Start(mode)
}

// RunCycle starts the normal operating cycle and timestamps the last-run
// marker in settings. A persistence failure is logged, not fatal.
func (s *Scheduler) RunCycle() {
	if s.settings != nil {
		if err := s.settings.PutSetting(lastRunCycleKey, time.Now().Format(time.RFC3339)); err != nil {
			log.Warn().Err(err).Msg("Failed to persist last run cycle timestamp")
		}
	}
	s.Start("run_cycle", RunCycleSequence())
}

func (s *Scheduler) FunctionalityTest() {
	s.Start("functionality_test", FunctionalityTestSequence())
}

func (s *Scheduler) TestMode() {
	s.Start("test_mode", TestModeSequence())
}

func (s *Scheduler) LeakTest() {
	s.Start("leak_test", LeakTestSequence())
}

// RunCycleSequence is the normal operating cycle: an initial run, then six
// purge/burp rounds, then rest.
func RunCycleSequence() model.Sequence {
	seq := model.Sequence{
		{Mode: model.ModeRun, Duration: 30 * time.Second},
		{Mode: model.ModeRest, Duration: 2 * time.Second},
	}
	for i := 0; i < 6; i++ {
		seq = append(seq,
			model.SequenceStep{Mode: model.ModePurge, Duration: 10 * time.Second},
			model.SequenceStep{Mode: model.ModeBurp, Duration: 5 * time.Second},
		)
	}
	return append(seq, model.SequenceStep{Mode: model.ModeRest, Duration: 2 * time.Second})
}

func FunctionalityTestSequence() model.Sequence {
	return model.Sequence{
		{Mode: model.ModeRun, Duration: 120 * time.Second},
		{Mode: model.ModePurge, Duration: 50 * time.Second},
		{Mode: model.ModeRest, Duration: 2 * time.Second},
	}
}

func TestModeSequence() model.Sequence {
	return model.Sequence{
		{Mode: model.ModeRun, Duration: 120 * time.Second},
		{Mode: model.ModeRest, Duration: 2 * time.Second},
		{Mode: model.ModePurge, Duration: 50 * time.Second},
		{Mode: model.ModeBleed, Duration: 2 * time.Second},
	}
}

func LeakTestSequence() model.Sequence {
	return model.Sequence{
		{Mode: model.ModeLeak, Duration: 120 * time.Second},
	}
}
