// Package modecontroller drives the expander output pins through the six
// fixed operating modes. A mode application is a cancellable unit of work:
// pins are written one at a time in the mode's declared order, with an
// optional interruptible delay between writes.
package modecontroller

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/datadog"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/pinset"
	"github.com/vst-systems/gm-controller/internal/task"
)

type Controller struct {
	pins     *pinset.PinSet
	pinDelay time.Duration

	mu      sync.Mutex // serializes worker handoff
	current *task.Task

	stateMu sync.RWMutex
	mode    model.Mode
}

// New builds a controller over pins. pinDelay, when non-zero, is the pause
// between consecutive pin writes within one mode application.
func New(pins *pinset.PinSet, pinDelay time.Duration) *Controller {
	return &Controller{pins: pins, pinDelay: pinDelay}
}

// Apply drives mode's pin assignment synchronously, honoring tok between
// writes. An unknown mode logs and leaves all pins unchanged. A write fault
// forces the rest state before it is surfaced.
func (c *Controller) Apply(tok *task.Token, mode model.Mode) error {
	assignment, ok := model.ModeAssignments[mode]
	if !ok {
		log.Error().Str("mode", string(mode)).Msg("Invalid mode requested, leaving pins unchanged")
		return nil
	}

	c.setMode(mode)
	for _, pl := range assignment {
		if tok.Cancelled() {
			log.Debug().Str("mode", string(mode)).Msg("Mode application cancelled")
			return nil
		}
		if err := c.pins.Write(pl.Pin, pl.Level); err != nil {
			log.Error().Err(err).Str("mode", string(mode)).Str("pin", pl.Pin).
				Msg("Pin write failed during mode application, forcing rest")
			c.ForceRest()
			return err
		}
		if c.pinDelay > 0 {
			if !task.Sleep(tok, c.pinDelay) {
				return nil
			}
		}
	}

	datadog.Incr("mode.applied", "mode:"+string(mode))
	return nil
}

// Start applies mode as a background task. Any task still running is
// cancelled and joined before the new one touches a pin.
func (c *Controller) Start(mode model.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Stop()
	}
	c.current = task.Go(func(tok *task.Token) {
		if err := c.Apply(tok, mode); err != nil {
			log.Error().Err(err).Str("mode", string(mode)).Msg("Background mode application failed")
		}
	})
}

// Stop cancels any running mode task and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

// ForceRest drives the four primary outputs to their de-energized levels
// immediately, with no delay and no cancellation check. It is the safety net
// on fault and shutdown paths and does not touch the reported mode.
func (c *Controller) ForceRest() {
	for _, pl := range model.ModeAssignments[model.ModeRest] {
		if err := c.pins.Write(pl.Pin, pl.Level); err != nil {
			log.Error().Err(err).Str("pin", pl.Pin).Msg("Failed to force rest state")
		}
	}
}

// Mode reports the current or last-requested mode, model.ModeComplete after
// a finished sequence, or the empty string when nothing was ever applied.
func (c *Controller) Mode() model.Mode {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.mode
}

// MarkComplete records the end-of-sequence marker. Used by the scheduler.
func (c *Controller) MarkComplete() {
	c.setMode(model.ModeComplete)
}

// Values returns the live levels of the motor and valve outputs for display.
func (c *Controller) Values() (model.PinValues, error) {
	var values model.PinValues
	var err error
	if values.Motor, err = c.pins.Read(model.PinMotor); err != nil {
		return values, err
	}
	if values.V1, err = c.pins.Read(model.PinV1); err != nil {
		return values, err
	}
	if values.V2, err = c.pins.Read(model.PinV2); err != nil {
		return values, err
	}
	if values.V5, err = c.pins.Read(model.PinV5); err != nil {
		return values, err
	}
	return values, nil
}

func (c *Controller) setMode(mode model.Mode) {
	c.stateMu.Lock()
	c.mode = mode
	c.stateMu.Unlock()
}
