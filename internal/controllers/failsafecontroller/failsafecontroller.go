// Package failsafecontroller watches the panel safety inputs and forces the
// processor into a safe state when one trips. Panel power loss or a tripped
// tank level switch stops whatever cycle is running, drives all primary
// outputs to rest and asserts the shutdown line until the inputs recover.
package failsafecontroller

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/datadog"
	"github.com/vst-systems/gm-controller/internal/model"
	"github.com/vst-systems/gm-controller/internal/notifications"
	"github.com/vst-systems/gm-controller/internal/pinset"
	"github.com/vst-systems/gm-controller/internal/task"
)

// CycleStopper is the scheduler capability the failsafe needs: stop whatever
// is running and leave the pins at rest.
type CycleStopper interface {
	Stop()
}

type Controller struct {
	pins   *pinset.PinSet
	cycles CycleStopper
	poll   time.Duration

	mu      sync.Mutex
	tripped bool
	current *task.Task
}

func New(pins *pinset.PinSet, cycles CycleStopper, pollInterval time.Duration) *Controller {
	return &Controller{
		pins:   pins,
		cycles: cycles,
		poll:   pollInterval,
	}
}

// Start launches the evaluation loop. The first evaluation happens one poll
// interval after start, giving the rest of the system time to come up.
func (c *Controller) Start() {
	log.Info().Dur("interval", c.poll).Msg("Starting failsafe controller")
	c.current = task.Go(func(tok *task.Token) {
		for task.Sleep(tok, c.poll) {
			c.evaluate()
		}
	})
}

func (c *Controller) Stop() {
	if c.current != nil {
		c.current.Stop()
	}
}

// Tripped reports whether the failsafe currently holds the panel down.
func (c *Controller) Tripped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tripped
}

func (c *Controller) evaluate() {
	power, err := c.pins.Read(model.PinPanelPower)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read panel power input, skipping failsafe evaluation")
		return
	}
	tls, err := c.pins.Read(model.PinTLS)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read tank level switch input, skipping failsafe evaluation")
		return
	}

	unsafe := !power || tls

	c.mu.Lock()
	wasTripped := c.tripped
	c.tripped = unsafe
	c.mu.Unlock()

	switch {
	case unsafe && !wasTripped:
		c.trip(power, tls)
	case !unsafe && wasTripped:
		c.clear()
	}
}

func (c *Controller) trip(power, tls bool) {
	log.Warn().
		Bool("panel_power", power).
		Bool("tls", tls).
		Msg("Safety input tripped, forcing panel into safe state")

	c.cycles.Stop()

	if err := c.pins.Write(model.PinShutdown, true); err != nil {
		log.Error().Err(err).Msg("Failed to assert shutdown line")
	}

	datadog.Incr("failsafe.tripped", "component:failsafe")

	if notifications.Enabled() {
		if err := notifications.Send("GM panel failsafe tripped", tripMessage(power, tls)); err != nil {
			log.Warn().Err(err).Msg("Failed to send failsafe notification")
		}
	}
}

func (c *Controller) clear() {
	log.Info().Msg("Safety inputs recovered, releasing shutdown line")

	if err := c.pins.Write(model.PinShutdown, false); err != nil {
		log.Error().Err(err).Msg("Failed to release shutdown line")
	}

	datadog.Incr("failsafe.cleared", "component:failsafe")

	if notifications.Enabled() {
		if err := notifications.Send("GM panel failsafe cleared", "Safety inputs back in range"); err != nil {
			log.Warn().Err(err).Msg("Failed to send failsafe notification")
		}
	}
}

func tripMessage(power, tls bool) string {
	var causes []string
	if !power {
		causes = append(causes, "panel power lost")
	}
	if tls {
		causes = append(causes, "tank level switch tripped")
	}
	return strings.Join(causes, "; ")
}
