// Package startup brings the expander into a known-safe state before any
// controller runs: directions configured, every output de-energized.
package startup

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/config"
	"github.com/vst-systems/gm-controller/internal/hwio"
	"github.com/vst-systems/gm-controller/internal/pinset"
)

// BuildPinSet constructs the named pin roster from config over driver.
func BuildPinSet(cfg *config.Config, driver hwio.LineDriver) (*pinset.PinSet, error) {
	pins := make([]pinset.Pin, 0, len(cfg.Pins))
	for name, pc := range cfg.Pins {
		dir := hwio.Output
		if pc.Direction == "input" {
			dir = hwio.Input
		}
		pins = append(pins, pinset.Pin{Name: name, Line: *pc.Line, Direction: dir})
	}
	return pinset.New(driver, pins)
}

// Initialize configures pin directions, checks for output lines left
// energized by a previous crash, and drives every output to its rest level.
func Initialize(cfg *config.Config, driver hwio.LineDriver, pins *pinset.PinSet) error {
	if err := pins.SetupDirections(); err != nil {
		return err
	}

	for name, pc := range cfg.Pins {
		if pc.Direction != "output" {
			continue
		}
		level, err := driver.ReadLine(*pc.Line)
		if err != nil {
			return fmt.Errorf("read initial state of pin %q: %w", name, err)
		}
		if level {
			log.Warn().Str("pin", name).Int("line", *pc.Line).
				Msg("Output energized at startup, driving to rest")
		}
	}

	for _, name := range pins.Outputs() {
		if err := pins.Write(name, false); err != nil {
			return fmt.Errorf("drive pin %q to rest: %w", name, err)
		}
	}

	log.Info().Msg("Pin directions configured, outputs at rest")
	return nil
}
