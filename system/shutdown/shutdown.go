// Package shutdown stops the background workers and de-energizes the
// actuators before the process exits.
package shutdown

import (
	"database/sql"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/vst-systems/gm-controller/internal/controllers/cyclecontroller"
	"github.com/vst-systems/gm-controller/internal/controllers/modecontroller"
)

var (
	cycles *cyclecontroller.Scheduler
	modes  *modecontroller.Controller
	dbConn *sql.DB
)

func Register(c *cyclecontroller.Scheduler, m *modecontroller.Controller, conn *sql.DB) {
	cycles = c
	modes = m
	dbConn = conn
}

func Shutdown() {
	if cycles != nil {
		cycles.Stop()
	}
	if modes != nil {
		modes.Stop()
		modes.ForceRest()
	}
	if dbConn != nil {
		dbConn.Close()
	}
	log.Info().Msg("Actuators at rest, exiting")
	os.Exit(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Shutdown()
}
