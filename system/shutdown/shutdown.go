package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"
)

var ExitFunc = os.Exit

type ValveCloser interface {
	CloseAll() error
}

// Shutdown drives every valve closed and exits.
func Shutdown(valves ValveCloser) {
	closeValves(valves)
	ExitFunc(0)
}

func ShutdownWithError(valves ValveCloser, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	closeValves(valves)
	ExitFunc(1)
}

func closeValves(valves ValveCloser) {
	if valves == nil {
		return
	}
	if err := valves.CloseAll(); err != nil {
		log.Error().Err(err).Msg("Failed to close every valve during shutdown")
		return
	}
	log.Info().Msg("All valves closed")
}
