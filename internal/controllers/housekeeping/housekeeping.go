package housekeeping

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/irrigation-controller/internal/model"
	"github.com/thatsimonsguy/irrigation-controller/internal/scheduler"
)

func logHeartbeat() {
	log.Debug().Msg("Logging task heartbeat")
}

func lowPowerHeartbeat() {
	log.Debug().Msg("Low power task heartbeat")
}

func RunLoggingTask(sched *scheduler.Scheduler) {
	sched.Every("logging", model.LoggingPeriodUnits, func(context.Context) { logHeartbeat() })
}

func RunLowPowerTask(sched *scheduler.Scheduler) {
	sched.Every("low-power", model.LowPowerPeriodUnits, func(context.Context) { lowPowerHeartbeat() })
}
