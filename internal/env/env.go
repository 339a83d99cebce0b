package env

import (
	"github.com/thatsimonsguy/irrigation-controller/internal/config"
)

var Cfg *config.Config
