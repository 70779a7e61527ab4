package resolver

import (
	"github.com/obolnet/obold/infrastructure/logger"
)

var log = logger.RegisterSubSystem("TXRS")
