package ldb

import (
	"github.com/obolnet/obold/infrastructure/logger"
)

var log = logger.RegisterSubSystem("LVDB")
