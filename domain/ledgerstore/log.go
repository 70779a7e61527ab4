package ledgerstore

import (
	"github.com/obolnet/obold/infrastructure/logger"
)

var log = logger.RegisterSubSystem("LGST")
