package commands

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-realtime/cmd/ema-listen"

var logger = otelslog.NewLogger(scopeName)
