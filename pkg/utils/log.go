package utils

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger points the global zerolog logger at stderr. Debug lowers the
// level to debug.
func InitLogger(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(IfOr(debug, zerolog.DebugLevel, zerolog.InfoLevel))
}
