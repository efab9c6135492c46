package recent

import (
	"github.com/rs/zerolog"

	"github.com/jfmyers9/recently/pkg/lastfm"
)

type lastfmLogger struct {
	logger zerolog.Logger
}

// NewLastFMLogger routes lastfm client debug output to a zerolog logger
func NewLastFMLogger(logger zerolog.Logger) lastfm.Logger {
	return lastfmLogger{logger: logger.With().Str("component", "lastfm").Logger()}
}

func (l lastfmLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
