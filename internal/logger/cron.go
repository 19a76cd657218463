package logger

import "github.com/rs/zerolog"

// CronLogger routes cron's internal logging through zerolog.
type CronLogger struct {
	L zerolog.Logger
}

// Info logs scheduler routine events at debug level.
func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.L.Debug().Fields(keysAndValues).Msg(msg)
}

// Error logs scheduler failures, including recovered job panics.
func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.L.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
