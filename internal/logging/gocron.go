package logging

import (
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

type gocronLogger struct {
	log zerolog.Logger
}

// NewGocronLogger adapts the scheduler's logging onto zerolog.
func NewGocronLogger() gocron.Logger {
	return &gocronLogger{log: Component("scheduler")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debug().Fields(args).Msg(msg) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Error().Fields(args).Msg(msg) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Info().Fields(args).Msg(msg) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warn().Fields(args).Msg(msg) }
