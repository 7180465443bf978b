package obs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AsynqLogger routes asynq server logs through zerolog. It satisfies asynq.Logger.
type AsynqLogger struct {
	Logger zerolog.Logger
}

func (l AsynqLogger) Debug(args ...interface{}) { l.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Info(args ...interface{})  { l.Logger.Info().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Warn(args ...interface{})  { l.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (l AsynqLogger) Error(args ...interface{}) { l.Logger.Error().Msg(fmt.Sprint(args...)) }

// Fatal logs at error level; asynq exits the process itself after calling it.
func (l AsynqLogger) Fatal(args ...interface{}) { l.Logger.Error().Msg(fmt.Sprint(args...)) }
