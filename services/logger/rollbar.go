package logsvc

import (
	"sync"

	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/presence/core"
)

// RollbarLogger writes every entry through zap and reports it to Rollbar when enabled.
type RollbarLogger struct {
	zap *zap.Logger

	// rollbar keeps the person globally
	personMu sync.Mutex
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	return &RollbarLogger{zap: zl}
}

// Enable turns Rollbar reporting on or off. zap output is unaffected.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes both sinks.
func (l *RollbarLogger) Sync() {
	rollbar.Wait()
	_ = l.zap.Sync()
}

// split separates the Person (only the first one counts) from the args rollbar understands,
// and turns everything into zap fields.
// expected args: error, map[string]interface{}, core.Person
func split(args []interface{}) (*core.Person, []interface{}, []zapcore.Field) {
	var person *core.Person
	rbArgs := make([]interface{}, 0, len(args))
	fields := make([]zapcore.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if person == nil {
				p := a
				person = &p
				fields = append(fields, zap.String(FieldUserID, a.ID), zap.String(FieldEmail, a.Email))
			}
		case error:
			rbArgs = append(rbArgs, a)
			fields = append(fields, zap.NamedError(FieldError, a))
		case map[string]interface{}:
			rbArgs = append(rbArgs, a)
			for k, v := range a {
				fields = append(fields, zap.Any(k, v))
			}
		default:
			rbArgs = append(rbArgs, a)
			fields = append(fields, zap.Any("arg", a))
		}
	}
	return person, rbArgs, fields
}

func (l *RollbarLogger) report(level, msg string, person *core.Person, args []interface{}) {
	l.personMu.Lock()
	defer l.personMu.Unlock()

	if person != nil {
		rollbar.SetPerson(person.ID, person.Name, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, append([]interface{}{msg}, args...)...)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	person, rbArgs, fields := split(args)
	l.report(rollbar.DEBUG, msg, person, rbArgs)
	l.zap.Debug(msg, fields...)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	person, rbArgs, fields := split(args)
	l.report(rollbar.INFO, msg, person, rbArgs)
	l.zap.Info(msg, fields...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	person, rbArgs, fields := split(args)
	l.report(rollbar.WARN, msg, person, rbArgs)
	l.zap.Warn(msg, fields...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	person, rbArgs, fields := split(args)
	l.report(rollbar.ERR, msg, person, rbArgs)
	l.zap.Error(msg, fields...)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	person, rbArgs, fields := split(args)
	l.report(rollbar.CRIT, msg, person, rbArgs)
	rollbar.Wait()
	l.zap.Fatal(msg, fields...)
}
