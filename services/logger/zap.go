package logsvc

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/presence/core"
)

// standard field names
const (
	FieldService = "service"
	FieldError   = "error"
	FieldUserID  = "user_id"
	FieldEmail   = "user_email"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

// NewZap builds a zap logger from the log config and tags every entry with service.
func NewZap(conf core.LogConfig, service string) (*zap.Logger, error) {
	var zapConf zap.Config
	if strings.ToLower(conf.Format) == "json" {
		zapConf = zap.NewProductionConfig()
		zapConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConf = zap.NewDevelopmentConfig()
		zapConf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := parseLevel(conf.Level)
	if err != nil {
		return nil, err
	}
	zapConf.Level = zap.NewAtomicLevelAt(level)
	zapConf.OutputPaths = []string{"stdout"}
	zapConf.ErrorOutputPaths = []string{"stderr"}

	l, err := zapConf.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return l.With(zap.String(FieldService, service)), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, errors.Wrap(ErrInvalidLogLevel, level)
	}
}
