// Package logger builds the application zap logger.
package logger

import (
	"os"

	"github.com/anchored-notes/anchored-sync-service/pkg/fileurl"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Level see zapcore.ParseLevel
	Level string
	// File log file path; empty logs to stderr only
	File string
	// Production enables JSON output
	Production bool
}

// NewLogger creates a zap logger writing to stderr and, when configured,
// to the log file. An unparseable level falls back to warn.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.WarnLevel
	}

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.File != "" {
		if err := fileurl.CreatePath(cfg.File, os.ModePerm); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, err
		}

		fileEncoderConfig := zap.NewProductionEncoderConfig()
		fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		var fileEncoder zapcore.Encoder
		if cfg.Production {
			fileEncoder = zapcore.NewJSONEncoder(fileEncoderConfig)
		} else {
			fileEncoder = zapcore.NewConsoleEncoder(fileEncoderConfig)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(file), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
