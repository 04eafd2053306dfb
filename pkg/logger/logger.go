// Package logger builds the structured zap logger every container
// component takes as a constructor argument.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger, development-mode (colorized, debug level) when
// debug is true, production-mode (JSON, info level) otherwise. Unlike the
// single package-level global this package started from, New returns an
// owned logger so the container's components never share hidden state with
// whatever else in the process also imports this package.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}
