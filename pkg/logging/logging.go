// Package logging builds the zap logger used across unifile.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Setup builds a logger for one invocation. Verbose selects the development
// config with debug-level output; silent raises the level so only errors are
// emitted. Silent wins when both are set.
func Setup(verbose, silent bool, appName, appVersion string) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if silent {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	cfg.InitialFields = map[string]interface{}{
		"appName":    appName,
		"appVersion": appVersion,
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop(), err
	}

	zap.ReplaceGlobals(logger)
	return logger, nil
}
