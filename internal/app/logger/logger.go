package logger

import (
	"go.uber.org/zap"
)

var Log = zap.NewNop()

// InitLogger replaces the package-level logger with a production zap logger
// at the given level. Unknown levels fall back to info.
func InitLogger(level string) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Log = logger
}
