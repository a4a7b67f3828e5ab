package common

import (
	"path"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the console logger for benchmark runs. Debug enables debug
// level and caller annotations. When logFile is set a JSON copy of every
// entry is written there too.
func NewLogger(debug bool, logFile string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.OutputPaths = []string{"stderr"}
	config.DisableCaller = !debug
	config.Sampling = nil
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		return logger.Named("lossbridge"), nil
	}

	fileConfig := zap.NewProductionConfig()
	fileConfig.OutputPaths = []string{logFile}
	fileConfig.Level = config.Level
	fileConfig.Sampling = nil
	fileLogger, err := fileConfig.Build()
	if err != nil {
		logger.Sync()
		return nil, err
	}
	options := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if debug {
		options = append(options, zap.AddCaller())
	}
	tee := zap.New(zapcore.NewTee(logger.Core(), fileLogger.Core()), options...)
	return tee.Named("lossbridge"), nil
}

// LogFile is where runs write their json log
func (f *Flags) LogFile() string {
	return path.Join(f.SavePath, "run.log")
}
