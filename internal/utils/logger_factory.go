package utils

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	standardErrorOutputPathConstant      = "stderr"
	jsonEncodingConstant                 = "json"
	consoleEncodingConstant              = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	loggerBuildErrorTemplateConstant     = "unable to build logger: %w"
)

// LogLevel is the configured common.log_level value.
type LogLevel string

// Supported log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat is the configured common.log_format value.
type LogFormat string

// Supported log formats. Structured output is JSON, one object per line.
const (
	LogFormatStructured LogFormat = "structured"
	LogFormatConsole    LogFormat = "console"
)

// LoggerFactory builds the diagnostic zap.Logger shared by every command.
type LoggerFactory struct{}

// NewLoggerFactory constructs a LoggerFactory.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{}
}

// CreateLogger builds a logger that writes to standard error.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	return factory.CreateLoggerWithOutput(requestedLogLevel, requestedLogFormat, standardErrorOutputPathConstant)
}

// CreateLoggerWithOutput builds a logger that appends to outputPath, or to standard error when outputPath is empty.
// Level and format are matched case-insensitively.
func (factory *LoggerFactory) CreateLoggerWithOutput(requestedLogLevel LogLevel, requestedLogFormat LogFormat, outputPath string) (*zap.Logger, error) {
	zapLevel, levelError := resolveLogLevel(requestedLogLevel)
	if levelError != nil {
		return nil, levelError
	}
	encoding, encodingError := resolveEncoding(requestedLogFormat)
	if encodingError != nil {
		return nil, encodingError
	}

	loggerConfiguration := zap.NewProductionConfig()
	loggerConfiguration.Level = zap.NewAtomicLevelAt(zapLevel)
	loggerConfiguration.Encoding = encoding
	loggerConfiguration.OutputPaths = []string{resolveOutputPath(outputPath)}
	loggerConfiguration.ErrorOutputPaths = []string{standardErrorOutputPathConstant}
	loggerConfiguration.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == consoleEncodingConstant {
		loggerConfiguration.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, buildError := loggerConfiguration.Build()
	if buildError != nil {
		return nil, fmt.Errorf(loggerBuildErrorTemplateConstant, buildError)
	}
	return logger, nil
}

func resolveLogLevel(requestedLogLevel LogLevel) (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel)))) {
	case LogLevelDebug:
		return zapcore.DebugLevel, nil
	case LogLevelInfo:
		return zapcore.InfoLevel, nil
	case LogLevelWarn:
		return zapcore.WarnLevel, nil
	case LogLevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}
}

func resolveEncoding(requestedLogFormat LogFormat) (string, error) {
	switch LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat)))) {
	case LogFormatStructured:
		return jsonEncodingConstant, nil
	case LogFormatConsole:
		return consoleEncodingConstant, nil
	default:
		return "", fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
}

func resolveOutputPath(outputPath string) string {
	trimmedPath := strings.TrimSpace(outputPath)
	if len(trimmedPath) == 0 {
		return standardErrorOutputPathConstant
	}
	return trimmedPath
}
