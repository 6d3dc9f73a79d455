package shared

import (
	"go.uber.org/zap"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	ServiceName string // e.g. "zkproxy-client" or "zkproxy-demo"
	Development bool   // true for console logging with debug level
}

// Logger wraps zap.Logger with additional context
type Logger struct {
	*zap.Logger
	serviceName string
}

// NewLogger creates a new logger instance based on the configuration
func NewLogger(config LoggerConfig) (*Logger, error) {
	var zapLogger *zap.Logger
	var err error

	if config.Development {
		// Development mode: console logging with debug level
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zapLogger, err = zapConfig.Build()
	} else {
		// Production mode: structured JSON logging
		zapConfig := zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err = zapConfig.Build()
	}

	if err != nil {
		return nil, err
	}

	if config.ServiceName != "" {
		zapLogger = zapLogger.With(zap.String("service", config.ServiceName))
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: config.ServiceName,
	}, nil
}

// NopLogger returns a logger that discards everything. Components accept it
// so callers are never forced to configure logging.
func NopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithRequestID returns a child logger tagged with a request id for
// correlating a single proxied call across components.
func (l *Logger) WithRequestID(requestID string) *Logger {
	if l == nil {
		return NopLogger()
	}
	return &Logger{
		Logger:      l.Logger.With(zap.String("request_id", requestID)),
		serviceName: l.serviceName,
	}
}

// ServiceName returns the service name this logger was created with.
func (l *Logger) ServiceName() string {
	if l == nil {
		return ""
	}
	return l.serviceName
}
