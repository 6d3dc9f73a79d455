package shared

import (
	"go.uber.org/zap"
)

// EventSink receives proof lifecycle events. Attestation outcomes are only
// observable through a sink; they never reach the caller's return value.
type EventSink interface {
	ProofExtracted(rec *ProofRecord)
	AttestationSubmitted(rec *ProofRecord, proofID string)
	AttestationFailed(rec *ProofRecord, err error)
}

// LogSink is the default EventSink: it reports proof events to the logger.
type LogSink struct {
	logger *Logger
}

// NewLogSink creates a sink writing to the given logger. A nil logger
// produces a sink that discards everything.
func NewLogSink(logger *Logger) *LogSink {
	if logger == nil {
		logger = NopLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) ProofExtracted(rec *ProofRecord) {
	s.logger.Info("proof extracted",
		zap.String("tool_name", rec.ToolName),
		zap.Bool("verified", rec.Verified),
		zap.Bool("onchain_compatible", rec.OnchainCompatible),
	)
}

func (s *LogSink) AttestationSubmitted(rec *ProofRecord, proofID string) {
	s.logger.Info("proof submitted to attestation service",
		zap.String("tool_name", rec.ToolName),
		zap.String("proof_id", proofID),
	)
}

func (s *LogSink) AttestationFailed(rec *ProofRecord, err error) {
	s.logger.Warn("attestation submission failed",
		zap.String("tool_name", rec.ToolName),
		zap.Error(err),
	)
}
