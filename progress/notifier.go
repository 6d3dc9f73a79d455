// Package progress streams proof lifecycle events to a UI endpoint over a
// WebSocket connection. Delivery is best-effort: a broken connection is
// logged and dropped, never surfaced to the proxied call.
package progress

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"zkproxy/redaction"
	"zkproxy/shared"
)

// proofEventPrefix marks proof messages on the progress channel so UI
// consumers can split them from ordinary progress text.
const proofEventPrefix = "__PROOF__"

// proofEvent is the message shape pushed to the UI.
type proofEvent struct {
	Event             string                    `json:"event"`
	ToolName          string                    `json:"tool_name"`
	Timestamp         int64                     `json:"timestamp"`
	Verified          bool                      `json:"verified"`
	OnchainCompatible bool                      `json:"onchain_compatible"`
	ProofID           string                    `json:"proof_id,omitempty"`
	Error             string                    `json:"error,omitempty"`
	DisplayResponse   map[string]any            `json:"display_response,omitempty"`
	RedactionMetadata *shared.RedactionMetadata `json:"redaction_metadata,omitempty"`

	// Byte ranges of masked fields within the serialized display
	// response, for UI highlighting
	MaskedRanges []redaction.ByteRange `json:"masked_ranges,omitempty"`
}

// Notifier implements shared.EventSink over a WebSocket connection. The
// connection is dialed lazily on the first event and redialed after errors.
type Notifier struct {
	url    string
	logger *shared.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewNotifier creates a notifier for the given ws:// or wss:// URL.
func NewNotifier(url string, logger *shared.Logger) *Notifier {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Notifier{url: url, logger: logger}
}

// ProofExtracted implements shared.EventSink.
func (n *Notifier) ProofExtracted(rec *shared.ProofRecord) {
	n.send(buildEvent("proof_extracted", rec, "", nil))
}

// AttestationSubmitted implements shared.EventSink.
func (n *Notifier) AttestationSubmitted(rec *shared.ProofRecord, proofID string) {
	n.send(buildEvent("attestation_submitted", rec, proofID, nil))
}

// AttestationFailed implements shared.EventSink.
func (n *Notifier) AttestationFailed(rec *shared.ProofRecord, err error) {
	n.send(buildEvent("attestation_failed", rec, "", err))
}

// Close shuts the connection down. Further events redial.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}

func buildEvent(event string, rec *shared.ProofRecord, proofID string, cause error) proofEvent {
	e := proofEvent{
		Event:             event,
		ToolName:          rec.ToolName,
		Timestamp:         rec.Timestamp,
		Verified:          rec.Verified,
		OnchainCompatible: rec.OnchainCompatible,
		ProofID:           proofID,
		DisplayResponse:   rec.DisplayResponse,
		RedactionMetadata: rec.RedactionMetadata,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	if rec.DisplayResponse != nil && rec.RedactionMetadata != nil {
		if serialized, err := json.Marshal(rec.DisplayResponse); err == nil {
			if ranges, err := redaction.FieldRanges(serialized, rec.RedactionMetadata.RedactedPaths); err == nil {
				e.MaskedRanges = ranges
			}
		}
	}
	return e
}

func (n *Notifier) send(event proofEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to encode proof event", zap.Error(err))
		return
	}
	message := append([]byte(proofEventPrefix), raw...)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		conn, _, err := websocket.DefaultDialer.Dial(n.url, nil)
		if err != nil {
			n.logger.Warn("progress dial failed",
				zap.String("url", n.url),
				zap.Error(err),
			)
			return
		}
		n.conn = conn
	}
	if err := n.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		n.logger.Warn("progress write failed", zap.Error(err))
		n.conn.Close()
		n.conn = nil
	}
}
