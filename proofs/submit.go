package proofs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"zkproxy/shared"
)

// submitPath is the attestation service's submission endpoint.
const submitPath = "/proofs/submit"

// defaultSubmitTimeout bounds a single submission round trip.
const defaultSubmitTimeout = 2 * time.Minute

// submissionPayload is the wire shape expected by the attestation service.
type submissionPayload struct {
	SessionID         string                    `json:"session_id"`
	ToolName          string                    `json:"tool_name"`
	Timestamp         int64                     `json:"timestamp"`
	Request           shared.RequestSnapshot    `json:"request"`
	Response          map[string]any            `json:"response"`
	Proof             map[string]any            `json:"proof"`
	Verified          bool                      `json:"verified"`
	OnchainCompatible bool                      `json:"onchain_compatible"`
	SubmittedBy       string                    `json:"submitted_by"`
	WorkflowStage     string                    `json:"workflow_stage"`
	DisplayResponse   map[string]any            `json:"display_response,omitempty"`
	RedactionMetadata *shared.RedactionMetadata `json:"redaction_metadata,omitempty"`
	ProofDigest       string                    `json:"proof_digest,omitempty"`
}

// submitResponse is the attestation service's reply.
type submitResponse struct {
	ProofID string `json:"proof_id"`
}

// Submitter posts proof records to an attestation service. Submission is
// fire-and-forget from the caller's perspective: no retry, no persistence,
// and failures surface only through the event sink. A proof (identified by
// its digest) is submitted at most once per Submitter.
type Submitter struct {
	httpClient *http.Client
	logger     *shared.Logger
	sink       shared.EventSink

	mu        sync.Mutex
	submitted map[string]struct{}
}

// NewSubmitter creates a submitter. A nil httpClient gets a dedicated client
// with a bounded timeout; nil logger/sink get no-op equivalents.
func NewSubmitter(httpClient *http.Client, logger *shared.Logger, sink shared.EventSink) *Submitter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultSubmitTimeout}
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	if sink == nil {
		sink = shared.NewLogSink(logger)
	}
	return &Submitter{
		httpClient: httpClient,
		logger:     logger,
		sink:       sink,
		submitted:  make(map[string]struct{}),
	}
}

// Submit posts a proof record to the attestation service and returns the
// service-assigned proof id. A record whose digest was already submitted is
// a no-op and returns the empty id.
func (s *Submitter) Submit(ctx context.Context, rec *shared.ProofRecord, cfg *shared.AttestationConfig) (string, error) {
	if cfg.Mode() != shared.AttestationEnabled {
		return "", nil
	}

	digest := Digest(rec)
	s.mu.Lock()
	if _, done := s.submitted[digest]; done {
		s.mu.Unlock()
		s.logger.Debug("proof already submitted, skipping",
			zap.String("tool_name", rec.ToolName),
			zap.String("proof_digest", digest),
		)
		return "", nil
	}
	s.submitted[digest] = struct{}{}
	s.mu.Unlock()

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("agent-%s-%d", rec.ToolName, time.Now().Unix())
	}
	stage := cfg.WorkflowStage
	if stage == "" {
		stage = "general"
	}

	payload := submissionPayload{
		SessionID:         sessionID,
		ToolName:          rec.ToolName,
		Timestamp:         rec.Timestamp,
		Request:           rec.Request,
		Response:          rec.Response,
		Proof:             rec.Proof,
		Verified:          rec.Verified,
		OnchainCompatible: rec.OnchainCompatible,
		SubmittedBy:       cfg.SubmittedBy,
		WorkflowStage:     stage,
		DisplayResponse:   rec.DisplayResponse,
		RedactionMetadata: rec.RedactionMetadata,
		ProofDigest:       digest,
	}

	proofID, err := s.post(ctx, cfg.ServiceURL, payload)
	if err != nil {
		s.sink.AttestationFailed(rec, err)
		return "", err
	}

	s.sink.AttestationSubmitted(rec, proofID)
	return proofID, nil
}

func (s *Submitter) post(ctx context.Context, serviceURL string, payload submissionPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &SubmissionError{ServiceURL: serviceURL, Message: "failed to encode payload", Cause: err}
	}

	submitURL := serviceURL + submitPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(body))
	if err != nil {
		return "", &SubmissionError{ServiceURL: serviceURL, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &SubmissionError{ServiceURL: serviceURL, Message: "failed to reach attestation service", Cause: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmissionError{
			ServiceURL: serviceURL,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &SubmissionError{ServiceURL: serviceURL, Message: "invalid attestation response", Cause: err}
	}
	if parsed.ProofID == "" {
		return "", &SubmissionError{ServiceURL: serviceURL, Message: "no proof_id in attestation response"}
	}
	return parsed.ProofID, nil
}
