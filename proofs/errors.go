package proofs

import (
	"fmt"
)

// SubmissionError reports a failed attestation submission. It never reaches
// the caller of the primary request; the submitter surfaces it through the
// event sink and the task handle only.
type SubmissionError struct {
	ServiceURL string `json:"service_url"`
	StatusCode int    `json:"status_code,omitempty"` // 0 when no response was received
	Message    string `json:"message"`
	Cause      error  `json:"-"`
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("attestation submission to %s failed: HTTP %d - %s", e.ServiceURL, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("attestation submission to %s failed: %s (caused by: %v)", e.ServiceURL, e.Message, e.Cause)
	}
	return fmt.Sprintf("attestation submission to %s failed: %s", e.ServiceURL, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}
