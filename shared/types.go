package shared

// RequestSnapshot captures the request a proof attests to, for audit
// purposes. The body is the caller's original body, before any hidden
// parameters were replaced with placeholders.
type RequestSnapshot struct {
	URL  string         `json:"url"`
	Body map[string]any `json:"body,omitempty"`
}

// RedactionMetadata tracks which fields were masked in the display version
// of a proof's response.
type RedactionMetadata struct {
	RedactedFieldCount int      `json:"redacted_field_count"`
	RedactedPaths      []string `json:"redacted_paths"`
	WasRedacted        bool     `json:"was_redacted"`
}

// ProofRecord is the structured proof produced for a single proxied tool
// call. It is immutable from the moment it is constructed: the same record
// is handed to the caller and, independently, to the attestation submitter,
// and neither side writes to it afterwards.
type ProofRecord struct {
	ToolName  string          `json:"tool_name"`
	Timestamp int64           `json:"timestamp"`
	Request   RequestSnapshot `json:"request"`
	Response  map[string]any  `json:"response"`
	Proof     map[string]any  `json:"proof"`

	// Id assigned by an attestation service. Never set by this module's
	// own submission path (the record is shared across goroutines); ids
	// surface through the event sink instead. The field exists for
	// records decoded from or prepared for external stores.
	ProofID string `json:"proof_id,omitempty"`
	Verified          bool            `json:"verified"`
	OnchainCompatible bool            `json:"onchain_compatible"`

	// Display version of the response with sensitive fields masked
	DisplayResponse map[string]any `json:"display_response,omitempty"`

	// Metadata about which fields were masked in DisplayResponse
	RedactionMetadata *RedactionMetadata `json:"redaction_metadata,omitempty"`
}

// AttestationMode is the resolved tri-state attestation signal: the
// configuration can be entirely absent, present but disabled, or enabled.
// Absent and disabled behave identically; they only log differently.
type AttestationMode int

const (
	AttestationAbsent AttestationMode = iota
	AttestationDisabled
	AttestationEnabled
)

func (m AttestationMode) String() string {
	switch m {
	case AttestationDisabled:
		return "disabled"
	case AttestationEnabled:
		return "enabled"
	default:
		return "absent"
	}
}

// AttestationConfig configures automatic proof submission to an attestation
// service. Read-only after construction.
type AttestationConfig struct {
	// Base URL of the attestation service (e.g. "http://localhost:3001")
	ServiceURL string `json:"service_url"`

	// Whether proofs are automatically submitted
	Enabled bool `json:"enabled"`

	// Optional workflow stage label (e.g. "pricing", "payment", "booking").
	// Defaults to "general" at submission time.
	WorkflowStage string `json:"workflow_stage,omitempty"`

	// Session id grouping related proofs. Generated per request if empty.
	SessionID string `json:"session_id,omitempty"`

	// Identity string attributed to submissions
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// NewAttestationConfig creates an enabled attestation config for automatic
// proof submission.
func NewAttestationConfig(serviceURL string) *AttestationConfig {
	return &AttestationConfig{ServiceURL: serviceURL, Enabled: true, SubmittedBy: "unknown-agent"}
}

// WithStage creates an enabled attestation config with a workflow stage.
func (c *AttestationConfig) WithStage(stage string) *AttestationConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.WorkflowStage = stage
	return &clone
}

// Mode resolves the tri-state attestation signal. A nil receiver is the
// "absent" state.
func (c *AttestationConfig) Mode() AttestationMode {
	switch {
	case c == nil:
		return AttestationAbsent
	case !c.Enabled:
		return AttestationDisabled
	default:
		return AttestationEnabled
	}
}
