package client

import (
	"net/http"
	"time"

	"zkproxy/options"
	"zkproxy/shared"
	"zkproxy/tasks"
)

// ProxyMode selects how requests are forwarded.
type ProxyMode string

const (
	// ModePlain forwards requests through a standard HTTP proxy.
	ModePlain ProxyMode = "plain"
	// ModeZKFetch wraps requests in the proof-generation service's
	// zkfetch envelope.
	ModeZKFetch ProxyMode = "zkfetch"
)

// Proof generation is slow; the round-trip timeout is deliberately generous.
const DefaultTimeout = 15 * time.Minute

// ProxyConfig contains all configuration for one Client. Constructed once
// and read-only during use.
type ProxyConfig struct {
	// Proxy or proof-generation service base URL
	// (e.g. "http://localhost:8000" for a zkfetch wrapper)
	URL string

	// Transport mode; defaults to ModePlain
	Mode ProxyMode

	// Optional proxy credentials for ModePlain
	Username string
	Password string

	// Per-tool options, looked up by tool name
	ToolOptions options.Map

	// Fallback options for tools without a specific entry
	DefaultOptions *options.ToolOptions

	// Optional attestation service configuration. nil means no attestation.
	Attestation *shared.AttestationConfig

	// Log request payload structure at debug level
	Debug bool

	// Round-trip timeout; defaults to DefaultTimeout
	Timeout time.Duration

	// Optional collaborators; sensible defaults are installed by New.
	Logger     *shared.Logger
	Sink       shared.EventSink
	Spawner    tasks.Spawner
	HTTPClient *http.Client
}

func (c *ProxyConfig) validate() error {
	if c.URL == "" {
		return NewConfigurationError("URL", "proxy URL is required")
	}
	switch c.Mode {
	case "", ModePlain, ModeZKFetch:
	default:
		return NewConfigurationError("Mode", "must be \"plain\" or \"zkfetch\"")
	}
	if (c.Username == "") != (c.Password == "") {
		return NewConfigurationError("Username", "username and password must be set together")
	}
	return nil
}
