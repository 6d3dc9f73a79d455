package client

import (
	"fmt"
)

// ProxyError is the base error type for all client errors
type ProxyError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   error  `json:"cause,omitempty"`
}

// Error implements the error interface
func (e *ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// TransportError represents a failed proxy round trip: a non-2xx status, a
// connection failure, or a timeout. Status code and body text are surfaced
// verbatim to the caller.
type TransportError struct {
	*ProxyError
	StatusCode int    `json:"status_code,omitempty"` // 0 when no response was received
	Body       string `json:"body,omitempty"`
}

// NewTransportError creates a transport error for a non-2xx response
func NewTransportError(statusCode int, body string) *TransportError {
	return &TransportError{
		ProxyError: &ProxyError{
			Type:    "transport_error",
			Message: fmt.Sprintf("Proxy request failed with status %d: %s", statusCode, body),
		},
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewConnectionError creates a transport error for a failed connection
func NewConnectionError(target string, cause error) *TransportError {
	return &TransportError{
		ProxyError: &ProxyError{
			Type:    "transport_error",
			Message: fmt.Sprintf("Failed to reach %s", target),
			Cause:   cause,
		},
	}
}

// DecodeError represents an unparseable proxy response
type DecodeError struct {
	*ProxyError
}

// NewDecodeError creates a new decode error
func NewDecodeError(cause error) *DecodeError {
	return &DecodeError{
		ProxyError: &ProxyError{
			Type:    "decode_error",
			Message: "Failed to decode proxy response as JSON",
			Cause:   cause,
		},
	}
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	*ProxyError
	Field string `json:"field"` // Which configuration field is invalid
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field string, message string) *ConfigurationError {
	return &ConfigurationError{
		ProxyError: &ProxyError{
			Type:    "configuration_error",
			Message: fmt.Sprintf("Configuration error in field '%s': %s", field, message),
		},
		Field: field,
	}
}
