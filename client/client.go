// Package client implements the privacy-preserving request-forwarding
// proxy. It routes outbound tool calls through either a standard HTTP proxy
// or a zkfetch proof-generation wrapper, stripping caller-designated
// sensitive fields from the wire payload before anything leaves the process
// and scheduling attestation submission off the caller's path.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"zkproxy/options"
	"zkproxy/proofs"
	"zkproxy/redaction"
	"zkproxy/shared"
	"zkproxy/tasks"
)

// zkfetchPath is the proof-generation endpoint on the configured URL.
const zkfetchPath = "/zkfetch"

// Result is what a proxied call returns: the decoded response envelope, the
// decoded tool result, and the proof record when one was collected. The
// attestation handle lets tests await the background submission; the primary
// result never depends on it.
type Result struct {
	// Full decoded response from the proxy or proof-generation service.
	// A non-object JSON reply (array or scalar) is wrapped under "data".
	Response map[string]any

	// The upstream tool result ("data" field), JSON-decoded when it
	// arrived as an encoded string. nil in plain mode.
	Data any

	// Proof record, when the response carried a proof
	Proof *shared.ProofRecord

	// Handle of the scheduled attestation submission, when one was
	// scheduled. Its failure never alters this result.
	Attestation *tasks.Handle
}

// Client routes HTTP requests through a proxy server with optional proof
// collection and attestation. Safe for concurrent use; configuration is
// read-only after New.
type Client struct {
	config     ProxyConfig
	httpClient *http.Client
	logger     *shared.Logger
	sink       shared.EventSink
	spawner    tasks.Spawner
	ownSpawner *tasks.GoSpawner
	submitter  *proofs.Submitter
}

// New creates a Client from the given configuration.
func New(config ProxyConfig) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.Mode == "" {
		config.Mode = ModePlain
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}
	sink := config.Sink
	if sink == nil {
		sink = shared.NewLogSink(logger)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
		if config.Mode == ModePlain {
			proxyURL, err := url.Parse(config.URL)
			if err != nil {
				return nil, NewConfigurationError("URL", err.Error())
			}
			httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	c := &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		sink:       sink,
		spawner:    config.Spawner,
		submitter:  proofs.NewSubmitter(nil, logger, sink),
	}
	if c.spawner == nil {
		c.ownSpawner = tasks.NewGoSpawner(logger)
		c.spawner = c.ownSpawner
	}
	return c, nil
}

// Close stops accepting new background work and waits for in-flight
// attestation submissions to finish. Only spawners created by New are
// closed; an injected spawner stays under the caller's control.
func (c *Client) Close() {
	if c.ownSpawner != nil {
		c.ownSpawner.Close()
	}
}

// Get makes a GET request through the proxy.
func (c *Client) Get(ctx context.Context, url string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, url, nil)
}

// Post makes a POST request through the proxy.
func (c *Client) Post(ctx context.Context, url string, body any) (*Result, error) {
	return c.Request(ctx, http.MethodPost, url, body)
}

// Put makes a PUT request through the proxy.
func (c *Client) Put(ctx context.Context, url string, body any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, url, body)
}

// Delete makes a DELETE request through the proxy.
func (c *Client) Delete(ctx context.Context, url string) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, url, nil)
}

// Request makes a generic request through the proxy, extracting the tool
// name from the body when one is embedded.
func (c *Client) Request(ctx context.Context, method, url string, body any) (*Result, error) {
	return c.Call(ctx, method, url, body, "")
}

// Call is Request with an explicit tool name hint. The hint wins over any
// name embedded in the body.
func (c *Client) Call(ctx context.Context, method, url string, body any, toolName string) (*Result, error) {
	logger := c.logger.WithRequestID(uuid.NewString())
	if c.config.Mode == ModeZKFetch {
		return c.zkfetchRequest(ctx, logger, method, url, body, toolName)
	}
	return c.plainRequest(ctx, logger, method, url, body)
}

// normalizedBody is a request body in the forms the pipeline needs.
type normalizedBody struct {
	structured map[string]any // parsed form; nil when not a JSON object
	serialized string         // pre-serialized form; "" when structured
	isSerial   bool           // body arrived already serialized
}

// normalizeBody accepts the body shapes callers pass: nil, a structured
// map, or an already-serialized JSON string. Anything unparseable is kept
// as an opaque value; hiding then falls through without touching it.
func normalizeBody(body any) normalizedBody {
	switch b := body.(type) {
	case nil:
		return normalizedBody{}
	case map[string]any:
		return normalizedBody{structured: b}
	case string:
		return normalizedBody{serialized: b, isSerial: true}
	case []byte:
		return normalizedBody{serialized: string(b), isSerial: true}
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return normalizedBody{}
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err == nil {
			return normalizedBody{structured: m}
		}
		return normalizedBody{serialized: string(raw), isSerial: true}
	}
}

// nameSource returns raw JSON bytes to extract the tool name from.
func (n normalizedBody) nameSource() []byte {
	if n.isSerial {
		return []byte(n.serialized)
	}
	if n.structured == nil {
		return nil
	}
	raw, err := json.Marshal(n.structured)
	if err != nil {
		return nil
	}
	return raw
}

// snapshotBody returns the pre-hiding structured body for proof records.
func (n normalizedBody) snapshotBody() map[string]any {
	if n.structured != nil {
		return n.structured
	}
	if n.isSerial {
		var m map[string]any
		if err := json.Unmarshal([]byte(n.serialized), &m); err == nil {
			return m
		}
	}
	return nil
}

// zkfetchRequest routes a request through the proof-generation wrapper:
// resolve options, hide parameters, build the envelope, round trip, extract
// the proof, then schedule attestation without waiting on it.
func (c *Client) zkfetchRequest(
	ctx context.Context,
	logger *shared.Logger,
	method, rawURL string,
	body any,
	toolName string,
) (*Result, error) {
	norm := normalizeBody(body)
	if toolName == "" {
		toolName = options.ExtractToolName(norm.nameSource())
	}
	opts := options.Resolve(toolName, c.config.ToolOptions, c.config.DefaultOptions)

	// Audit snapshot keeps the caller's original request; the wire payload
	// below never carries the hidden values again.
	snapshot := shared.RequestSnapshot{URL: rawURL, Body: norm.snapshotBody()}

	hiddenNames := opts.HiddenParameters()
	hidden := HiddenParams{}
	finalURL := rawURL
	serialized := ""
	switch {
	case norm.isSerial:
		serialized, hidden = hideInSerialized(norm.serialized, hiddenNames)
		finalURL = hideQueryParameters(rawURL, hiddenNames, hidden)
	case norm.structured != nil:
		finalBody, rewrittenURL, values := hideParameters(norm.structured, rawURL, hiddenNames)
		hidden, finalURL = values, rewrittenURL
		if len(finalBody) > 0 {
			raw, err := json.Marshal(finalBody)
			if err != nil {
				return nil, NewConfigurationError("body", err.Error())
			}
			serialized = string(raw)
		}
	default:
		finalURL = hideQueryParameters(rawURL, hiddenNames, hidden)
	}

	payload := buildZKFetchPayload(finalURL, method, serialized, opts, hidden)
	if c.config.Debug {
		logger.Debug("zkfetch payload assembled",
			zap.String("url", finalURL),
			zap.String("method", method),
			zap.String("tool_name", toolName),
			zap.Int("hidden_params", len(hidden)),
			zap.Int("redactions", len(payload.Redactions)),
		)
	}

	respMap, err := c.postZKFetch(ctx, payload)
	if err != nil {
		return nil, err
	}

	result := &Result{Response: respMap, Data: decodeData(respMap)}

	record := proofs.Extract(respMap, toolName, snapshot)
	if record == nil {
		return result, nil
	}
	if display, meta := redaction.BuildDisplay(respMap, opts.Redactions, opts.ResponseRedactionPaths, logger); meta != nil {
		record.DisplayResponse = display
		record.RedactionMetadata = meta
	}
	result.Proof = record
	c.sink.ProofExtracted(record)

	if mode := c.config.Attestation.Mode(); mode == shared.AttestationEnabled {
		cfg := c.config.Attestation
		// The record is shared with the caller and must not be written
		// here; the assigned proof id surfaces through the event sink.
		result.Attestation = c.spawner.Spawn("attestation-submit", func(taskCtx context.Context) error {
			_, err := c.submitter.Submit(taskCtx, record, cfg)
			return err
		})
	} else {
		logger.Debug("attestation submission skipped",
			zap.Stringer("attestation_mode", mode),
		)
	}
	return result, nil
}

// postZKFetch performs the proof-generation round trip.
func (c *Client) postZKFetch(ctx context.Context, payload zkfetchPayload) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, NewConfigurationError("payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+zkfetchPath, bytes.NewReader(raw))
	if err != nil {
		return nil, NewConfigurationError("URL", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	return c.roundTrip(req)
}

// plainRequest forwards a request through the standard HTTP proxy.
func (c *Client) plainRequest(
	ctx context.Context,
	logger *shared.Logger,
	method, rawURL string,
	body any,
) (*Result, error) {
	norm := normalizeBody(body)
	serialized := norm.serialized
	if norm.structured != nil {
		raw, err := json.Marshal(norm.structured)
		if err != nil {
			return nil, NewConfigurationError("body", err.Error())
		}
		serialized = string(raw)
	}

	if c.config.Debug {
		logger.Debug("routing through HTTP proxy",
			zap.String("proxy_url", c.config.URL),
			zap.String("method", method),
		)
	}

	req, err := buildPlainRequest(ctx, method, rawURL, serialized, &c.config)
	if err != nil {
		return nil, err
	}
	respMap, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	return &Result{Response: respMap}, nil
}

// roundTrip executes the request and unwraps the JSON response. Any non-2xx
// status is a hard failure carrying the status code and body text.
func (c *Client) roundTrip(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewConnectionError(c.config.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(c.config.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewTransportError(resp.StatusCode, string(respBody))
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, NewDecodeError(err)
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj, nil
	}
	// Arrays and scalars are valid upstream replies in plain mode; they
	// land under the data key so Result.Response keeps one shape.
	return map[string]any{"data": decoded}, nil
}

// decodeData unwraps the "data" field of a proof-generation response. The
// upstream result often arrives JSON-encoded as a string.
func decodeData(respMap map[string]any) any {
	data, ok := respMap["data"]
	if !ok {
		return nil
	}
	if s, isString := data.(string); isString && gjson.Valid(s) {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decoded
		}
	}
	return data
}
