package client

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"zkproxy/options"
)

// DefaultZKFetchTimeoutMS is the upstream fetch timeout sent to the
// proof-generation service when the tool's public options specify none.
const DefaultZKFetchTimeoutMS = 30000

// zkfetchPayload is the envelope POSTed to the proof-generation endpoint.
// The option objects are open maps: unrecognized configured keys pass
// through to the service alongside the recognized ones.
type zkfetchPayload struct {
	URL            string                  `json:"url"`
	PublicOptions  map[string]any          `json:"publicOptions"`
	PrivateOptions map[string]any          `json:"privateOptions"`
	Redactions     []options.RedactionRule `json:"redactions"`
}

// buildZKFetchPayload assembles the zkfetch envelope from the rewritten
// request. serializedBody must already have hidden parameters replaced by
// placeholders; the real values travel only inside privateOptions. A method
// configured in the tool's public options wins over the caller's verb.
func buildZKFetchPayload(
	reqURL string,
	method string,
	serializedBody string,
	opts *options.ToolOptions,
	hidden HiddenParams,
) zkfetchPayload {
	headers := map[string]string{"Content-Type": "application/json"}
	public := make(map[string]any)
	if opts != nil && opts.Public != nil {
		for k, v := range opts.Public.Extra {
			public[k] = v
		}
		for k, v := range opts.Public.Headers {
			headers[k] = v
		}
		if opts.Public.Method != "" {
			method = opts.Public.Method
		}
	}

	var body any
	if serializedBody != "" {
		body = serializedBody
	}
	public["method"] = method
	public["headers"] = headers
	public["body"] = body
	public["timeout"] = opts.TimeoutMS(DefaultZKFetchTimeoutMS)

	var private *options.PrivateOptions
	var redactions []options.RedactionRule
	if opts != nil {
		private = opts.Private
		redactions = opts.Redactions
	}
	if redactions == nil {
		redactions = []options.RedactionRule{}
	}

	return zkfetchPayload{
		URL:            reqURL,
		PublicOptions:  public,
		PrivateOptions: private.WirePayload(hidden),
		Redactions:     redactions,
	}
}

// buildPlainRequest assembles the raw forwarded request for plain proxy
// mode, adding proxy credentials when both are configured.
func buildPlainRequest(
	ctx context.Context,
	method string,
	rawURL string,
	serializedBody string,
	cfg *ProxyConfig,
) (*http.Request, error) {
	var reqBody *strings.Reader
	if serializedBody != "" {
		reqBody = strings.NewReader(serializedBody)
	} else {
		reqBody = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, NewConfigurationError("URL", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	if cfg.Username != "" && cfg.Password != "" {
		req.Header.Set("Proxy-Authorization", "Basic "+basicAuth(cfg.Username, cfg.Password))
	}
	return req, nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
