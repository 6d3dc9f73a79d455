package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zkproxy/options"
	"zkproxy/shared"
)

type recordingSink struct {
	mu        sync.Mutex
	extracted int
	proofIDs  []string
	failures  []error
}

func (s *recordingSink) ProofExtracted(rec *shared.ProofRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracted++
}

func (s *recordingSink) AttestationSubmitted(rec *shared.ProofRecord, proofID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofIDs = append(s.proofIDs, proofID)
}

func (s *recordingSink) AttestationFailed(rec *shared.ProofRecord, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func (s *recordingSink) submittedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.proofIDs...)
}

func zkfetchStub(t *testing.T, capture *[]byte, response map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/zkfetch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if capture != nil {
			*capture = raw
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func bookFlightOptions() options.Map {
	return options.Map{
		"book-flight": &options.ToolOptions{
			Private: &options.PrivateOptions{
				HiddenParameters: []string{"passenger_name", "passenger_email"},
			},
		},
	}
}

func TestZKFetchRequestHidesParametersOnWire(t *testing.T) {
	var wirePayload []byte
	srv := zkfetchStub(t, &wirePayload, map[string]any{
		"data": `{"booking_id":"bk-1"}`,
	})
	defer srv.Close()

	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		ToolOptions: bookFlightOptions(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	body := map[string]any{
		"name":            "book-flight",
		"passenger_name":  "John Doe",
		"passenger_email": "a@b.com",
		"from":            "NYC",
	}
	result, err := c.Post(context.Background(), "https://airline.test/book", body)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	wire := string(wirePayload)
	if strings.Contains(wire, `"passenger_name":"John Doe"`) {
		t.Fatalf("original value leaked onto the wire: %s", wire)
	}
	if !strings.Contains(wire, `{passenger_name}`) || !strings.Contains(wire, `{passenger_email}`) {
		t.Fatalf("placeholders missing from the wire: %s", wire)
	}

	var payload struct {
		PrivateOptions map[string]any `json:"privateOptions"`
	}
	if err := json.Unmarshal(wirePayload, &payload); err != nil {
		t.Fatalf("decode wire payload: %v", err)
	}
	pv, ok := payload.PrivateOptions["paramValues"].(map[string]any)
	if !ok {
		t.Fatalf("paramValues missing: %+v", payload.PrivateOptions)
	}
	if pv["passenger_name"] != "John Doe" || pv["passenger_email"] != "a@b.com" {
		t.Fatalf("private values wrong: %+v", pv)
	}

	decoded, ok := result.Data.(map[string]any)
	if !ok || decoded["booking_id"] != "bk-1" {
		t.Fatalf("encoded data string not decoded: %+v", result.Data)
	}
	if result.Proof != nil {
		t.Fatalf("no proof in response, record must be nil: %+v", result.Proof)
	}
}

func TestZKFetchRequestExtractsProofWithOriginalRequest(t *testing.T) {
	srv := zkfetchStub(t, nil, map[string]any{
		"data":     "ok",
		"proof":    map[string]any{"claimData": map[string]any{"provider": "http"}},
		"verified": true,
	})
	defer srv.Close()

	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		ToolOptions: bookFlightOptions(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	body := map[string]any{"name": "book-flight", "passenger_name": "John Doe"}
	result, err := c.Post(context.Background(), "https://airline.test/book", body)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	if result.Proof == nil {
		t.Fatal("expected a proof record")
	}
	if result.Proof.ToolName != "book-flight" {
		t.Fatalf("tool name wrong: %s", result.Proof.ToolName)
	}
	if !result.Proof.Verified {
		t.Fatal("verified flag lost")
	}
	if result.Proof.OnchainCompatible {
		t.Fatal("no onchain proof was present")
	}
	// The audit record keeps the caller's values, not the placeholders.
	if result.Proof.Request.Body["passenger_name"] != "John Doe" {
		t.Fatalf("record body should be pre-hiding: %+v", result.Proof.Request.Body)
	}
	if result.Attestation != nil {
		t.Fatal("no attestation configured, no task should be scheduled")
	}
}

func TestZKFetchRequestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(ProxyConfig{URL: srv.URL, Mode: ModeZKFetch})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Get(context.Background(), "https://airline.test/offers")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if transportErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status wrong: %d", transportErr.StatusCode)
	}
	if !strings.Contains(transportErr.Body, "internal error") {
		t.Fatalf("body lost: %q", transportErr.Body)
	}
}

func TestZKFetchRequestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c, err := New(ProxyConfig{URL: srv.URL, Mode: ModeZKFetch})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Get(context.Background(), "https://airline.test/offers")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %T: %v", err, err)
	}
}

func TestZKFetchRequestSchedulesAttestation(t *testing.T) {
	srv := zkfetchStub(t, nil, map[string]any{
		"data":  "ok",
		"proof": map[string]any{"identifier": "0xabc"},
	})
	defer srv.Close()

	var attestations atomic.Int32
	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proofs/submit" {
			t.Errorf("unexpected attestation path %s", r.URL.Path)
		}
		attestations.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"proof_id": "p-1"})
	}))
	defer attSrv.Close()

	sink := &recordingSink{}
	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		Attestation: shared.NewAttestationConfig(attSrv.URL),
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	result, err := c.Post(context.Background(), "https://airline.test/book", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if result.Attestation == nil {
		t.Fatal("expected a scheduled attestation task")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := result.Attestation.Wait(ctx); err != nil {
		t.Fatalf("attestation task failed: %v", err)
	}
	if got := attestations.Load(); got != 1 {
		t.Fatalf("expected 1 submission, got %d", got)
	}
	if ids := sink.submittedIDs(); len(ids) != 1 || ids[0] != "p-1" {
		t.Fatalf("assigned proof id must surface through the sink: %+v", ids)
	}
}

func TestZKFetchRequestAttestationFailureIsIsolated(t *testing.T) {
	srv := zkfetchStub(t, nil, map[string]any{
		"data":  "ok",
		"proof": map[string]any{"identifier": "0xdef"},
	})
	defer srv.Close()

	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer attSrv.Close()

	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		Attestation: shared.NewAttestationConfig(attSrv.URL),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	result, err := c.Post(context.Background(), "https://airline.test/book", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("attestation failure must not fail the call: %v", err)
	}
	if result.Proof == nil {
		t.Fatal("proof record must survive attestation failure")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := result.Attestation.Wait(ctx); err == nil {
		t.Fatal("expected the attestation task to report its error on the handle")
	}
	if result.Proof.ProofID != "" {
		t.Fatalf("failed submission must not record a proof id: %q", result.Proof.ProofID)
	}
}

func TestAttestationNeverWritesToSharedProofRecord(t *testing.T) {
	srv := zkfetchStub(t, nil, map[string]any{
		"data":  "ok",
		"proof": map[string]any{"identifier": "0x123"},
	})
	defer srv.Close()

	release := make(chan struct{})
	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]any{"proof_id": "p-9"})
	}))
	defer attSrv.Close()

	sink := &recordingSink{}
	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		Attestation: shared.NewAttestationConfig(attSrv.URL),
		Sink:        sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	result, err := c.Post(context.Background(), "https://airline.test/book", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	// The caller may serialize the record while the submission is still in
	// flight; the submission path never writes to the shared record.
	before, err := json.Marshal(result.Proof)
	if err != nil {
		t.Fatalf("marshal during in-flight submission: %v", err)
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := result.Attestation.Wait(ctx); err != nil {
		t.Fatalf("attestation task failed: %v", err)
	}

	after, err := json.Marshal(result.Proof)
	if err != nil {
		t.Fatalf("marshal after submission: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("record changed across the submission:\nbefore: %s\nafter:  %s", before, after)
	}
	if result.Proof.ProofID != "" {
		t.Fatalf("record must not carry the assigned id: %q", result.Proof.ProofID)
	}
	if ids := sink.submittedIDs(); len(ids) != 1 || ids[0] != "p-9" {
		t.Fatalf("assigned id must surface through the sink: %+v", ids)
	}
}

func TestZKFetchNoProofSkipsAttestation(t *testing.T) {
	srv := zkfetchStub(t, nil, map[string]any{"data": "ok"})
	defer srv.Close()

	var attestations atomic.Int32
	attSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attestations.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"proof_id": "p-x"})
	}))
	defer attSrv.Close()

	c, err := New(ProxyConfig{
		URL:         srv.URL,
		Mode:        ModeZKFetch,
		Attestation: shared.NewAttestationConfig(attSrv.URL),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := c.Post(context.Background(), "https://airline.test/book", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	c.Close() // drains any background task before asserting

	if result.Proof != nil || result.Attestation != nil {
		t.Fatalf("nothing to attest without a proof: %+v", result)
	}
	if got := attestations.Load(); got != 0 {
		t.Fatalf("expected 0 submissions, got %d", got)
	}
}

func TestZKFetchSerializedBodyPreservesFormatting(t *testing.T) {
	var wirePayload []byte
	srv := zkfetchStub(t, &wirePayload, map[string]any{"data": "ok"})
	defer srv.Close()

	c, err := New(ProxyConfig{
		URL:  srv.URL,
		Mode: ModeZKFetch,
		DefaultOptions: &options.ToolOptions{
			Private: &options.PrivateOptions{HiddenParameters: []string{"api_key"}},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Post(context.Background(),
		"https://airline.test/search?from=NYC&api_key=secret",
		`{"api_key":"secret", "note":  "spacing matters"}`)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	var payload struct {
		URL           string `json:"url"`
		PublicOptions struct {
			Body *string `json:"body"`
		} `json:"publicOptions"`
	}
	if err := json.Unmarshal(wirePayload, &payload); err != nil {
		t.Fatalf("decode wire payload: %v", err)
	}
	if payload.URL != "https://airline.test/search?from=NYC&api_key={{api_key}}" {
		t.Fatalf("query parameter not hidden: %s", payload.URL)
	}
	if payload.PublicOptions.Body == nil {
		t.Fatal("body missing")
	}
	if !strings.Contains(*payload.PublicOptions.Body, `"note":  "spacing matters"`) {
		t.Fatalf("untouched bytes changed: %s", *payload.PublicOptions.Body)
	}
	if strings.Contains(*payload.PublicOptions.Body, "secret") {
		t.Fatalf("hidden value leaked: %s", *payload.PublicOptions.Body)
	}
}

func TestPlainRequestUsesProxyTransport(t *testing.T) {
	proxied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Proxy-Authorization"); got != "Basic dXNlcjpwYXNz" {
			t.Errorf("proxy auth wrong: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer proxied.Close()

	c, err := New(ProxyConfig{
		URL:      proxied.URL,
		Mode:     ModePlain,
		Username: "user",
		Password: "pass",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	result, err := c.Get(context.Background(), "http://target.test/api")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result.Response["ok"] != true {
		t.Fatalf("response wrong: %+v", result.Response)
	}
	if result.Proof != nil {
		t.Fatal("plain mode never records proofs")
	}
}

func TestPlainRequestNonObjectResponse(t *testing.T) {
	proxied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[1, 2, 3]`)
	}))
	defer proxied.Close()

	c, err := New(ProxyConfig{URL: proxied.URL, Mode: ModePlain})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	result, err := c.Get(context.Background(), "http://target.test/list")
	if err != nil {
		t.Fatalf("array reply must decode: %v", err)
	}
	arr, ok := result.Response["data"].([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("non-object reply must land under data: %+v", result.Response)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  ProxyConfig
	}{
		{"missing URL", ProxyConfig{}},
		{"bad mode", ProxyConfig{URL: "http://p.test", Mode: "socks"}},
		{"lone username", ProxyConfig{URL: "http://p.test", Username: "user"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected a configuration error")
			}
		})
	}
}

func TestNormalizeBodyShapes(t *testing.T) {
	if n := normalizeBody(nil); n.structured != nil || n.isSerial {
		t.Fatalf("nil body wrong: %+v", n)
	}
	if n := normalizeBody(map[string]any{"a": 1}); n.structured == nil {
		t.Fatalf("map body wrong: %+v", n)
	}
	if n := normalizeBody(`{"a":1}`); !n.isSerial || n.serialized != `{"a":1}` {
		t.Fatalf("string body wrong: %+v", n)
	}
	if n := normalizeBody([]byte(`{"a":1}`)); !n.isSerial {
		t.Fatalf("byte body wrong: %+v", n)
	}
	type req struct {
		Name string `json:"name"`
	}
	if n := normalizeBody(req{Name: "x"}); n.structured == nil || n.structured["name"] != "x" {
		t.Fatalf("struct body wrong: %+v", n)
	}
}
