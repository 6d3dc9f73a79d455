// Package proofs turns raw proof-generation responses into structured proof
// records and submits them to an attestation service.
package proofs

import (
	"time"

	"zkproxy/shared"
)

// DefaultToolName labels proofs for calls that carried no tool name.
const DefaultToolName = "direct-fetch"

// timeNow is swapped in tests.
var timeNow = time.Now

// Extract derives a proof record from a decoded proof-generation response.
// A response without a "proof" field yields nil: not every call produces a
// proof and that is not an error. The proof blob embeds both the proof value
// and, when present, the on-chain artifact; its presence also sets the
// on-chain-compatible flag.
func Extract(response map[string]any, toolName string, request shared.RequestSnapshot) *shared.ProofRecord {
	proofValue, ok := response["proof"]
	if !ok || proofValue == nil {
		return nil
	}

	if toolName == "" {
		toolName = DefaultToolName
	}

	proof := map[string]any{"proof": proofValue}
	onchainProof, onchainCompatible := response["onchainProof"]
	if onchainCompatible {
		proof["onchainProof"] = onchainProof
	}

	verified, _ := response["verified"].(bool)

	return &shared.ProofRecord{
		ToolName:          toolName,
		Timestamp:         timeNow().Unix(),
		Request:           request,
		Response:          response,
		Proof:             proof,
		Verified:          verified,
		OnchainCompatible: onchainCompatible,
	}
}
