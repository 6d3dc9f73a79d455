package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"zkproxy/shared"
)

// Digest returns the Keccak-256 digest of the record's proof blob as a 0x
// hex string. encoding/json sorts object keys, so the encoding is stable for
// equal blobs. The digest identifies a proof across submissions and is the
// guard key against double submission.
func Digest(rec *shared.ProofRecord) string {
	raw, err := json.Marshal(rec.Proof)
	if err != nil {
		// Unencodable blobs still need a usable guard key.
		raw = fmt.Appendf(nil, "%s-%d", rec.ToolName, rec.Timestamp)
	}
	return hexutil.Encode(crypto.Keccak256(raw))
}
