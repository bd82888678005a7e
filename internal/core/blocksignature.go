package core

import "github.com/niropok/sidechain/internal/pqsig"

// BlockSignature is a validator's attestation over a block hash, per
// spec section 3. The signed payload is the hex-encoded block hash
// treated as bytes, matching the wire format other nodes use to collect
// and compare signatures without needing the full block.
type BlockSignature struct {
	BlockID        uint64
	BlockHashHex   string
	SenderAddress  string
	SignatureBytes pqsig.Signature
}

// Verify checks the signature against the sender's public key and the
// hex-encoded block hash bytes.
func (bs *BlockSignature) Verify(senderPub pqsig.PublicKey) error {
	return pqsig.Verify(senderPub, []byte(bs.BlockHashHex), bs.SignatureBytes)
}
