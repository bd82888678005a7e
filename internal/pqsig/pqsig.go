// Package pqsig provides the {KeyGen, Sign, Verify} black-box contract
// spec.md treats the post-quantum signature scheme as. The scheme itself
// is out of scope; this package only guarantees the wire contract every
// caller in this repository depends on: fixed-length public keys and
// signatures matching the post-quantum scheme's published sizes, so that
// callers never need to special-case key/signature length.
//
// Internally it is backed by ECDSA over P-256, in the teacher's own
// crypto/ecdsa idiom, padded/truncated to the fixed sizes. Swapping in a real lattice-based implementation
// later only touches this package.
package pqsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// PublicKeySize and SignatureSize match the post-quantum scheme's fixed
// byte lengths named in spec.md section 6.
const (
	PublicKeySize = 1312
	SignatureSize = 2420
)

var (
	// ErrInvalidPublicKeySize is returned by ParsePublicKey when a caller
	// hands in a public key that is not exactly PublicKeySize bytes, and by
	// Verify when the key's coordinates are not a point on P-256.
	ErrInvalidPublicKeySize = errors.New("pqsig: public key must be exactly PublicKeySize bytes")
	// ErrInvalidSignatureSize is returned when a caller hands in a
	// signature that is not exactly SignatureSize bytes.
	ErrInvalidSignatureSize = errors.New("pqsig: signature must be exactly SignatureSize bytes")
	// ErrVerificationFailed is returned by Verify when the signature does
	// not validate against the public key and message.
	ErrVerificationFailed = errors.New("pqsig: signature verification failed")
)

// PrivateKey is a validator's signing key. The underlying curve key is
// never serialized; only the fixed-size public key ever crosses the wire.
type PrivateKey struct {
	sk  *ecdsa.PrivateKey
	pub PublicKey
}

// PublicKey is the fixed-size post-quantum public key contract.
type PublicKey [PublicKeySize]byte

// Signature is the fixed-size post-quantum signature contract.
type Signature [SignatureSize]byte

// KeyGen produces a new keypair.
func KeyGen() (*PrivateKey, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "pqsig: generate key")
	}
	return &PrivateKey{sk: sk, pub: packPublicKey(&sk.PublicKey)}, nil
}

// Public returns the fixed-size public key for priv.
func (priv *PrivateKey) Public() PublicKey {
	return priv.pub
}

// Sign produces a fixed-size signature over msg.
func (priv *PrivateKey) Sign(msg []byte) (Signature, error) {
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv.sk, digest[:])
	if err != nil {
		return Signature{}, errors.Wrap(err, "pqsig: sign")
	}
	var sig Signature
	rb := r.Bytes()
	sb := s.Bytes()
	copy(sig[32-len(rb):32], rb)
	copy(sig[64-len(sb):64], sb)
	return sig, nil
}

// Verify checks sig against msg and pub, returning ErrVerificationFailed on
// mismatch.
func Verify(pub PublicKey, msg []byte, sig Signature) error {
	pk, err := unpackPublicKey(pub)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(msg)
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !ecdsa.Verify(pk, digest[:], r, s) {
		return ErrVerificationFailed
	}
	return nil
}

// ParsePublicKey validates and converts a raw byte slice into a PublicKey.
func ParsePublicKey(b []byte) (PublicKey, error) {
	var pub PublicKey
	if len(b) != PublicKeySize {
		return pub, ErrInvalidPublicKeySize
	}
	copy(pub[:], b)
	return pub, nil
}

// ParseSignature validates and converts a raw byte slice into a Signature.
func ParseSignature(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureSize {
		return sig, ErrInvalidSignatureSize
	}
	copy(sig[:], b)
	return sig, nil
}

func packPublicKey(pub *ecdsa.PublicKey) PublicKey {
	var out PublicKey
	xb := pub.X.Bytes()
	yb := pub.Y.Bytes()
	copy(out[32-len(xb):32], xb)
	copy(out[64-len(yb):64], yb)
	// The remaining PublicKeySize-64 bytes stay zero: the post-quantum
	// scheme's real public key carries extra lattice material this
	// black-box substitute has no equivalent for. A constant tag is
	// written at bytes 64..72; unpackPublicKey does not check it.
	binary.BigEndian.PutUint64(out[64:72], 0x5044514b455953) // "PDQKEYS" tag
	return out
}

func unpackPublicKey(pub PublicKey) (*ecdsa.PublicKey, error) {
	curve := elliptic.P256()
	x := new(big.Int).SetBytes(pub[:32])
	y := new(big.Int).SetBytes(pub[32:64])
	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKeySize
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
