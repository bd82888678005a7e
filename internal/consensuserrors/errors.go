// Package consensuserrors defines the sentinel error kinds shared across
// the consensus core, following the error-kind pattern used throughout
// this repository's packages.
package consensuserrors

import "errors"

// CCoK builder/verify errors.
var (
	ErrInvalidPosition      = errors.New("ccok: position out of range")
	ErrDuplicateSignature   = errors.New("ccok: signature already set for position")
	ErrZeroWeight           = errors.New("ccok: participant has zero weight")
	ErrInsufficientWeight   = errors.New("ccok: signed weight below proven weight")
	ErrCoinMismatch         = errors.New("ccok: re-derived coin resolves to a different position")
	ErrRevealNotSigned      = errors.New("ccok: revealed slot carries no signature")
	ErrInvalidProof         = errors.New("ccok: merkle multi-proof failed to verify")
	ErrSignatureVerification = errors.New("ccok: signature verification failed")
)

// Hash-chain errors.
var (
	ErrInvalidHashChainReveal = errors.New("hashchain: reveal does not chain to commitment")
)

// Blockchain driver errors.
var (
	ErrPrevHashMismatch  = errors.New("blockchain: prev_hash does not match chain tip")
	ErrUnknownValidator  = errors.New("blockchain: proposer is not a known validator")
	ErrMalformedMessage  = errors.New("network: malformed message")
	ErrNoValidators      = errors.New("leader: validator set is empty")
	ErrSignatureVerify   = errors.New("blockchain: signature verification failed")
	ErrBlockAlreadyKnown = errors.New("blockchain: block already present")
)

// Merkle errors.
var (
	ErrEmptyLeafSet       = errors.New("merkle: cannot build a tree with zero leaves")
	ErrPositionsUnsorted  = errors.New("merkle: proof positions must be sorted ascending")
	ErrPositionOutOfRange = errors.New("merkle: position out of range")
)
