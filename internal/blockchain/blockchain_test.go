package blockchain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/niropok/sidechain/internal/ccok"
	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/pqsig"
)

func TestAdmitGenesisAcceptsID1(t *testing.T) {
	priv, err := pqsig.KeyGen()
	require.NoError(t, err)
	bc := New(DefaultConfig(), "node1", priv, nil)
	genesis := &core.Block{ID: 1}
	require.NoError(t, bc.AdmitGenesis(genesis))
	require.Equal(t, uint64(1), bc.CurrentHeight())
}

func TestAdmitGenesisRejectsNonOneID(t *testing.T) {
	priv, err := pqsig.KeyGen()
	require.NoError(t, err)
	bc := New(DefaultConfig(), "node1", priv, nil)
	require.Error(t, bc.AdmitGenesis(&core.Block{ID: 2}))
}

func TestVerifyBlockRejectsPrevHashMismatch(t *testing.T) {
	priv, err := pqsig.KeyGen()
	require.NoError(t, err)
	bc := New(DefaultConfig(), "node1", priv, nil)
	genesis := &core.Block{ID: 1}
	require.NoError(t, bc.AdmitGenesis(genesis))

	bad := &core.Block{ID: 2, PrevHash: core.Hash32{0xFF}}
	require.Error(t, bc.VerifyBlock(bad))
}

func TestPublicKeyLookup(t *testing.T) {
	priv, err := pqsig.KeyGen()
	require.NoError(t, err)
	bc := New(DefaultConfig(), "node1", priv, nil)

	_, ok := bc.PublicKey("node1")
	require.False(t, ok, "no key registered yet")

	bc.RegisterPublicKey("node1", priv.Public())
	pub, ok := bc.PublicKey("node1")
	require.True(t, ok)
	require.Equal(t, priv.Public(), pub)
}

// TestReceiveSignatureOutOfOrderStillProducesVerifiableCertificate delivers
// signatures in a shuffled order, not ascending validator position, since
// that is the normal case for a gossip network: nothing guarantees
// signatures arrive in the order buildCertificateLocked needs them fed to
// the CCoK builder.
func TestReceiveSignatureOutOfOrderStillProducesVerifiableCertificate(t *testing.T) {
	selfPriv, err := pqsig.KeyGen()
	require.NoError(t, err)
	bc := New(DefaultConfig(), "node0", selfPriv, nil)

	genesis := &core.Block{ID: 1}
	require.NoError(t, bc.AdmitGenesis(genesis))

	type validator struct {
		addr string
		priv *pqsig.PrivateKey
	}
	stakes := []uint64{10, 20, 30, 40}
	validators := make([]validator, len(stakes))
	for i, stake := range stakes {
		priv, err := pqsig.KeyGen()
		require.NoError(t, err)
		addr := fmt.Sprintf("v%d", i)
		bc.Validators().Upsert(addr, stake)
		bc.RegisterPublicKey(addr, priv.Public())
		validators[i] = validator{addr: addr, priv: priv}
	}

	block2 := &core.Block{
		ID:              2,
		PrevHash:        genesis.HeaderHash(),
		MerkleRootOfTxs: core.ComputeMerkleRootOfTxs(nil),
		ProposerAddress: "node0",
	}
	bc.blocks = append(bc.blocks, block2)
	bc.byID[block2.ID] = block2

	msg := []byte(block2.HeaderHash().Hex())
	sigs := make([]*core.BlockSignature, len(validators))
	for i, v := range validators {
		sig, err := v.priv.Sign(msg)
		require.NoError(t, err)
		sigs[i] = &core.BlockSignature{
			BlockID:        block2.ID,
			BlockHashHex:   block2.HeaderHash().Hex(),
			SenderAddress:  v.addr,
			SignatureBytes: sig,
		}
	}

	// Deliberately not ascending by validator position.
	arrivalOrder := []int{2, 0, 3, 1}
	for _, i := range arrivalOrder {
		bc.ReceiveSignature(sigs[i])
	}

	require.NotNil(t, bc.lastCertificate, "expected a certificate once every validator signed")
	require.Equal(t, block2.ID, bc.lastCertificate.blockID)

	snapshot := bc.validators.Snapshot()
	participants := make([]ccok.Participant, len(snapshot))
	for i, a := range snapshot {
		participants[i] = ccok.Participant{PublicKey: bc.pubKeys[a.Address], Weight: a.Stake}
	}
	params := ccok.Params{
		Msg:           msg,
		ProvenWeight:  bc.validators.TotalStake(),
		SecurityParam: bc.cfg.SecurityParam,
	}
	builder, err := ccok.NewBuilder(params, participants)
	require.NoError(t, err)

	require.NoError(t, bc.lastCertificate.cert.Verify(params, builder.PartyTreeRoot()),
		"certificate built from out-of-order signature arrival must still verify")
}
