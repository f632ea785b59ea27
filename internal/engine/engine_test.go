package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/config"
	"github.com/tinyzkp/engine/internal/proofio"
	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/stream"
)

func devEngine(t *testing.T, degree int) *Engine {
	t.Helper()
	s, err := srs.GenerateDev(degree, 42)
	require.NoError(t, err)
	return &Engine{Cfg: config.Default(), SRS: s}
}

func rowsOf(t *testing.T, raw [][]uint64) []stream.Row {
	t.Helper()
	out := make([]stream.Row, len(raw))
	for i, r := range raw {
		regs := make([]fr.Element, len(r))
		for j, v := range r {
			regs[j].SetUint64(v)
		}
		out[i] = stream.Row{Regs: regs}
	}
	return out
}

// TestTinyValidProof covers §8 boundary scenario 1: N=8, k=3, b_blk=2.
func TestTinyValidProof(t *testing.T) {
	raw := [][]uint64{
		{1, 2, 3}, {2, 4, 6}, {3, 6, 9}, {4, 8, 12},
		{5, 10, 15}, {6, 12, 18}, {7, 14, 21}, {8, 16, 24},
	}
	rs := &stream.SliceRestreamer{Rows: rowsOf(t, raw)}
	spec := air.WithCyclicSigma(3)

	e := devEngine(t, 10)
	req := ProveRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1"}
	proofBytes, err := e.Prove(context.Background(), req, rs)
	require.NoError(t, err)
	require.Less(t, len(proofBytes), 2048)

	vres := e.Verify(VerifyRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1"}, proofBytes)
	require.True(t, vres.OK)
	require.NoError(t, vres.Reason)
}

// TestNonPowerOfTwoRows covers §8 boundary scenario 2: rows=3000 rounds up
// to N=4096 under an odd, non-dividing tile size.
func TestNonPowerOfTwoRows(t *testing.T) {
	k := 2
	rows := make([]stream.Row, 3000)
	for i := range rows {
		regs := make([]fr.Element, k)
		regs[0].SetUint64(uint64(i))
		regs[1].SetUint64(uint64(i))
		rows[i] = stream.Row{Regs: regs}
	}
	rs := &stream.SliceRestreamer{Rows: rows}
	spec := air.WithCyclicSigma(k)

	e := devEngine(t, 4100)
	req := ProveRequest{Rows: 3000, BBlk: 73, Spec: spec, ProtocolLabel: "tinyzkp.v1"}

	plan, err := e.Plan(PlanRequest{Rows: 3000, BBlk: 73, K: k})
	require.NoError(t, err)
	require.EqualValues(t, 4096, plan.N)

	proofBytes, err := e.Prove(context.Background(), req, rs)
	require.NoError(t, err)

	vres := e.Verify(VerifyRequest{Rows: 3000, BBlk: 73, Spec: spec, ProtocolLabel: "tinyzkp.v1"}, proofBytes)
	require.True(t, vres.OK)
}

// TestTamperSweep covers §8 boundary scenario 3: flip one byte at a set of
// semantically distinct offsets (header magic, a digest byte, a wire
// commitment byte, inside the evaluations block, an opening proof byte,
// the CRC trailer) and require every mutant rejected.
func TestTamperSweep(t *testing.T) {
	k := 2
	rows := make([]stream.Row, 16)
	for i := range rows {
		rows[i] = stream.Row{Regs: make([]fr.Element, k)}
	}
	rs := &stream.SliceRestreamer{Rows: rows}
	spec := air.WithCyclicSigma(k)

	e := devEngine(t, 20)
	req := ProveRequest{Rows: 16, BBlk: 4, Spec: spec, ProtocolLabel: "tinyzkp.v1"}
	proofBytes, err := e.Prove(context.Background(), req, rs)
	require.NoError(t, err)

	// The G1 digest starts at byte 90: magic(4) version(2) curve(2) n(8)
	// k(4) b_blk(4) zh_c(32) omega(32) basis(1) flags(1).
	offsets := []int{
		0,
		90,
		len(proofBytes) / 3,
		len(proofBytes) / 2,
		len(proofBytes) - 10,
		len(proofBytes) - 1,
	}
	vreq := VerifyRequest{Rows: 16, BBlk: 4, Spec: spec, ProtocolLabel: "tinyzkp.v1"}
	for _, off := range offsets {
		if off < 0 || off >= len(proofBytes) {
			continue
		}
		mutant := append([]byte(nil), proofBytes...)
		mutant[off] ^= 0x01
		res := e.Verify(vreq, mutant)
		require.False(t, res.OK, "offset %d: tampered proof must not verify", off)
	}
}

// TestSRSMismatch covers §8 boundary scenario 4: verifying against a
// different SRS must fail on the digest check before any pairing work.
func TestSRSMismatch(t *testing.T) {
	k := 2
	rows := make([]stream.Row, 8)
	for i := range rows {
		rows[i] = stream.Row{Regs: make([]fr.Element, k)}
	}
	rs := &stream.SliceRestreamer{Rows: rows}
	spec := air.WithCyclicSigma(k)

	eA := devEngine(t, 12)
	req := ProveRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1"}
	proofBytes, err := eA.Prove(context.Background(), req, rs)
	require.NoError(t, err)

	sB, err := srs.GenerateDev(12, 43)
	require.NoError(t, err)
	eB := &Engine{Cfg: config.Default(), SRS: sB}
	vres := eB.Verify(VerifyRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1"}, proofBytes)
	require.False(t, vres.OK)
}

// TestOversizeRequest covers §8 boundary scenario 5: a domain request past
// the loaded SRS's capacity is rejected by the planner, DomainTooLarge,
// before any proving work begins.
func TestOversizeRequest(t *testing.T) {
	e := devEngine(t, 8)
	_, err := e.Plan(PlanRequest{Rows: 1 << 20, K: 1})
	require.Error(t, err)
}

// TestPlanIdempotent exercises the round-trip law: planning {rows, b_blk}
// then re-planning with the returned N yields the same N and ω.
func TestPlanIdempotent(t *testing.T) {
	e := devEngine(t, 200)
	first, err := e.Plan(PlanRequest{Rows: 100, K: 1})
	require.NoError(t, err)

	second, err := e.Plan(PlanRequest{Rows: first.N, BBlk: first.BBlk, K: 1})
	require.NoError(t, err)

	require.Equal(t, first.N, second.N)
	require.Equal(t, first.OmegaHex, second.OmegaHex)
}

// TestPlanCachePersistsAcrossCalls exercises the CBOR-backed plan cache: a
// second Plan call against the same CachePath must return the identical N
// without needing e.SRS (set to nil here, so Plan skips the SRS-capacity
// check on both calls).
func TestPlanCachePersistsAcrossCalls(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "plan-cache.cbor")
	e := &Engine{Cfg: config.Default()}

	first, err := e.Plan(PlanRequest{Rows: 500, K: 2, CachePath: cachePath})
	require.NoError(t, err)
	require.EqualValues(t, 512, first.N)

	second, err := e.Plan(PlanRequest{Rows: 500, K: 2, CachePath: cachePath})
	require.NoError(t, err)
	require.Equal(t, first.N, second.N)
	require.Equal(t, first.OmegaHex, second.OmegaHex)
}

// TestProveVerifyRoundTripWithShiftOpening exercises the engine wiring of
// the optional shifted-point opening end to end.
func TestProveVerifyRoundTripWithShiftOpening(t *testing.T) {
	k := 3
	rows := make([]stream.Row, 8)
	for i := range rows {
		rows[i] = stream.Row{Regs: make([]fr.Element, k)}
	}
	rs := &stream.SliceRestreamer{Rows: rows}
	spec := air.WithCyclicSigma(k)

	e := devEngine(t, 12)
	req := ProveRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1", EnableShiftOpening: true}
	proofBytes, err := e.Prove(context.Background(), req, rs)
	require.NoError(t, err)

	decoded, err := proofio.Decode(proofBytes)
	require.NoError(t, err)
	require.NotNil(t, decoded.ShiftOpening)

	vres := e.Verify(VerifyRequest{Rows: 8, BBlk: 2, Spec: spec, ProtocolLabel: "tinyzkp.v1", EnableShiftOpening: true}, proofBytes)
	require.True(t, vres.OK)
}
