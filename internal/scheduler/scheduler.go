// Package scheduler orchestrates one proof's four-phase pipeline — Phase W
// (wire commitments), Phase Z (permutation grand product), Phase Q
// (constraint compositor + quotient), and Phase O (openings) — strictly in
// that order, since each phase's transcript absorption depends on the
// commitment produced by the one before it. Generalized from
// original_source/src/scheduler.rs's Prover::prove_with_restreamer and
// Verifier::verify, with the opening phase reworked to use gnark-crypto's
// own v-randomized batched KZG opening (the same kzg.BatchOpenSinglePoint
// call a plonk prover makes to open L, R, O together) in place of the
// original's per-polynomial individual-opening loop.
package scheduler

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"golang.org/x/sync/errgroup"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/lookup"
	"github.com/tinyzkp/engine/internal/pcs"
	"github.com/tinyzkp/engine/internal/permutation"
	"github.com/tinyzkp/engine/internal/quotient"
	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/transcript"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Config fixes the protocol variant in use, per the label the transcript
// binds first — never renegotiated mid-proof. EnableLookups turns on the
// lookup argument's Z_L accumulator (§4 "basis_wires"-adjacent toggle,
// grounded on original_source/src/perm_lookup.rs's feature-gated lookup
// path); with it unset the engine's behavior is exactly the pre-lookup
// protocol.
type Config struct {
	ProtocolLabel      string
	EnableShiftOpening bool
	EnableLookups      bool
	// BasisWires selects how the wire columns' commitments are computed
	// (§4.4's "basis_wires"): pcs.BasisCoeff (default) commits the
	// IFFT'd monomial coefficients directly; pcs.BasisEval commits the
	// streamed evaluations against a precomputed Lagrange basis instead.
	// Both compute the identical G1 point, so a verifier never needs to
	// know which path a prover took to reach it — BasisWires only
	// changes Prove's internal computation, never Verify's.
	BasisWires pcs.Basis
}

// Proof is the engine's in-memory proof artifact; internal/proofio is
// responsible for its binary encoding (§6).
type Proof struct {
	N     uint64
	K     uint32
	BBlk  uint32
	ZhC   fr.Element
	Omega fr.Element

	// BasisWires records which basis (§4.4) the wire commitments above
	// were computed in. It never changes how a verifier checks the
	// proof — both bases commit to the same G1 point — only which basis
	// tag is written to the wire format (proofio) and cross-checked
	// against the verifier's own Config.BasisWires.
	BasisWires pcs.Basis

	G1Digest [32]byte
	G2Digest [32]byte

	SelectorCommitments []bn254.G1Affine
	WireCommitments     []bn254.G1Affine
	ZCommitment         bn254.G1Affine
	QCommitment         bn254.G1Affine
	ZLCommitment        *bn254.G1Affine

	SelectorsAtZeta []fr.Element
	WiresAtZeta     []fr.Element
	ZAtZeta         fr.Element
	ZAtOmegaZeta    *fr.Element
	QAtZeta         fr.Element
	ZLAtZeta        *fr.Element
	ZLAtOmegaZeta   *fr.Element

	Zeta fr.Element

	BatchProof    kzg.BatchOpeningProof
	ShiftOpening  *kzg.OpeningProof
	LookupOpening *kzg.OpeningProof
}

// Prover runs Phase W -> Z -> Q -> O against a fixed domain, SRS, and AIR
// spec.
type Prover struct {
	Cfg    Config
	Domain *domain.Domain
	SRS    *srs.SRS
	Spec   air.Spec
}

// Prove runs the full pipeline over rs, a two-pass-capable witness source
// (Phase Z restreams it). ctx is checked for cancellation between phases.
func (p *Prover) Prove(ctx context.Context, rs stream.Restreamer) (*Proof, error) {
	k := p.Spec.K
	if rs.LenRows() == 0 {
		return nil, zkerr.New(zkerr.WitnessTooShort, "witness has zero rows")
	}
	if uint64(rs.LenRows()) > p.Domain.N {
		return nil, zkerr.New(zkerr.WitnessTooWide, "witness row count exceeds domain size N")
	}

	tr := transcript.New(p.Cfg.ProtocolLabel)
	tr.AbsorbHeader(headerBytes(p.Cfg, p.Domain, p.SRS))

	selectorCommits, selectorCoeffs, err := p.commitSelectors()
	if err != nil {
		return nil, err
	}
	tr.AbsorbSelectorCommitments(selectorCommits)

	if err := ctx.Err(); err != nil {
		return nil, zkerr.Wrap(zkerr.Cancelled, "cancelled before phase W", err)
	}

	wireCommits, wireCoeffs, err := p.commitWireColumns(rs, k)
	if err != nil {
		return nil, err
	}
	beta, gamma := tr.AbsorbWireCommitments(wireCommits)

	if err := ctx.Err(); err != nil {
		return nil, zkerr.Wrap(zkerr.Cancelled, "cancelled before phase Z", err)
	}

	zCommit, zCoeffs, err := p.commitPermutationZ(rs, beta, gamma)
	if err != nil {
		return nil, err
	}

	var zLCommit bn254.G1Affine
	var zLCoeffs []fr.Element
	if p.Cfg.EnableLookups {
		zLCommit, zLCoeffs, err = p.commitLookupZ(rs, beta, gamma)
		if err != nil {
			return nil, err
		}
	}

	var alpha fr.Element
	if p.Cfg.EnableLookups {
		alpha = tr.AbsorbPermZCommitment(zCommit, zLCommit)
	} else {
		alpha = tr.AbsorbPermZCommitment(zCommit)
	}

	if err := ctx.Err(); err != nil {
		return nil, zkerr.Wrap(zkerr.Cancelled, "cancelled before phase Q", err)
	}

	resCfg := air.ResidualConfig{Alpha: alpha, Beta: beta, Gamma: gamma, EnableLookups: p.Cfg.EnableLookups}
	qRes, err := quotient.BuildAndCommit(p.Domain, p.SRS, p.Spec, resCfg, rs)
	if err != nil {
		return nil, err
	}
	zeta := tr.AbsorbQuotientCommitment(qRes.Commitment, p.Domain.IsInDomain)

	if err := ctx.Err(); err != nil {
		return nil, zkerr.Wrap(zkerr.Cancelled, "cancelled before phase O", err)
	}

	selAtZeta := evalAll(selectorCoeffs, zeta)
	wiresAtZeta := evalAll(wireCoeffs, zeta)
	zAtZeta := evalPoly(zCoeffs, zeta)
	qAtZeta := evalPoly(qRes.Coeffs, zeta)

	var omegaZeta fr.Element
	if p.Cfg.EnableShiftOpening || p.Cfg.EnableLookups {
		omegaZeta.Mul(&p.Domain.Omega, &zeta)
	}

	var zAtOmegaZeta *fr.Element
	if p.Cfg.EnableShiftOpening {
		v := evalPoly(zCoeffs, omegaZeta)
		zAtOmegaZeta = &v
	}

	var zLAtZeta, zLAtOmegaZeta *fr.Element
	if p.Cfg.EnableLookups {
		v := evalPoly(zLCoeffs, zeta)
		zLAtZeta = &v
		vo := evalPoly(zLCoeffs, omegaZeta)
		zLAtOmegaZeta = &vo
	}

	evals := make([]fr.Element, 0, len(selAtZeta)+len(wiresAtZeta)+5)
	evals = append(evals, selAtZeta...)
	evals = append(evals, wiresAtZeta...)
	evals = append(evals, zAtZeta)
	if zAtOmegaZeta != nil {
		evals = append(evals, *zAtOmegaZeta)
	}
	if zLAtZeta != nil {
		evals = append(evals, *zLAtZeta, *zLAtOmegaZeta)
	}
	evals = append(evals, qAtZeta)
	tr.AbsorbEvaluations(evals)

	openPolys := make([][]fr.Element, 0, len(selectorCoeffs)+len(wireCoeffs)+3)
	openDigests := make([]bn254.G1Affine, 0, cap(openPolys))
	openPolys = append(openPolys, selectorCoeffs...)
	openDigests = append(openDigests, selectorCommits...)
	openPolys = append(openPolys, wireCoeffs...)
	openDigests = append(openDigests, wireCommits...)
	openPolys = append(openPolys, zCoeffs)
	openDigests = append(openDigests, zCommit)
	if p.Cfg.EnableLookups {
		openPolys = append(openPolys, zLCoeffs)
		openDigests = append(openDigests, zLCommit)
	}
	openPolys = append(openPolys, qRes.Coeffs)
	openDigests = append(openDigests, qRes.Commitment)

	batchProof, err := pcs.BatchOpenSinglePoint(p.SRS, openPolys, openDigests, zeta, sha256.New(), p.Domain.FFT())
	if err != nil {
		return nil, err
	}

	var shiftProof *kzg.OpeningProof
	if p.Cfg.EnableShiftOpening {
		sp, err := pcs.Open(p.SRS, zCoeffs, omegaZeta, p.Domain.FFT())
		if err != nil {
			return nil, err
		}
		shiftProof = &sp
	}

	var lookupOpening *kzg.OpeningProof
	if p.Cfg.EnableLookups {
		lp, err := pcs.Open(p.SRS, zLCoeffs, omegaZeta, p.Domain.FFT())
		if err != nil {
			return nil, err
		}
		lookupOpening = &lp
	}

	residual := air.ResidualEvalAtPoint(k, p.Domain.N, p.Domain.ZhC, resCfg, zeta,
		wiresAtZeta, selAtZeta, nil, nil, nil, zAtZeta, zAtOmegaZeta, zLAtZeta, zLAtOmegaZeta)
	quotientSide := air.ResidualEvalAtPoint(k, p.Domain.N, p.Domain.ZhC, resCfg, zeta,
		wiresAtZeta, selAtZeta, nil, nil, &qAtZeta, zAtZeta, zAtOmegaZeta, zLAtZeta, zLAtOmegaZeta)
	if !residual.Equal(&quotientSide) {
		return nil, zkerr.New(zkerr.ConstraintUnsatisfied, "prover self-check: C(zeta) != Zh(zeta)*Q(zeta)")
	}

	var zLCommitPtr *bn254.G1Affine
	if p.Cfg.EnableLookups {
		zLCommitPtr = &zLCommit
	}

	return &Proof{
		N: p.Domain.N, K: uint32(k), BBlk: uint32(p.Domain.BBlk),
		ZhC: p.Domain.ZhC, Omega: p.Domain.Omega, BasisWires: p.Cfg.BasisWires,
		G1Digest: p.SRS.G1Digest, G2Digest: p.SRS.G2Digest,
		SelectorCommitments: selectorCommits, WireCommitments: wireCommits,
		ZCommitment: zCommit, QCommitment: qRes.Commitment, ZLCommitment: zLCommitPtr,
		SelectorsAtZeta: selAtZeta, WiresAtZeta: wiresAtZeta,
		ZAtZeta: zAtZeta, ZAtOmegaZeta: zAtOmegaZeta, QAtZeta: qAtZeta,
		ZLAtZeta: zLAtZeta, ZLAtOmegaZeta: zLAtOmegaZeta,
		Zeta: zeta, BatchProof: batchProof, ShiftOpening: shiftProof, LookupOpening: lookupOpening,
	}, nil
}

// headerBytes serializes the protocol/domain header (§6) absorbed first,
// before any commitment, so every later challenge is implicitly bound to
// N, the protocol label, and the SRS in use.
func headerBytes(cfg Config, d *domain.Domain, s *srs.SRS) []byte {
	var buf []byte
	nb := d.N
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(nb>>(56-8*i)))
	}
	buf = append(buf, []byte(cfg.ProtocolLabel)...)
	g1d := s.G1Digest
	g2d := s.G2Digest
	buf = append(buf, g1d[:]...)
	buf = append(buf, g2d[:]...)
	return buf
}

// commitSelectors materializes each selector column's N evaluations (by
// replaying air.EvalBlock over a synthetic all-zero witness, since selector
// values depend only on row index, never on wire values) and commits each
// via the coefficient path. Selector columns are small fixed tables, so
// full materialization here — unlike the wire/Z/quotient streams — is not a
// streaming-budget concern.
func (p *Prover) commitSelectors() ([]bn254.G1Affine, [][]fr.Element, error) {
	numSel := len(p.Spec.Selectors)
	if numSel == 0 {
		return nil, nil, nil
	}

	zeroRows := make([]stream.Row, p.Domain.N)
	for i := range zeroRows {
		zeroRows[i] = stream.Row{Regs: make([]fr.Element, p.Spec.K)}
	}
	synthetic := &stream.SliceRestreamer{Rows: zeroRows}
	res, err := air.EvalBlock(p.Spec, make([]fr.Element, p.Spec.K), synthetic.StreamRows(0, stream.RowIdx(p.Domain.N)))
	if err != nil {
		return nil, nil, err
	}

	evalCols := make([][]fr.Element, numSel)
	for c := range evalCols {
		evalCols[c] = make([]fr.Element, p.Domain.N)
	}
	for i, loc := range res.Locals {
		for c := 0; c < numSel && c < len(loc.SelectorsRow); c++ {
			evalCols[c][i] = loc.SelectorsRow[c]
		}
	}

	commits := make([]bn254.G1Affine, numSel)
	coeffs := make([][]fr.Element, numSel)
	for c := 0; c < numSel; c++ {
		bifft := domain.NewBlockedIFFT(p.Domain)
		if err := bifft.FeedEvalBlock(evalCols[c]); err != nil {
			return nil, nil, err
		}
		var full []fr.Element
		for tile := range bifft.FinishLowToHigh() {
			full = append(full, tile...)
		}
		coeffs[c] = full
		commit, err := pcs.CommitCoeffTiles(p.SRS, tilesOf(full, int(p.Domain.BBlk)))
		if err != nil {
			return nil, nil, err
		}
		commits[c] = commit
	}
	return commits, coeffs, nil
}

// commitWireColumns streams rs once, transposing each row-major tile into k
// column-major evaluation tiles, feeding each into its own blocked IFFT, and
// committing the resulting coefficients via the tile-wise MSM (or, with
// BasisEval, a Lagrange-basis accumulator). Each blocked IFFT buffers all N
// evaluations and the k coefficient vectors are returned whole, so peak
// memory during this pass is O(k*N), not O(k*b_blk).
func (p *Prover) commitWireColumns(rs stream.Restreamer, k int) ([]bn254.G1Affine, [][]fr.Element, error) {
	bifft := make([]*domain.BlockedIFFT, k)
	for c := range bifft {
		bifft[c] = domain.NewBlockedIFFT(p.Domain)
	}

	var lb *pcs.LagrangeBasis
	if p.Cfg.BasisWires == pcs.BasisEval {
		var err error
		lb, err = pcs.BuildLagrangeBasis(p.SRS, p.Domain)
		if err != nil {
			return nil, nil, err
		}
	}
	lagAcc := make([]bn254.G1Jac, k)
	lagCursor := 0

	tRows := rs.LenRows()
	var feedErr error
	for _, blk := range stream.Blocks(tRows, int(p.Domain.BBlk)) {
		blockLen := int(blk.End) - int(blk.Start)
		cols := make([][]fr.Element, k)
		for c := range cols {
			cols[c] = make([]fr.Element, 0, blockLen)
		}
		rs.StreamRows(blk.Start, blk.End)(func(row stream.Row) bool {
			if len(row.Regs) != k {
				feedErr = zkerr.New(zkerr.WitnessTooWide, fmt.Sprintf("row width %d != k=%d", len(row.Regs), k))
				return false
			}
			for c := 0; c < k; c++ {
				cols[c] = append(cols[c], row.Regs[c])
			}
			return true
		})
		if feedErr != nil {
			return nil, nil, feedErr
		}
		for c := 0; c < k; c++ {
			if err := bifft[c].FeedEvalBlock(cols[c]); err != nil {
				return nil, nil, err
			}
		}
		if lb != nil {
			for c := 0; c < k; c++ {
				var partial bn254.G1Jac
				if _, err := partial.MultiExp(lb.Basis[lagCursor:lagCursor+blockLen], cols[c], ecc.MultiExpConfig{}); err != nil {
					return nil, nil, zkerr.Wrap(zkerr.InternalInvariantViolated, "Lagrange-basis wire commit multi-scalar-multiplication failed", err)
				}
				lagAcc[c].AddAssign(&partial)
			}
		}
		lagCursor += blockLen
	}

	commits := make([]bn254.G1Affine, k)
	coeffs := make([][]fr.Element, k)
	var g errgroup.Group
	for c := 0; c < k; c++ {
		c := c
		g.Go(func() error {
			var full []fr.Element
			for tile := range bifft[c].FinishLowToHigh() {
				full = append(full, tile...)
			}
			coeffs[c] = full
			if lb != nil {
				var out bn254.G1Affine
				out.FromJacobian(&lagAcc[c])
				commits[c] = out
				return nil
			}
			commit, err := pcs.CommitCoeffTiles(p.SRS, tilesOf(full, int(p.Domain.BBlk)))
			if err != nil {
				return err
			}
			commits[c] = commit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return commits, coeffs, nil
}

// commitPermutationZ streams rs a second time through permutation.ZStreamTiles
// (Phase Z's restream), feeds the Z evaluations into a blocked IFFT, and
// commits the resulting coefficients.
func (p *Prover) commitPermutationZ(rs stream.Restreamer, beta, gamma fr.Element) (bn254.G1Affine, []fr.Element, error) {
	bifft := domain.NewBlockedIFFT(p.Domain)
	for tile := range permutation.ZStreamTiles(p.Spec, rs, int(p.Domain.BBlk), beta, gamma) {
		if err := bifft.FeedEvalBlock(tile); err != nil {
			return bn254.G1Affine{}, nil, err
		}
	}
	var full []fr.Element
	for tile := range bifft.FinishLowToHigh() {
		full = append(full, tile...)
	}
	commit, err := pcs.CommitCoeffTiles(p.SRS, tilesOf(full, int(p.Domain.BBlk)))
	if err != nil {
		return bn254.G1Affine{}, nil, err
	}
	return commit, full, nil
}

// commitLookupZ mirrors commitPermutationZ, streaming rs through
// lookup.ZLStreamTiles instead of permutation.ZStreamTiles — the lookup
// argument's Z_L accumulator, gated on Cfg.EnableLookups.
func (p *Prover) commitLookupZ(rs stream.Restreamer, beta, gamma fr.Element) (bn254.G1Affine, []fr.Element, error) {
	bifft := domain.NewBlockedIFFT(p.Domain)
	for tile := range lookup.ZLStreamTiles(p.Spec, rs, int(p.Domain.BBlk), beta, gamma) {
		if err := bifft.FeedEvalBlock(tile); err != nil {
			return bn254.G1Affine{}, nil, err
		}
	}
	var full []fr.Element
	for tile := range bifft.FinishLowToHigh() {
		full = append(full, tile...)
	}
	commit, err := pcs.CommitCoeffTiles(p.SRS, tilesOf(full, int(p.Domain.BBlk)))
	if err != nil {
		return bn254.G1Affine{}, nil, err
	}
	return commit, full, nil
}

func evalAll(polys [][]fr.Element, at fr.Element) []fr.Element {
	out := make([]fr.Element, len(polys))
	for i, p := range polys {
		out[i] = evalPoly(p, at)
	}
	return out
}

// evalPoly evaluates coefficients (low-to-high) at x via Horner's method.
func evalPoly(coeffs []fr.Element, x fr.Element) fr.Element {
	var acc fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, &x)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

func tilesOf(coeffs []fr.Element, size int) func(yield func([]fr.Element) bool) {
	if size <= 0 {
		size = len(coeffs)
		if size == 0 {
			size = 1
		}
	}
	return func(yield func([]fr.Element) bool) {
		for i := 0; i < len(coeffs); i += size {
			end := i + size
			if end > len(coeffs) {
				end = len(coeffs)
			}
			if !yield(coeffs[i:end]) {
				return
			}
		}
	}
}
