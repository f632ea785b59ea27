// Package pcs implements the engine's streaming polynomial commitment
// layer on top of gnark-crypto's KZG (github.com/consensys/gnark-crypto/
// ecc/bn254/fr/kzg): committing and opening polynomials by tile, so the
// coefficient vector of degree up to N is never held in full. The
// tile-wise multi-scalar-multiplication accumulation is grounded on
// original_source/src/pcs.rs's commit_stream/open_at_points_with_coeffs,
// adapted to use gnark-crypto's own MultiExp (the same
// G1Jac.MultiExp(points, scalars, ecc.MultiExpConfig) call used for witness
// commitments in backend/groth16/bn254/zeknox/zeknox.go) instead of a
// hand-rolled per-coefficient accumulator. Single-shot batch-opening for
// polynomials that are already fully materialized (selectors, small
// proofs) delegates directly to kzg.BatchOpenSinglePoint, the same call
// used to open LRO together in plonk's own prover.
package pcs

import (
	"hash"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// CommitCoeffTiles commits to a polynomial given as a stream of monomial
// coefficient tiles in increasing-degree (low-to-high) order, never
// materializing more than one tile's worth of coefficients at a time.
// Equivalent to kzg.Commit(fullCoeffs, s.KZG()) but O(tileLen) resident.
func CommitCoeffTiles(s *srs.SRS, tiles func(yield func([]fr.Element) bool)) (bn254.G1Affine, error) {
	var acc bn254.G1Jac
	cursor := 0
	var tileErr error

	tiles(func(tile []fr.Element) bool {
		if cursor+len(tile) > len(s.G1) {
			tileErr = zkerr.New(zkerr.SrsCorrupt, "SRS has too few G1 powers for this polynomial's degree")
			return false
		}
		var partial bn254.G1Jac
		if _, err := partial.MultiExp(s.G1[cursor:cursor+len(tile)], tile, ecc.MultiExpConfig{}); err != nil {
			tileErr = zkerr.Wrap(zkerr.InternalInvariantViolated, "tile multi-scalar-multiplication failed", err)
			return false
		}
		acc.AddAssign(&partial)
		cursor += len(tile)
		return true
	})
	if tileErr != nil {
		return bn254.G1Affine{}, tileErr
	}

	var out bn254.G1Affine
	out.FromJacobian(&acc)
	return out, nil
}

// OpenHiToLo opens a polynomial of degree maxDegree at zeta, given as a
// stream of monomial coefficient tiles in decreasing-degree (high-to-low)
// order, using synthetic division threaded across tiles so the quotient
// polynomial W(X) = (f(X)-f(zeta))/(X-zeta) is never fully materialized:
// each quotient coefficient is multiplied into the commitment MSM the
// instant it is produced (b_{i-1} = a_i + zeta*b_i, accumulated at SRS
// index i-1).
func OpenHiToLo(s *srs.SRS, maxDegree int, zeta fr.Element, tiles func(yield func([]fr.Element) bool)) (value fr.Element, witnessComm bn254.G1Affine, err error) {
	if maxDegree+1 > len(s.G1) {
		return fr.Element{}, bn254.G1Affine{}, zkerr.New(zkerr.SrsCorrupt, "SRS has too few G1 powers for this polynomial's degree")
	}

	var evalAcc fr.Element
	var wAcc bn254.G1Jac
	iAbs := maxDegree
	var opErr error

	tiles(func(block []fr.Element) bool {
		for _, aI := range block {
			var bIm1 fr.Element
			bIm1.Mul(&zeta, &evalAcc)
			bIm1.Add(&bIm1, &aI)
			evalAcc = bIm1

			if iAbs > 0 && !bIm1.IsZero() {
				var term bn254.G1Jac
				if _, e := term.MultiExp(s.G1[iAbs-1:iAbs], []fr.Element{bIm1}, ecc.MultiExpConfig{}); e != nil {
					opErr = zkerr.Wrap(zkerr.InternalInvariantViolated, "opening term multi-scalar-multiplication failed", e)
					return false
				}
				wAcc.AddAssign(&term)
			}
			iAbs--
		}
		return true
	})
	if opErr != nil {
		return fr.Element{}, bn254.G1Affine{}, opErr
	}

	var out bn254.G1Affine
	out.FromJacobian(&wAcc)
	return evalAcc, out, nil
}

// BatchOpenSinglePoint batches openings for several fully-materialized
// evaluation-basis polynomials (on domain d) at a single point, delegating
// to gnark-crypto's own batching.
func BatchOpenSinglePoint(s *srs.SRS, polys [][]fr.Element, digests []bn254.G1Affine, point fr.Element, hFunc hash.Hash, d *fft.Domain) (kzg.BatchOpeningProof, error) {
	if len(polys) != len(digests) {
		return kzg.BatchOpeningProof{}, zkerr.New(zkerr.InvalidRequest, "polys and digests length mismatch")
	}

	kzgDigests := make([]kzg.Digest, len(digests))
	for i, dg := range digests {
		kzgDigests[i] = kzg.Digest(dg)
	}

	proof, err := kzg.BatchOpenSinglePoint(polys, kzgDigests, point, hFunc, s.KZG().Pk)
	if err != nil {
		return kzg.BatchOpeningProof{}, zkerr.Wrap(zkerr.InternalInvariantViolated, "batch opening failed", err)
	}
	return proof, nil
}

// Commit commits to a fully-materialized polynomial (used for selectors
// and other polynomials small enough not to need tile streaming),
// delegating directly to kzg.Commit.
func Commit(s *srs.SRS, p []fr.Element) (bn254.G1Affine, error) {
	d, err := kzg.Commit(p, s.KZG().Pk)
	if err != nil {
		return bn254.G1Affine{}, zkerr.Wrap(zkerr.InternalInvariantViolated, "commit failed", err)
	}
	return bn254.G1Affine(d), nil
}

// Open opens a fully-materialized polynomial at point, delegating
// directly to kzg.Open.
func Open(s *srs.SRS, p []fr.Element, point fr.Element, d *fft.Domain) (kzg.OpeningProof, error) {
	proof, err := kzg.Open(p, point, s.KZG().Pk)
	if err != nil {
		return kzg.OpeningProof{}, zkerr.Wrap(zkerr.InternalInvariantViolated, "open failed", err)
	}
	return proof, nil
}

// Verify checks a single-point opening proof against commitment at point,
// the verifier-side counterpart of Open.
func Verify(s *srs.SRS, commitment bn254.G1Affine, proof kzg.OpeningProof, point fr.Element, d *fft.Domain) error {
	digest := kzg.Digest(commitment)
	if err := kzg.Verify(&digest, &proof, point, s.KZG().Vk); err != nil {
		return zkerr.Wrap(zkerr.PairingFailed, "kzg opening verification failed", err)
	}
	return nil
}

// BatchVerifySinglePoint checks a batched opening proof against digests at
// point, the verifier-side counterpart of BatchOpenSinglePoint.
func BatchVerifySinglePoint(s *srs.SRS, digests []bn254.G1Affine, batchProof kzg.BatchOpeningProof, point fr.Element, hFunc hash.Hash, d *fft.Domain) error {
	kzgDigests := make([]kzg.Digest, len(digests))
	for i, dg := range digests {
		kzgDigests[i] = kzg.Digest(dg)
	}
	if err := kzg.BatchVerifySinglePoint(kzgDigests, &batchProof, point, hFunc, s.KZG().Vk); err != nil {
		return zkerr.Wrap(zkerr.PairingFailed, "kzg batch opening verification failed", err)
	}
	return nil
}
