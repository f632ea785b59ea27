package pcs

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Basis selects which basis a wire column's commitment is computed in
// (§4.4's "basis_wires"). Both bases commit to the same underlying
// polynomial and therefore to the same G1 point — the choice is purely
// about how that point gets computed, never about what it means to a
// verifier, which is why Verify/BatchVerifySinglePoint need no Basis
// parameter at all.
type Basis uint8

const (
	// BasisCoeff commits a monomial-basis coefficient vector directly
	// (CommitCoeffTiles): the teacher's IFFT-then-coeff-commit path.
	BasisCoeff Basis = iota
	// BasisEval commits an evaluation vector directly against a
	// precomputed LagrangeBasis table (CommitEvalTiles), without ever
	// forming monomial coefficients for the commitment itself.
	BasisEval
)

// LagrangeBasis holds the commitment to every Lagrange basis polynomial
// ℓ_i over a fixed domain of size N (the unique degree-<N polynomial with
// ℓ_i(ω^j) = δ_ij), against a fixed SRS, for spec §4.4's
// "basis_wires = eval" path. Nothing caches it: the scheduler builds a
// fresh table on every Prove that uses the eval basis. Since
// ℓ_i(X) = (1/N)·Σ_k (ω^-i)^k·X^k, its KZG commitment is
// L_i = (1/N)·Σ_k (ω^-i)^k·g1[k], a monomial-basis commit to a geometric
// coefficient sequence. Once built, committing any vector of N evaluations
// reduces to a single streaming MSM against this table:
// Commit(p) = Σ_i p(ω^i)·L_i — this is the distinct, non-IFFT commit path
// the eval basis requires.
type LagrangeBasis struct {
	N     uint64
	Basis []bn254.G1Affine
}

// BuildLagrangeBasis computes L_0..L_{N-1}. Each L_i is one O(N)
// MultiExp over the geometric sequence (1/N, (1/N)ω^-i, (1/N)ω^-2i, ...),
// so the whole table costs O(N^2) scalar multiplications on every call; the
// result is not cached across calls or proofs. A production engine
// would compute this table with a group-valued FFT in O(N log N) instead;
// that optimization is not implemented here (see DESIGN.md).
func BuildLagrangeBasis(s *srs.SRS, d *domain.Domain) (*LagrangeBasis, error) {
	n := d.N
	if n > uint64(len(s.G1)) {
		return nil, zkerr.New(zkerr.SrsCorrupt, "SRS has too few G1 powers for this domain size")
	}
	g1 := s.G1[:n]

	var invN fr.Element
	invN.SetUint64(n)
	invN.Inverse(&invN)

	var omegaInv fr.Element
	omegaInv.Inverse(&d.Omega)

	out := make([]bn254.G1Affine, n)
	coeffs := make([]fr.Element, n)

	var wi fr.Element
	wi.SetOne()
	for i := uint64(0); i < n; i++ {
		var c fr.Element
		c.Set(&invN)
		for k := uint64(0); k < n; k++ {
			coeffs[k] = c
			c.Mul(&c, &wi)
		}

		var acc bn254.G1Jac
		if _, err := acc.MultiExp(g1, coeffs, ecc.MultiExpConfig{}); err != nil {
			return nil, zkerr.Wrap(zkerr.InternalInvariantViolated, "Lagrange basis multi-scalar-multiplication failed", err)
		}
		out[i].FromJacobian(&acc)

		wi.Mul(&wi, &omegaInv)
	}
	return &LagrangeBasis{N: n, Basis: out}, nil
}

// CommitEvalTiles commits to a polynomial given as a stream of evaluation
// tiles p(ω^i) in increasing-i order, against this precomputed Lagrange
// basis — the eval-basis counterpart of CommitCoeffTiles, O(tileLen)
// resident regardless of N.
func (lb *LagrangeBasis) CommitEvalTiles(tiles func(yield func([]fr.Element) bool)) (bn254.G1Affine, error) {
	var acc bn254.G1Jac
	cursor := 0
	var tileErr error

	tiles(func(tile []fr.Element) bool {
		if uint64(cursor+len(tile)) > lb.N {
			tileErr = zkerr.New(zkerr.SrsCorrupt, "Lagrange basis has too few entries for this polynomial's length")
			return false
		}
		var partial bn254.G1Jac
		if _, err := partial.MultiExp(lb.Basis[cursor:cursor+len(tile)], tile, ecc.MultiExpConfig{}); err != nil {
			tileErr = zkerr.Wrap(zkerr.InternalInvariantViolated, "eval-tile multi-scalar-multiplication failed", err)
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

// CommitEval commits to a fully-materialized evaluation vector, the
// small-polynomial counterpart of CommitEvalTiles (used where the caller
// already holds every evaluation, e.g. selector columns).
func (lb *LagrangeBasis) CommitEval(evals []fr.Element) (bn254.G1Affine, error) {
	return lb.CommitEvalTiles(func(yield func([]fr.Element) bool) {
		yield(evals)
	})
}
