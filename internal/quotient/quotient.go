// Package quotient builds and commits the quotient polynomial
// Q(X) = C(X) / Zₕ(X) from the AIR's residual stream: it collects the
// residual's evaluations on H, inverse-transforms them to monomial
// coefficients via the blocked IFFT, long-divides by X^N−c, and commits
// the resulting Q coefficients tile-by-tile. Grounded on
// original_source/src/quotient.rs's long_divide_xn_minus_c_lo_to_hi and
// build_and_commit_quotient_streamed_r, adapted to commit through
// internal/pcs instead of the Rust original's bespoke Aggregator.
package quotient

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/pcs"
	"github.com/tinyzkp/engine/internal/srs"
	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// LongDivideByVanishing divides r (monomial coefficients, low-to-high,
// length possibly > N) by X^N − c, returning the quotient's coefficients
// (low-to-high). Implements the standard in-place recurrence:
//
//	for i = deg(r) down to N:
//	  q[i-N] += r[i]
//	  r[i-N] += c * r[i]
//	  r[i]    = 0
//
// A non-zero remainder (deg < N terms left nonzero after the pass) means
// the residual did not actually vanish on H — the caller's
// ConstraintUnsatisfied self-check, not this function, is responsible for
// catching that; this function only performs the algebraic division.
func LongDivideByVanishing(r []fr.Element, n uint64, c fr.Element) []fr.Element {
	if len(r) == 0 {
		return nil
	}
	work := append([]fr.Element(nil), r...)
	q := make([]fr.Element, 0)

	i := len(work) - 1
	for {
		if uint64(i+1) <= n {
			break
		}
		coeff := work[i]
		if !coeff.IsZero() {
			qi := uint64(i) - n
			if uint64(len(q)) <= qi {
				grown := make([]fr.Element, qi+1)
				copy(grown, q)
				q = grown
			}
			q[qi].Add(&q[qi], &coeff)

			var cr fr.Element
			cr.Mul(&c, &coeff)
			work[qi].Add(&work[qi], &cr)

			work[i] = fr.Element{}
		}
		if i == 0 {
			break
		}
		i--
	}

	for len(q) > 0 && q[len(q)-1].IsZero() {
		q = q[:len(q)-1]
	}
	return q
}

// Result is the quotient construction's output: its commitment and its
// monomial coefficients (low-to-high), retained so Phase O can open Q at
// ζ without recomputing the residual stream.
type Result struct {
	Commitment bn254.G1Affine
	Coeffs     []fr.Element // low-to-high, length ≤ N (degree < N after division)
}

// BuildAndCommit runs the full Phase Q pipeline: stream the AIR residual
// over H, invert it to coefficients via the blocked IFFT, long-divide by
// Zₕ, and commit the quotient.
func BuildAndCommit(d *domain.Domain, s *srs.SRS, spec air.Spec, cfg air.ResidualConfig, rs stream.Restreamer) (Result, error) {
	bifft := domain.NewBlockedIFFT(d)

	for tile := range air.ResidualStreamTiles(spec, cfg, rs, int(d.BBlk)) {
		if err := bifft.FeedEvalBlock(tile); err != nil {
			return Result{}, err
		}
	}

	rCoeffs := make([]fr.Element, 0, d.N)
	for tile := range bifft.FinishLowToHigh() {
		rCoeffs = append(rCoeffs, tile...)
	}

	qCoeffs := LongDivideByVanishing(rCoeffs, d.N, d.ZhC)

	commit, err := pcs.CommitCoeffTiles(s, tilesOf(qCoeffs, int(d.BBlk)))
	if err != nil {
		return Result{}, zkerr.Wrap(zkerr.InternalInvariantViolated, "committing quotient polynomial", err)
	}

	return Result{Commitment: commit, Coeffs: qCoeffs}, nil
}

// tilesOf chunks a coefficient slice into an iterator of tiles of at most
// size elements, for feeding into pcs.CommitCoeffTiles/OpenHiToLo.
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

// TilesHiToLo returns q's coefficients chunked into tiles in decreasing
// degree order, for use with pcs.OpenHiToLo.
func TilesHiToLo(coeffs []fr.Element, size int) func(yield func([]fr.Element) bool) {
	rev := make([]fr.Element, len(coeffs))
	for i, c := range coeffs {
		rev[len(coeffs)-1-i] = c
	}
	return tilesOf(rev, size)
}
