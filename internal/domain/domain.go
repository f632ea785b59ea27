// Package domain plans the evaluation domain H (size N, generator ω,
// vanishing polynomial Z_H(X) = X^N - zh_c) and carries the streaming
// primitives built on top of it: barycentric evaluation and the blocked
// IFFT that turns a time-ordered witness-column stream into coefficient
// tiles without a caller ever seeing a full-length buffer.
//
// The domain arithmetic itself rides on gnark-crypto's own fft.Domain
// (Cardinality, Generator, FFTInverse, BitReverse), the same primitive a
// PLONK backend uses for DomainSmall/DomainBig — this package adds the
// planning contract, vanishing-polynomial bookkeeping, and the
// tile-emission façade around it.
package domain

import (
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/tinyzkp/engine/internal/zkerr"
)

// Domain is a planned evaluation domain together with the tile size the
// scheduler will stream at.
type Domain struct {
	N     uint64
	Omega fr.Element
	ZhC   fr.Element
	BBlk  uint64

	fft *fft.Domain
}

// FFT exposes the underlying gnark-crypto domain for components (pcs,
// quotient) that need direct access to FFTInverse/BitReverse.
func (d *Domain) FFT() *fft.Domain { return d.fft }

// MemoryHint is a diagnostic estimate of the peak resident field-element
// count a correctly streaming prover needs for this plan: O(b_blk) per
// streamed column plus O(N) for whichever domain-sized artifact (Z_H
// evaluations, quotient coefficients) is materialized once at the end.
type MemoryHint struct {
	TileElements uint64
	DomainElements uint64
}

// Plan derives a domain for a witness with reqRows logical rows. N is the
// next power of two at least reqRows (minimum 1); bBlkHint, if zero,
// defaults to ⌈√N⌉. zhC, if the zero element, defaults to 1 (a pure
// subgroup). maxN caps how large N is allowed to grow before the request
// is rejected as DomainTooLarge.
func Plan(reqRows uint64, bBlkHint uint64, zhC fr.Element, maxN uint64) (*Domain, error) {
	if reqRows == 0 {
		return nil, zkerr.New(zkerr.InvalidRequest, "reqRows must be positive")
	}

	n := nextPowerOfTwo(reqRows)
	if maxN != 0 && n > maxN {
		return nil, zkerr.New(zkerr.DomainTooLarge, "domain size exceeds configured max_n")
	}

	fftDomain := fft.NewDomain(n)

	var zh fr.Element
	if zhC.IsZero() {
		zh.SetOne()
	} else {
		zh.Set(&zhC)
	}

	bBlk := bBlkHint
	if bBlk == 0 {
		bBlk = ceilSqrt(n)
	}
	if bBlk > n {
		bBlk = n
	}
	if bBlk == 0 {
		bBlk = 1
	}

	d := &Domain{
		N:     fftDomain.Cardinality,
		Omega: fftDomain.Generator,
		ZhC:   zh,
		BBlk:  bBlk,
		fft:   fftDomain,
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Hint reports the approximate peak resident-element counts for this plan.
func (d *Domain) Hint() MemoryHint {
	return MemoryHint{TileElements: d.BBlk, DomainElements: d.N}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return uint64(1) << bits.Len64(n-1)
}

func ceilSqrt(n uint64) uint64 {
	if n <= 1 {
		return n
	}
	lo, hi := uint64(1), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if mid*mid < n {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Validate checks the structural invariants a planned domain must satisfy:
// N a positive power of two, zh_c non-zero, ω^N = 1, and ω primitive (ω
// raised to N/p is not 1 for any prime p dividing N). Since N is always a
// power of two here, primitivity reduces to checking ω^(N/2) ≠ 1.
func Validate(d *Domain) error {
	if d.N == 0 || d.N&(d.N-1) != 0 {
		return zkerr.New(zkerr.InvalidRequest, "domain size must be a positive power of two")
	}
	if d.ZhC.IsZero() {
		return zkerr.New(zkerr.InvalidRequest, "zh_c must be non-zero")
	}

	var wN fr.Element
	wN.Exp(d.Omega, new(big.Int).SetUint64(d.N))
	if !wN.IsOne() {
		return zkerr.New(zkerr.InvalidRequest, "omega^N != 1")
	}

	if d.N > 1 {
		var wHalf fr.Element
		wHalf.Exp(d.Omega, new(big.Int).SetUint64(d.N/2))
		if wHalf.IsOne() {
			return zkerr.New(zkerr.InvalidRequest, "omega is not a primitive N-th root")
		}
	}
	return nil
}

// VanishingAt evaluates Z_H(z) = z^N - zh_c.
func (d *Domain) VanishingAt(z fr.Element) fr.Element {
	var zn, out fr.Element
	zn.Exp(z, new(big.Int).SetUint64(d.N))
	out.Sub(&zn, &d.ZhC)
	return out
}

// IsInDomain reports whether z ∈ H, i.e. Z_H(z) = 0.
func (d *Domain) IsInDomain(z fr.Element) bool {
	v := d.VanishingAt(z)
	return v.IsZero()
}
