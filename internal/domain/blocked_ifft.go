package domain

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/tinyzkp/engine/internal/zkerr"
)

// BlockedIFFT turns a time-ordered stream of domain evaluations into
// coefficient tiles of at most d.BBlk elements each, so that a caller never
// has to hold the full evaluation or coefficient vector at once on the way
// in. Tiles are produced only after Finish*, at which point the full
// coefficient vector is computed with a single gnark-crypto inverse FFT —
// this mirrors gnark-crypto's own fft.Domain.FFTInverse/BitReverse pattern,
// and is also the default ("legacy collect") behavior of the streaming
// façade it was modeled on: an
// optional file-spilling in-place NTT that keeps live memory at O(b_blk)
// throughout the transform, not just at the tiling stage, is a documented
// future extension and is not implemented here (see the design notes for
// this package).
type BlockedIFFT struct {
	d   *Domain
	buf []fr.Element
}

// NewBlockedIFFT creates a façade over d. Feed evaluation blocks in
// increasing domain-index order, then call one of the Finish methods.
func NewBlockedIFFT(d *Domain) *BlockedIFFT {
	return &BlockedIFFT{d: d, buf: make([]fr.Element, 0, d.N)}
}

// FeedEvalBlock appends the next time-ordered slice of evaluations. Blocks
// must arrive in global increasing index order; feeding past N elements in
// total returns WitnessTooWide.
func (b *BlockedIFFT) FeedEvalBlock(evals []fr.Element) error {
	if uint64(len(b.buf)+len(evals)) > b.d.N {
		return zkerr.New(zkerr.WitnessTooWide, "blocked IFFT received more than N evaluations")
	}
	b.buf = append(b.buf, evals...)
	return nil
}

// FedLen returns the number of evaluations fed so far.
func (b *BlockedIFFT) FedLen() int { return len(b.buf) }

func (b *BlockedIFFT) materializeCoefficients() []fr.Element {
	a := make([]fr.Element, b.d.N)
	copy(a, b.buf)
	// Remaining entries in a are already the zero element (Go zero value),
	// matching the Rust façade's explicit zero-pad of short streams.

	b.d.fft.FFTInverse(a, fft.DIF)
	fft.BitReverse(a)
	return a
}

// FinishLowToHigh finalizes the façade and returns an iterator over
// coefficient tiles in increasing-degree order, each of length at most
// d.BBlk (the final tile may be shorter).
func (b *BlockedIFFT) FinishLowToHigh() func(yield func([]fr.Element) bool) {
	coeffs := b.materializeCoefficients()
	bBlk := int(b.d.BBlk)
	return func(yield func([]fr.Element) bool) {
		for start := 0; start < len(coeffs); start += bBlk {
			end := start + bBlk
			if end > len(coeffs) {
				end = len(coeffs)
			}
			if !yield(coeffs[start:end]) {
				return
			}
		}
	}
}

// FinishHighToLow finalizes the façade and returns an iterator over
// coefficient tiles in decreasing-degree order: the whole coefficient
// vector is reversed first, so each tile's elements are also in
// descending-degree order, matching the opening stream's high-to-low
// consumption (Phase O / synthetic division from the top).
func (b *BlockedIFFT) FinishHighToLow() func(yield func([]fr.Element) bool) {
	coeffs := b.materializeCoefficients()
	reversed := make([]fr.Element, len(coeffs))
	for i, c := range coeffs {
		reversed[len(coeffs)-1-i] = c
	}
	bBlk := int(b.d.BBlk)
	return func(yield func([]fr.Element) bool) {
		for start := 0; start < len(reversed); start += bBlk {
			end := start + bBlk
			if end > len(reversed) {
				end = len(reversed)
			}
			if !yield(reversed[start:end]) {
				return
			}
		}
	}
}
