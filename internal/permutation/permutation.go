// Package permutation implements the Phase Z grand-product accumulator:
// the running multiplicative carry Z(ω^(i+1)) = Z(ω^i)·φ(i) that the
// permutation argument needs, emitted tile-by-tile so the scheduler never
// holds more than one block's worth of Z values at a time. Grounded on
// original_source/src/perm_lookup.rs's PermAcc/phi_perm_row/
// emit_z_column_block_carry, generalized to the engine's stream.Block
// tiling instead of the Rust original's bespoke block loop.
package permutation

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Acc is the permutation argument's grand-product accumulator, initialized
// to 1 per spec.md §4.5 (Z(ω⁰) = 1).
type Acc struct {
	Z fr.Element
}

// New returns an accumulator seeded to 1.
func New() Acc {
	var z Acc
	z.Z.SetOne()
	return z
}

// phiPermRow computes φ(i) = ∏_c(w_c+β·id_c+γ) / ∏_c(w_c+β·σ_c+γ) for one
// row. A zero denominator (a pathological β/γ collision) yields 0 rather
// than panicking, keeping the stream well-defined. β and γ are hashed
// challenges, so such a collision is negligibly likely; unlike ζ, they are
// never re-squeezed.
func phiPermRow(loc air.Locals, beta, gamma fr.Element) fr.Element {
	var num, den, tmp fr.Element
	num.SetOne()
	den.SetOne()
	for j := range loc.WRow {
		tmp.Mul(&beta, &loc.IDRow[j])
		tmp.Add(&tmp, &loc.WRow[j])
		tmp.Add(&tmp, &gamma)
		num.Mul(&num, &tmp)

		tmp.Mul(&beta, &loc.SigmaRow[j])
		tmp.Add(&tmp, &loc.WRow[j])
		tmp.Add(&tmp, &gamma)
		den.Mul(&den, &tmp)
	}
	if den.IsZero() {
		var zero fr.Element
		return zero
	}
	var inv, out fr.Element
	inv.Inverse(&den)
	out.Mul(&num, &inv)
	return out
}

// AbsorbBlock advances acc by multiplying in φ(i) for every row in locals,
// in order. Callers must process blocks in strictly increasing time order.
func (acc *Acc) AbsorbBlock(locals []air.Locals, beta, gamma fr.Element) {
	for _, loc := range locals {
		phi := phiPermRow(loc, beta, gamma)
		acc.Z.Mul(&acc.Z, &phi)
	}
}

// EmitBlockCarry evaluates the Z column for one block starting from start,
// returning the Z value after each row (zVals[i] is Z after row i) and the
// carry (Z after the block's last row, the seed for the next block). It
// allocates O(len(locals)) and performs no I/O.
func EmitBlockCarry(start fr.Element, locals []air.Locals, beta, gamma fr.Element) (zVals []fr.Element, carry fr.Element) {
	zVals = make([]fr.Element, 0, len(locals))
	z := start
	for _, loc := range locals {
		phi := phiPermRow(loc, beta, gamma)
		var next fr.Element
		next.Mul(&z, &phi)
		z = next
		zVals = append(zVals, z)
	}
	return zVals, z
}

// ZStreamTiles evaluates Z over the witness's T = rs.LenRows() rows in
// evaluation order, yielding one tile (length ≤ bBlk) at a time; rows from
// T up to N are not streamed. The final tile's last element is Z after the
// last witness row, which must equal 1 for the permutation argument's cycle-closing
// boundary constraint to hold (checked separately by the residual, not
// here — this function only streams values).
func ZStreamTiles(spec air.Spec, rs stream.Restreamer, bBlk int, beta, gamma fr.Element) func(yield func([]fr.Element) bool) {
	tRows := rs.LenRows()
	return func(yield func([]fr.Element) bool) {
		acc := New()
		for _, blk := range stream.Blocks(tRows, bBlk) {
			boundarySeed := make([]fr.Element, spec.K)
			res, err := air.EvalBlock(spec, boundarySeed, rs.StreamRows(blk.Start, blk.End))
			if err != nil {
				panic(zkerr.Wrap(zkerr.InternalInvariantViolated, "permutation z stream block eval failed", err))
			}
			zVals, carry := EmitBlockCarry(acc.Z, res.Locals, beta, gamma)
			acc.Z = carry
			if !yield(zVals) {
				return
			}
		}
	}
}

// FinalValue streams the full domain once and returns the Z value reached
// after the last witness row (i.e. before any domain padding). Used by the
// prover's self-check: FinalValue must equal 1 for a satisfied witness.
func FinalValue(spec air.Spec, rs stream.Restreamer, bBlk int, beta, gamma fr.Element) fr.Element {
	acc := New()
	for tile := range ZStreamTiles(spec, rs, bBlk, beta, gamma) {
		if len(tile) > 0 {
			acc.Z = tile[len(tile)-1]
		}
	}
	return acc.Z
}
