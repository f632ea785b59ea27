// Package lookup implements the Phase Z lookup accumulator Z_L: a second
// running multiplicative carry, parallel to internal/permutation's Z, that
// the lookup argument needs when the engine is configured with
// EnableLookups. Grounded on original_source/src/perm_lookup.rs's
// LookupAcc/phi_lookup_row/phi_lookup_compress and its streamed commitment
// helper commit_lookup_acc_stream, generalized to the engine's stream.Block
// tiling the same way internal/permutation generalizes PermAcc.
//
// The convention (carried over from perm_lookup.rs's phi_lookup_row):
// selectors_row packs [table_0..table_{t-1} | optional rhs_0..rhs_{t-1}]
// where t = min(k, len(selectors_row)). When a second (rhs) half is
// present the multiplicand is a ratio of two compressions; otherwise it is
// a bare numerator compression. With no selector columns at all, φ_L(i)
// is definitionally 1 and Z_L stays constant — the feature-off behavior
// perm_lookup.rs documents as a well-formed no-op.
package lookup

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/air"
	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Acc is the lookup argument's grand-product accumulator, initialized to 1
// (Z_L(ω⁰) = 1), mirroring internal/permutation.Acc.
type Acc struct {
	Z fr.Element
}

// New returns an accumulator seeded to 1.
func New() Acc {
	var z Acc
	z.Z.SetOne()
	return z
}

// phiLookupCompress computes ∏_j(left_j+β·right_j+γ).
func phiLookupCompress(left, right []fr.Element, beta, gamma fr.Element) fr.Element {
	var acc, tmp fr.Element
	acc.SetOne()
	for j := range left {
		tmp.Mul(&beta, &right[j])
		tmp.Add(&tmp, &left[j])
		tmp.Add(&tmp, &gamma)
		acc.Mul(&acc, &tmp)
	}
	return acc
}

// phiLookupRow computes one row's lookup multiplicand φ_L(i). An empty
// selector row yields 1 (no-op row).
func phiLookupRow(loc air.Locals, beta, gamma fr.Element) fr.Element {
	w := loc.WRow
	s := loc.SelectorsRow
	if len(s) == 0 {
		var one fr.Element
		one.SetOne()
		return one
	}
	tLen := len(w)
	if len(s) < tLen {
		tLen = len(s)
	}
	lhsW := w[:tLen]
	rhsTable := s[:tLen]
	if len(s) >= 2*tLen {
		num := phiLookupCompress(lhsW, rhsTable, beta, gamma)
		den := phiLookupCompress(lhsW, s[tLen:2*tLen], beta, gamma)
		if den.IsZero() {
			var zero fr.Element
			return zero
		}
		var inv, out fr.Element
		inv.Inverse(&den)
		out.Mul(&num, &inv)
		return out
	}
	return phiLookupCompress(lhsW, rhsTable, beta, gamma)
}

// AbsorbBlock advances acc by multiplying in φ_L(i) for every row in
// locals, in order.
func (acc *Acc) AbsorbBlock(locals []air.Locals, beta, gamma fr.Element) {
	for _, loc := range locals {
		phi := phiLookupRow(loc, beta, gamma)
		acc.Z.Mul(&acc.Z, &phi)
	}
}

// EmitBlockCarry evaluates the Z_L column for one block starting from
// start, returning the per-row values and the carry into the next block.
func EmitBlockCarry(start fr.Element, locals []air.Locals, beta, gamma fr.Element) (zVals []fr.Element, carry fr.Element) {
	zVals = make([]fr.Element, 0, len(locals))
	z := start
	for _, loc := range locals {
		phi := phiLookupRow(loc, beta, gamma)
		var next fr.Element
		next.Mul(&z, &phi)
		z = next
		zVals = append(zVals, z)
	}
	return zVals, z
}

// ZLStreamTiles evaluates Z_L over the witness's T = rs.LenRows() rows in
// evaluation order (rows from T up to N are not streamed), yielding one
// tile (length ≤ bBlk) at a time, mirroring
// internal/permutation.ZStreamTiles.
func ZLStreamTiles(spec air.Spec, rs stream.Restreamer, bBlk int, beta, gamma fr.Element) func(yield func([]fr.Element) bool) {
	tRows := rs.LenRows()
	return func(yield func([]fr.Element) bool) {
		acc := New()
		for _, blk := range stream.Blocks(tRows, bBlk) {
			boundarySeed := make([]fr.Element, spec.K)
			res, err := air.EvalBlock(spec, boundarySeed, rs.StreamRows(blk.Start, blk.End))
			if err != nil {
				panic(zkerr.Wrap(zkerr.InternalInvariantViolated, "lookup z stream block eval failed", err))
			}
			zVals, carry := EmitBlockCarry(acc.Z, res.Locals, beta, gamma)
			acc.Z = carry
			if !yield(zVals) {
				return
			}
		}
	}
}
