// Package air evaluates the execution trace against the fixed AIR template:
// per-row gate constraints, the permutation coupling terms consumed by
// Phase Z's grand product, and the boundary conditions that close the
// permutation cycle. The block evaluator is generalized from
// original_source/src/air.rs's AirSpec/Locals/eval_block_r/residual_stream_tiles,
// kept "block pure" (a function of boundary_in and the rows in range only)
// the same way a plonk backend keeps its constraint evaluation a pure
// function of the trace slice it is handed (a prover's coset evaluation
// of the constraint system).
package air

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/stream"
	"github.com/tinyzkp/engine/internal/zkerr"
)

// Spec is the fixed-column AIR template: k registers, optional identity and
// sigma permutation tables, and optional selector columns consumed by
// gates. An empty id/sigma table falls back to the canonical identity
// labeling [0..k) and a cyclic shift, matching the planner's default
// permutation when no AIR-specific tables are supplied.
type Spec struct {
	K            int
	IDTable      []SelectorColumn
	SigmaTable   []SelectorColumn
	Selectors    []SelectorColumn
}

// SelectorColumn is one fixed column, periodic with its own length (a
// column shorter than N repeats; an empty column reads as all-zero, except
// for id/sigma columns which fall back per-cell to their canonical value).
type SelectorColumn struct {
	Values []fr.Element
}

func (c SelectorColumn) at(rowCtr int, fallback fr.Element) fr.Element {
	if len(c.Values) == 0 {
		return fallback
	}
	return c.Values[rowCtr%len(c.Values)]
}

// WithCyclicSigma builds a Spec with no explicit tables: every row uses the
// fallback identity/sigma labeling and no selectors.
func WithCyclicSigma(k int) Spec {
	return Spec{K: k}
}

func idFallback(col int) fr.Element {
	var f fr.Element
	f.SetUint64(uint64(col))
	return f
}

func sigmaFallback(k, col int) fr.Element {
	var f fr.Element
	f.SetUint64(uint64((col + 1) % k))
	return f
}

func (s Spec) idSigmaRow(rowCtr int) (id, sigma []fr.Element) {
	id = make([]fr.Element, s.K)
	sigma = make([]fr.Element, s.K)
	for j := 0; j < s.K; j++ {
		if j < len(s.IDTable) {
			id[j] = s.IDTable[j].at(rowCtr, idFallback(j))
		} else {
			id[j] = idFallback(j)
		}
		if j < len(s.SigmaTable) {
			sigma[j] = s.SigmaTable[j].at(rowCtr, sigmaFallback(s.K, j))
		} else {
			sigma[j] = sigmaFallback(s.K, j)
		}
	}
	return id, sigma
}

func (s Spec) selectorsRow(rowCtr int) []fr.Element {
	if len(s.Selectors) == 0 {
		return nil
	}
	out := make([]fr.Element, len(s.Selectors))
	for i, c := range s.Selectors {
		out[i] = c.at(rowCtr, fr.Element{})
	}
	return out
}

// Locals is the row-local tuple gates and the permutation accumulator
// consume: the row's witness values, its identity/sigma labels, and any
// selector values, all in column order.
type Locals struct {
	WRow         []fr.Element
	IDRow        []fr.Element
	SigmaRow     []fr.Element
	SelectorsRow []fr.Element
}

// BlockResult is the output of evaluating one block: the per-row Locals in
// time order, plus the final register state to seed the next block.
type BlockResult struct {
	Locals      []Locals
	BoundaryOut []fr.Element
}

// EvalBlock evaluates a block purely from (boundaryIn, rows yielded by
// iterRows): it consults no state beyond its arguments and mutates none.
func EvalBlock(spec Spec, boundaryIn []fr.Element, iterRows func(yield func(stream.Row) bool)) (BlockResult, error) {
	if len(boundaryIn) != spec.K {
		return BlockResult{}, zkerr.New(zkerr.InvalidRequest,
			fmt.Sprintf("boundary vector must have k=%d registers (got %d)", spec.K, len(boundaryIn)))
	}

	var locals []Locals
	boundaryOut := append([]fr.Element(nil), boundaryIn...)

	rowCtr := 0
	var rowErr error
	iterRows(func(row stream.Row) bool {
		if len(row.Regs) != spec.K {
			rowErr = zkerr.New(zkerr.WitnessTooWide,
				fmt.Sprintf("row.Regs length must be k=%d (got %d)", spec.K, len(row.Regs)))
			return false
		}
		id, sigma := spec.idSigmaRow(rowCtr)
		selectors := spec.selectorsRow(rowCtr)
		wRow := append([]fr.Element(nil), row.Regs...)
		locals = append(locals, Locals{WRow: wRow, IDRow: id, SigmaRow: sigma, SelectorsRow: selectors})
		boundaryOut = row.Regs
		rowCtr++
		return true
	})
	if rowErr != nil {
		return BlockResult{}, rowErr
	}

	return BlockResult{Locals: locals, BoundaryOut: boundaryOut}, nil
}

// ResidualConfig carries the three Fiat–Shamir challenges the residual
// needs: α (constraint batching), β/γ (permutation coupling, shared with
// the lookup argument's accumulator). EnableLookups gates an additional
// lookup-transition term onto the residual, grounded on
// original_source/src/air.rs's "lookups" feature — with it unset, the
// residual is exactly the non-lookup identity.
type ResidualConfig struct {
	Alpha, Beta, Gamma fr.Element
	EnableLookups      bool
}

// phiLookupNumDen computes the lookup argument's per-row compressed
// numerator/denominator: num = ∏_j(w_j+β·t_j+γ) over the table columns
// selectors_row[:t], and den = ∏_j(w_j+β·r_j+γ) over a second table
// selectors_row[t:2t] when present, else den = 1 (a pure-numerator
// multiplicand). Mirrors original_source/src/perm_lookup.rs's
// phi_lookup_compress/phi_lookup_row convention that selectors_row
// packs [table | optional rhs] when lookups are enabled.
func phiLookupNumDen(loc Locals, beta, gamma fr.Element) (num, den fr.Element) {
	num.SetOne()
	den.SetOne()
	w := loc.WRow
	s := loc.SelectorsRow
	if len(s) == 0 {
		return num, den
	}
	tLen := len(w)
	if len(s) < tLen {
		tLen = len(s)
	}
	var tmp fr.Element
	for j := 0; j < tLen; j++ {
		tmp.Mul(&beta, &s[j])
		tmp.Add(&tmp, &w[j])
		tmp.Add(&tmp, &gamma)
		num.Mul(&num, &tmp)
	}
	if len(s) >= 2*tLen {
		for j := 0; j < tLen; j++ {
			tmp.Mul(&beta, &s[tLen+j])
			tmp.Add(&tmp, &w[j])
			tmp.Add(&tmp, &gamma)
			den.Mul(&den, &tmp)
		}
	}
	return num, den
}

// prodIDSigma computes ∏ⱼ(wⱼ+β·idⱼ+γ) and ∏ⱼ(wⱼ+β·σⱼ+γ) for one row.
func prodIDSigma(loc Locals, beta, gamma fr.Element) (prodID, prodSigma fr.Element) {
	prodID.SetOne()
	prodSigma.SetOne()
	var tmp fr.Element
	for j := range loc.WRow {
		tmp.Mul(&beta, &loc.IDRow[j])
		tmp.Add(&tmp, &loc.WRow[j])
		tmp.Add(&tmp, &gamma)
		prodID.Mul(&prodID, &tmp)

		tmp.Mul(&beta, &loc.SigmaRow[j])
		tmp.Add(&tmp, &loc.WRow[j])
		tmp.Add(&tmp, &gamma)
		prodSigma.Mul(&prodSigma, &tmp)
	}
	return prodID, prodSigma
}

// ResidualRow evaluates the rowwise residual: gate terms, the
// permutation-coupled transition zᵢ₊₁·∏σ − zᵢ·∏id (zero exactly when
// zᵢ₊₁ = zᵢ·∏id/∏σ, the grand-product recurrence), and the boundary ties
// that pin Z(ω⁰)=1 and close the cycle at the last row.
// zLI/zLIp1 are the lookup accumulator's value before/after this row; they
// are ignored unless cfg.EnableLookups is set.
func ResidualRow(loc Locals, cfg ResidualConfig, zI, zIp1 fr.Element, isFirstRow, isLastRow bool, zLI, zLIp1 fr.Element) fr.Element {
	var gatePart fr.Element
	w := loc.WRow
	s := loc.SelectorsRow
	if len(s) >= 1 && len(w) >= 3 {
		var gateAdd fr.Element
		gateAdd.Add(&w[0], &w[1])
		gateAdd.Sub(&gateAdd, &w[2])
		gateAdd.Mul(&gateAdd, &s[0])
		gatePart.Add(&gatePart, &gateAdd)
	}
	if len(s) >= 2 && len(w) >= 3 {
		var gateMul fr.Element
		gateMul.Mul(&w[0], &w[1])
		gateMul.Sub(&gateMul, &w[2])
		gateMul.Mul(&gateMul, &s[1])
		gatePart.Add(&gatePart, &gateMul)
	}
	gatePart.Mul(&gatePart, &cfg.Alpha)

	prodID, prodSigma := prodIDSigma(loc, cfg.Beta, cfg.Gamma)
	var permCoupled, t1, t2 fr.Element
	t1.Mul(&zIp1, &prodSigma)
	t2.Mul(&zI, &prodID)
	permCoupled.Sub(&t1, &t2)

	var boundaryPart fr.Element
	if isFirstRow {
		var one fr.Element
		one.SetOne()
		var d fr.Element
		d.Sub(&zI, &one)
		boundaryPart.Add(&boundaryPart, &d)
	}
	if isLastRow {
		var one fr.Element
		one.SetOne()
		var d fr.Element
		d.Sub(&zIp1, &one)
		boundaryPart.Add(&boundaryPart, &d)
	}

	var lookupPart fr.Element
	if cfg.EnableLookups {
		num, den := phiLookupNumDen(loc, cfg.Beta, cfg.Gamma)
		var t1, t2 fr.Element
		t1.Mul(&zLIp1, &num)
		t2.Mul(&zLI, &den)
		lookupPart.Sub(&t1, &t2)
	}

	var out fr.Element
	out.Add(&gatePart, &permCoupled)
	out.Add(&out, &boundaryPart)
	out.Add(&out, &lookupPart)
	return out
}

// ResidualStreamTiles produces the residual's values at the witness's
// T = rs.LenRows() rows, one tile (length ≤ bBlk) at a time, threading the
// grand-product carry Z across tile boundaries with O(1) extra state; rows
// from T up to N are not streamed. This is the input quotient.BuildAndCommit
// consumes.
func ResidualStreamTiles(spec Spec, cfg ResidualConfig, rs stream.Restreamer, bBlk int) func(yield func([]fr.Element) bool) {
	tRows := rs.LenRows()
	return func(yield func([]fr.Element) bool) {
		zCarry := fr.Element{}
		zCarry.SetOne()
		zLCarry := fr.Element{}
		zLCarry.SetOne()
		produced := 0

		for _, blk := range stream.Blocks(tRows, bBlk) {
			blockLen := int(blk.End) - int(blk.Start)
			boundarySeed := make([]fr.Element, spec.K)
			br, err := EvalBlock(spec, boundarySeed, rs.StreamRows(blk.Start, blk.End))
			if err != nil {
				panic(zkerr.Wrap(zkerr.InternalInvariantViolated, "residual stream block eval failed", err))
			}

			tile := make([]fr.Element, 0, blockLen)
			for i, loc := range br.Locals {
				prodID, prodSigma := prodIDSigma(loc, cfg.Beta, cfg.Gamma)
				var phi fr.Element
				if prodSigma.IsZero() {
					phi.SetZero()
				} else {
					phi.Inverse(&prodSigma)
					phi.Mul(&phi, &prodID)
				}
				var zNext fr.Element
				zNext.Mul(&zCarry, &phi)

				var zLNext fr.Element
				if cfg.EnableLookups {
					lookupNum, lookupDen := phiLookupNumDen(loc, cfg.Beta, cfg.Gamma)
					var phiL fr.Element
					if lookupDen.IsZero() {
						phiL.SetZero()
					} else {
						phiL.Inverse(&lookupDen)
						phiL.Mul(&phiL, &lookupNum)
					}
					zLNext.Mul(&zLCarry, &phiL)
				}

				isFirst := produced == 0 && i == 0
				isLast := produced+i+1 == tRows

				r := ResidualRow(loc, cfg, zCarry, zNext, isFirst, isLast, zLCarry, zLNext)
				tile = append(tile, r)
				zCarry = zNext
				zLCarry = zLNext
			}
			produced += blockLen
			if !yield(tile) {
				return
			}
		}
	}
}

// ResidualEvalAtPoint is the verifier-side symbolic evaluation of R(ζ) from
// opened values. When qAtZeta is provided the algebraically equivalent
// fast path Zₕ(ζ)·Q(ζ) is used instead of expanding the gate/permutation
// terms.
func ResidualEvalAtPoint(
	k int,
	n uint64,
	zhC fr.Element,
	cfg ResidualConfig,
	zeta fr.Element,
	wiresAtZeta []fr.Element,
	selectorsAtZeta []fr.Element,
	idAtZeta []fr.Element,
	sigmaAtZeta []fr.Element,
	qAtZeta *fr.Element,
	zAtZeta fr.Element,
	zAtOmegaZeta *fr.Element,
	zLAtZeta *fr.Element,
	zLAtOmegaZeta *fr.Element,
) fr.Element {
	if qAtZeta != nil {
		var zhZ fr.Element
		zhZ.Exp(zeta, new(big.Int).SetUint64(n))
		zhZ.Sub(&zhZ, &zhC)
		var out fr.Element
		out.Mul(&zhZ, qAtZeta)
		return out
	}

	var gatePart fr.Element
	if len(selectorsAtZeta) >= 1 && len(wiresAtZeta) >= 3 {
		var gateAdd fr.Element
		gateAdd.Add(&wiresAtZeta[0], &wiresAtZeta[1])
		gateAdd.Sub(&gateAdd, &wiresAtZeta[2])
		gateAdd.Mul(&gateAdd, &selectorsAtZeta[0])
		gatePart.Add(&gatePart, &gateAdd)
	}
	if len(selectorsAtZeta) >= 2 && len(wiresAtZeta) >= 3 {
		var gateMul fr.Element
		gateMul.Mul(&wiresAtZeta[0], &wiresAtZeta[1])
		gateMul.Sub(&gateMul, &wiresAtZeta[2])
		gateMul.Mul(&gateMul, &selectorsAtZeta[1])
		gatePart.Add(&gatePart, &gateMul)
	}
	gatePart.Mul(&gatePart, &cfg.Alpha)

	var prodID, prodSigma fr.Element
	prodID.SetOne()
	prodSigma.SetOne()
	var tmp fr.Element
	for j := 0; j < k; j++ {
		var wj fr.Element
		if j < len(wiresAtZeta) {
			wj = wiresAtZeta[j]
		}
		var idj, sigj fr.Element
		if idAtZeta != nil && sigmaAtZeta != nil {
			idj = idAtZeta[j]
			sigj = sigmaAtZeta[j]
		} else {
			idj = idFallback(j)
			sigj = sigmaFallback(k, j)
		}
		tmp.Mul(&cfg.Beta, &idj)
		tmp.Add(&tmp, &wj)
		tmp.Add(&tmp, &cfg.Gamma)
		prodID.Mul(&prodID, &tmp)

		tmp.Mul(&cfg.Beta, &sigj)
		tmp.Add(&tmp, &wj)
		tmp.Add(&tmp, &cfg.Gamma)
		prodSigma.Mul(&prodSigma, &tmp)
	}

	var permPart, t1, t2 fr.Element
	if zAtOmegaZeta != nil {
		t1.Mul(zAtOmegaZeta, &prodSigma)
	} else {
		t1.Mul(&zAtZeta, &prodSigma)
	}
	t2.Mul(&zAtZeta, &prodID)
	permPart.Sub(&t1, &t2)

	var lookupPart fr.Element
	if cfg.EnableLookups && zLAtZeta != nil {
		tLen := k
		if len(selectorsAtZeta) < tLen {
			tLen = len(selectorsAtZeta)
		}
		var num, den fr.Element
		num.SetOne()
		den.SetOne()
		for j := 0; j < tLen; j++ {
			var wj fr.Element
			if j < len(wiresAtZeta) {
				wj = wiresAtZeta[j]
			}
			tmp.Mul(&cfg.Beta, &selectorsAtZeta[j])
			tmp.Add(&tmp, &wj)
			tmp.Add(&tmp, &cfg.Gamma)
			num.Mul(&num, &tmp)
		}
		if len(selectorsAtZeta) >= 2*tLen {
			for j := 0; j < tLen; j++ {
				var wj fr.Element
				if j < len(wiresAtZeta) {
					wj = wiresAtZeta[j]
				}
				tmp.Mul(&cfg.Beta, &selectorsAtZeta[tLen+j])
				tmp.Add(&tmp, &wj)
				tmp.Add(&tmp, &cfg.Gamma)
				den.Mul(&den, &tmp)
			}
		}
		var lt1, lt2 fr.Element
		if zLAtOmegaZeta != nil {
			lt1.Mul(zLAtOmegaZeta, &num)
		} else {
			lt1.Mul(zLAtZeta, &num)
		}
		lt2.Mul(zLAtZeta, &den)
		lookupPart.Sub(&lt1, &lt2)
	}

	var out fr.Element
	out.Add(&gatePart, &permPart)
	out.Add(&out, &lookupPart)
	return out
}
