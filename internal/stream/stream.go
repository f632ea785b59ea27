// Package stream provides the small index newtypes and tiling helpers that
// every streaming component (domain, air, permutation, pcs, quotient,
// scheduler) shares, plus the Restreamer abstraction that lets the scheduler
// make a second pass over the witness for Phase Z without ever caching it
// itself.
package stream

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// BlockIdx indexes a tile/block within a stream of T rows chunked by b_blk.
type BlockIdx uint64

// RowIdx indexes a single row within the logical T×k witness rectangle.
type RowIdx uint64

// RegIdx indexes a register/column within a row (0..k).
type RegIdx uint32

// Row is one row of the execution trace: k field elements, register-major.
type Row struct {
	Regs []fr.Element
}

// Restreamer abstracts a re-readable witness source. The scheduler declares
// which phases require a second pass (Phase Z); callers whose witness source
// is a genuine single-pass pipe must supply a Restreamer that caches it
// (FileRestreamer does this), since the engine performs no internal caching
// of witness data.
type Restreamer interface {
	// LenRows returns the total row count T (not padded to N).
	LenRows() int
	// StreamRows yields rows [start, end) in increasing order. Implementations
	// must support being called multiple times over overlapping or repeated
	// ranges (that is the point of "re-streaming").
	StreamRows(start, end RowIdx) func(yield func(Row) bool)
}

// BlockCount returns the number of blocks of size bBlk needed to cover
// tRows rows, including a final partial block when bBlk does not divide
// tRows evenly.
func BlockCount(tRows int, bBlk int) int {
	if bBlk <= 0 {
		return 0
	}
	return (tRows + bBlk - 1) / bBlk
}

// BlockBounds returns the half-open row range [start, end) covered by block
// t, given tRows total rows and a tile size bBlk. The final block is
// truncated to tRows when bBlk does not divide tRows.
func BlockBounds(t BlockIdx, tRows int, bBlk int) (RowIdx, RowIdx) {
	start := int(t) * bBlk
	end := start + bBlk
	if end > tRows {
		end = tRows
	}
	if start > tRows {
		start = tRows
	}
	return RowIdx(start), RowIdx(end)
}

// Block describes one [start, end) row range and its index.
type Block struct {
	Idx        BlockIdx
	Start, End RowIdx
}

// Blocks enumerates every block covering tRows rows at tile size bBlk, in
// increasing order.
func Blocks(tRows int, bBlk int) []Block {
	n := BlockCount(tRows, bBlk)
	out := make([]Block, 0, n)
	for t := 0; t < n; t++ {
		s, e := BlockBounds(BlockIdx(t), tRows, bBlk)
		out = append(out, Block{Idx: BlockIdx(t), Start: s, End: e})
	}
	return out
}

// SliceRestreamer is a Restreamer over an in-memory slice of rows, useful
// for tests and for callers that already hold the full witness (e.g. it was
// loaded from a file ahead of time).
type SliceRestreamer struct {
	Rows []Row
}

func (s *SliceRestreamer) LenRows() int { return len(s.Rows) }

func (s *SliceRestreamer) StreamRows(start, end RowIdx) func(yield func(Row) bool) {
	rows := s.Rows
	return func(yield func(Row) bool) {
		for i := start; i < end && int(i) < len(rows); i++ {
			if !yield(rows[i]) {
				return
			}
		}
	}
}
