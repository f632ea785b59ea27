// Package proofio (de)serializes a scheduler.Proof to and from the binary
// layout in §6: a fixed header (domain parameters, basis tag, SRS digests),
// a body of commitments/evaluations/opening proofs, and a CRC32 trailer.
// Grounded on original_source/src/lib.rs's Proof/ProofHeader field order;
// encoded by hand with stdlib encoding/binary and hash/crc32, the same
// idiom gnark's own proof types use for their io.Writer/io.Reader pairs
// (internal/backend/bn254/plonk's WriteTo/ReadFrom on Proof), since a
// proof's wire format is small, fixed, and exactly specified — exactly the
// case stdlib binary framing was built for. The one field this package
// treats as an extensible artifact rather than a fixed layout byte is the
// format version, checked against a semver compatibility range the same
// way compiled-circuit artifacts are versioned elsewhere in this
// lineage.
package proofio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/blang/semver/v4"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	"github.com/tinyzkp/engine/internal/pcs"
	"github.com/tinyzkp/engine/internal/scheduler"
	"github.com/tinyzkp/engine/internal/zkerr"
)

const (
	magic        = "SZKP"
	formatVersion uint16 = 2
	curveTagBN254 uint16 = 1

	basisTagCoeff uint8 = 1
	basisTagEval  uint8 = 2

	flagShiftOpening uint8 = 1 << 0
	flagLookups      uint8 = 1 << 1
)

// basisToTag/tagToBasis translate between scheduler.Proof's pcs.Basis and
// the proof wire format's one-byte tag (§4.4/§6). A verifier's semantics
// never depend on which basis a prover used — the tag is preserved purely
// so Decode can hand the original pcs.Basis back to scheduler.Verify's
// BasisWires cross-check.
func basisToTag(b pcs.Basis) uint8 {
	if b == pcs.BasisEval {
		return basisTagEval
	}
	return basisTagCoeff
}

func tagToBasis(tag uint8) (pcs.Basis, error) {
	switch tag {
	case basisTagCoeff:
		return pcs.BasisCoeff, nil
	case basisTagEval:
		return pcs.BasisEval, nil
	default:
		return 0, zkerr.New(zkerr.InvalidRequest, "unsupported basis tag")
	}
}

// engineVersion is this build's proof-format compatibility version. A
// decoded proof's formatVersion maps onto the Major component of a semver
// range, reusing the same versioning idiom compiled artifacts elsewhere
// use (gnark stamps a semver-shaped version onto its serialized
// constraint systems) rather than a bare integer equality check.
var engineVersion = semver.MustParse("2.0.0")

// compatibleRange reports whether a decoded wire formatVersion is usable by
// this build: same major version, i.e. "2.x.x reads anything 2.y.z wrote".
func compatibleRange(wireVersion uint16) semver.Range {
	lo := semver.MustParse(fmt.Sprintf("%d.0.0", wireVersion))
	hi := semver.MustParse(fmt.Sprintf("%d.0.0", wireVersion+1))
	return semver.Range(func(v semver.Version) bool {
		return v.GE(lo) && v.LT(hi)
	})
}

// Encode serializes p into the proof binary layout, appending a CRC32
// trailer over every preceding byte.
func Encode(p *scheduler.Proof) []byte {
	var buf bytes.Buffer

	buf.WriteString(magic)
	writeU16(&buf, formatVersion)
	writeU16(&buf, curveTagBN254)
	writeU64(&buf, p.N)
	writeU32(&buf, p.K)
	writeU32(&buf, p.BBlk)
	writeFr(&buf, p.ZhC)
	writeFr(&buf, p.Omega)
	buf.WriteByte(basisToTag(p.BasisWires))

	var flags uint8
	if p.ShiftOpening != nil {
		flags |= flagShiftOpening
	}
	if p.ZLCommitment != nil {
		flags |= flagLookups
	}
	buf.WriteByte(flags)

	buf.Write(p.G1Digest[:])
	buf.Write(p.G2Digest[:])

	writeU16(&buf, uint16(len(p.SelectorCommitments)))
	for _, c := range p.SelectorCommitments {
		writeG1(&buf, c)
	}
	for _, c := range p.WireCommitments {
		writeG1(&buf, c)
	}
	writeG1(&buf, p.ZCommitment)
	if p.ZLCommitment != nil {
		writeG1(&buf, *p.ZLCommitment)
	}
	writeG1(&buf, p.QCommitment)

	for _, e := range p.SelectorsAtZeta {
		writeFr(&buf, e)
	}
	for _, e := range p.WiresAtZeta {
		writeFr(&buf, e)
	}
	writeFr(&buf, p.ZAtZeta)
	if p.ZAtOmegaZeta != nil {
		writeFr(&buf, *p.ZAtOmegaZeta)
	}
	if p.ZLAtZeta != nil && p.ZLAtOmegaZeta != nil {
		writeFr(&buf, *p.ZLAtZeta)
		writeFr(&buf, *p.ZLAtOmegaZeta)
	}
	writeFr(&buf, p.QAtZeta)

	writeFr(&buf, p.Zeta)

	writeU16(&buf, uint16(len(p.BatchProof.ClaimedValues)))
	for _, v := range p.BatchProof.ClaimedValues {
		writeFr(&buf, v)
	}
	writeG1(&buf, p.BatchProof.H)

	if p.ShiftOpening != nil {
		writeFr(&buf, p.ShiftOpening.ClaimedValue)
		writeG1(&buf, p.ShiftOpening.H)
	}
	if p.LookupOpening != nil {
		writeFr(&buf, p.LookupOpening.ClaimedValue)
		writeG1(&buf, p.LookupOpening.H)
	}

	trailer := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(&buf, trailer)

	return buf.Bytes()
}

// Decode parses the proof binary layout, verifying the CRC32 trailer before
// touching any field, and reconstructs k/selector counts from the encoded
// body rather than requiring the caller to already know them.
func Decode(b []byte) (*scheduler.Proof, error) {
	if len(b) < 4 || string(b[0:4]) != magic {
		return nil, zkerr.New(zkerr.InvalidRequest, "bad magic tag")
	}
	if len(b) < 8 {
		return nil, zkerr.New(zkerr.InvalidRequest, "proof truncated before CRC32 trailer")
	}
	body, trailer := b[:len(b)-4], b[len(b)-4:]
	want := binary.BigEndian.Uint32(trailer)
	got := crc32.ChecksumIEEE(body)
	if want != got {
		return nil, zkerr.New(zkerr.InvalidRequest, "CRC32 trailer mismatch: proof bytes are corrupt")
	}

	r := bytes.NewReader(body)
	var magicBuf [4]byte
	if _, err := r.Read(magicBuf[:]); err != nil || string(magicBuf[:]) != magic {
		return nil, zkerr.New(zkerr.InvalidRequest, "bad magic tag")
	}

	version, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if !compatibleRange(version)(engineVersion) {
		return nil, zkerr.New(zkerr.InvalidRequest, "unsupported proof format version")
	}
	curveTag, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if curveTag != curveTagBN254 {
		return nil, zkerr.New(zkerr.InvalidRequest, "unsupported curve tag")
	}

	p := &scheduler.Proof{}
	if p.N, err = readU64(r); err != nil {
		return nil, err
	}
	if p.K, err = readU32(r); err != nil {
		return nil, err
	}
	if p.BBlk, err = readU32(r); err != nil {
		return nil, err
	}
	if p.ZhC, err = readFr(r); err != nil {
		return nil, err
	}
	if p.Omega, err = readFr(r); err != nil {
		return nil, err
	}

	basisTag, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if p.BasisWires, err = tagToBasis(basisTag); err != nil {
		return nil, err
	}
	flags, err := readByte(r)
	if err != nil {
		return nil, err
	}
	hasShift := flags&flagShiftOpening != 0
	hasLookups := flags&flagLookups != 0

	if _, err := r.Read(p.G1Digest[:]); err != nil {
		return nil, zkerr.Wrap(zkerr.InvalidRequest, "reading g1 digest", err)
	}
	if _, err := r.Read(p.G2Digest[:]); err != nil {
		return nil, zkerr.Wrap(zkerr.InvalidRequest, "reading g2 digest", err)
	}

	selCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	p.SelectorCommitments = make([]bn254.G1Affine, selCount)
	for i := range p.SelectorCommitments {
		if p.SelectorCommitments[i], err = readG1(r); err != nil {
			return nil, err
		}
	}

	p.WireCommitments = make([]bn254.G1Affine, p.K)
	for i := range p.WireCommitments {
		if p.WireCommitments[i], err = readG1(r); err != nil {
			return nil, err
		}
	}
	if p.ZCommitment, err = readG1(r); err != nil {
		return nil, err
	}
	if hasLookups {
		zl, err := readG1(r)
		if err != nil {
			return nil, err
		}
		p.ZLCommitment = &zl
	}
	if p.QCommitment, err = readG1(r); err != nil {
		return nil, err
	}

	p.SelectorsAtZeta = make([]fr.Element, selCount)
	for i := range p.SelectorsAtZeta {
		if p.SelectorsAtZeta[i], err = readFr(r); err != nil {
			return nil, err
		}
	}
	p.WiresAtZeta = make([]fr.Element, p.K)
	for i := range p.WiresAtZeta {
		if p.WiresAtZeta[i], err = readFr(r); err != nil {
			return nil, err
		}
	}
	if p.ZAtZeta, err = readFr(r); err != nil {
		return nil, err
	}
	if hasShift {
		v, err := readFr(r)
		if err != nil {
			return nil, err
		}
		p.ZAtOmegaZeta = &v
	}
	if hasLookups {
		zlz, err := readFr(r)
		if err != nil {
			return nil, err
		}
		zloz, err := readFr(r)
		if err != nil {
			return nil, err
		}
		p.ZLAtZeta = &zlz
		p.ZLAtOmegaZeta = &zloz
	}
	if p.QAtZeta, err = readFr(r); err != nil {
		return nil, err
	}
	if p.Zeta, err = readFr(r); err != nil {
		return nil, err
	}

	claimedCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	claimed := make([]fr.Element, claimedCount)
	for i := range claimed {
		if claimed[i], err = readFr(r); err != nil {
			return nil, err
		}
	}
	batchH, err := readG1(r)
	if err != nil {
		return nil, err
	}
	p.BatchProof = kzg.BatchOpeningProof{ClaimedValues: claimed, H: batchH}

	if hasShift {
		shiftVal, err := readFr(r)
		if err != nil {
			return nil, err
		}
		shiftH, err := readG1(r)
		if err != nil {
			return nil, err
		}
		p.ShiftOpening = &kzg.OpeningProof{ClaimedValue: shiftVal, H: shiftH}
	}

	if hasLookups {
		lookupVal, err := readFr(r)
		if err != nil {
			return nil, err
		}
		lookupH, err := readG1(r)
		if err != nil {
			return nil, err
		}
		p.LookupOpening = &kzg.OpeningProof{ClaimedValue: lookupVal, H: lookupH}
	}

	return p, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeFr(buf *bytes.Buffer, e fr.Element) {
	b := e.Marshal()
	buf.Write(b)
}

func writeG1(buf *bytes.Buffer, p bn254.G1Affine) {
	b := p.Bytes()
	buf.Write(b[:])
}

func readByte(r *bytes.Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	return b, nil
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readFr(r *bytes.Reader) (fr.Element, error) {
	var b [fr.Bytes]byte
	if _, err := r.Read(b[:]); err != nil {
		return fr.Element{}, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	var e fr.Element
	e.SetBytes(b[:])
	return e, nil
}

func readG1(r *bytes.Reader) (bn254.G1Affine, error) {
	var b [bn254.SizeOfG1AffineCompressed]byte
	if _, err := r.Read(b[:]); err != nil {
		return bn254.G1Affine{}, zkerr.Wrap(zkerr.InvalidRequest, "proof truncated", err)
	}
	var p bn254.G1Affine
	if _, err := p.SetBytes(b[:]); err != nil {
		return bn254.G1Affine{}, zkerr.Wrap(zkerr.InvalidRequest, "decoding G1 point", err)
	}
	return p, nil
}
