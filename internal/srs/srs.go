// Package srs loads, validates, and digests the Structured Reference
// String the KZG commitment scheme needs: {τ^i·G1}_{i=0..N} and {G2, τ·G2}.
// Loading follows the same layered-validation discipline as gnark-crypto's
// own InitKZG (degree check, generator check, non-identity check),
// generalized from original_source/src/srs_setup.rs's four validation
// layers.
package srs

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/compress/lzss"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"

	"github.com/tinyzkp/engine/internal/zkerr"
)

// SRS is a loaded, validated Structured Reference String plus the content
// digests that bind proofs produced against it to these exact parameters.
type SRS struct {
	G1 []bn254.G1Affine
	G2 [2]bn254.G2Affine // [G2, τ·G2]

	G1Digest [32]byte
	G2Digest [32]byte
}

// Degree returns the maximum polynomial degree this SRS can commit to.
func (s *SRS) Degree() int { return len(s.G1) - 1 }

// KZG adapts the loaded SRS into the shape gnark-crypto's kzg package
// expects for Commit/Open/BatchOpenSinglePoint.
func (s *SRS) KZG() *kzg.SRS {
	return &kzg.SRS{
		Pk: kzg.ProvingKey{G1: s.G1},
		Vk: kzg.VerifyingKey{
			G2: s.G2,
			G1: s.G1[0],
		},
	}
}

// magic numbers for the SRS binary file format: a 4-byte tag followed by a
// uint32 point count, then that many compressed-serialized affine points
// back-to-back (via bn254's own Marshal/Unmarshal, which are fixed-width).
const (
	g1FileTag uint32 = 0x5a4b4731 // "ZKG1"
	g2FileTag uint32 = 0x5a4b4732 // "ZKG2"
)

// LoadG1 reads and validates the G1 half of the SRS from path: the file
// must encode at least minDegree+1 powers of τ in G1, with the first power
// equal to the G1 generator.
func LoadG1(path string, minDegree int) ([]bn254.G1Affine, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.SrsNotReady, "reading G1 SRS file", err)
	}

	points, err := decodeAffinePoints(b, g1FileTag, bn254.SizeOfG1AffineCompressed, func(buf []byte) (bn254.G1Affine, error) {
		var p bn254.G1Affine
		_, err := p.SetBytes(buf)
		return p, err
	})
	if err != nil {
		return nil, zkerr.Wrap(zkerr.SrsCorrupt, "decoding G1 SRS", err)
	}

	if len(points) < minDegree+1 {
		return nil, zkerr.New(zkerr.SrsCorrupt, fmt.Sprintf(
			"G1 SRS has %d powers, need at least %d for degree %d", len(points), minDegree+1, minDegree))
	}

	_, _, g1Gen, _ := bn254.Generators()
	if !points[0].Equal(&g1Gen) {
		return nil, zkerr.New(zkerr.SrsCorrupt, "G1 SRS first element is not the generator")
	}

	return points, nil
}

// LoadG2 reads and validates the G2 half of the SRS from path, accepting
// either the two-element [G2, τ·G2] ceremony format or a bare [τ·G2].
// Always returns the full [G2, τ·G2] pair for use with kzg.SRS.Vk.G2.
func LoadG2(path string) ([2]bn254.G2Affine, error) {
	var out [2]bn254.G2Affine

	b, err := os.ReadFile(path)
	if err != nil {
		return out, zkerr.Wrap(zkerr.SrsNotReady, "reading G2 SRS file", err)
	}

	points, err := decodeAffinePoints(b, g2FileTag, bn254.SizeOfG2AffineCompressed, func(buf []byte) (bn254.G2Affine, error) {
		var p bn254.G2Affine
		_, err := p.SetBytes(buf)
		return p, err
	})
	if err != nil {
		return out, zkerr.Wrap(zkerr.SrsCorrupt, "decoding G2 SRS", err)
	}
	if len(points) == 0 {
		return out, zkerr.New(zkerr.SrsCorrupt, "G2 SRS file is empty")
	}

	_, _, _, g2Gen := bn254.Generators()

	var tauG2 bn254.G2Affine
	if len(points) >= 2 {
		if !points[0].Equal(&g2Gen) {
			return out, zkerr.New(zkerr.SrsCorrupt, "G2 SRS first element is not the generator")
		}
		tauG2 = points[1]
	} else {
		tauG2 = points[0]
	}

	if tauG2.IsInfinity() {
		return out, zkerr.New(zkerr.SrsCorrupt, "tau*G2 is the point at infinity")
	}

	out[0] = g2Gen
	out[1] = tauG2
	return out, nil
}

// Load reads, validates, and digests the full SRS from g1Path/g2Path,
// requiring at least minDegree+1 G1 powers.
func Load(g1Path, g2Path string, minDegree int) (*SRS, error) {
	g1, err := LoadG1(g1Path, minDegree)
	if err != nil {
		return nil, err
	}
	g2, err := LoadG2(g2Path)
	if err != nil {
		return nil, err
	}

	s := &SRS{G1: g1, G2: g2}
	s.G1Digest = digestG1(g1)
	s.G2Digest = digestG2(g2)
	return s, nil
}

// ValidatePairing performs the expensive e([τ]G1, G2) = e(G1, [τ]G2) check
// that confirms the two halves of the SRS were drawn from the same τ. It
// is off by default (config.ValidatePairingOnLoad) because it costs two
// pairings.
func (s *SRS) ValidatePairing() error {
	if len(s.G1) < 2 {
		return zkerr.New(zkerr.SrsCorrupt, "need at least 2 G1 powers for pairing check")
	}
	_, _, g1Gen, g2Gen := bn254.Generators()

	lhs, err := bn254.Pair([]bn254.G1Affine{s.G1[1]}, []bn254.G2Affine{g2Gen})
	if err != nil {
		return zkerr.Wrap(zkerr.PairingFailed, "pairing e([tau]G1, G2)", err)
	}
	rhs, err := bn254.Pair([]bn254.G1Affine{g1Gen}, []bn254.G2Affine{s.G2[1]})
	if err != nil {
		return zkerr.Wrap(zkerr.PairingFailed, "pairing e(G1, [tau]G2)", err)
	}
	if !lhs.Equal(&rhs) {
		return zkerr.New(zkerr.PairingFailed, "G1/G2 SRS halves do not satisfy e([tau]G1,G2) = e(G1,[tau]G2)")
	}
	return nil
}

func digestG1(points []bn254.G1Affine) [32]byte {
	h := sha256.New()
	h.Write([]byte("tinyzkp.srs.g1.v1"))
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(points)))
	h.Write(lenBuf[:])
	for _, p := range points {
		b := p.Bytes()
		h.Write(b[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func digestG2(points [2]bn254.G2Affine) [32]byte {
	h := sha256.New()
	h.Write([]byte("tinyzkp.srs.g2.v1"))
	for _, p := range points {
		b := p.Bytes()
		h.Write(b[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// decodeAffinePoints parses the SRS file format: 4-byte tag, 4-byte
// big-endian point count, then that many fixed-width compressed points.
func decodeAffinePoints[T any](b []byte, wantTag uint32, pointSize int, decode func([]byte) (T, error)) ([]T, error) {
	if len(b) < 8 {
		return nil, fmt.Errorf("file too short: %d bytes", len(b))
	}
	tag := binary.BigEndian.Uint32(b[0:4])
	if tag != wantTag {
		return nil, fmt.Errorf("unexpected file tag %08x, want %08x", tag, wantTag)
	}
	count := binary.BigEndian.Uint32(b[4:8])
	body := b[8:]
	want := int(count) * pointSize
	if len(body) != want {
		return nil, fmt.Errorf("body length %d does not match count*size %d", len(body), want)
	}

	out := make([]T, count)
	for i := 0; i < int(count); i++ {
		p, err := decode(body[i*pointSize : (i+1)*pointSize])
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// EncodeG1 serializes powers into the srs file format LoadG1 reads back.
func EncodeG1(powers []bn254.G1Affine) []byte {
	return encodeAffinePoints(g1FileTag, powers, func(p bn254.G1Affine) []byte {
		b := p.Bytes()
		return b[:]
	})
}

// EncodeG2 serializes [G2, tau*G2] into the srs file format LoadG2 reads back.
func EncodeG2(points [2]bn254.G2Affine) []byte {
	return encodeAffinePoints(g2FileTag, points[:], func(p bn254.G2Affine) []byte {
		b := p.Bytes()
		return b[:]
	})
}

func encodeAffinePoints[T any](tag uint32, points []T, marshal func(T) []byte) []byte {
	var buf []byte
	var head [8]byte
	binary.BigEndian.PutUint32(head[0:4], tag)
	binary.BigEndian.PutUint32(head[4:8], uint32(len(points)))
	buf = append(buf, head[:]...)
	for _, p := range points {
		buf = append(buf, marshal(p)...)
	}
	return buf
}

// CompressG1 lzss-compresses an EncodeG1 dump for disk storage: a G1 power
// table at a large N is the single biggest artifact an operator stores
// long-term, and its Bytes() encoding is dense random-looking curve data
// punctuated by a repetitive header, which is exactly what gnark's own
// lzss compressor (std/compress/lzss, used elsewhere in the pack to shrink
// on-chain calldata) is built for.
func CompressG1(powers []bn254.G1Affine) ([]byte, error) {
	raw := EncodeG1(powers)
	compressor, err := lzss.NewCompressor(nil, lzss.GoodCompression)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.InternalInvariantViolated, "constructing lzss compressor", err)
	}
	out, err := compressor.Compress(raw)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.InternalInvariantViolated, "lzss compressing G1 SRS", err)
	}
	return out, nil
}

// DecompressG1 reverses CompressG1 and validates the result the same way
// LoadG1 validates a raw file (structural tag/count check only; the caller
// still owns the minDegree/generator checks via LoadG1-style validation if
// loading from an untrusted source).
func DecompressG1(compressed []byte) ([]bn254.G1Affine, error) {
	raw, err := lzss.Decompress(compressed, nil)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.SrsCorrupt, "lzss decompressing G1 SRS", err)
	}
	points, err := decodeAffinePoints(raw, g1FileTag, bn254.SizeOfG1AffineCompressed, func(buf []byte) (bn254.G1Affine, error) {
		var p bn254.G1Affine
		_, err := p.SetBytes(buf)
		return p, err
	})
	if err != nil {
		return nil, zkerr.Wrap(zkerr.SrsCorrupt, "decoding decompressed G1 SRS", err)
	}
	return points, nil
}

// GenerateDev builds a deterministic, publicly-known-τ SRS suitable only
// for local development and tests: real code must never load a dev SRS in
// production (config has no toggle for this precisely so that "dev" is a
// deliberate, separate call site, not a flag typo).
func GenerateDev(degree int, seed int64) (*SRS, error) {
	alpha := big.NewInt(seed)
	ks, err := kzg.NewSRS(uint64(degree)+1, alpha)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.SrsCorrupt, "generating dev SRS", err)
	}
	s := &SRS{G1: ks.Pk.G1, G2: ks.Vk.G2}
	s.G1Digest = digestG1(s.G1)
	s.G2Digest = digestG2(s.G2)
	return s, nil
}
