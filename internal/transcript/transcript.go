// Package transcript wraps gnark-crypto's own Fiat–Shamir transcript
// (github.com/consensys/gnark-crypto/fiat-shamir) with the domain-separated
// absorption schedule the engine's protocol needs: protocol header, SRS
// digests, selector/wire commitments, β/γ, the permutation-Z commitment,
// α, the quotient commitment, ζ, evaluations, and v. The label set and
// absorption order are generalized from original_source/src/transcript.rs's
// FsLabel enum; the hash primitive and challenge-chaining mechanics reuse
// a plonk prover's own fiatshamir.NewTranscript/Bind/ComputeChallenge, via
// the deriveRandomness helper pattern seen in backend/fflonk/bn254/verify.go.
package transcript

import (
	"crypto/sha256"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"

	"github.com/tinyzkp/engine/internal/zkerr"
)

// Challenge names, declared up front with the underlying transcript so
// each challenge's preimage automatically chains in everything bound to
// earlier-named challenges (gnark-crypto's own fiat-shamir chaining rule).
const (
	challengeBeta  = "beta"
	challengeGamma = "gamma"
	challengeAlpha = "alpha"
	challengeZeta  = "zeta"
	challengeV     = "v"
)

var challengeOrder = []string{challengeBeta, challengeGamma, challengeAlpha, challengeZeta, challengeV}

// Transcript is the engine's Fiat–Shamir state for one proof/verify run.
type Transcript struct {
	fs *fiatshamir.Transcript
}

// New creates a fresh transcript, domain-separated by protocolLabel (e.g.
// "tinyzkp.v1"), and binds it as the first item absorbed.
func New(protocolLabel string) *Transcript {
	hFunc := sha256.New()
	fs := fiatshamir.NewTranscript(hFunc, challengeOrder...)
	t := &Transcript{fs: fs}
	t.bind(challengeBeta, []byte(protocolLabel))
	return t
}

func (t *Transcript) bind(challenge string, data []byte) {
	if err := t.fs.Bind(challenge, data); err != nil {
		// Bind only fails for a misuse the engine itself controls (an
		// undeclared challenge name or binding after that challenge was
		// already squeezed), never on external input.
		panic(zkerr.Wrap(zkerr.InternalInvariantViolated, "transcript bind failed", err))
	}
}

func (t *Transcript) squeeze(challenge string) fr.Element {
	b, err := t.fs.ComputeChallenge(challenge)
	if err != nil {
		panic(zkerr.Wrap(zkerr.InternalInvariantViolated, "transcript squeeze failed", err))
	}
	var f fr.Element
	f.SetBytes(b)
	return f
}

// AbsorbHeader binds the serialized protocol/domain header into the
// transcript before any challenge is squeezed. The scheduler's headerBytes
// supplies N, the protocol label and the two SRS digests; ω, zh_c, k,
// b_blk and the basis tag are not part of those bytes.
func (t *Transcript) AbsorbHeader(headerBytes []byte) {
	t.bind(challengeBeta, headerBytes)
}

// AbsorbSelectorCommitments binds the selector polynomial commitments.
func (t *Transcript) AbsorbSelectorCommitments(commits []bn254.G1Affine) {
	for _, c := range commits {
		b := c.RawBytes()
		t.bind(challengeBeta, b[:])
	}
}

// AbsorbWireCommitments binds the wire-column commitments and squeezes β
// then γ, the permutation argument's randomizers.
func (t *Transcript) AbsorbWireCommitments(commits []bn254.G1Affine) (beta, gamma fr.Element) {
	for _, c := range commits {
		b := c.RawBytes()
		t.bind(challengeBeta, b[:])
	}
	beta = t.squeeze(challengeBeta)
	t.bind(challengeGamma, beta.Marshal())
	gamma = t.squeeze(challengeGamma)
	return beta, gamma
}

// AbsorbPermZCommitment binds the grand-product Z commitment — and,
// when the lookup argument is enabled, the lookup accumulator's Z_L
// commitment passed as extra — then squeezes α, the constraint-composition
// randomizer. Per the absorption order, Z_L binds after Z and before α.
func (t *Transcript) AbsorbPermZCommitment(z bn254.G1Affine, extra ...bn254.G1Affine) fr.Element {
	b := z.RawBytes()
	t.bind(challengeAlpha, b[:])
	for _, e := range extra {
		eb := e.RawBytes()
		t.bind(challengeAlpha, eb[:])
	}
	return t.squeeze(challengeAlpha)
}

// AbsorbQuotientCommitment binds the quotient commitment Q and squeezes ζ,
// re-squeezing (by re-binding a counter and computing again) if ζ happens
// to be zero or land in the evaluation domain H — events with negligible
// probability but ones the protocol must handle rather than silently
// accept, since the opening argument assumes ζ ∉ H and ζ ≠ 0 (Z_H(0) is
// generally non-zero, so inDomain alone would let a zero ζ through).
func (t *Transcript) AbsorbQuotientCommitment(q bn254.G1Affine, inDomain func(fr.Element) bool) fr.Element {
	b := q.RawBytes()
	t.bind(challengeZeta, b[:])
	zeta := t.squeeze(challengeZeta)
	for attempt := uint64(0); zeta.IsZero() || inDomain(zeta); attempt++ {
		var ctr [8]byte
		ctr[0] = byte(attempt)
		t.bind(challengeZeta, ctr[:])
		zeta = t.squeeze(challengeZeta)
	}
	return zeta
}

// AbsorbEvaluations binds the claimed evaluations (in a fixed, canonical
// order the caller is responsible for keeping stable) and squeezes v. The
// scheduler does not use v: its batched opening (pcs.BatchOpenSinglePoint)
// folds the polynomials with a randomizer gnark-crypto's kzg derives itself.
func (t *Transcript) AbsorbEvaluations(evals []fr.Element) fr.Element {
	for _, e := range evals {
		b := e.Marshal()
		t.bind(challengeV, b)
	}
	return t.squeeze(challengeV)
}
