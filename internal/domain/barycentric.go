package domain

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/tinyzkp/engine/internal/zkerr"
)

// BarycentricWeights precomputes the two scalars a streaming barycentric
// evaluation needs: 1/N and ω^-(N-1), the per-step multiplier that advances
// the weight term alongside ω^i.
type BarycentricWeights struct {
	invN fr.Element
	step fr.Element
}

// NewBarycentricWeights derives the weights for d.
func NewBarycentricWeights(d *Domain) (BarycentricWeights, error) {
	if err := Validate(d); err != nil {
		return BarycentricWeights{}, err
	}
	var invN fr.Element
	invN.SetUint64(d.N)
	invN.Inverse(&invN)

	var wNMinus1, step fr.Element
	exp := d.N - 1
	wNMinus1.Exp(d.Omega, new(big.Int).SetUint64(exp))
	step.Inverse(&wNMinus1)

	return BarycentricWeights{invN: invN, step: step}, nil
}

// EvalStreamBarycentric evaluates the unique degree-<N polynomial agreeing
// with f on H at the out-of-domain point zeta, given f's evaluations in
// domain order (f(1), f(ω), f(ω^2), ...) as a single-pass iterator. It
// never materializes the evaluation vector.
func EvalStreamBarycentric(d *Domain, w BarycentricWeights, zeta fr.Element, evals func(yield func(fr.Element) bool)) (fr.Element, error) {
	if d.IsInDomain(zeta) {
		return fr.Element{}, zkerr.New(zkerr.InvalidRequest, "evaluation point lies in the domain")
	}

	var (
		omegaI  fr.Element
		wI      fr.Element
		num     fr.Element
		den     fr.Element
		onPoint fr.Element
		onHit   bool
	)
	omegaI.SetOne()
	wI = w.invN

	evals(func(fi fr.Element) bool {
		if zeta.Equal(&omegaI) {
			onPoint = fi
			onHit = true
			return false
		}
		var diff, denomTerm, term fr.Element
		diff.Sub(&zeta, &omegaI)
		denomTerm.Inverse(&diff)

		term.Mul(&wI, &fi)
		term.Mul(&term, &denomTerm)
		num.Add(&num, &term)

		var dterm fr.Element
		dterm.Mul(&wI, &denomTerm)
		den.Add(&den, &dterm)

		omegaI.Mul(&omegaI, &d.Omega)
		wI.Mul(&wI, &w.step)
		return true
	})

	if onHit {
		return onPoint, nil
	}

	var denInv, out fr.Element
	denInv.Inverse(&den)
	out.Mul(&num, &denInv)
	return out, nil
}
