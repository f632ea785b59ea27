package domain

import (
	"errors"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/stretchr/testify/require"

	"github.com/tinyzkp/engine/internal/zkerr"
)

func TestPlanRoundsUpToPowerOfTwo(t *testing.T) {
	d, err := Plan(3000, 0, fr.Element{}, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), d.N)
}

func TestPlanDefaultsBBlkToCeilSqrt(t *testing.T) {
	d, err := Plan(3000, 0, fr.Element{}, 0)
	require.NoError(t, err)
	// ceil(sqrt(4096)) = 64
	require.Equal(t, uint64(64), d.BBlk)
}

func TestPlanExplicitBBlkIsClamped(t *testing.T) {
	d, err := Plan(8, 1000, fr.Element{}, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(8), d.BBlk)
}

func TestPlanZeroRowsIsInvalidRequest(t *testing.T) {
	_, err := Plan(0, 0, fr.Element{}, 0)
	var ze *zkerr.Error
	require.True(t, errors.As(err, &ze))
	require.Equal(t, zkerr.InvalidRequest, ze.Kind)
}

func TestPlanRejectsDomainTooLarge(t *testing.T) {
	_, err := Plan(1000, 0, fr.Element{}, 512)
	var ze *zkerr.Error
	require.True(t, errors.As(err, &ze))
	require.Equal(t, zkerr.DomainTooLarge, ze.Kind)
}

func TestPlanDefaultsZhCToOne(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)
	var one fr.Element
	one.SetOne()
	require.True(t, d.ZhC.Equal(&one))
}

func TestVanishingAtDomainElementIsZero(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)
	require.True(t, d.IsInDomain(d.Omega))

	var one fr.Element
	one.SetOne()
	require.True(t, d.IsInDomain(one))
}

func TestVanishingAtOutOfDomainIsNonZero(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)

	var z fr.Element
	z.SetUint64(12345)
	require.False(t, d.IsInDomain(z))
}

func TestBarycentricMatchesDirectEvaluationAtOutOfDomainPoint(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)
	w, err := NewBarycentricWeights(d)
	require.NoError(t, err)

	evals := make([]fr.Element, d.N)
	for i := range evals {
		evals[i].SetUint64(uint64(i) * 7)
	}

	var z fr.Element
	z.SetUint64(999)

	got, err := EvalStreamBarycentric(d, w, z, func(yield func(fr.Element) bool) {
		for _, e := range evals {
			if !yield(e) {
				return
			}
		}
	})
	require.NoError(t, err)

	// Recompute via a full IFFT + Horner evaluation as an independent check.
	coeffs := make([]fr.Element, d.N)
	copy(coeffs, evals)
	d.FFT().FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)

	var want fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		want.Mul(&want, &z)
		want.Add(&want, &coeffs[i])
	}

	require.True(t, got.Equal(&want))
}

func TestBarycentricRejectsInDomainPoint(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)
	w, err := NewBarycentricWeights(d)
	require.NoError(t, err)

	_, err = EvalStreamBarycentric(d, w, d.Omega, func(yield func(fr.Element) bool) {})
	require.Error(t, err)
}

func TestBlockedIFFTMatchesDirectIFFT(t *testing.T) {
	d, err := Plan(16, 4, fr.Element{}, 0)
	require.NoError(t, err)

	evals := make([]fr.Element, d.N)
	for i := range evals {
		evals[i].SetUint64(uint64(i*i + 1))
	}

	b := NewBlockedIFFT(d)
	for start := 0; start < len(evals); start += 4 {
		require.NoError(t, b.FeedEvalBlock(evals[start:start+4]))
	}

	var got []fr.Element
	for tile := range b.FinishLowToHigh() {
		got = append(got, tile...)
	}

	want := make([]fr.Element, len(evals))
	copy(want, evals)
	d.FFT().FFTInverse(want, fft.DIF)
	fft.BitReverse(want)

	require.Equal(t, len(want), len(got))
	for i := range want {
		require.True(t, want[i].Equal(&got[i]), "coefficient %d mismatch", i)
	}
}

func TestBlockedIFFTHighToLowIsReversedLowToHigh(t *testing.T) {
	d, err := Plan(16, 4, fr.Element{}, 0)
	require.NoError(t, err)

	evals := make([]fr.Element, d.N)
	for i := range evals {
		evals[i].SetUint64(uint64(i + 1))
	}

	lo := NewBlockedIFFT(d)
	require.NoError(t, lo.FeedEvalBlock(evals))
	var wantLowToHigh []fr.Element
	for tile := range lo.FinishLowToHigh() {
		wantLowToHigh = append(wantLowToHigh, tile...)
	}

	hi := NewBlockedIFFT(d)
	require.NoError(t, hi.FeedEvalBlock(evals))
	var gotHighToLow []fr.Element
	for tile := range hi.FinishHighToLow() {
		gotHighToLow = append(gotHighToLow, tile...)
	}

	require.Equal(t, len(wantLowToHigh), len(gotHighToLow))
	n := len(wantLowToHigh)
	for i := 0; i < n; i++ {
		require.True(t, wantLowToHigh[i].Equal(&gotHighToLow[n-1-i]))
	}
}

func TestBlockedIFFTPadsShortStreamWithZeros(t *testing.T) {
	d, err := Plan(8, 0, fr.Element{}, 0)
	require.NoError(t, err)

	b := NewBlockedIFFT(d)
	var one fr.Element
	one.SetOne()
	require.NoError(t, b.FeedEvalBlock([]fr.Element{one}))

	var got []fr.Element
	for tile := range b.FinishLowToHigh() {
		got = append(got, tile...)
	}
	require.Equal(t, int(d.N), len(got))
}

func TestBlockedIFFTRejectsOverfeed(t *testing.T) {
	d, err := Plan(4, 0, fr.Element{}, 0)
	require.NoError(t, err)

	b := NewBlockedIFFT(d)
	evals := make([]fr.Element, d.N+1)
	require.Error(t, b.FeedEvalBlock(evals))
}
