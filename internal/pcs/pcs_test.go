package pcs

import (
	"crypto/sha256"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	"github.com/stretchr/testify/require"

	"github.com/tinyzkp/engine/internal/domain"
	"github.com/tinyzkp/engine/internal/srs"
)

func felt(v uint64) fr.Element {
	var f fr.Element
	f.SetUint64(v)
	return f
}

func chunk(vals []fr.Element, size int) func(yield func([]fr.Element) bool) {
	return func(yield func([]fr.Element) bool) {
		for i := 0; i < len(vals); i += size {
			end := i + size
			if end > len(vals) {
				end = len(vals)
			}
			if !yield(vals[i:end]) {
				return
			}
		}
	}
}

func reversed(vals []fr.Element) []fr.Element {
	out := make([]fr.Element, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = v
	}
	return out
}

func TestCommitCoeffTilesMatchesSingleShotCommit(t *testing.T) {
	devSRS, err := srs.GenerateDev(15, 7)
	require.NoError(t, err)

	coeffs := []fr.Element{felt(1), felt(2), felt(3), felt(4), felt(5), felt(6), felt(7)}

	want, err := kzg.Commit(coeffs, devSRS.KZG().Pk)
	require.NoError(t, err)

	got, err := CommitCoeffTiles(devSRS, chunk(coeffs, 2))
	require.NoError(t, err)
	wantAffine := bn254.G1Affine(want)
	require.True(t, got.Equal(&wantAffine))
}

func TestCommitCoeffTilesRejectsOverflow(t *testing.T) {
	devSRS, err := srs.GenerateDev(2, 1)
	require.NoError(t, err)

	coeffs := make([]fr.Element, 10)
	for i := range coeffs {
		coeffs[i] = felt(uint64(i + 1))
	}

	_, err = CommitCoeffTiles(devSRS, chunk(coeffs, 3))
	require.Error(t, err)
}

func TestOpenHiToLoMatchesKZGOpen(t *testing.T) {
	devSRS, err := srs.GenerateDev(15, 7)
	require.NoError(t, err)

	coeffs := []fr.Element{felt(1), felt(2), felt(3), felt(4), felt(5)}
	maxDegree := len(coeffs) - 1
	zeta := felt(9)

	wantProof, err := kzg.Open(coeffs, zeta, devSRS.KZG().Pk)
	require.NoError(t, err)

	hiToLo := reversed(coeffs)
	value, witnessComm, err := OpenHiToLo(devSRS, maxDegree, zeta, chunk(hiToLo, 2))
	require.NoError(t, err)

	require.True(t, value.Equal(&wantProof.ClaimedValue))
	require.True(t, witnessComm.Equal(&wantProof.H))
}

func TestOpenHiToLoRejectsInsufficientSRS(t *testing.T) {
	devSRS, err := srs.GenerateDev(2, 1)
	require.NoError(t, err)

	coeffs := make([]fr.Element, 10)
	for i := range coeffs {
		coeffs[i] = felt(uint64(i + 1))
	}

	_, _, err = OpenHiToLo(devSRS, len(coeffs)-1, felt(3), chunk(reversed(coeffs), 2))
	require.Error(t, err)
}

func TestBatchOpenSinglePointRoundTrips(t *testing.T) {
	devSRS, err := srs.GenerateDev(15, 7)
	require.NoError(t, err)

	a := []fr.Element{felt(1), felt(2), felt(3)}
	b := []fr.Element{felt(4), felt(5), felt(6)}

	digA, err := Commit(devSRS, a)
	require.NoError(t, err)
	digB, err := Commit(devSRS, b)
	require.NoError(t, err)

	point := felt(11)
	d := fft.NewDomain(4)
	proof, err := BatchOpenSinglePoint(devSRS, [][]fr.Element{a, b}, []bn254.G1Affine{digA, digB}, point, sha256.New(), d)
	require.NoError(t, err)
	require.Len(t, proof.ClaimedValues, 2)

	err = BatchVerifySinglePoint(devSRS, []bn254.G1Affine{digA, digB}, proof, point, sha256.New(), d)
	require.NoError(t, err)
}

func TestOpenHiToLoProofVerifies(t *testing.T) {
	devSRS, err := srs.GenerateDev(15, 7)
	require.NoError(t, err)

	coeffs := []fr.Element{felt(1), felt(2), felt(3), felt(4), felt(5)}
	zeta := felt(9)
	d := fft.NewDomain(uint64(len(coeffs)))

	commit, err := Commit(devSRS, coeffs)
	require.NoError(t, err)

	value, witnessComm, err := OpenHiToLo(devSRS, len(coeffs)-1, zeta, chunk(reversed(coeffs), 2))
	require.NoError(t, err)

	proof := kzg.OpeningProof{ClaimedValue: value, H: witnessComm}
	err = Verify(devSRS, commit, proof, zeta, d)
	require.NoError(t, err)
}

func TestLagrangeBasisCommitMatchesCoeffCommit(t *testing.T) {
	d, err := domain.Plan(4, 0, fr.Element{}, 0)
	require.NoError(t, err)
	devSRS, err := srs.GenerateDev(int(d.N)+2, 17)
	require.NoError(t, err)

	evals := []fr.Element{felt(5), felt(9), felt(2), felt(7)}

	bifft := domain.NewBlockedIFFT(d)
	require.NoError(t, bifft.FeedEvalBlock(evals))
	var coeffs []fr.Element
	for tile := range bifft.FinishLowToHigh() {
		coeffs = append(coeffs, tile...)
	}
	want, err := CommitCoeffTiles(devSRS, chunk(coeffs, 2))
	require.NoError(t, err)

	lb, err := BuildLagrangeBasis(devSRS, d)
	require.NoError(t, err)
	got, err := lb.CommitEval(evals)
	require.NoError(t, err)

	require.True(t, got.Equal(&want))
}

func TestBatchVerifySinglePointRejectsWrongPoint(t *testing.T) {
	devSRS, err := srs.GenerateDev(15, 7)
	require.NoError(t, err)

	a := []fr.Element{felt(1), felt(2), felt(3)}
	digA, err := Commit(devSRS, a)
	require.NoError(t, err)

	point := felt(11)
	d := fft.NewDomain(4)
	proof, err := BatchOpenSinglePoint(devSRS, [][]fr.Element{a}, []bn254.G1Affine{digA}, point, sha256.New(), d)
	require.NoError(t, err)

	wrongPoint := felt(12)
	err = BatchVerifySinglePoint(devSRS, []bn254.G1Affine{digA}, proof, wrongPoint, sha256.New(), d)
	require.Error(t, err)
}
