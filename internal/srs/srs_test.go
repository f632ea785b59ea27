package srs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDevProducesExpectedDegree(t *testing.T) {
	s, err := GenerateDev(31, 42)
	require.NoError(t, err)
	require.Equal(t, 31, s.Degree())
	require.Len(t, s.G1, 32)
}

func TestGenerateDevIsDeterministic(t *testing.T) {
	a, err := GenerateDev(15, 42)
	require.NoError(t, err)
	b, err := GenerateDev(15, 42)
	require.NoError(t, err)
	require.Equal(t, a.G1Digest, b.G1Digest)
	require.Equal(t, a.G2Digest, b.G2Digest)
}

func TestGenerateDevDifferentSeedsDiffer(t *testing.T) {
	a, err := GenerateDev(15, 42)
	require.NoError(t, err)
	b, err := GenerateDev(15, 43)
	require.NoError(t, err)
	require.NotEqual(t, a.G1Digest, b.G1Digest)
}

func TestEncodeDecodeG1RoundTrips(t *testing.T) {
	dev, err := GenerateDev(7, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "G1.bin")
	require.NoError(t, osWriteFile(path, EncodeG1(dev.G1)))

	loaded, err := LoadG1(path, 7)
	require.NoError(t, err)
	require.Equal(t, dev.G1, loaded)
}

func TestCompressDecompressG1RoundTrips(t *testing.T) {
	dev, err := GenerateDev(31, 9)
	require.NoError(t, err)

	compressed, err := CompressG1(dev.G1)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(EncodeG1(dev.G1)))

	decompressed, err := DecompressG1(compressed)
	require.NoError(t, err)
	require.Equal(t, dev.G1, decompressed)
}

func TestLoadG1RejectsInsufficientDegree(t *testing.T) {
	dev, err := GenerateDev(7, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "G1.bin")
	require.NoError(t, osWriteFile(path, EncodeG1(dev.G1)))

	_, err = LoadG1(path, 100)
	require.Error(t, err)
}

func TestLoadG1RejectsWrongTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "G1.bin")
	require.NoError(t, osWriteFile(path, []byte{0, 0, 0, 0, 0, 0, 0, 0}))

	_, err := LoadG1(path, 0)
	require.Error(t, err)
}

func TestEncodeDecodeG2RoundTrips(t *testing.T) {
	dev, err := GenerateDev(7, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "G2.bin")
	require.NoError(t, osWriteFile(path, EncodeG2(dev.G2)))

	loaded, err := LoadG2(path)
	require.NoError(t, err)
	require.Equal(t, dev.G2, loaded)
}

func TestLoadRoundTripsFullSRSAndValidatesPairing(t *testing.T) {
	dev, err := GenerateDev(15, 7)
	require.NoError(t, err)

	dir := t.TempDir()
	g1Path := filepath.Join(dir, "G1.bin")
	g2Path := filepath.Join(dir, "G2.bin")
	require.NoError(t, osWriteFile(g1Path, EncodeG1(dev.G1)))
	require.NoError(t, osWriteFile(g2Path, EncodeG2(dev.G2)))

	loaded, err := Load(g1Path, g2Path, 15)
	require.NoError(t, err)
	require.Equal(t, dev.G1Digest, loaded.G1Digest)
	require.Equal(t, dev.G2Digest, loaded.G2Digest)
	require.NoError(t, loaded.ValidatePairing())
}

func TestValidatePairingRejectsMismatchedHalves(t *testing.T) {
	a, err := GenerateDev(15, 1)
	require.NoError(t, err)
	b, err := GenerateDev(15, 2)
	require.NoError(t, err)

	mixed := &SRS{G1: a.G1, G2: b.G2}
	require.Error(t, mixed.ValidatePairing())
}

func osWriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
