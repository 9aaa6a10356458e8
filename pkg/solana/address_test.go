package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"hash"
	"testing"

	sologo "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramAddress(t *testing.T) {
	exceededSeed := make([]byte, maxSeedLength+1)
	maxSeed := make([]byte, maxSeedLength)

	// The typo here was taken directly from the Solana test case,
	// which was used to derive the expected outputs.
	publicKey, err := base58.Decode("SeedPubey1111111111111111111111111111111111")
	require.NoError(t, err)
	programID, err := base58.Decode("BPFLoader1111111111111111111111111111111111")
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)
	_, err = CreateProgramAddress(programID, []byte("short seed"), exceededSeed)
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	_, err = CreateProgramAddress(programID, maxSeed)
	assert.NoError(t, err)

	tooMany := make([][]byte, maxSeeds+1)
	_, err = CreateProgramAddress(programID, tooMany...)
	assert.Equal(t, ErrTooManySeeds, err)

	cases := []struct {
		expected string
		input    [][]byte
	}{
		{
			expected: "3gF2KMe9KiC6FNVBmfg9i267aMPvK37FewCip4eGBFcT",
			input:    [][]byte{{}, {1}},
		},
		{
			expected: "7ytmC1nT1xY4RfxCV2ZgyA7UakC93do5ZdyhdF3EtPj7",
			input:    [][]byte{[]byte("☉")},
		},
		{
			expected: "HwRVBufQ4haG5XSgpspwKtNd3PC9GM9m1196uJW36vds",
			input:    [][]byte{[]byte("Talking"), []byte("Squirrels")},
		},
		{
			expected: "GUs5qLUfsEHkcMB9T38vjr18ypEhRuNWiePW2LoK4E3K",
			input:    [][]byte{publicKey},
		},
	}

	for _, tc := range cases {
		key, err := CreateProgramAddress(programID, tc.input...)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, base58.Encode(key))
		assert.False(t, IsOnCurve(key))
	}
}

// onCurveHash always produces the same (on-curve) public key, which forces
// every derivation attempt to be rejected.
type onCurveHash struct {
	sumResult []byte
	writes    int
}

func (h *onCurveHash) Write(p []byte) (n int, err error) {
	h.writes++
	return len(p), nil
}

func (h *onCurveHash) Sum(b []byte) []byte {
	return h.sumResult
}

func (h *onCurveHash) Reset() {
}

func (h *onCurveHash) Size() int {
	return sha256.Size
}

func (h *onCurveHash) BlockSize() int {
	return sha256.BlockSize
}

func withOnCurveHash(t *testing.T) *int {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var ctorCalls int
	programHashCtor = func() hash.Hash {
		ctorCalls++
		return &onCurveHash{sumResult: pub}
	}
	t.Cleanup(func() {
		programHashCtor = sha256.New
	})

	return &ctorCalls
}

func TestCreateProgramAddress_OnCurve(t *testing.T) {
	withOnCurveHash(t)

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = CreateProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
	assert.Equal(t, ErrInvalidPublicKey, err)
}

func TestFindProgramAddress_Exhausted(t *testing.T) {
	ctorCalls := withOnCurveHash(t)

	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	pub, bump, err := FindProgramAddressAndBump(programID, []byte("time_lock"))
	assert.Equal(t, ErrNoViableBump, err)
	assert.Nil(t, pub)
	assert.EqualValues(t, 0, bump)

	// Every one of the 256 bump candidates must have been attempted.
	assert.Equal(t, 256, *ctorCalls)
}

func TestFindProgramAddress_SeedErrorsPropagate(t *testing.T) {
	programID, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, _, err = FindProgramAddressAndBump(programID, make([]byte, maxSeedLength+1))
	assert.Equal(t, ErrMaxSeedLengthExceeded, err)

	// 16 seeds plus the bump exceeds the limit.
	_, _, err = FindProgramAddressAndBump(programID, make([][]byte, maxSeeds)...)
	assert.Equal(t, ErrTooManySeeds, err)
}

func TestFindProgramAddress_Ref(t *testing.T) {
	references := []struct {
		programID string
		expected  string
	}{
		{
			programID: "4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM",
			expected:  "Bn9pAWUXWc5Kd849xTkQcHqiCbHUEizLFn4r5Cf8XYnd",
		},
		{
			programID: "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh",
			expected:  "oDvUHiiGdMo31xYzjefAzUekWH8EbCKrxgs2FkyTs1S",
		},
		{
			programID: "CiDwVBFgWV9E5MvXWoLgnEgn2hK7rJikbvfWavzAQz3",
			expected:  "B2vBn2bmF9GuaGkebrm8oUqDC34pE6m4bagjNcVE6msv",
		},
		{
			programID: "GcdayuLaLyrdmUu324nahyv33G5poQdLUEZ1nEytDeP",
			expected:  "2mN5Nfq9v1EwTV9FPTHPESZ3XiZce9wi5PQoULFuxvev",
		},
	}

	for _, r := range references {
		programID, err := base58.Decode(r.programID)
		require.NoError(t, err)

		actual, err := FindProgramAddress(programID, []byte("Lil'"), []byte("Bits"))
		require.NoError(t, err)
		assert.Equal(t, r.expected, base58.Encode(actual))
	}
}

func TestFindProgramAddress_CrossImpl(t *testing.T) {
	for i := 0; i < 100; i++ {
		programID, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		owner, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)

		seeds := [][]byte{[]byte("time_lock"), owner, {byte(i), 0, 0, 0, 0, 0, 0, 0}}

		actual, bump, err := FindProgramAddressAndBump(programID, seeds...)
		require.NoError(t, err)

		expected, expectedBump, err := sologo.FindProgramAddress(seeds, sologo.PublicKeyFromBytes(programID))
		require.NoError(t, err)

		assert.Equal(t, expected.Bytes(), []byte(actual))
		assert.Equal(t, expectedBump, bump)
	}
}

func TestIsOnCurve(t *testing.T) {
	for i := 0; i < 100; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		assert.True(t, IsOnCurve(pub))
	}

	assert.False(t, IsOnCurve(nil))
	assert.False(t, IsOnCurve(make([]byte, 31)))

	pda, err := FindProgramAddress(make([]byte, 32), []byte("seed"))
	require.NoError(t, err)
	assert.False(t, IsOnCurve(pda))
}
