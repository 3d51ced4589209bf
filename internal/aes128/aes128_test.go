package aes128

import (
	"crypto/aes"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDouble(t *testing.T) {
	assert.Equal(t, byte(0x02), Double(0x01))
	assert.Equal(t, byte(0xfe), Double(0x7f))
	assert.Equal(t, byte(0x1b), Double(0x80))
	assert.Equal(t, byte(0xe5), Double(0xff))
	assert.Equal(t, byte(0x8e), Double(0x47))

	for i := 0; i < 256; i++ {
		require.Equalf(t, gal2[i], Double(byte(i)), "gal2 mismatch at %#02x", i)
	}
}

func TestExpandZeroKey(t *testing.T) {
	want := []string{
		"00000000000000000000000000000000",
		"62636363626363636263636362636363",
		"9b9898c9f9fbfbaa9b9898c9f9fbfbaa",
		"90973450696ccffaf2f457330b0fac99",
		"ee06da7b876a1581759e42b27e91ee2b",
		"7f2e2b88f8443e098dda7cbbf34b9290",
		"ec614b851425758c99ff09376ab49ba7",
		"217517873550620bacaf6b3cc61bf09b",
		"0ef903333ba9613897060a04511dfa9f",
		"b1d4d8e28a7db9da1d7bb3de4c664941",
		"b4ef5bcb3e92e21123e951cf6f8f188e",
	}

	s := Expand([KeySize]byte{})
	for r, w := range want {
		assert.Equalf(t, w, hex.EncodeToString(s[r][:]), "round %d", r)
	}
}

func TestExpandStandardKey(t *testing.T) {
	want := []string{
		"2b7e151628aed2a6abf7158809cf4f3c",
		"a0fafe1788542cb123a339392a6c7605",
		"f2c295f27a96b9435935807a7359f67f",
		"3d80477d4716fe3e1e237e446d7a883b",
		"ef44a541a8525b7fb671253bdb0bad00",
		"d4d1c6f87c839d87caf2b8bc11f915bc",
		"6d88a37a110b3efddbf98641ca0093fd",
		"4e54f70e5f5fc9f384a64fb24ea6dc4f",
		"ead27321b58dbad2312bf5607f8d292f",
		"ac7766f319fadc2128d12941575c006e",
		"d014f9a8c9ee2589e13f0cc8b6630ca6",
	}

	s, err := NewSchedule(mustHex(t, want[0]))
	require.NoError(t, err)
	for r, w := range want {
		assert.Equalf(t, w, hex.EncodeToString(s[r][:]), "round %d", r)
	}
}

func TestNewScheduleRejectsBadKey(t *testing.T) {
	for _, n := range []int{0, 8, 15, 17, 24, 32} {
		_, err := NewSchedule(make([]byte, n))
		require.ErrorIsf(t, err, ErrInvalidKeySize, "key length %d", n)
	}
}

func TestEncryptKnownAnswer(t *testing.T) {
	cases := []struct {
		name, key, plain, cipher string
	}{
		{"fips197 c.1", "000102030405060708090a0b0c0d0e0f", "00112233445566778899aabbccddeeff", "69c4e0d86a7b0430d8cdb78070b4c55a"},
		{"fips197 appendix b", "2b7e151628aed2a6abf7158809cf4f3c", "3243f6a8885a308d313198a2e0370734", "3925841d02dc09fbdc118597196a0b32"},
		{"zero key zero block", "00000000000000000000000000000000", "00000000000000000000000000000000", "66e94bd4ef8a2c3b884cfa59ca342b2e"},
		{"zero key counter one", "00000000000000000000000000000000", "00000000000000000000000000000001", "58e2fccefa7e3061367f1d57a4e7455a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSchedule(mustHex(t, tc.key))
			require.NoError(t, err)

			var state [BlockSize]byte
			copy(state[:], mustHex(t, tc.plain))
			Encrypt(s, &state)
			assert.Equal(t, tc.cipher, hex.EncodeToString(state[:]))
		})
	}
}

func TestEncryptMatchesStandardLibrary(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		key := make([]byte, KeySize)
		rng.Read(key)
		var state [BlockSize]byte
		rng.Read(state[:])

		ref, err := aes.NewCipher(key)
		require.NoError(t, err)
		want := make([]byte, BlockSize)
		ref.Encrypt(want, state[:])

		s, err := NewSchedule(key)
		require.NoError(t, err)
		Encrypt(s, &state)
		require.Equal(t, want, state[:])
	}
}

func TestShiftColumnsRotatesLeftByIndex(t *testing.T) {
	var state [BlockSize]byte
	for i := range state {
		state[i] = byte(i)
	}
	shiftColumns(&state)

	want := [BlockSize]byte{
		0, 5, 10, 15,
		4, 9, 14, 3,
		8, 13, 2, 7,
		12, 1, 6, 11,
	}
	assert.Equal(t, want, state)
}

func TestWipe(t *testing.T) {
	s, err := NewSchedule(mustHex(t, "2b7e151628aed2a6abf7158809cf4f3c"))
	require.NoError(t, err)
	s.Wipe()
	assert.Equal(t, Schedule{}, *s)
}
