package ctr

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadLengths(t *testing.T) {
	_, err := New(make([]byte, 15), make([]byte, NonceSize))
	require.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = New(make([]byte, 16), make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidNonceSize)

	_, err = New(make([]byte, 16), nil)
	require.ErrorIs(t, err, ErrInvalidNonceSize)
}

func TestKeystreamZeroKeyZeroNonce(t *testing.T) {
	s, err := New(make([]byte, 16), make([]byte, NonceSize))
	require.NoError(t, err)

	ks0 := s.Keystream(0)
	ks1 := s.Keystream(1)
	assert.Equal(t, "66e94bd4ef8a2c3b884cfa59ca342b2e", hex.EncodeToString(ks0[:]))
	assert.Equal(t, "58e2fccefa7e3061367f1d57a4e7455a", hex.EncodeToString(ks1[:]))

	data := make([]byte, 32)
	s.CryptBlock(0, data[:16])
	s.CryptBlock(1, data[16:])
	assert.Equal(t, "66e94bd4ef8a2c3b884cfa59ca342b2e58e2fccefa7e3061367f1d57a4e7455a", hex.EncodeToString(data))
}

func TestKeystreamIsDeterministic(t *testing.T) {
	key := []byte("0123456789abcdef")
	nonce := []byte("noncenon")

	a, err := New(key, nonce)
	require.NoError(t, err)
	b, err := New(key, nonce)
	require.NoError(t, err)

	for _, c := range []uint64{0, 1, 255, 256, 1 << 32, ^uint64(0)} {
		assert.Equal(t, a.Keystream(c), b.Keystream(c))
		assert.Equal(t, a.Keystream(c), a.Keystream(c))
	}
	assert.NotEqual(t, a.Keystream(0), a.Keystream(1))
}

func TestCryptBlockSelfInverse(t *testing.T) {
	s, err := New([]byte("0123456789abcdef"), []byte("noncenon"))
	require.NoError(t, err)

	for n := 0; n <= BlockSize; n++ {
		orig := bytes.Repeat([]byte{0xa5}, n)
		data := make([]byte, n)
		copy(data, orig)
		s.CryptBlock(7, data)
		if n > 0 {
			assert.NotEqual(t, orig, data)
		}
		s.CryptBlock(7, data)
		assert.Equal(t, orig, data)
	}
}

func TestCryptBlockPanicsOnOversizedBlock(t *testing.T) {
	s, err := New(make([]byte, 16), make([]byte, NonceSize))
	require.NoError(t, err)
	assert.Panics(t, func() { s.CryptBlock(0, make([]byte, BlockSize+1)) })
}

func TestMatchesStandardLibraryCTR(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	key := make([]byte, 16)
	nonce := make([]byte, NonceSize)
	rng.Read(key)
	rng.Read(nonce)

	plain := make([]byte, 16*37+9)
	rng.Read(plain)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	iv := make([]byte, 16)
	copy(iv, nonce)
	want := make([]byte, len(plain))
	cipher.NewCTR(block, iv).XORKeyStream(want, plain)

	s, err := New(key, nonce)
	require.NoError(t, err)
	got := make([]byte, len(plain))
	copy(got, plain)
	for off := 0; off < len(got); off += BlockSize {
		end := off + BlockSize
		if end > len(got) {
			end = len(got)
		}
		s.CryptBlock(uint64(off/BlockSize), got[off:end])
	}
	assert.Equal(t, want, got)
}

func TestXor(t *testing.T) {
	dst := []byte{1, 0xff, 0}
	Xor(dst, []byte{0, 0xff, 0xff})
	assert.Equal(t, []byte{1, 0, 0xff}, dst)

	assert.Panics(t, func() { Xor(make([]byte, 2), make([]byte, 3)) })
}

func TestWipe(t *testing.T) {
	s, err := New([]byte("0123456789abcdef"), []byte("noncenon"))
	require.NoError(t, err)
	s.Wipe()
	assert.Equal(t, Nonce{}, s.nonce)
}
