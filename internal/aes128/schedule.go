package aes128

import (
	"errors"
	"fmt"
)

const (
	// KeySize is the only supported key length in bytes.
	KeySize = 16
	// BlockSize is the cipher block length in bytes.
	BlockSize = 16
	// Rounds is the number of round keys in a schedule.
	Rounds = 11
)

var ErrInvalidKeySize = errors.New("aes128: invalid key size")

// Schedule holds the 11 expanded round keys. Round 0 is the cipher key.
// A Schedule is never modified after expansion except by Wipe.
type Schedule [Rounds][BlockSize]byte

// NewSchedule expands key, which must be exactly KeySize bytes long.
func NewSchedule(key []byte) (*Schedule, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, KeySize, len(key))
	}
	var k [KeySize]byte
	copy(k[:], key)
	s := Expand(k)
	for i := range k {
		k[i] = 0
	}
	return &s, nil
}

// Expand derives the full key schedule from key.
func Expand(key [KeySize]byte) Schedule {
	var s Schedule
	s[0] = key
	for r := 1; r < Rounds; r++ {
		advance(&s[r-1], &s[r], r)
	}
	return s
}

// advance computes round key r from the previous round key, one 4-byte word
// at a time.
func advance(prev, next *[BlockSize]byte, r int) {
	// RotWord of the last word, then SubWord.
	t := [4]byte{sbox[prev[13]], sbox[prev[14]], sbox[prev[15]], sbox[prev[12]]}
	t[0] ^= rcon[r]

	for i := 0; i < 4; i++ {
		next[i] = prev[i] ^ t[i]
	}
	for i := 4; i < BlockSize; i++ {
		next[i] = prev[i] ^ next[i-4]
	}
}

// Wipe zeroes every round key.
func (s *Schedule) Wipe() {
	for r := range s {
		for i := range s[r] {
			s[r][i] = 0
		}
	}
}
