// Package ctr turns the AES-128 block function into a counter mode keystream.
//
// The cipher input for block n is nonce || bigEndian64(n). Encryption and
// decryption are the same operation.
package ctr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/i5heu/ouroboros-aesctr/internal/aes128"
)

const (
	NonceSize = 8
	BlockSize = aes128.BlockSize
)

var ErrInvalidNonceSize = errors.New("ctr: invalid nonce size")

// ErrInvalidKeySize is returned for keys that are not 16 bytes long.
var ErrInvalidKeySize = aes128.ErrInvalidKeySize

type Nonce [NonceSize]byte

// Stream holds an expanded schedule and a nonce. It is read-only after New
// and may be shared by any number of goroutines until Wipe is called.
type Stream struct {
	schedule *aes128.Schedule
	nonce    Nonce
}

func New(key, nonce []byte) (*Stream, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNonceSize, NonceSize, len(nonce))
	}
	schedule, err := aes128.NewSchedule(key)
	if err != nil {
		return nil, err
	}
	s := &Stream{schedule: schedule}
	copy(s.nonce[:], nonce)
	return s, nil
}

// Keystream returns the keystream block for counter.
func (s *Stream) Keystream(counter uint64) [BlockSize]byte {
	var block [BlockSize]byte
	copy(block[:NonceSize], s.nonce[:])
	binary.BigEndian.PutUint64(block[NonceSize:], counter)
	aes128.Encrypt(s.schedule, &block)
	return block
}

// CryptBlock XORs the keystream for counter into data. data may be shorter
// than a block (the final block of a file); longer input is a caller bug.
func (s *Stream) CryptBlock(counter uint64, data []byte) {
	if len(data) > BlockSize {
		panic(fmt.Sprintf("ctr: block of %d bytes exceeds %d", len(data), BlockSize))
	}
	ks := s.Keystream(counter)
	Xor(data, ks[:len(data)])
}

// Wipe zeroes the schedule and nonce. The Stream must not be used afterwards.
func (s *Stream) Wipe() {
	s.schedule.Wipe()
	s.nonce = Nonce{}
}

func Xor(dest, src []byte) {
	if len(dest) != len(src) {
		panic(fmt.Sprintf("Xor with different length buffers %v != %v", len(dest), len(src)))
	}
	for idx := range src {
		dest[idx] ^= src[idx]
	}
}
