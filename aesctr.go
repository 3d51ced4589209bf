// Package aesctr encrypts and decrypts files in place with AES-128 in
// counter mode.
//
// The ciphertext occupies exactly the bytes of the plaintext: no header,
// length prefix or tag is added. Block n of a file is crypted with counter n,
// so running the same key and nonce over a file twice restores it.
package aesctr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/i5heu/ouroboros-aesctr/internal/ctr"
	"github.com/i5heu/ouroboros-aesctr/internal/journal"
	"github.com/i5heu/ouroboros-aesctr/pkg/config"
	"github.com/sirupsen/logrus"
)

const (
	KeySize   = 16
	NonceSize = ctr.NonceSize
)

var (
	ErrInvalidKeySize   = ctr.ErrInvalidKeySize
	ErrInvalidNonceSize = ctr.ErrInvalidNonceSize
	// ErrCryptionFailed means fewer bytes were processed than the file holds.
	ErrCryptionFailed = errors.New("aesctr: cryption failed")
	ErrClosed         = errors.New("aesctr: cipher is closed")
)

// Cipher is one key and nonce bound to a configuration. The key schedule and
// nonce are shared read-only by every worker of every run.
type Cipher struct {
	stream      *ctr.Stream
	config      config.Config
	log         *logrus.Logger
	journal     *journal.Journal
	fingerprint string
	nonceHex    string

	processed atomic.Uint64 // bytes written back

	mu     sync.Mutex
	closed bool
}

// New validates key and nonce, expands the key schedule and opens the
// journal when one is configured. Nothing is read or written before the
// lengths have been checked.
func New(key, nonce []byte, cfg *config.Config) (*Cipher, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	c := *cfg
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("error checking config: %w", err)
	}

	stream, err := ctr.New(key, nonce)
	if err != nil {
		return nil, err
	}

	ci := &Cipher{
		stream:   stream,
		config:   c,
		log:      c.Logger,
		nonceHex: hex.EncodeToString(nonce),
	}

	if c.JournalPath != "" {
		ci.fingerprint = journal.Fingerprint(key)
		j, err := journal.Open(c.JournalPath, c.Logger)
		if err != nil {
			stream.Wipe()
			return nil, err
		}
		ci.journal = j
	}

	return ci, nil
}

// Workers returns the configured worker count.
func (c *Cipher) Workers() int {
	return c.config.Workers
}

// Journal returns the run journal, or nil when none is configured.
func (c *Cipher) Journal() *journal.Journal {
	return c.journal
}

// Close wipes the key schedule and nonce and closes the journal. It must not
// be called while a run is in progress.
func (c *Cipher) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.stream.Wipe()
	c.nonceHex = ""
	if c.journal != nil {
		return c.journal.Close()
	}
	return nil
}
