package aesctr

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/i5heu/ouroboros-aesctr/internal/journal"
	"github.com/i5heu/ouroboros-aesctr/internal/pipeline"
	"github.com/i5heu/ouroboros-aesctr/pkg/hostinfo"
	"github.com/sirupsen/logrus"
)

// File is a target for CryptStream; *os.File satisfies it.
type File = pipeline.File

// Result summarizes one CryptFile run.
type Result struct {
	Path      string
	Size      int64
	Processed int64
	Workers   int
	Duration  time.Duration
}

// Throughput returns bytes per second.
func (r Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Processed) / r.Duration.Seconds()
}

// OK reports whether every byte of the file was processed.
func (r Result) OK() bool {
	return r.Processed == r.Size
}

// CryptStream crypts f in place and returns the number of bytes processed.
func (c *Cipher) CryptStream(f File) (int64, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	return pipeline.Run(f, c.stream, pipeline.Options{
		Workers:     c.config.Workers,
		BatchBlocks: c.config.BatchBlocks,
		Logger:      c.log,
		Progress: func(n int64) {
			c.processed.Add(uint64(n))
		},
	})
}

// CryptFile crypts the file at path in place. It returns ErrCryptionFailed
// when fewer bytes were processed than the file holds.
func (c *Cipher) CryptFile(path string) (Result, error) {
	res := Result{Path: path, Workers: c.config.Workers}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return res, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return res, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return res, fmt.Errorf("%s is not a regular file", path)
	}
	res.Size = info.Size()

	if target, err := hostinfo.DescribeTarget(path); err == nil {
		c.log.WithFields(logrus.Fields{
			"path":        path,
			"device":      target.Device,
			"mount_point": target.MountPoint,
		}).Debug("Crypting file in place")
	}

	start := time.Now()
	res.Processed, err = c.CryptStream(f)
	if err == nil {
		err = f.Sync()
	}
	res.Duration = time.Since(start)

	if err == nil && !res.OK() {
		err = fmt.Errorf("%w: processed %d of %d bytes", ErrCryptionFailed, res.Processed, res.Size)
	} else if err != nil && !errors.Is(err, ErrCryptionFailed) {
		err = fmt.Errorf("%w: %w", ErrCryptionFailed, err)
	}

	c.record(res, start, err == nil)

	fields := logrus.Fields{
		"path":      path,
		"size":      res.Size,
		"processed": res.Processed,
		"workers":   res.Workers,
		"duration":  res.Duration,
	}
	if err != nil {
		c.log.WithFields(fields).WithError(err).Error("Cryption failed")
		return res, err
	}
	c.log.WithFields(fields).Info("Cryption complete")
	return res, nil
}

func (c *Cipher) record(res Result, start time.Time, ok bool) {
	if c.journal == nil {
		return
	}
	_, err := c.journal.Record(journal.Entry{
		Path:           res.Path,
		KeyFingerprint: c.fingerprint,
		Nonce:          c.nonceHex,
		Size:           res.Size,
		Processed:      res.Processed,
		Workers:        res.Workers,
		Duration:       res.Duration,
		Started:        start,
		Success:        ok,
	})
	if err != nil {
		c.log.WithError(err).Warn("Failed to record run in journal")
		return
	}

	// Reusing a keystream on different plaintext leaks their XOR.
	n, err := c.journal.NonceUses(c.fingerprint, c.nonceHex)
	if err != nil {
		c.log.WithError(err).Warn("Failed to count nonce uses")
		return
	}
	if n > 1 {
		c.log.WithFields(logrus.Fields{"path": res.Path, "files": n}).
			Warn("Key and nonce were already used on another file")
	}
}
