package pipeline

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// maxRetries bounds how often a single transient failure is retried.
const maxRetries = 8

var ErrShortWrite = errors.New("pipeline: short write")

func isTransient(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

// readFullAt fills buf from off. It returns io.EOF, and the bytes read,
// when the stream ends first.
func readFullAt(r io.ReaderAt, buf []byte, off int64) (int, error) {
	n, retries := 0, 0
	for n < len(buf) {
		m, err := r.ReadAt(buf[n:], off+int64(n))
		n += m
		switch {
		case err == nil && m > 0:
		case err == nil:
			return n, fmt.Errorf("read at offset %d: %w", off+int64(n), io.ErrNoProgress)
		case errors.Is(err, io.EOF):
			return n, io.EOF
		case isTransient(err) && retries < maxRetries:
			retries++
		default:
			return n, fmt.Errorf("read at offset %d: %w", off+int64(n), err)
		}
	}
	return n, nil
}

func writeFullAt(w io.WriterAt, buf []byte, off int64) error {
	n, retries := 0, 0
	for n < len(buf) {
		m, err := w.WriteAt(buf[n:], off+int64(n))
		n += m
		switch {
		case err == nil && m > 0:
		case err != nil && isTransient(err) && retries < maxRetries:
			retries++
		case err != nil:
			return fmt.Errorf("%w at offset %d (%d of %d bytes): %v", ErrShortWrite, off, n, len(buf), err)
		default:
			return fmt.Errorf("%w at offset %d (%d of %d bytes)", ErrShortWrite, off, n, len(buf))
		}
	}
	return nil
}
