package pipeline

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	// BlockSize is the cipher block length in bytes.
	BlockSize = 16
	// DefaultBatchBlocks is the number of blocks handed to a worker at once.
	DefaultBatchBlocks = 16
)

// File is the byte-addressable target of an in-place run. Only the
// coordinating goroutine ever calls into it.
type File interface {
	io.ReaderAt
	io.WriterAt
}

// BlockCrypter XORs the keystream for counter into data, where data is at
// most one block long. Implementations must be safe for concurrent use.
type BlockCrypter interface {
	CryptBlock(counter uint64, data []byte)
}

// Options controls how a run is executed.
type Options struct {
	Workers     int            // 1 or less runs serially
	BatchBlocks int            // blocks per batch, DefaultBatchBlocks when 0
	Logger      *logrus.Logger // defaults to logrus.StandardLogger()
	Progress    func(n int64)  // called from the coordinator after each write
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.BatchBlocks < 1 {
		o.BatchBlocks = DefaultBatchBlocks
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// batch is a run of contiguous blocks starting at counter start. Only the
// final batch of a stream may end in a partial block.
type batch struct {
	buf    []byte
	start  uint64
	blocks int
	length int
}

func newBatch(blocks int) *batch {
	return &batch{buf: make([]byte, blocks*BlockSize)}
}

func (b *batch) offset() int64 {
	return int64(b.start) * BlockSize
}

// fill reads the batch beginning at block counter. It reports eof when the
// stream ended inside or right after this batch.
func (b *batch) fill(f File, counter uint64) (eof bool, err error) {
	b.start = counter
	n, err := readFullAt(f, b.buf, int64(counter)*BlockSize)
	b.length = n
	b.blocks = (n + BlockSize - 1) / BlockSize
	if err == io.EOF {
		return true, nil
	}
	return false, err
}

// crypt applies the keystream to every valid block; block i uses start+i.
func (b *batch) crypt(c BlockCrypter) {
	for i := 0; i < b.blocks; i++ {
		lo := i * BlockSize
		hi := lo + BlockSize
		if hi > b.length {
			hi = b.length
		}
		c.CryptBlock(b.start+uint64(i), b.buf[lo:hi])
	}
}

func (b *batch) flush(f File) error {
	return writeFullAt(f, b.buf[:b.length], b.offset())
}
