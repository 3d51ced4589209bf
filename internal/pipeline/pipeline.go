// Package pipeline runs a counter mode cipher over a file in place, either
// serially or through a fixed pool of persistent workers.
//
// Block n of the file, at offset 16n, is always crypted with counter n. The
// coordinator assigns counters from a single running value before a batch is
// dispatched, so the output does not depend on the number of workers.
package pipeline

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Run crypts f in place and returns the number of bytes written back.
// The caller compares that against the file size to decide success.
func Run(f File, c BlockCrypter, opts Options) (int64, error) {
	opts = opts.withDefaults()
	if opts.Workers == 1 {
		return runSerial(f, c, opts)
	}
	return runParallel(f, c, opts)
}

func runSerial(f File, c BlockCrypter, opts Options) (int64, error) {
	var (
		b       = newBatch(opts.BatchBlocks)
		counter uint64
		total   int64
	)
	for {
		eof, err := b.fill(f, counter)
		if err != nil {
			return total, err
		}
		if b.blocks == 0 {
			return total, nil
		}
		b.crypt(c)
		if err := b.flush(f); err != nil {
			opts.Logger.WithError(err).Error("Failed to write batch")
			return total, err
		}
		total += int64(b.length)
		counter += uint64(b.blocks)
		if opts.Progress != nil {
			opts.Progress(int64(b.length))
		}
		if eof {
			return total, nil
		}
	}
}

// worker owns one batch buffer. in and out both have capacity one: a batch
// is either queued for the worker, being crypted, or waiting to be collected,
// and never touched by both sides at once.
type worker struct {
	id    int
	batch *batch
	in    chan *batch
	out   chan *batch
}

// run crypts batches until in is closed. A closed channel is only observed
// between batches, so a dispatched batch is always finished.
func (w *worker) run(c BlockCrypter, wg *sync.WaitGroup) {
	defer wg.Done()
	for b := range w.in {
		b.crypt(c)
		w.out <- b
	}
}

func runParallel(f File, c BlockCrypter, opts Options) (int64, error) {
	log := opts.Logger
	workers := make([]*worker, opts.Workers)
	var wg sync.WaitGroup
	for i := range workers {
		workers[i] = &worker{
			id:    i,
			batch: newBatch(opts.BatchBlocks),
			in:    make(chan *batch, 1),
			out:   make(chan *batch, 1),
		}
		wg.Add(1)
		go workers[i].run(c, &wg)
	}
	defer func() {
		for _, w := range workers {
			close(w.in)
		}
		wg.Wait()
		log.WithField("workers", len(workers)).Debug("Stopped all workers")
	}()

	var (
		counter uint64
		total   int64
		eof     bool
		readErr error
	)
	for !eof {
		dispatched := 0
		for _, w := range workers {
			end, err := w.batch.fill(f, counter)
			if err != nil {
				readErr = err
				eof = true
				break
			}
			if w.batch.blocks == 0 {
				eof = true
				break
			}
			counter += uint64(w.batch.blocks)
			log.WithFields(logrus.Fields{
				"worker": w.id,
				"start":  w.batch.start,
				"blocks": w.batch.blocks,
				"bytes":  w.batch.length,
			}).Trace("Dispatching batch")
			w.in <- w.batch
			dispatched++
			if end {
				eof = true
				break
			}
		}

		for _, w := range workers[:dispatched] {
			b := <-w.out
			if err := b.flush(f); err != nil {
				log.WithError(err).WithField("worker", w.id).Error("Failed to write batch")
				return total, err
			}
			total += int64(b.length)
			if opts.Progress != nil {
				opts.Progress(int64(b.length))
			}
		}

		if readErr != nil {
			log.WithError(readErr).Error("Failed to read batch")
			return total, readErr
		}
	}
	return total, nil
}
