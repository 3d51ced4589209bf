package aesctr

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Processed returns the bytes written back by all runs of c so far.
func (c *Cipher) Processed() uint64 {
	return c.processed.Load()
}

// StartThroughputReporter logs the bytes crypted per interval until the
// returned stop function is called. stop waits for the reporter to log its
// final total.
func (c *Cipher) StartThroughputReporter(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	first := c.Processed()
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := first
		for {
			select {
			case <-done:
				c.log.WithFields(logrus.Fields{
					"bytes": c.Processed() - first,
				}).Info("Throughput reporter stopped")
				return
			case <-ticker.C:
				now := c.Processed()
				c.log.WithField("bytes_per_second", float64(now-last)/interval.Seconds()).Info("Cryption throughput")
				last = now
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
