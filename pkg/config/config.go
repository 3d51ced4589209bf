// Package config holds the run configuration shared by the library and CLI.
package config

import (
	"fmt"

	"github.com/i5heu/ouroboros-aesctr/internal/pipeline"
	"github.com/i5heu/ouroboros-aesctr/pkg/hostinfo"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Workers     int            // 0 picks hostinfo.DefaultWorkers(); 1 runs serially
	BatchBlocks int            // blocks per worker batch; 0 picks pipeline.DefaultBatchBlocks
	JournalPath string         // directory of the run journal; empty disables it
	Logger      *logrus.Logger // defaults to logrus.New()
}

// Check validates the configuration and fills in defaults.
func (c *Config) Check() error {
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	if c.Workers < 0 {
		return fmt.Errorf("worker count must not be negative, got %d", c.Workers)
	}
	if c.BatchBlocks < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", c.BatchBlocks)
	}
	if c.Workers == 0 {
		c.Workers = hostinfo.DefaultWorkers()
	}
	if c.BatchBlocks == 0 {
		c.BatchBlocks = pipeline.DefaultBatchBlocks
	}
	return nil
}
