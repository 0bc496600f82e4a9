package node

import (
	"fmt"
	"strings"
	"time"

	"github.com/zkchannel/zkchannel/x/channel/types"
)

// Config controls which executions the node takes and how hard it works.
type Config struct {
	// PollInterval is the time between pending execution scans.
	PollInterval time.Duration
	// PendingLimit bounds one scan.
	PendingLimit int
	// MaxConcurrentProofs bounds proofs in flight.
	MaxConcurrentProofs int
	// MinTip skips executions that pay less.
	MinTip uint64
	// MinBlocksRemaining skips executions expiring sooner than this.
	MinBlocksRemaining uint64
	// ProveTimeout bounds a single proof.
	ProveTimeout time.Duration
	// Images, when set, is the allowlist of image ids the node proves.
	Images []string
}

// DefaultConfig returns the default node configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval:        time.Second,
		PendingLimit:        100,
		MaxConcurrentProofs: 4,
		MinTip:              1,
		MinBlocksRemaining:  10,
		ProveTimeout:        10 * time.Minute,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PendingLimit <= 0 {
		return fmt.Errorf("pending limit must be positive")
	}
	if c.MaxConcurrentProofs <= 0 {
		return fmt.Errorf("max concurrent proofs must be positive")
	}
	if c.ProveTimeout <= 0 {
		return fmt.Errorf("prove timeout must be positive")
	}
	for _, id := range c.Images {
		if err := types.ValidateImageID(strings.ToLower(id)); err != nil {
			return fmt.Errorf("image allowlist: %w", err)
		}
	}
	return nil
}
