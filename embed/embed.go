// Package embed turns document text into vectors for the store.
package embed

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDimension = 384
	DefaultBatchSize = 32
	DefaultTimeout   = 30 * time.Second
)

// Embedder converts texts into vectors. Name identifies the embedding space,
// vectors of different names are not comparable.
type Embedder interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Config struct {
	// Endpoint of an OpenAI compatible embedding server. Empty selects the
	// local hashing embedder.
	Endpoint  string
	Model     string
	BatchSize int
	Timeout   time.Duration
	Dimension int
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
}

func New(cfg Config, logger *zap.Logger) Embedder {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Endpoint == "" {
		logger.Debug("using hashing embedder", zap.Int("dimension", cfg.Dimension))
		return NewHashing(cfg.Dimension)
	}
	logger.Debug("using remote embedder", zap.String("endpoint", cfg.Endpoint), zap.String("model", cfg.Model))
	return newOpenAIClient(cfg, logger)
}
