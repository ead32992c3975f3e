package archivist

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type embedderConfig struct {
	embedder   Embedder
	dimensions int
}

type clientConfig struct {
	rulesPath string
	rules     []byte

	addrs          []string
	password       string
	cacheKeyPrefix string
	cacheTTL       time.Duration

	embedders map[string]embedderConfig

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRulesFile loads filter rules from a YAML file.
func WithRulesFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.rulesPath = path
		c.rules = nil
	})
}

// WithRules parses filter rules from YAML held in memory.
func WithRules(data []byte) Option {
	return optionFunc(func(c *clientConfig) {
		c.rules = data
		c.rulesPath = ""
	})
}

// WithRedis caches embeddings in a Redis or Valkey instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCache tunes cache keys and lifetime. Defaults: "archivist:" and 7 days.
func WithCache(keyPrefix string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheKeyPrefix = keyPrefix
		c.cacheTTL = ttl
	})
}

// WithEmbedder registers an embedding model under tag. The tag is the model
// part of the vector references the client produces and must match a model
// of the namespace's embeddings. dimensions of zero skips the length check.
func WithEmbedder(tag string, e Embedder, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		if c.embedders == nil {
			c.embedders = make(map[string]embedderConfig)
		}
		c.embedders[tag] = embedderConfig{embedder: e, dimensions: dimensions}
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
