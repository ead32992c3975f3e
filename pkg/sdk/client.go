package archivist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/config"
	"github.com/kailas-cloud/archivist/internal/db"
	dbRedis "github.com/kailas-cloud/archivist/internal/db/redis"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	"github.com/kailas-cloud/archivist/internal/repository/embcache"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
	embeddinguc "github.com/kailas-cloud/archivist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheKeyPrefix   = "archivist:"
	defaultCacheTTL         = 7 * 24 * time.Hour
)

// Internal interfaces, swapped out in tests.
type compileUseCase interface {
	Compile(ctx context.Context, ns namespace.Namespace, filters []Filter) (Compiled, error)
	Describe() ([]compileuc.Description, error)
	DescribeNamespace(ns namespace.Namespace) (compileuc.Description, error)
}

type embeddingUseCase interface {
	Reference(ctx context.Context, tag, text string) (embeddinguc.Result, error)
	Models() []string
}

// Client is the archivist SDK entry point.
type Client struct {
	store      db.Store
	compileSvc compileUseCase
	embedSvc   embeddingUseCase
	health     healthUseCase
	obs        *observer
}

// New loads the rules and creates a Client. When WithRedis is set it connects
// to the cache; ctx bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheKeyPrefix: defaultCacheKeyPrefix,
		cacheTTL:       defaultCacheTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("archivist: create cache store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("archivist: cache not ready: %w", err)
		}
		store = s
	}

	return wireClient(registry, store, cfg, obs), nil
}

func loadRegistry(cfg *clientConfig) (*namespace.Registry, error) {
	switch {
	case cfg.rulesPath != "":
		r, err := config.LoadRules(cfg.rulesPath)
		if err != nil {
			return nil, fmt.Errorf("archivist: %w", err)
		}
		return r, nil
	case len(cfg.rules) > 0:
		r, err := config.ParseRules(cfg.rules)
		if err != nil {
			return nil, fmt.Errorf("archivist: %w", err)
		}
		return r, nil
	default:
		return nil, errors.New("archivist: rules required (use WithRulesFile or WithRules)")
	}
}

func wireClient(registry *namespace.Registry, store db.Store, cfg *clientConfig, obs *observer) *Client {
	models := make(map[string]embeddinguc.Model, len(cfg.embedders))
	checkers := make(map[string]healthuc.EmbeddingChecker)
	for tag, ec := range cfg.embedders {
		var emb embeddinguc.Model
		emb.Dimensions = ec.dimensions
		emb.Embedder = &embedderAdapter{inner: ec.embedder}
		if store != nil {
			emb.Embedder = embcache.New(emb.Embedder, store, embcache.Options{
				KeyPrefix: cfg.cacheKeyPrefix,
				Model:     tag,
				TTL:       cfg.cacheTTL,
			}, nil, zap.NewNop())
		}
		models[tag] = emb

		if hc, ok := ec.embedder.(HealthChecker); ok {
			checkers[tag] = hc
		}
	}

	// Pass a nil interface (not a typed nil) when the cache is disabled.
	var pinger healthuc.CachePinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:      store,
		compileSvc: compileuc.New(registry),
		embedSvc:   embeddinguc.New(models),
		health:     healthuc.New(pinger, checkers),
		obs:        obs,
	}
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks cache connectivity. It is a no-op without a cache.
func (c *Client) Ping(ctx context.Context) (err error) {
	if c.store == nil {
		return nil
	}
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Compile compiles filters for namespace ns.
// Invalid input yields an error matching ErrInvalidArgument.
func (c *Client) Compile(ctx context.Context, ns string, filters ...Filter) (q Compiled, err error) {
	start := time.Now()
	defer func() { c.obs.observeCompile(ns, len(filters), start, err) }()

	return c.compileSvc.Compile(ctx, namespace.Namespace(ns), filters)
}

// Namespaces lists every configured namespace.
func (c *Client) Namespaces() ([]Namespace, error) {
	all, err := c.compileSvc.Describe()
	if err != nil {
		return nil, err
	}
	out := make([]Namespace, len(all))
	for i, d := range all {
		out[i] = namespaceFromDomain(d)
	}
	return out, nil
}

// Namespace describes namespace ns.
func (c *Client) Namespace(ns string) (Namespace, error) {
	d, err := c.compileSvc.DescribeNamespace(namespace.Namespace(ns))
	if err != nil {
		return Namespace{}, err
	}
	return namespaceFromDomain(d), nil
}

// Models lists the registered embedding model tags.
func (c *Client) Models() []string {
	return c.embedSvc.Models()
}

// Reference embeds text with the model registered under tag and returns the
// "<model>:<base64>" reference accepted by the embedding filter.
func (c *Client) Reference(ctx context.Context, tag, text string) (ref string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reference", start, err, "model", tag) }()

	res, err := c.embedSvc.Reference(ctx, tag, text)
	if err != nil {
		return "", err
	}
	return res.Reference.String(), nil
}
