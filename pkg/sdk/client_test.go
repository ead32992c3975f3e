package archivist

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	dbRedis "github.com/kailas-cloud/archivist/internal/db/redis"
	"github.com/kailas-cloud/archivist/internal/domain/search/vector"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), append([]Option{WithRules([]byte(testRules))}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_NoRules(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no rules provided")
	}
}

func TestNew_InvalidRules(t *testing.T) {
	_, err := New(context.Background(), WithRules([]byte("indexes:\n  search:\n    filters:\n      x: { rule: nope }\n")))
	if err == nil || !strings.Contains(err.Error(), `unknown rule "nope"`) {
		t.Fatalf("expected rule error, got %v", err)
	}
}

func TestNew_RulesFile(t *testing.T) {
	c, err := New(context.Background(), WithRulesFile("../../config/rules.yaml"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Namespace("search"); err != nil {
		t.Errorf("Namespace(search): %v", err)
	}
}

func TestCompile(t *testing.T) {
	c := newTestClient(t)

	q, err := c.Compile(context.Background(), "search",
		MustFilter("language", Include, Scalar("fr")),
		MustFilter("string", Include, Scalar("moulin")),
	)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(q.Filter) != 1 || !strings.Contains(q.Filter[0], "lg_s:fr") {
		t.Errorf("filter = %q", q.Filter)
	}
	if !strings.Contains(q.Query, "content_txt_fr:moulin") {
		t.Errorf("query = %q", q.Query)
	}
}

func TestCompile_Invalid(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Compile(context.Background(), "images", MustFilter("language", Include, Scalar("fr")))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	var iae *InvalidArgumentError
	if !errors.As(err, &iae) || iae.Type != "language" {
		t.Errorf("error = %#v", err)
	}
}

func TestNamespaces(t *testing.T) {
	c := newTestClient(t)

	all, err := c.Namespaces()
	if err != nil {
		t.Fatalf("Namespaces: %v", err)
	}
	if len(all) != 2 || all[0].Name != "images" || all[1].Name != "search" {
		t.Fatalf("namespaces = %+v", all)
	}
	search := all[1]
	if search.KnnTopK != 25 || len(search.EmbeddingModels) != 1 || search.EmbeddingModels[0] != "gte-768" {
		t.Errorf("search = %+v", search)
	}
	if len(search.FilterTypes) != 3 {
		t.Errorf("filter types = %+v", search.FilterTypes)
	}

	if _, err := c.Namespace("nope"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Namespace(nope) err = %v", err)
	}
}

func TestReference_RoundTrip(t *testing.T) {
	emb := fixedEmbedder(0.5, 0.25)
	c := newTestClient(t, WithEmbedder("gte-768", emb, 2))

	ref, err := c.Reference(context.Background(), "gte-768", "moulin rouge")
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if !strings.HasPrefix(ref, "gte-768:") {
		t.Errorf("ref = %q", ref)
	}

	q, err := c.Compile(context.Background(), "search", MustFilter("embedding", Include, Scalar(ref)))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(q.Query, "{!knn f=emb_gte_768_v topK=25}[0.5,0.25]") {
		t.Errorf("query = %q", q.Query)
	}
	if got := c.Models(); len(got) != 1 || got[0] != "gte-768" {
		t.Errorf("Models() = %v", got)
	}
}

func TestReference_Errors(t *testing.T) {
	tests := []struct {
		name string
		emb  *mockEmbedder
		tag  string
		text string
		want error
	}{
		{"unknown model", fixedEmbedder(1), "openai-1536", "x", ErrNotFound},
		{"blank text", fixedEmbedder(1), "gte-768", "  ", ErrInvalidArgument},
		{"dimension mismatch", fixedEmbedder(1, 2, 3), "gte-768", "x", ErrEmbeddingProviderError},
		{
			"provider error",
			&mockEmbedder{fn: func(_ context.Context, _ string) (EmbeddingResult, error) {
				return EmbeddingResult{}, ErrRateLimited
			}},
			"gte-768", "x", ErrRateLimited,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, WithEmbedder("gte-768", tt.emb, 2))
			_, err := c.Reference(context.Background(), tt.tag, tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReference_NoEmbedders(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Reference(context.Background(), "gte-768", "x")
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("err = %v, want ErrNotImplemented", err)
	}
}

func TestReference_Cached(t *testing.T) {
	ctrl := gomock.NewController(t)
	rc := mock.NewClient(ctrl)

	h := sha256.Sum256([]byte("gte-768\x00moulin"))
	key := "test:emb_cache:gte-768:" + hex.EncodeToString(h[:])
	payload := string(vector.Bytes([]float32{0.5, 0.25}))

	gomock.InOrder(
		rc.EXPECT().Do(gomock.Any(), mock.Match("GET", key)).Return(mock.Result(mock.RedisNil())),
		rc.EXPECT().Do(gomock.Any(), mock.Match("SET", key, payload, "EX", "60")).Return(mock.Result(mock.RedisString("OK"))),
		rc.EXPECT().Do(gomock.Any(), mock.Match("GET", key)).Return(mock.Result(mock.RedisBlobString(payload))),
	)

	emb := fixedEmbedder(0.5, 0.25)
	cfg := &clientConfig{rules: []byte(testRules)}
	WithCache("test:", time.Minute).apply(cfg)
	WithEmbedder("gte-768", emb, 2).apply(cfg)
	registry, err := loadRegistry(cfg)
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	c := wireClient(registry, dbRedis.NewStoreForTest(rc), cfg, nil)

	first, err := c.Reference(context.Background(), "gte-768", "moulin")
	if err != nil {
		t.Fatalf("first Reference: %v", err)
	}
	second, err := c.Reference(context.Background(), "gte-768", "moulin")
	if err != nil {
		t.Fatalf("second Reference: %v", err)
	}
	if first != second {
		t.Errorf("cached reference %q != %q", second, first)
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, want 1", emb.calls)
	}
}

func TestHealth(t *testing.T) {
	healthy := &checkingEmbedder{mockEmbedder: *fixedEmbedder(1)}
	broken := &checkingEmbedder{mockEmbedder: *fixedEmbedder(1), healthErr: errors.New("down")}

	c := newTestClient(t, WithEmbedder("gte-768", healthy, 0), WithEmbedder("openai-1536", broken, 0))
	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("status = %q, want degraded", h.Status)
	}
	if h.Checks["embedding:gte-768"] != "ok" || h.Checks["embedding:openai-1536"] != "error" {
		t.Errorf("checks = %v", h.Checks)
	}
	if _, ok := h.Checks["cache"]; ok {
		t.Error("cache check reported without a cache")
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping without cache: %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithRedis("localhost:6379", "secret").apply(cfg)
	if cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("redis = %v %q", cfg.addrs, cfg.password)
	}

	WithRulesFile("rules.yaml").apply(cfg)
	WithRules([]byte("x")).apply(cfg)
	if cfg.rulesPath != "" || string(cfg.rules) != "x" {
		t.Errorf("WithRules must replace WithRulesFile: %q %q", cfg.rulesPath, cfg.rules)
	}

	WithCache("p:", time.Hour).apply(cfg)
	if cfg.cacheKeyPrefix != "p:" || cfg.cacheTTL != time.Hour {
		t.Errorf("cache = %q %v", cfg.cacheKeyPrefix, cfg.cacheTTL)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected registerer to be set")
	}
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))

	_, _ = c.Compile(context.Background(), "search", MustFilter("language", Include, Scalar("fr")))
	_, _ = c.Compile(context.Background(), "nope", MustFilter("language", Include, Scalar("fr")))

	ok := c.obs.metrics.operations.WithLabelValues("compile", "ok")
	if got := testutil.ToFloat64(ok); got != 1 {
		t.Errorf("compile ok = %v, want 1", got)
	}
	invalid := c.obs.metrics.operations.WithLabelValues("compile", "invalid")
	if got := testutil.ToFloat64(invalid); got != 1 {
		t.Errorf("compile invalid = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.obs.metrics.filters); got != 1 {
		t.Errorf("compiled_filters series = %d, want 1 (rejected compiles are not counted)", got)
	}
}

func TestObserver_RejectedLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := newTestClient(t, WithLogger(logger))

	_, _ = c.Compile(context.Background(), "nope", MustFilter("language", Include, Scalar("fr")))

	out := buf.String()
	if !strings.Contains(out, "operation rejected") || !strings.Contains(out, "namespace=nope") {
		t.Errorf("log = %q, want a rejected compile for namespace nope", out)
	}
	if strings.Contains(out, "level=WARN") {
		t.Errorf("log = %q, rejected input must not warn", out)
	}
}

func TestObserver_ReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("first observer: %v", err)
	}
	second, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}
	if first.metrics.operations != second.metrics.operations {
		t.Error("expected the registered collector to be reused")
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("compile", time.Now(), nil)
	o.observeCompile("search", 1, time.Now(), nil)
}
