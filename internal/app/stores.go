package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentmux/artifact"
	"github.com/hupe1980/agentmux/artifact/minio"
	"github.com/hupe1980/agentmux/config"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/memory"
	"github.com/hupe1980/agentmux/memory/redis"
	"github.com/hupe1980/agentmux/memory/sqlite"
)

// ArtifactsPath is the route prefix serving in-memory artifacts.
const ArtifactsPath = "/artifacts"

// NewMemory opens the configured conversation store. A nil store means
// conversations are disabled. The returned close func may be nil.
func NewMemory(ctx context.Context, cfg config.MemoryConfig) (core.MemoryStore, func() error, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil, nil
	case "inmemory":
		return memory.NewInMemoryStore(func(o *memory.InMemoryOptions) {
			o.MaxTurns = cfg.MaxTurns
		}), nil, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SQLitePath, func(o *sqlite.Options) {
			o.MaxTurns = cfg.MaxTurns
		})
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	case "redis":
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}

		return redis.New(client, func(o *redis.Options) {
			o.TTL = cfg.TTL
			o.MaxTurns = cfg.MaxTurns
		}), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

// NewArtifacts opens the configured artifact publisher. In-memory
// artifacts are addressed below publicURL + ArtifactsPath unless a base URL
// is configured.
func NewArtifacts(ctx context.Context, cfg config.ArtifactsConfig, publicURL string) (core.ArtifactStore, error) {
	switch cfg.Backend {
	case "", "inmemory":
		base := cfg.BaseURL
		if base == "" {
			base = strings.TrimRight(publicURL, "/") + ArtifactsPath
		}

		return artifact.NewInMemoryStore(func(o *artifact.InMemoryOptions) {
			o.BaseURL = base
		}), nil
	case "minio":
		client, err := minio.NewClient(minio.ClientOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Secure:    cfg.MinioSecure,
			Region:    cfg.MinioRegion,
		})
		if err != nil {
			return nil, err
		}

		store := minio.New(client, cfg.MinioBucket, func(o *minio.Options) {
			o.PublicBaseURL = cfg.MinioPublicURL
		})

		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}
