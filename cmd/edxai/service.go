package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/config"
	"github.com/effective-security/edxai/contentstore"
	"github.com/effective-security/edxai/events"
	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/pkg/llmfactory"
	"github.com/effective-security/edxai/store"
	"github.com/effective-security/edxai/tools"
	"github.com/effective-security/edxai/tools/unitcontent"
	"github.com/effective-security/edxai/workflows"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// service holds the components built from the configuration
type service struct {
	cfg *config.Config

	redis       *redis.Client
	memSessions *store.MemorySessionStore
	async       *events.AsyncEmitter

	server *mcp.Server
	runner *workflows.Runner
}

func newService(cfg *config.Config) (*service, error) {
	s := &service{cfg: cfg}

	if cfg.Redis.URL != "" {
		ropts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis url")
		}
		s.redis = redis.NewClient(ropts)
	}

	var sessions mcp.SessionStore
	switch cfg.MCP.SessionStore {
	case config.StoreRedis:
		sessions = store.NewRedisSessionStore(s.redis, cfg.Redis.Prefix, cfg.SessionTTL())
	default:
		s.memSessions = store.NewMemorySessionStore(cfg.SessionTTL())
		sessions = s.memSessions
	}

	var wfStore workflows.Store
	switch cfg.MCP.WorkflowStore {
	case config.StoreRedis:
		wfStore = store.NewRedisWorkflowStore(s.redis, cfg.Redis.Prefix)
	default:
		wfStore = store.NewMemoryWorkflowStore()
	}

	var sink events.Emitter
	switch cfg.Events.Sink {
	case config.SinkRedis:
		sink = events.NewRedisEmitter(s.redis, cfg.Events.Channel, cfg.Events.PlatformURL)
	case config.SinkNone:
		sink = events.NopEmitter{}
	default:
		sink = events.LogEmitter{}
	}
	s.async = events.NewAsyncEmitter(sink, cfg.Events.QueueSize, cfg.Events.Workers)

	var content contentstore.Store
	if cfg.ContentStore.BaseURL != "" {
		c, err := contentstore.NewClient(cfg.ContentStore.BaseURL, cfg.ContentStore.Token, cfg.ContentStoreTimeout(), nil)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		content = c
	} else {
		logger.KV(xlog.WARNING, "reason", "no_content_store", "status", "using empty memory store")
		content = contentstore.NewMemoryStore()
	}

	mcpOpts := []mcp.Option{
		mcp.WithPageSize(cfg.MCP.PageSize),
		mcp.WithInstructions(cfg.MCP.Instructions),
	}
	if cfg.MCP.StrictRegistration {
		mcpOpts = append(mcpOpts, mcp.WithStrictRegistration())
	}
	s.server = mcp.NewServer(cfg.MCP.ServerName, Version, sessions, mcpOpts...)

	unitTool, err := unitcontent.New(content)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if err = tools.Register(s.server, unitTool); err != nil {
		_ = s.Close()
		return nil, err
	}

	factory := llmfactory.New(&cfg.LLM)
	s.runner = workflows.NewRunner(cfg.Workflows, wfStore, s.async, workflows.ProcessorFactoryFor(factory))

	return s, nil
}

// start runs background jobs until ctx is done
func (s *service) start(ctx context.Context) {
	if s.memSessions != nil {
		s.memSessions.Start(ctx, s.cfg.ReapInterval())
	}
}

// Close releases resources, queued events are delivered first
func (s *service) Close() error {
	var errs []error
	if s.async != nil {
		errs = append(errs, s.async.Close())
	}
	if s.memSessions != nil {
		errs = append(errs, s.memSessions.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}

func loadService() (*service, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	return newService(cfg)
}
