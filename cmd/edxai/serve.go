package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/edxai/api"
	"github.com/effective-security/edxai/mcp/transport/httptransport"
	"github.com/effective-security/xlog"
)

// ShutdownTimeout bounds the graceful shutdown
const ShutdownTimeout = 15 * time.Second

// ServeCmd starts the HTTP server
type ServeCmd struct {
	Listen string `short:"l" long:"listen" description:"listen address, overrides http.listen_addr"`
}

// Execute implements flags.Commander
func (c *ServeCmd) Execute(_ []string) error {
	svc, err := loadService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.start(ctx)
	svc.server.Serve()

	addr := c.Listen
	if addr == "" {
		addr = svc.cfg.HTTP.ListenAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(api.NewWorkflowHandler(svc.runner), httptransport.New(svc.server)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.NOTICE, "status", "listening", "addr", addr, "version", Version)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	logger.KV(xlog.NOTICE, "status", "shutting_down")
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	return nil
}
