package api

import (
	"net/http"
	"time"

	"github.com/effective-security/xlog"
)

// NewRouter returns the service routes, mcp may be nil
func NewRouter(workflows *WorkflowHandler, mcp http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(PathWorkflows, workflows)
	if mcp != nil {
		mux.Handle(PathMCP, mcp)
		mux.Handle(PathMCPLegacy, mcp)
	}
	return withAccessLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.ContextKV(r.Context(), xlog.DEBUG,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(started).String(),
		)
	})
}
