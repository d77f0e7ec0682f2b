// Package httptransport binds the protocol server to HTTP.
//
// POST carries JSON-RPC messages, the Mcp-Session-Id header returned by initialize
// must be sent with every other request. DELETE terminates the session.
// GET is not supported since the server never initiates messages.
package httptransport

import (
	"io"
	"net/http"

	"github.com/effective-security/edxai/mcp"
	"github.com/effective-security/edxai/mcp/transport/localtransport"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai/mcp/transport", "httptransport")

// MaxBodySize limits the request body
const MaxBodySize = 4 << 20

// Handler serves the protocol over HTTP
type Handler struct {
	local *localtransport.Local
}

var _ http.Handler = (*Handler)(nil)

// New returns a handler for the server
func New(server *mcp.Server) *Handler {
	return &Handler{local: localtransport.New(server)}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := &localtransport.ProxyRequest{
		Method: r.Method,
		Headers: map[string]string{
			localtransport.HeaderSessionID: r.Header.Get(localtransport.HeaderSessionID),
		},
	}

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
		if err != nil {
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "read_body", "err", err.Error())
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		req.Body = body
	}

	res, err := h.local.HandleMCP(ctx, req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "handle", "err", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(res.Status)
	if len(res.Body) > 0 {
		_, _ = w.Write(res.Body)
	}
}
