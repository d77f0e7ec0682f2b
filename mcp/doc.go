// Package mcp implements a session oriented Model Context Protocol server.
//
// The server exposes registered tools over JSON-RPC 2.0. Every request other than
// initialize must carry a session id created by initialize. Tool calls run through
// a fixed middleware chain (logging, error normalization, metrics) before reaching
// the tool handler.
//
// Transport bindings live in mcp/transport.
package mcp
