// Package store provides memory and redis backed implementations of
// mcp.SessionStore and workflows.Store.
//
// The redis keys namespace is organized as follows:
//   - `/<prefix>/mcp/sessions/<sessionID>` for protocol sessions, expiring after the idle TTL
//   - `/<prefix>/workflows/key/<userID>/<action>/<courseID>/<unitID>` for the workflow ID of a key
//   - `/<prefix>/workflows/id/<workflowID>` for workflow records
package store

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/edxai", "store")

// maxIDAttempts bounds retries on generated ID collisions
const maxIDAttempts = 5
