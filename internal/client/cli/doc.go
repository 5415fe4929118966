// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the local session database, the HTTP API client
// and the session holder, and exposes them through a small REPL. On start
// the persisted token (if any) is validated in the background while the
// prompt is already usable; the dashboard command is gated by the route
// guard and waits for that check to finish.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
