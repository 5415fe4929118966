// Package client contains client-side building blocks for authkeeper.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Register, Login, Me and Ping.
//  2. A concrete HTTP implementation (see HTTPClient) that speaks JSON and
//     form-encoded requests to the REST API and never holds a token itself.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every failure reported by the server or the transport is a
// *common.AuthError. Its Kind is derived from the endpoint and the HTTP
// status and its Message is the server's "detail" text, so callers switch on
// common.KindOf(err) or match sentinels such as common.ErrInvalidCredentials
// with errors.Is. Transport failures are common.KindNetworkFailure; a
// cancelled context is returned unchanged.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client
