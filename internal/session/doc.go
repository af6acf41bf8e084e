// Package session implements the in-memory session registry that owns
// workspace existence, creation, and eviction decisions.
//
// Tokens are opaque uuid v4 strings handed to the transport layer. The store
// keys workspace directories by token, tracks creation and last-access times,
// and serializes workspace materialization per token so duplicate tabs or
// concurrent requests never clone the template tree twice.
package session
