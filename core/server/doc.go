// Package server holds the HTTP API server configuration.
//
// The API surface itself lives in feature/api; this package only carries the
// listen address and API key settings shared through core/config.
package server
