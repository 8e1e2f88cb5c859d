// Package config loads, normalizes, and validates singleapp configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SINGLEAPP_SERVICE environment
// fallback for the service name. The Config type centralizes the runtime
// directory that holds the claim lock, the service registry and the published
// sockets, plus every polling interval and timeout the coordinator uses.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
