// Package directory implements singleton.Directory on top of a SQLite registry
// and the ipc transport.
//
// Register publishes an Endpoint on a Unix socket inside the runtime directory
// and records the service name, socket path, owning pid, and a per-registration
// token in the registry. Lookup resolves a name back to an ipc client after
// confirming the owning process is still alive and its socket answers; rows
// left behind by crashed processes are purged on sight.
//
// Endpoints registered through the same Store are resolved in-process without
// touching the socket.
package directory
