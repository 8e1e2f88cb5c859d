// Package ipc exposes a singleton.Endpoint over JSON-RPC on a Unix domain
// socket and provides the matching client.
//
// Every accepted connection gets its own RPC session. Client ids attached
// through a session are detached automatically when the connection closes,
// so a crashed client cannot keep an instance alive.
//
// Client satisfies singleton.Remote; every call honours its context deadline.
package ipc
