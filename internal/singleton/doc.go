// Package singleton coordinates a single running instance per service name.
//
// A launch calls TryClaim. Under a machine-wide named lock it looks the service
// name up in a Directory: when another instance already publishes it, the
// launch asks that instance to bring its UI to front and steps aside (TryClaim
// returns a nil Coordinator). Otherwise the launch publishes its own Connector
// and receives a Coordinator that owns the service until Close.
//
// The Coordinator drives a small state machine
//
//	starting -> server -> ui_starting -> ui -> exiting
//
// from RunUntilExit, a polling loop that reconciles the requested state
// (written by the host, the loop, and inbound remote calls) against the actual
// state. Remote clients attach and detach through the Connector; once more than
// one client has been attached at the same time and the count later drops to
// zero, the loop exits.
//
// Locks and directories are interfaces so hosts can plug in the flock and
// sqlite/ipc implementations from sibling packages, or in-memory fakes in tests.
package singleton
