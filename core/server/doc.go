// Package server holds the HTTP server configuration, lifecycle states and
// the listener that serves the handler chain.
//
// # Configuration
//
// Config carries the listen port, the base directory and the shutdown grace
// period. The bind host is fixed to 127.0.0.1.
//
// # Listener
//
// Listener is the capability bootstrap drives: Bind, Start, Stop, Join.
// FiberListener implements it on a Fiber app with the rayid and request
// logging middleware in front of the chain.
package server
