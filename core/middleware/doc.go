// Package middleware contains HTTP middleware for the Fiber application.
//
// It provides cross-cutting concerns that sit in front of the handler chain
// (context dispatcher, then fallback).
//
// # Components
//
//   - RayID: Generates a unique Request ID (RayID) for every incoming request,
//     injecting it into the context and response headers for tracing.
//
// The server installs these globally, ahead of the handler chain.
package middleware
