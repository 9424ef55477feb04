// Package logger provides a structured logging facility based on Zap.
//
// It builds the process logger from configuration and integrates with the
// Fiber stack that serves deployed web applications.
//
// # Context Awareness
//
// Every request gets a RayID from the rayid middleware. WithRayID extracts it
// from a Fiber context and attaches it to the log entry, so that dispatcher,
// servlet and access log lines for one request can be correlated.
//
// # Configuration
//
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Server started")
//
//	app.Use(rayid.New(), logger.Middleware(log))
package logger
