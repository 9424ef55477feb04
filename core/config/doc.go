// Package config loads the application configuration.
//
// Values come from struct tag defaults, an optional appserver.yaml, an
// optional .env file and the environment, in increasing precedence. Keys
// nest by section, so server.port is read from SERVER_PORT.
//
// # Configuration Structure
//
//   - Server: listen port, base directory, shutdown timeout
//   - Deploy: scan interval, archive extraction
//   - Log: logging level and format
//   - Storage: S3/MinIO bucket used by package sync
//
// Startup parameters (port=, base=) are applied afterwards by the bootstrap.
//
//	cfg, err := config.LoadConfig(".")
package config
