package server

import (
	"net"
	"strconv"
	"time"
)

// Host is the only interface the server binds to. Remote exposure is left
// to a reverse proxy.
const Host = "127.0.0.1"

// DefaultPort is used when neither the environment nor a startup parameter
// sets one.
const DefaultPort = 8080

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen. 0 picks a free port.
	Port int `mapstructure:"port" default:"8080"`
	// Base is the directory holding webdefault.xml and webapps/.
	// Empty means the working directory.
	Base string `mapstructure:"base" default:""`
	// ShutdownTimeout bounds how long in-flight requests may run on stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(Host, strconv.Itoa(c.Port))
}
