package bootstrap

import (
	"strconv"
	"strings"

	"appserver/core/server"
)

const (
	portPrefix       = "port="
	basePrefix       = "base="
	legacyBasePrefix = "jetty:base="
)

// ParseArgs applies startup parameters of the form port=<n> and base=<path>
// over cfg. Other arguments are returned untouched.
func ParseArgs(cfg server.Config, args []string) (server.Config, []string, error) {
	var rest []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, portPrefix):
			port, err := strconv.ParseUint(strings.TrimSpace(arg[len(portPrefix):]), 10, 16)
			if err != nil {
				return cfg, nil, &ConfigError{Arg: arg, Err: err}
			}
			cfg.Port = int(port)
		case strings.HasPrefix(arg, legacyBasePrefix):
			cfg.Base = strings.TrimSpace(arg[len(legacyBasePrefix):])
		case strings.HasPrefix(arg, basePrefix):
			cfg.Base = strings.TrimSpace(arg[len(basePrefix):])
		default:
			rest = append(rest, arg)
		}
	}
	return cfg, rest, nil
}
