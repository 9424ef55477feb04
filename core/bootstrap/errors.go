package bootstrap

import "fmt"

// ConfigError reports a malformed startup parameter. It is returned before
// any resource is acquired.
type ConfigError struct {
	Arg string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid startup parameter %q: %v", e.Arg, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StartupError reports a failure while creating or starting the server.
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed (%s): %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
