// Package loader provides the plugin-like feature loading system.
//
// A feature contributes servlet classes to the servlet registry before the
// server starts. Descriptors of deployed packages can then refer to those
// classes by name.
//
// # Feature Interface
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(servlets *webapp.Registry) error
//	}
//
// # Manager
//
// The Manager struct holds the registry of available features. It handles:
//   - Registration of features via Register()
//   - Loading of enabled features via LoadAll()
package loader
