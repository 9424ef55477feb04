package webtest

import (
	"appserver/core/webapp"

	"go.uber.org/zap"
)

// Feature registers the webtest servlet class.
type Feature struct {
	enabled bool
	logger  *zap.Logger
}

// NewFeature creates the feature.
func NewFeature(enabled bool, logger *zap.Logger) *Feature {
	return &Feature{enabled: enabled, logger: logger}
}

// Name returns the feature name.
func (f *Feature) Name() string {
	return "webtest"
}

// IsEnabled returns whether the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the servlet class.
func (f *Feature) Load(servlets *webapp.Registry) error {
	f.logger.Debug("Registering servlet class", zap.String("class", Class))
	return servlets.Register(Class, NewServlet)
}
