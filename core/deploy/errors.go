package deploy

import "fmt"

// DeploymentError reports a package that could not be deployed. It never
// affects other packages.
type DeploymentError struct {
	Package string
	Err     error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("failed to deploy %s: %v", e.Package, e.Err)
}

func (e *DeploymentError) Unwrap() error { return e.Err }
