package build

import "github.com/py2image/python-to-image/pkg/api"

// Builder is the interface that provides basic methods all implementations
// should have.
// Build method executes the build based on Config and returns the Result.
type Builder interface {
	Build(*api.Config) (*api.Result, error)
}

// Cleaner provides the Cleanup method for builders that need to cleanup
// temporary containers or directories after build execution finishes.
type Cleaner interface {
	Cleanup(*api.Config)
}
