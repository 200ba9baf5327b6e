// Package errors defines the error types produced during image building and
// running. Every externally visible failure carries a numeric code the
// command line exits with, and a suggestion for the user.
package errors

import (
	"fmt"
)

// Common error codes. The command line process exits with the code of the
// error it failed on.
const (
	InspectImageError int = 1 + iota
	PullImageError
	SaveImageError
	ManifestError
	DockerfileError
	BuildError
	InstallError
	CommitError
	WorkDirError
	TarError
	DownloadError
	DockerConnectionError
	EmptyCommandError
)

// Error represents an error thrown during build or run process.
type Error struct {
	Message    string
	Details    error
	ErrorCode  int
	Suggestion string
}

// ContainerError is an error returned when a container exits with a non-zero
// code. ExitCode contains the exit code from the container.
type ContainerError struct {
	Message    string
	Output     string
	ErrorCode  int
	Suggestion string
	ExitCode   int
}

// Error returns a string for a given error
func (s Error) Error() string {
	return s.Message
}

// Error returns a string for the given error
func (s ContainerError) Error() string {
	return s.Message
}

// NewInspectImageError returns a new error which indicates there was a problem
// inspecting the image
func NewInspectImageError(name string, err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to get metadata for %s", name),
		Details:    err,
		ErrorCode:  InspectImageError,
		Suggestion: "check image name",
	}
}

// NewPullImageError returns a new error which indicates there was a problem
// pulling the image
func NewPullImageError(name string, err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to get %s", name),
		Details:    err,
		ErrorCode:  PullImageError,
		Suggestion: "check image name, or if using local image add --pull-policy=never",
	}
}

// NewManifestError returns a new error which indicates the dependency
// manifest could not be read or parsed
func NewManifestError(path string, err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to process dependency manifest %q: %v", path, err),
		Details:    err,
		ErrorCode:  ManifestError,
		Suggestion: "check the requirements file exists and every entry uses the package-with-optional-version syntax",
	}
}

// NewDockerfileError returns a new error which indicates there was a problem
// generating the build descriptor
func NewDockerfileError(err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to generate the build descriptor: %v", err),
		Details:    err,
		ErrorCode:  DockerfileError,
		Suggestion: "check the entry module and environment values for characters the descriptor cannot carry",
	}
}

// NewBuildError returns a new error which indicates there was a problem
// building the image
func NewBuildError(name string, err error) error {
	return Error{
		Message:    fmt.Sprintf("build of %s failed", name),
		Details:    err,
		ErrorCode:  BuildError,
		Suggestion: "check the build output; no partial image has been retained",
	}
}

// NewInstallError returns a new error which indicates the dependency
// installation inside the build container failed. The build is aborted and no
// image is produced.
func NewInstallError(manifest string, err error) error {
	return Error{
		Message:    fmt.Sprintf("installation of dependency manifest %q failed", manifest),
		Details:    err,
		ErrorCode:  InstallError,
		Suggestion: "verify every package in the manifest resolves against the configured index",
	}
}

// NewCommitError returns a new error which indicates there was a problem
// committing the image
func NewCommitError(name string, err error) error {
	return Error{
		Message:    fmt.Sprintf("building %s failed when committing the image due to error: %v", name, err),
		Details:    err,
		ErrorCode:  CommitError,
		Suggestion: "check the Docker daemon logs and reach out to your container platform administrator",
	}
}

// NewRemoveImageError returns a new error which indicates the image could not
// be removed
func NewRemoveImageError(name string, err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to remove image %s", name),
		Details:    err,
		ErrorCode:  SaveImageError,
		Suggestion: "check if the image exists and is not used by a running container",
	}
}

// NewWorkDirError returns a new error which indicates there was a problem
// creating the working directory
func NewWorkDirError(dir string, err error) error {
	return Error{
		Message:    fmt.Sprintf("creating temporary directory %s failed", dir),
		Details:    err,
		ErrorCode:  WorkDirError,
		Suggestion: "check if you have access to your system's temporary directory",
	}
}

// NewTarError returns a new error which indicates there was a problem
// creating the build context archive
func NewTarError(dir string, err error) error {
	return Error{
		Message:    fmt.Sprintf("unable to stream the build context from %s", dir),
		Details:    err,
		ErrorCode:  TarError,
		Suggestion: "check the application directory is readable",
	}
}

// NewDockerConnectionError returns a new error which indicates there was a
// problem connecting to the docker daemon
func NewDockerConnectionError(endpoint string, err error) error {
	return Error{
		Message:    fmt.Sprintf("could not connect to Docker daemon at %s", endpoint),
		Details:    err,
		ErrorCode:  DockerConnectionError,
		Suggestion: "check if the Docker daemon is running and the -U flag points at its socket",
	}
}

// NewContainerError return a new error which indicates there was a problem
// invoking command inside container
func NewContainerError(name string, code int, output string) error {
	return ContainerError{
		Message:    fmt.Sprintf("non-zero (%d) exit code from %s", code, name),
		Output:     output,
		ErrorCode:  code,
		Suggestion: "the container exit code is the entry module's exit code; inspect the container output above",
		ExitCode:   code,
	}
}
