package status

import (
	"github.com/py2image/python-to-image/pkg/api"
)

const (
	// ReasonPullBaseImageFailed is the reason associated with failing to pull
	// the base runtime image.
	ReasonPullBaseImageFailed        api.StepFailureReason  = "PullBaseImageFailed"
	ReasonMessagePullBaseImageFailed api.StepFailureMessage = "Failed to pull base runtime image"

	// ReasonManifestInvalid is the reason associated with a dependency
	// manifest that cannot be read or parsed.
	ReasonManifestInvalid        api.StepFailureReason  = "DependencyManifestInvalid"
	ReasonMessageManifestInvalid api.StepFailureMessage = "Failed to read the dependency manifest"

	// ReasonInstallFailed is the reason associated with a failing dependency
	// installation. The build aborts and no image is retained.
	ReasonInstallFailed        api.StepFailureReason  = "DependencyInstallFailed"
	ReasonMessageInstallFailed api.StepFailureMessage = "Dependency installation failed"

	// ReasonDockerfileCreateFailed is the reason associated with failing to
	// create the build descriptor.
	ReasonDockerfileCreateFailed        api.StepFailureReason  = "DockerfileCreationFailed"
	ReasonMessageDockerfileCreateFailed api.StepFailureMessage = "Failed to create Dockerfile"

	// ReasonDockerImageBuildFailed is the reason associated with a failed
	// image build.
	ReasonDockerImageBuildFailed        api.StepFailureReason  = "DockerImageBuildFailed"
	ReasonMessageDockerImageBuildFailed api.StepFailureMessage = "Docker image build failed"

	// ReasonCommitContainerFailed is the reason associated with failing to
	// commit the build container to the final image.
	ReasonCommitContainerFailed        api.StepFailureReason  = "ContainerCommitFailed"
	ReasonMessageCommitContainerFailed api.StepFailureMessage = "Failed to commit container"

	// ReasonTarSourceFailed is the failure reason associated with a failure
	// to tar the build context.
	ReasonTarSourceFailed        api.StepFailureReason  = "TarSourceFailed"
	ReasonMessageTarSourceFailed api.StepFailureMessage = "Failed to tar source files"

	// ReasonFSOperationFailed is the reason associated with a failed fs
	// operation. Create, remove directory, copy file, etc.
	ReasonFSOperationFailed        api.StepFailureReason  = "FileSystemOperationFailed"
	ReasonMessageFSOperationFailed api.StepFailureMessage = "Failed to perform filesystem operation"

	// ReasonGenericBuildFailed is the reason associated with a broad range of
	// failures.
	ReasonGenericBuildFailed        api.StepFailureReason  = "GenericBuildFailed"
	ReasonMessageGenericBuildFailed api.StepFailureMessage = "Generic build failure - check the build logs for details"
)

// NewFailureReason initializes a new failure reason that contains both the
// reason and a message to be displayed.
func NewFailureReason(reason api.StepFailureReason, message api.StepFailureMessage) api.FailureReason {
	return api.FailureReason{
		Reason:  reason,
		Message: message,
	}
}
