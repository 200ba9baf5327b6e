package constants

// Defaults for the containerized process contract. The produced image layers
// the dependency manifest onto the base runtime image, installs the
// application tree under AppDir, and starts the entry module as the
// container's foreground process.
const (
	// DefaultBaseImage is the base runtime image used when no image is
	// specified on the command line or in the project descriptor.
	DefaultBaseImage = "python:3.11-slim"

	// AppDir is the fixed destination directory of the application inside
	// the result image.
	AppDir = "/app"

	// DefaultAppSourceDir is the name of the application source tree inside
	// the build context, copied verbatim to AppDir.
	DefaultAppSourceDir = "src"

	// DefaultEntryModule is the module started as the container's foreground
	// process with no arguments.
	DefaultEntryModule = "src.main"

	// DefaultManifest is the name of the dependency manifest inside the
	// build context.
	DefaultManifest = "requirements.txt"

	// PythonUnbufferedEnv disables stdout/stderr buffering of the executed
	// process so log output is flushed immediately.
	PythonUnbufferedEnv = "PYTHONUNBUFFERED"

	// PythonUnbufferedValue is the value PythonUnbufferedEnv is set to in
	// every produced image.
	PythonUnbufferedValue = "1"

	// PythonInterpreter is the executable used to start the entry module.
	PythonInterpreter = "python"
)

// Filenames recognized inside the application directory.
const (
	// IgnoreFile is the dockerignore-style file listing build context
	// exclusions.
	IgnoreFile = ".p2iignore"

	// ConfigFile persists command line options between invocations.
	ConfigFile = ".p2ifile"

	// DescriptorFile is the optional project descriptor overriding build
	// defaults.
	DescriptorFile = "p2i.yaml"

	// GeneratedDockerfile is the name under which the generated build
	// descriptor is placed in the build context.
	GeneratedDockerfile = "Dockerfile.p2i"
)

// Label namespaces and well known labels set on result images.
const (
	// DefaultNamespace is the namespace for generated image labels.
	DefaultNamespace = "io.p2i."

	// KubernetesNamespace is the namespace used for the well known
	// description labels.
	KubernetesNamespace = "io.k8s."

	// KubernetesDescriptionLabel carries the image description.
	KubernetesDescriptionLabel = KubernetesNamespace + "description"

	// KubernetesDisplayNameLabel carries the image display name.
	KubernetesDisplayNameLabel = KubernetesNamespace + "display-name"
)

// Docker connection defaults.
const (
	// DefaultDockerSocket is the unix socket of the local docker daemon.
	DefaultDockerSocket = "unix:///var/run/docker.sock"

	// DefaultDockerAPIVersion is the API version negotiated with the
	// daemon when DOCKER_API_VERSION is unset.
	DefaultDockerAPIVersion = "1.42"

	// DefaultDockerTimeout is used for all docker client operations that do
	// not stream container output.
	DefaultDockerTimeoutSeconds = 120
)

// Container manager backends.
const (
	// ContainerManagerEnv selects the container manager backend: docker,
	// buildah or podman. Docker builds through the daemon API, the others
	// through the local executable.
	ContainerManagerEnv = "P2I_CONTAINER_MANAGER"

	// DockerContainerManager builds with the docker daemon.
	DockerContainerManager = "docker"

	// BuildahContainerManager builds with a local buildah executable.
	BuildahContainerManager = "buildah"

	// PodmanContainerManager builds with a local podman executable.
	PodmanContainerManager = "podman"
)
