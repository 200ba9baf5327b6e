package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/py2image/python-to-image/pkg/util/log"
)

var glog = log.StderrLog

// Config contains essential fields for performing a build and running the
// resulting image.
type Config struct {
	// DisplayName is a result image display-name label. This defaults to the
	// output image name.
	DisplayName string

	// Description is a result image description label. The default is no
	// description.
	Description string

	// BaseImage describes which image is used for building the result image.
	// It must carry a python interpreter and pip.
	BaseImage string

	// BasePullPolicy specifies when to pull the base image (always,
	// never or if-not-present).
	BasePullPolicy PullPolicy

	// Source is the directory holding the application to containerize. It is
	// expected to contain the dependency manifest and the application source
	// tree.
	Source string

	// ContextDir is a sub-directory inside of Source that contains the
	// application, if it does not sit at the repository root.
	ContextDir string

	// AppSourceDir is the name of the application source tree inside Source,
	// copied verbatim to AppDir in the result image.
	AppSourceDir string

	// EntryModule is the python module started as the container's foreground
	// process, invoked with no arguments.
	EntryModule string

	// ManifestPath is the path of the dependency manifest, relative to
	// Source.
	ManifestPath string

	// Tag is a result image tag name.
	Tag string

	// AsDockerfile controls the Dockerfile generation flow. When set, no
	// image is built: the build descriptor is written to the given path
	// instead, together with the build context next to it.
	AsDockerfile string

	// ContainerManager selects the backend used to build the image, either
	// docker or buildah.
	ContainerManager string

	// Layered describes whether the image should be built by running the
	// dependency installation in a container layered on the base image and
	// committing the result, instead of a one-shot Dockerfile build.
	Layered bool

	// NoCache describes if we should build the image with --no-cache.
	NoCache bool

	// RemoveWithForce describes if intermediate containers are removed even
	// after unsuccessful builds. Partial images are never retained either
	// way.
	RemoveWithForce bool

	// Environment is a map of environment variables to be passed to the
	// image.
	Environment EnvironmentList

	// EnvironmentFile specifies a path to a file with environment variables.
	EnvironmentFile string

	// DescriptorPath is the path of the optional project descriptor
	// (p2i.yaml), relative to Source.
	DescriptorPath string

	// Labels specify labels to be applied to the result image.
	Labels map[string]string

	// LabelNamespace provides the namespace under which the labels will be
	// generated.
	LabelNamespace string

	// DockerConfig holds the docker daemon connection information.
	DockerConfig *DockerConfig

	// DockerCfgPath provides the path to the .docker/config.json file.
	DockerCfgPath string

	// PullAuthentication holds the authentication information for pulling the
	// base image.
	PullAuthentication AuthConfig

	// RunImage will trigger a "docker run ..." invocation of the produced
	// image so the user can see if it operates as he would expect.
	RunImage bool

	// Quiet describes whether additional output should be suppressed.
	Quiet bool

	// PreserveWorkingDir describes if working directory should be preserved
	// after the build.
	PreserveWorkingDir bool

	// WorkingDir describes temporary directory used for the build.
	WorkingDir string

	// CGroupLimits describes the cgroups limits that will be applied to any
	// containers used in the build or run.
	CGroupLimits *CGroupLimits

	// DropCapabilities contains a list of capabilities to drop when executing
	// containers.
	DropCapabilities []string

	// ExcludeRegExp contains a regular expression for files to exclude when
	// streaming the build context.
	ExcludeRegExp string
}

// DockerConfig contains the configuration for a Docker connection.
type DockerConfig struct {
	// Endpoint is the docker network endpoint or socket
	Endpoint string

	// CertFile is the certificate file path for a TLS connection
	CertFile string

	// KeyFile is the key file path for a TLS connection
	KeyFile string

	// CAFile is the certificate authority file path for a TLS connection
	CAFile string

	// UseTLS indicates if TLS must be used
	UseTLS bool

	// TLSVerify indicates if TLS peer must be verified
	TLSVerify bool
}

// AuthConfig is our abstraction of the Registry authorization information for
// whatever docker client we happen to be based on
type AuthConfig struct {
	Username      string
	Password      string
	Email         string
	ServerAddress string
}

// ContainerConfig is the abstraction of the docker client provider container
// metadata
type ContainerConfig struct {
	Labels     map[string]string
	Env        []string
	Entrypoint []string
	Cmd        []string
	User       string
	WorkingDir string
}

// Image is the abstraction of the docker client provider image metadata
type Image struct {
	ID string
	*ContainerConfig
	Config *ContainerConfig
}

// Result structure contains information from build process.
type Result struct {
	// Success describes whether the build was successful.
	Success bool

	// Messages is a list of messages from build process.
	Messages []string

	// WarningMessages is a list of warnings encountered during the build.
	WarningMessages []string

	// ImageID describes the ID of built image.
	ImageID string

	// BuildInfo holds information about the result of a build.
	BuildInfo BuildInfo
}

// BuildInfo contains information about the build process.
type BuildInfo struct {
	// Stages contains details about each build stage.
	Stages []StageInfo

	// FailureReason is a camel case reason that is used by the machine to
	// reply back to the OpenShift builder with information why any of the
	// steps in the build failed.
	FailureReason FailureReason
}

// StageInfo contains details about a build stage.
type StageInfo struct {
	// Name is the identifier for each build stage.
	Name StageName

	// StartTime identifies when this stage started.
	StartTime time.Time

	// DurationMilliseconds identifies how long this stage ran.
	DurationMilliseconds int64

	// Steps contains details about each build step within a build stage.
	Steps []StepInfo
}

// StageName is the identifier for each build stage.
type StageName string

// Stage names used by the build process.
const (
	// StagePullImages pulls the base image.
	StagePullImages StageName = "PullImages"

	// StageGenerateDockerfile generates the build descriptor.
	StageGenerateDockerfile StageName = "GenerateDockerfile"

	// StageBuild builds the image.
	StageBuild StageName = "Build"

	// StageCommit commits the container.
	StageCommit StageName = "CommitContainer"
)

// StepInfo contains details about a build step.
type StepInfo struct {
	// Name is the identifier for each build step.
	Name StepName

	// StartTime identifies when this step started.
	StartTime time.Time

	// DurationMilliseconds identifies how long this step ran.
	DurationMilliseconds int64
}

// StepName is the identifier for each build step.
type StepName string

// Step names used by the build process.
const (
	// StepPullBaseImage pulls the base image.
	StepPullBaseImage StepName = "PullBaseImage"

	// StepGenerateDockerfile generates the Dockerfile fed to the engine.
	StepGenerateDockerfile StepName = "GenerateDockerfile"

	// StepReadManifest parses the dependency manifest.
	StepReadManifest StepName = "ReadDependencyManifest"

	// StepBuildImage performs the engine build.
	StepBuildImage StepName = "BuildImage"

	// StepInstallDependencies installs the dependency manifest inside the
	// build container (layered strategy).
	StepInstallDependencies StepName = "InstallDependencies"

	// StepCommitContainer commits the build container (layered strategy).
	StepCommitContainer StepName = "CommitContainer"
)

// StepFailureReason is a camel case reason explaining why a build step
// failed.
type StepFailureReason string

// StepFailureMessage is a human readable message explaining why a build step
// failed.
type StepFailureMessage string

// FailureReason holds both the machine and human readable reason for a build
// failure.
type FailureReason struct {
	// Reason is the brief and machine readable description.
	Reason StepFailureReason

	// Message is the human readable description.
	Message StepFailureMessage
}

// CGroupLimits holds limits used to constrain container resources.
type CGroupLimits struct {
	MemoryLimitBytes int64
	CPUShares        int64
	CPUPeriod        int64
	CPUQuota         int64
	MemorySwap       int64
	Parent           string
}

// EnvironmentSpec specifies a single environment variable.
type EnvironmentSpec struct {
	Name  string
	Value string
}

// EnvironmentList contains list of environment variables.
type EnvironmentList []EnvironmentSpec

// PullPolicy specifies a type for the method used to retrieve the Docker
// image.
type PullPolicy string

// String implements the String() function of pflags.Value so this type
// compiles with the pflag package.
func (p PullPolicy) String() string {
	return string(p)
}

// Type implements the Type() function of pflags.Value interface
func (p PullPolicy) Type() string {
	return "string"
}

// Set implements the Set() function of pflags.Value interface
// The valid options are "always", "never" or "if-not-present"
func (p *PullPolicy) Set(v string) error {
	switch v {
	case "always":
		*p = PullAlways
	case "never":
		*p = PullNever
	case "if-not-present":
		*p = PullIfNotPresent
	default:
		return fmt.Errorf("invalid value %q, valid values are: always, never or if-not-present", v)
	}
	return nil
}

const (
	// PullAlways means that we always attempt to pull the latest image.
	PullAlways PullPolicy = "always"

	// PullNever means that we never pull an image, but only use a local image.
	PullNever PullPolicy = "never"

	// PullIfNotPresent means that we pull if the image isn't present on disk.
	PullIfNotPresent PullPolicy = "if-not-present"

	// DefaultBasePullPolicy specifies the default pull policy to use
	DefaultBasePullPolicy = PullIfNotPresent
)

// String returns the list of environment variables joined by commas.
func (l *EnvironmentList) String() string {
	result := []string{}
	for _, e := range *l {
		result = append(result, strings.Join([]string{e.Name, e.Value}, "="))
	}
	return strings.Join(result, ",")
}

// Type implements the Type() function of pflags.Value interface.
func (l *EnvironmentList) Type() string {
	return "string"
}

// Set implements the Set() function of pflags.Value interface.
func (l *EnvironmentList) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	switch len(parts) {
	case 0:
		return fmt.Errorf("invalid environment format %q, must be NAME=VALUE", value)
	case 1:
		if len(strings.TrimSpace(parts[0])) == 0 {
			return fmt.Errorf("invalid environment format %q, must be NAME=VALUE", value)
		}
		parts = append(parts, "")
	case 2:
		if strings.Contains(parts[1], ",") && strings.Contains(parts[1], "=") {
			commaWarning := fmt.Sprintf("DEPRECATED: Use multiple -e flags to specify multiple environment variables instead of comma (%q)", value)
			glog.Warning(commaWarning)
		}
	}
	if len(parts[0]) == 0 {
		return errors.New("environment variable name cannot be empty")
	}
	*l = append(*l, EnvironmentSpec{
		Name:  strings.TrimSpace(parts[0]),
		Value: strings.TrimSpace(parts[1]),
	})
	return nil
}

// AsMap converts the list of environment variables into a map.
func (l *EnvironmentList) AsMap() map[string]string {
	result := map[string]string{}
	for _, e := range *l {
		result[e.Name] = e.Value
	}
	return result
}
