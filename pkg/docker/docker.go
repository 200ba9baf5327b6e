// Package docker wraps the docker engine API behind a narrow interface so
// build strategies and the runner can be tested against a fake client.
package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	dockernetwork "github.com/docker/docker/api/types/network"
	dockerstrslice "github.com/docker/docker/api/types/strslice"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/tlsconfig"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	p2ierr "github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/util"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// containerNamePrefix prefixes the name of containers launched by the tool.
const containerNamePrefix = "p2i"

// Client contains all methods used when interacting directly with the docker
// engine API.
type Client interface {
	ServerVersion(ctx context.Context) (dockertypes.Version, error)
	ImageInspectWithRaw(ctx context.Context, imageID string) (dockertypes.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options dockertypes.ImagePullOptions) (io.ReadCloser, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, options dockertypes.ImageBuildOptions) (dockertypes.ImageBuildResponse, error)
	ImageRemove(ctx context.Context, imageID string, options dockertypes.ImageRemoveOptions) ([]dockertypes.ImageDeleteResponseItem, error)
	ContainerCreate(ctx context.Context, config *dockercontainer.Config, hostConfig *dockercontainer.HostConfig, networkingConfig *dockernetwork.NetworkingConfig, platform *ocispec.Platform, containerName string) (dockercontainer.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options dockertypes.ContainerStartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition dockercontainer.WaitCondition) (<-chan dockercontainer.WaitResponse, <-chan error)
	ContainerAttach(ctx context.Context, containerID string, options dockertypes.ContainerAttachOptions) (dockertypes.HijackedResponse, error)
	ContainerCommit(ctx context.Context, containerID string, options dockertypes.ContainerCommitOptions) (dockertypes.IDResponse, error)
	ContainerRemove(ctx context.Context, containerID string, options dockertypes.ContainerRemoveOptions) error
	CopyToContainer(ctx context.Context, containerID, path string, content io.Reader, opts dockertypes.CopyToContainerOptions) error
}

// Docker is the interface between the build strategies, the runner and the
// docker engine.
type Docker interface {
	CheckReachable() error
	Version() (dockertypes.Version, error)
	IsImageInLocalRegistry(name string) (bool, error)
	InspectImage(name string) (*api.Image, error)
	CheckAndPullImage(name string) (*api.Image, error)
	PullImage(name string) (*api.Image, error)
	GetImageID(name string) (string, error)
	GetImageEntrypoint(name string) ([]string, error)
	GetImageEnv(name string) ([]string, error)
	RemoveImage(name string) error
	BuildImage(opts BuildImageOptions) error
	RunContainer(opts RunContainerOptions) error
	CommitContainer(opts CommitContainerOptions) (string, error)
	RemoveContainer(id string) error
	UploadToContainer(containerID, destPath string, src io.Reader) error
}

// BuildImageOptions are options passed to BuildImage.
type BuildImageOptions struct {
	// Name is the tag applied to the result image.
	Name string

	// Stdin streams the build context tar.
	Stdin io.Reader

	// Stdout receives the decoded engine build output.
	Stdout io.Writer

	// Dockerfile is the name of the build descriptor inside the context.
	Dockerfile string

	// NoCache disables layer caching.
	NoCache bool

	// ForceRemove removes intermediate containers even when the build
	// fails.
	ForceRemove bool

	// PullParent forces a pull of the base image even if present.
	PullParent bool

	// Labels are applied to the result image.
	Labels map[string]string

	// CGroupLimits constrains the build containers.
	CGroupLimits *api.CGroupLimits
}

// RunContainerOptions are options passed to RunContainer.
type RunContainerOptions struct {
	// Image is the image started as a container.
	Image string

	// Entrypoint overrides the image entrypoint when set.
	Entrypoint []string

	// Command overrides the image command when set. An empty command runs
	// the image's own command, i.e. the entry module.
	Command []string

	// Env is the environment of the container, on top of the image env.
	Env []string

	// WorkingDir is the working directory of the container process. The
	// engine creates the directory during container creation if it does
	// not exist in the image.
	WorkingDir string

	// Stdout and Stderr receive the demultiplexed container streams.
	Stdout io.Writer
	Stderr io.Writer

	// OnCreate is invoked after the container is created, before it is
	// started. Uploading the build context happens here so the files are
	// in place when the command runs.
	OnCreate func(containerID string) error

	// OnStart is invoked after the container started, before waiting for
	// it to exit.
	OnStart func(containerID string) error

	// PostExec is invoked after the container exited with code zero,
	// while the container still exists. Committing the container happens
	// here.
	PostExec func(containerID string) error

	// CGroupLimits constrains the container.
	CGroupLimits *api.CGroupLimits

	// CapDrop lists capabilities dropped from the container.
	CapDrop []string
}

// CommitContainerOptions are options passed to CommitContainer.
type CommitContainerOptions struct {
	// ContainerID is the container to commit.
	ContainerID string

	// Repository is the image reference the commit is tagged as.
	Repository string

	// Command is baked into the image as its command.
	Command []string

	// Entrypoint is baked into the image as its entrypoint.
	Entrypoint []string

	// Env is baked into the image.
	Env []string

	// WorkingDir is baked into the image.
	WorkingDir string

	// Labels are applied to the image.
	Labels map[string]string
}

type p2iDocker struct {
	client   Client
	pullAuth api.AuthConfig
	endpoint string
}

// New creates a docker client using the given docker configuration and the
// authentication used when pulling images.
func New(config *api.DockerConfig, auth api.AuthConfig) (Docker, error) {
	opts := []dockerclient.Opt{
		dockerclient.WithHost(config.Endpoint),
		dockerclient.WithVersion(constants.DefaultDockerAPIVersion),
	}
	if config.UseTLS || config.TLSVerify {
		tlsOpts := tlsconfig.Options{
			CAFile:             config.CAFile,
			CertFile:           config.CertFile,
			KeyFile:            config.KeyFile,
			InsecureSkipVerify: !config.TLSVerify,
		}
		tlsc, err := tlsconfig.Client(tlsOpts)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dockerclient.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsc},
		}))
	}
	client, err := dockerclient.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &p2iDocker{
		client:   client,
		pullAuth: auth,
		endpoint: config.Endpoint,
	}, nil
}

// CheckReachable returns if the Docker daemon described by the config is
// reachable.
func CheckReachable(config *api.Config) error {
	d, err := New(config.DockerConfig, config.PullAuthentication)
	if err != nil {
		return err
	}
	return d.CheckReachable()
}

// GetDefaultDockerConfig returns a docker configuration set from the
// conventional DOCKER_* environment variables.
func GetDefaultDockerConfig() *api.DockerConfig {
	cfg := &api.DockerConfig{}

	if cfg.Endpoint = os.Getenv("DOCKER_HOST"); cfg.Endpoint == "" {
		cfg.Endpoint = constants.DefaultDockerSocket
	}

	certPath := os.Getenv("DOCKER_CERT_PATH")
	if certPath == "" {
		certPath = filepath.Join(os.Getenv("HOME"), ".docker")
	}
	cfg.CertFile = filepath.Join(certPath, "cert.pem")
	cfg.KeyFile = filepath.Join(certPath, "key.pem")
	cfg.CAFile = filepath.Join(certPath, "ca.pem")

	if tlsVerify := os.Getenv("DOCKER_TLS_VERIFY"); tlsVerify != "" {
		cfg.TLSVerify = true
	}

	return cfg
}

// timeoutContext returns a context with the default docker operation
// timeout, used for everything which does not stream container output.
func timeoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), constants.DefaultDockerTimeoutSeconds*time.Second)
}

// CheckReachable returns if the Docker daemon is reachable
func (d *p2iDocker) CheckReachable() error {
	if _, err := d.Version(); err != nil {
		return p2ierr.NewDockerConnectionError(d.endpoint, err)
	}
	return nil
}

// Version returns the version reported by the docker daemon.
func (d *p2iDocker) Version() (dockertypes.Version, error) {
	ctx, cancel := timeoutContext()
	defer cancel()
	return d.client.ServerVersion(ctx)
}

// IsImageInLocalRegistry determines whether the supplied image is in the
// local registry.
func (d *p2iDocker) IsImageInLocalRegistry(name string) (bool, error) {
	name = GetImageName(name)
	resp, err := d.inspectImage(name)
	if resp != nil {
		return true, nil
	}
	if err != nil && !dockerclient.IsErrNotFound(err) {
		return false, p2ierr.NewInspectImageError(name, err)
	}
	return false, nil
}

func (d *p2iDocker) inspectImage(name string) (*dockertypes.ImageInspect, error) {
	ctx, cancel := timeoutContext()
	defer cancel()
	resp, _, err := d.client.ImageInspectWithRaw(ctx, name)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// InspectImage returns the image metadata.
func (d *p2iDocker) InspectImage(name string) (*api.Image, error) {
	name = GetImageName(name)
	resp, err := d.inspectImage(name)
	if err != nil {
		return nil, p2ierr.NewInspectImageError(name, err)
	}
	image := &api.Image{ID: resp.ID}
	if resp.Config != nil {
		image.Config = &api.ContainerConfig{
			Labels:     resp.Config.Labels,
			Env:        resp.Config.Env,
			Entrypoint: resp.Config.Entrypoint,
			Cmd:        resp.Config.Cmd,
			User:       resp.Config.User,
			WorkingDir: resp.Config.WorkingDir,
		}
		image.ContainerConfig = image.Config
	}
	return image, nil
}

// CheckAndPullImage pulls an image into the local registry if not present
// and returns the image metadata.
func (d *p2iDocker) CheckAndPullImage(name string) (*api.Image, error) {
	name = GetImageName(name)
	displayName := name

	// hide the digest part of a fully qualified reference at low verbosity
	if !log.V(3) {
		displayName = strings.SplitN(name, "@", 2)[0]
	}

	image, err := d.InspectImage(name)
	if err != nil {
		if e, ok := err.(p2ierr.Error); !ok || e.ErrorCode != p2ierr.InspectImageError {
			return nil, err
		}
	}
	if image == nil {
		log.V(1).Infof("Image %q not available locally, pulling ...", displayName)
		return d.PullImage(name)
	}

	log.V(3).Infof("Using locally available image %q", displayName)
	return image, nil
}

// PullImage pulls an image into the local registry.
func (d *p2iDocker) PullImage(name string) (*api.Image, error) {
	name = GetImageName(name)

	// RegistryAuth is the base64 encoded credentials for the registry
	base64Auth, err := base64EncodeAuth(d.pullAuth)
	if err != nil {
		return nil, p2ierr.NewPullImageError(name, err)
	}

	// Use a no-timeout context: the pull streams for as long as the layers
	// take to download.
	resp, err := d.client.ImagePull(context.Background(), name, dockertypes.ImagePullOptions{RegistryAuth: base64Auth})
	if err != nil {
		return nil, p2ierr.NewPullImageError(name, err)
	}
	defer resp.Close()

	decoder := json.NewDecoder(resp)
	for {
		msg := jsonmessage.JSONMessage{}
		err := decoder.Decode(&msg)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p2ierr.NewPullImageError(name, err)
		}
		if msg.Error != nil {
			return nil, p2ierr.NewPullImageError(name, msg.Error)
		}
		if msg.Progress != nil {
			log.V(4).Infof("pulling image %s: %s", name, msg.Progress.String())
		}
	}

	return d.InspectImage(name)
}

// GetImageID retrieves the ID of the image identified by name
func (d *p2iDocker) GetImageID(name string) (string, error) {
	image, err := d.InspectImage(name)
	if err != nil {
		return "", err
	}
	return image.ID, nil
}

// GetImageEntrypoint returns the entrypoint of the image.
func (d *p2iDocker) GetImageEntrypoint(name string) ([]string, error) {
	image, err := d.InspectImage(name)
	if err != nil {
		return nil, err
	}
	if image.Config == nil {
		return nil, nil
	}
	return image.Config.Entrypoint, nil
}

// GetImageEnv returns the environment baked into the image.
func (d *p2iDocker) GetImageEnv(name string) ([]string, error) {
	image, err := d.InspectImage(name)
	if err != nil {
		return nil, err
	}
	if image.Config == nil {
		return nil, nil
	}
	return image.Config.Env, nil
}

// RemoveImage removes the image with specified ID
func (d *p2iDocker) RemoveImage(imageID string) error {
	ctx, cancel := timeoutContext()
	defer cancel()
	if _, err := d.client.ImageRemove(ctx, imageID, dockertypes.ImageRemoveOptions{PruneChildren: true}); err != nil {
		return p2ierr.NewRemoveImageError(imageID, err)
	}
	return nil
}

// BuildImage builds the image from the build context streamed on
// opts.Stdin. A failing build leaves no tagged image behind: the daemon
// never tags a failed build, and its intermediate containers are removed
// as well when opts.ForceRemove is set.
func (d *p2iDocker) BuildImage(opts BuildImageOptions) error {
	buildOpts := dockertypes.ImageBuildOptions{
		Tags:        []string{opts.Name},
		Dockerfile:  opts.Dockerfile,
		NoCache:     opts.NoCache,
		PullParent:  opts.PullParent,
		Labels:      opts.Labels,
		Remove:      true,
		ForceRemove: opts.ForceRemove,
	}
	if opts.CGroupLimits != nil {
		buildOpts.Memory = opts.CGroupLimits.MemoryLimitBytes
		buildOpts.MemorySwap = opts.CGroupLimits.MemorySwap
		buildOpts.CPUShares = opts.CGroupLimits.CPUShares
		buildOpts.CPUPeriod = opts.CGroupLimits.CPUPeriod
		buildOpts.CPUQuota = opts.CGroupLimits.CPUQuota
		buildOpts.CgroupParent = opts.CGroupLimits.Parent
	}
	log.V(2).Infof("Building container using config: %+v", buildOpts)

	// Builds can take a long time, use a no-timeout context.
	resp, err := d.client.ImageBuild(context.Background(), opts.Stdin, buildOpts)
	if err != nil {
		return p2ierr.NewBuildError(opts.Name, err)
	}
	defer resp.Body.Close()

	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	err = jsonmessage.DisplayJSONMessagesStream(resp.Body, out, 0, false, nil)
	if err != nil {
		if jerr, ok := err.(*jsonmessage.JSONError); ok {
			return p2ierr.NewBuildError(opts.Name, fmt.Errorf("%s", jerr.Message))
		}
		return p2ierr.NewBuildError(opts.Name, err)
	}
	return nil
}

// RunContainer creates and starts a container from the given options,
// streaming its output, and waits until the container exits. A non-zero
// container exit code is returned as a ContainerError carrying that code.
func (d *p2iDocker) RunContainer(opts RunContainerOptions) error {
	ctx := context.Background()

	config := &dockercontainer.Config{
		Image:      opts.Image,
		Env:        opts.Env,
		WorkingDir: opts.WorkingDir,
	}
	if len(opts.Entrypoint) > 0 {
		config.Entrypoint = dockerstrslice.StrSlice(opts.Entrypoint)
	}
	if len(opts.Command) > 0 {
		config.Cmd = dockerstrslice.StrSlice(opts.Command)
	}
	config.AttachStdout = opts.Stdout != nil
	config.AttachStderr = opts.Stderr != nil

	hostConfig := &dockercontainer.HostConfig{
		CapDrop: dockerstrslice.StrSlice(opts.CapDrop),
	}
	if opts.CGroupLimits != nil {
		hostConfig.Resources.Memory = opts.CGroupLimits.MemoryLimitBytes
		hostConfig.Resources.MemorySwap = opts.CGroupLimits.MemorySwap
		hostConfig.Resources.CPUShares = opts.CGroupLimits.CPUShares
		hostConfig.Resources.CPUQuota = opts.CGroupLimits.CPUQuota
		hostConfig.Resources.CPUPeriod = opts.CGroupLimits.CPUPeriod
		hostConfig.Resources.CgroupParent = opts.CGroupLimits.Parent
	}

	name := containerName(opts.Image)
	if log.V(2) {
		safeConfig := *config
		safeConfig.Env = util.StripProxyCredentials(safeConfig.Env)
		log.V(2).Infof("Creating container %q using config: %+v, host config: %+v", name, &safeConfig, hostConfig)
	}
	resp, err := d.client.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return err
	}
	containerID := resp.ID

	// Container was created, so we defer its removal, and also remove it if
	// we get a SIGINT/SIGTERM/SIGQUIT/SIGHUP signal.
	removeContainer := func() {
		log.V(4).Infof("Removing container %q ...", containerID)
		if err := d.RemoveContainer(containerID); err != nil {
			log.V(0).Infof("warning: Failed to remove container %q: %v", containerID, err)
		} else {
			log.V(4).Infof("Removed container %q", containerID)
		}
	}
	defer removeContainer()

	if opts.OnCreate != nil {
		if err := opts.OnCreate(containerID); err != nil {
			return err
		}
	}

	attachResp, err := d.client.ContainerAttach(ctx, containerID, dockertypes.ContainerAttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return err
	}
	defer attachResp.Close()

	copyDone := make(chan error, 1)
	go func() {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = io.Discard
		}
		stderr := opts.Stderr
		if stderr == nil {
			stderr = io.Discard
		}
		// The attach stream multiplexes stdout and stderr of a container
		// started without a TTY.
		_, err := stdcopy.StdCopy(stdout, stderr, attachResp.Reader)
		copyDone <- err
	}()

	waitC, waitErrC := d.client.ContainerWait(ctx, containerID, dockercontainer.WaitConditionNextExit)

	log.V(2).Infof("Starting container %q ...", containerID)
	if err := d.client.ContainerStart(ctx, containerID, dockertypes.ContainerStartOptions{}); err != nil {
		return err
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(containerID); err != nil {
			return err
		}
	}

	log.V(2).Infof("Waiting for container %q to stop ...", containerID)
	var exitCode int64
	select {
	case wait := <-waitC:
		if wait.Error != nil {
			return fmt.Errorf("waiting for container %q to stop: %s", containerID, wait.Error.Message)
		}
		exitCode = wait.StatusCode
	case err := <-waitErrC:
		return fmt.Errorf("waiting for container %q to stop: %v", containerID, err)
	}

	// Drain the output streams before reporting the exit code.
	if err := <-copyDone; err != nil && err != io.EOF {
		log.V(4).Infof("error copying container %q output: %v", containerID, err)
	}

	if exitCode != 0 {
		return p2ierr.NewContainerError(opts.Image, int(exitCode), "")
	}

	if opts.PostExec != nil {
		log.V(2).Infof("Invoking PostExecute function")
		if err := opts.PostExec(containerID); err != nil {
			return err
		}
	}
	return nil
}

// CommitContainer commits a container to an image with a specific tag. The
// new image ID is returned.
func (d *p2iDocker) CommitContainer(opts CommitContainerOptions) (string, error) {
	dockerOpts := dockertypes.ContainerCommitOptions{
		Reference: opts.Repository,
	}
	if len(opts.Command) > 0 || len(opts.Entrypoint) > 0 || len(opts.Env) > 0 || len(opts.Labels) > 0 || len(opts.WorkingDir) > 0 {
		config := dockercontainer.Config{
			Cmd:        dockerstrslice.StrSlice(opts.Command),
			Entrypoint: dockerstrslice.StrSlice(opts.Entrypoint),
			Env:        opts.Env,
			Labels:     opts.Labels,
			WorkingDir: opts.WorkingDir,
		}
		dockerOpts.Config = &config
		log.V(2).Infof("Committing container with dockerOpts: %+v, config: %+v", dockerOpts, config)
	}

	ctx, cancel := timeoutContext()
	defer cancel()
	resp, err := d.client.ContainerCommit(ctx, opts.ContainerID, dockerOpts)
	if err != nil {
		return "", p2ierr.NewCommitError(opts.Repository, err)
	}
	return resp.ID, nil
}

// RemoveContainer removes a container and its associated volumes.
func (d *p2iDocker) RemoveContainer(containerID string) error {
	ctx, cancel := timeoutContext()
	defer cancel()
	return d.client.ContainerRemove(ctx, containerID, dockertypes.ContainerRemoveOptions{
		RemoveVolumes: true,
		Force:         true,
	})
}

// UploadToContainer uploads artifacts to the container at the given
// destination path. The src stream must be a tar archive.
func (d *p2iDocker) UploadToContainer(containerID, destPath string, src io.Reader) error {
	ctx, cancel := timeoutContext()
	defer cancel()
	log.V(3).Infof("Uploading to container %q at %q ...", containerID, destPath)
	return d.client.CopyToContainer(ctx, containerID, destPath, src, dockertypes.CopyToContainerOptions{})
}

// StreamContainerIO reads data from the io.Reader and writes it line by line
// using the given writer function. The returned channel is closed once the
// reader is drained.
func StreamContainerIO(errStream io.Reader, errOutput *string, log func(...interface{})) <-chan struct{} {
	c := make(chan struct{}, 1)
	go func() {
		reader := bufio.NewReader(errStream)
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			text := scanner.Text()
			if errOutput != nil && len(*errOutput) < maxErrorOutput {
				*errOutput += text + "\n"
			}
			log(text)
		}
		close(c)
	}()
	return c
}

const maxErrorOutput = 1024

// containerName returns a unique container name derived from the image name.
func containerName(image string) string {
	// hex of a random uint32 keeps the name readable while unique enough
	// for the container's lifetime
	uid := fmt.Sprintf("%08x", rand.Uint32())
	replacer := strings.NewReplacer("/", "_", ":", "_", ".", "_", "@", "_")
	return containerNamePrefix + "_" + replacer.Replace(image) + "_" + uid
}
