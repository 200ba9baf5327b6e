// Package test provides a fake docker engine client for unit testing.
package test

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	dockernetwork "github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// FakeConn is a fake net.Conn used by the fake attach response.
type FakeConn struct{}

func (c FakeConn) Read(b []byte) (n int, err error)   { return 0, io.EOF }
func (c FakeConn) Write(b []byte) (n int, err error)  { return len(b), nil }
func (c FakeConn) Close() error                       { return nil }
func (c FakeConn) LocalAddr() net.Addr                { return &net.UnixAddr{} }
func (c FakeConn) RemoteAddr() net.Addr               { return &net.UnixAddr{} }
func (c FakeConn) SetDeadline(t time.Time) error      { return nil }
func (c FakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c FakeConn) SetWriteDeadline(t time.Time) error { return nil }

// FakeDockerClient provides a Fake client for Docker testing
type FakeDockerClient struct {
	Calls []string

	Images     map[string]dockertypes.ImageInspect
	Containers map[string]dockercontainer.Config

	ServerVersionErr error

	PullReader io.ReadCloser
	PullFail   error

	BuildImageOpts    dockertypes.ImageBuildOptions
	BuildImageContext []byte
	BuildImageBody    io.ReadCloser
	BuildImageErr     error

	RemovedImages []string
	RemoveImageErr error

	ContainerCreateName string
	ContainerCreateErr  error
	ContainerStartID    string
	ContainerStartErr   error

	WaitContainerID     string
	WaitContainerResult int64
	WaitContainerErr    error

	AttachOutput string
	AttachErr    error

	ContainerCommitID       string
	ContainerCommitOptions  dockertypes.ContainerCommitOptions
	ContainerCommitResponse dockertypes.IDResponse
	ContainerCommitErr      error

	RemovedContainers  []string
	ContainerRemoveErr error

	CopyToContainerID      string
	CopyToContainerPath    string
	CopyToContainerContent []byte
	CopyToContainerErr     error
}

// NewFakeDockerClient returns a new FakeDockerClient
func NewFakeDockerClient() *FakeDockerClient {
	return &FakeDockerClient{
		Images:     make(map[string]dockertypes.ImageInspect),
		Containers: make(map[string]dockercontainer.Config),
		Calls:      make([]string, 0),
	}
}

// AssertCalls compares the calls made against the fake with the expected
// ones.
func (d *FakeDockerClient) AssertCalls(expected []string) error {
	if len(expected) != len(d.Calls) {
		return fmt.Errorf("expected calls %v, got %v", expected, d.Calls)
	}
	for i := range expected {
		if expected[i] != d.Calls[i] {
			return fmt.Errorf("expected calls %v, got %v", expected, d.Calls)
		}
	}
	return nil
}

func (d *FakeDockerClient) ServerVersion(ctx context.Context) (dockertypes.Version, error) {
	d.Calls = append(d.Calls, "server_version")
	return dockertypes.Version{APIVersion: "1.42"}, d.ServerVersionErr
}

func (d *FakeDockerClient) ImageInspectWithRaw(ctx context.Context, imageID string) (dockertypes.ImageInspect, []byte, error) {
	d.Calls = append(d.Calls, "inspect_image")

	if image, exists := d.Images[imageID]; exists {
		return image, nil, nil
	}
	return dockertypes.ImageInspect{}, nil, notFoundError{fmt.Sprintf("No such image: %q", imageID)}
}

func (d *FakeDockerClient) ImagePull(ctx context.Context, ref string, options dockertypes.ImagePullOptions) (io.ReadCloser, error) {
	d.Calls = append(d.Calls, "pull")

	if d.PullFail != nil {
		return nil, d.PullFail
	}
	if d.PullReader != nil {
		return d.PullReader, nil
	}
	return io.NopCloser(bytes.NewReader([]byte("{}"))), nil
}

func (d *FakeDockerClient) ImageBuild(ctx context.Context, buildContext io.Reader, options dockertypes.ImageBuildOptions) (dockertypes.ImageBuildResponse, error) {
	d.Calls = append(d.Calls, "build")

	d.BuildImageOpts = options
	if buildContext != nil {
		content, err := io.ReadAll(buildContext)
		if err != nil {
			return dockertypes.ImageBuildResponse{}, err
		}
		d.BuildImageContext = content
	}
	body := d.BuildImageBody
	if body == nil {
		body = io.NopCloser(bytes.NewReader([]byte("")))
	}
	return dockertypes.ImageBuildResponse{Body: body}, d.BuildImageErr
}

func (d *FakeDockerClient) ImageRemove(ctx context.Context, imageID string, options dockertypes.ImageRemoveOptions) ([]dockertypes.ImageDeleteResponseItem, error) {
	d.Calls = append(d.Calls, "remove_image")

	d.RemovedImages = append(d.RemovedImages, imageID)
	return nil, d.RemoveImageErr
}

func (d *FakeDockerClient) ContainerCreate(ctx context.Context, config *dockercontainer.Config, hostConfig *dockercontainer.HostConfig, networkingConfig *dockernetwork.NetworkingConfig, platform *ocispec.Platform, containerName string) (dockercontainer.CreateResponse, error) {
	d.Calls = append(d.Calls, "create")

	d.ContainerCreateName = containerName
	if config != nil {
		d.Containers[containerName] = *config
	}
	return dockercontainer.CreateResponse{ID: "container-id"}, d.ContainerCreateErr
}

func (d *FakeDockerClient) ContainerStart(ctx context.Context, containerID string, options dockertypes.ContainerStartOptions) error {
	d.Calls = append(d.Calls, "start")

	d.ContainerStartID = containerID
	return d.ContainerStartErr
}

func (d *FakeDockerClient) ContainerWait(ctx context.Context, containerID string, condition dockercontainer.WaitCondition) (<-chan dockercontainer.WaitResponse, <-chan error) {
	d.Calls = append(d.Calls, "wait")

	d.WaitContainerID = containerID
	waitC := make(chan dockercontainer.WaitResponse, 1)
	errC := make(chan error, 1)
	if d.WaitContainerErr != nil {
		errC <- d.WaitContainerErr
	} else {
		waitC <- dockercontainer.WaitResponse{StatusCode: d.WaitContainerResult}
	}
	return waitC, errC
}

func (d *FakeDockerClient) ContainerAttach(ctx context.Context, containerID string, options dockertypes.ContainerAttachOptions) (dockertypes.HijackedResponse, error) {
	d.Calls = append(d.Calls, "attach")

	return dockertypes.HijackedResponse{
		Conn:   FakeConn{},
		Reader: bufioReader(d.AttachOutput),
	}, d.AttachErr
}

func (d *FakeDockerClient) ContainerCommit(ctx context.Context, containerID string, options dockertypes.ContainerCommitOptions) (dockertypes.IDResponse, error) {
	d.Calls = append(d.Calls, "commit")

	d.ContainerCommitID = containerID
	d.ContainerCommitOptions = options
	return d.ContainerCommitResponse, d.ContainerCommitErr
}

func (d *FakeDockerClient) ContainerRemove(ctx context.Context, containerID string, options dockertypes.ContainerRemoveOptions) error {
	d.Calls = append(d.Calls, "remove")

	d.RemovedContainers = append(d.RemovedContainers, containerID)
	return d.ContainerRemoveErr
}

func (d *FakeDockerClient) CopyToContainer(ctx context.Context, containerID, path string, content io.Reader, opts dockertypes.CopyToContainerOptions) error {
	d.Calls = append(d.Calls, "upload")

	d.CopyToContainerID = containerID
	d.CopyToContainerPath = path
	if content != nil {
		data, err := io.ReadAll(content)
		if err != nil {
			return err
		}
		d.CopyToContainerContent = data
	}
	return d.CopyToContainerErr
}

// notFoundError is returned by the fake when an image does not exist. It
// satisfies the errdefs.ErrNotFound interface the docker client checks for.
type notFoundError struct {
	message string
}

func (e notFoundError) Error() string { return e.message }
func (e notFoundError) NotFound()     {}

// make sure it behaves like a proper error
var _ error = notFoundError{}
var _ interface{ NotFound() } = notFoundError{}

func bufioReader(content string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(content))
}
