// Package run supports running the produced images. It is used by the
// --run=true command line option and the run command.
package run

import (
	"io"
	"strings"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// A DockerRunner allows running a produced image as a new container as its
// sole foreground process, streaming stdout and stderr through the logger.
type DockerRunner struct {
	ContainerClient docker.Docker
}

// New creates a DockerRunner for executing the methods associated with
// running the produced image in a docker container.
func New(config *api.Config) (*DockerRunner, error) {
	client, err := docker.New(config.DockerConfig, config.PullAuthentication)
	if err != nil {
		log.Errorf("Failed to connect to Docker daemon: %v", err)
		return nil, err
	}
	return &DockerRunner{client}, nil
}

// Run invokes the Docker API to run the image defined in config as a new
// container. The container runs the entry module as its foreground process
// and its exit code is returned as a ContainerError so the caller can
// propagate it.
func (b *DockerRunner) Run(config *api.Config) error {
	log.V(4).Infof("Attempting to run image %s", config.Tag)

	image, err := b.ContainerClient.InspectImage(config.Tag)
	if err != nil {
		return err
	}
	if image.Config != nil && !hasUnbufferedEnv(image.Config.Env) {
		log.Warningf("Image %s does not carry %s=%s, process output may arrive late",
			config.Tag, constants.PythonUnbufferedEnv, constants.PythonUnbufferedValue)
	}

	outReader, outWriter := io.Pipe()
	defer outReader.Close()
	errReader, errWriter := io.Pipe()
	defer errReader.Close()

	opts := docker.RunContainerOptions{
		Image:        config.Tag,
		Stdout:       outWriter,
		Stderr:       errWriter,
		CGroupLimits: config.CGroupLimits,
		CapDrop:      config.DropCapabilities,
	}

	outDone := docker.StreamContainerIO(outReader, nil, log.Info)
	errDone := docker.StreamContainerIO(errReader, nil, log.Error)

	err = b.ContainerClient.RunContainer(opts)
	outWriter.Close()
	errWriter.Close()
	<-outDone
	<-errDone

	// If we get a ContainerError, the original message reports the
	// container name. The container is temporary and its name is
	// meaningless, therefore we make the error message more helpful by
	// replacing the container name with the image tag.
	if e, ok := err.(errors.ContainerError); ok {
		return errors.NewContainerError(config.Tag, e.ExitCode, e.Output)
	}
	return err
}

func hasUnbufferedEnv(env []string) bool {
	for _, e := range env {
		if strings.HasPrefix(e, constants.PythonUnbufferedEnv+"=") {
			return true
		}
	}
	return false
}
