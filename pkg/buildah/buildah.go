package buildah

import (
	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/docker"
	p2ierr "github.com/py2image/python-to-image/pkg/errors"
	utilcmd "github.com/py2image/python-to-image/pkg/util/cmd"
)

// Buildah drives a local buildah executable for the operations the build
// strategies need from a container manager.
type Buildah struct {
	runner utilcmd.CommandRunner
}

// New returns a Buildah using the default command runner.
func New() *Buildah {
	return &Buildah{runner: utilcmd.NewCommandRunner()}
}

// CheckReachable verifies the buildah executable is present and working.
func (b *Buildah) CheckReachable() error {
	if _, err := execute(b.runner, []string{"version"}, false); err != nil {
		return p2ierr.NewDockerConnectionError(buildahCmd, err)
	}
	return nil
}

// InspectImage runs a local "buildah inspect" and transforms the output into
// an api.Image instance. It can return error when the command does.
func (b *Buildah) InspectImage(name string) (*api.Image, error) {
	name = docker.GetImageName(name)
	imageMetadata, err := inspectImage(b.runner, name)
	if err != nil {
		log.V(4).Infof("error inspecting image %s: %v", name, err)
		return nil, p2ierr.NewInspectImageError(name, err)
	}
	return &api.Image{
		ID: imageMetadata.FromImageID,
		Config: &api.ContainerConfig{
			User:       imageMetadata.Docker.Config.User,
			Env:        imageMetadata.Docker.Config.Env,
			Entrypoint: imageMetadata.Docker.Config.Entrypoint,
			Cmd:        imageMetadata.Docker.Config.Cmd,
			WorkingDir: imageMetadata.Docker.Config.WorkingDir,
			Labels:     imageMetadata.Docker.Config.Labels,
		},
	}, nil
}

// GetImageID returns the local image ID of the named image.
func (b *Buildah) GetImageID(name string) (string, error) {
	image, err := b.InspectImage(name)
	if err != nil {
		return "", err
	}
	return image.ID, nil
}

// PullImage pulls the image into the local store.
func (b *Buildah) PullImage(name string) (*api.Image, error) {
	name = docker.GetImageName(name)
	log.V(2).Infof("Pulling image '%s'...", name)
	if _, err := execute(b.runner, []string{"pull", name}, true); err != nil {
		return nil, p2ierr.NewPullImageError(name, err)
	}
	return b.InspectImage(name)
}

// RemoveImage removes the image from the local store.
func (b *Buildah) RemoveImage(name string) error {
	log.V(2).Infof("Removing image '%s'...", name)
	if _, err := execute(b.runner, []string{"rmi", "--force", name}, true); err != nil {
		return p2ierr.NewRemoveImageError(name, err)
	}
	return nil
}

// Bud builds the image from the given Dockerfile and context directory with
// "buildah bud". The command output is logged.
func (b *Buildah) Bud(tag, dockerfile, contextDir string) error {
	log.V(0).Infof("Building '%s' from context directory '%s' with buildah", tag, contextDir)
	output, err := execute(b.runner, []string{"bud", "--tag", tag, "--file", dockerfile, contextDir}, true)
	if output != nil {
		log.V(0).Infof("Build output:\n%s", output)
	}
	if err != nil {
		return p2ierr.NewBuildError(tag, err)
	}
	return nil
}
