package docker

import (
	"io"
	"sync"

	dockertypes "github.com/docker/docker/api/types"

	"github.com/py2image/python-to-image/pkg/api"
)

// FakeDocker provides a fake docker interface
type FakeDocker struct {
	LocalRegistryImage           string
	LocalRegistryResult          bool
	LocalRegistryError           error
	RemoveContainerID            string
	RemoveContainerError         error
	DefaultURLImage              string
	DefaultURLResult             string
	DefaultURLError              error
	RunContainerOpts             RunContainerOptions
	RunContainerError            error
	RunContainerErrorBeforeStart bool
	RunContainerContainerID      string
	CheckAndPullImageName        string
	CheckAndPullImageResult      *api.Image
	CheckAndPullImageError       error
	PullImageName                string
	PullImageResult              *api.Image
	PullImageError               error
	CommitContainerOpts          CommitContainerOptions
	CommitContainerResult        string
	CommitContainerError         error
	RemoveImageName              string
	RemoveImageError             error
	BuildImageOpts               BuildImageOptions
	BuildImageError              error
	UploadToContainerID          string
	UploadToContainerPath        string
	UploadToContainerError       error
	Images                       map[string]*api.Image

	mutex sync.Mutex
}

// CheckReachable returns if the docker daemon is reachable
func (f *FakeDocker) CheckReachable() error {
	return nil
}

// Version returns a fake engine version.
func (f *FakeDocker) Version() (dockertypes.Version, error) {
	return dockertypes.Version{APIVersion: "1.42"}, nil
}

// IsImageInLocalRegistry checks if the image exists in the fake local registry
func (f *FakeDocker) IsImageInLocalRegistry(imageName string) (bool, error) {
	f.LocalRegistryImage = imageName
	return f.LocalRegistryResult, f.LocalRegistryError
}

// InspectImage returns the image metadata from the fake registry.
func (f *FakeDocker) InspectImage(name string) (*api.Image, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if image, ok := f.Images[name]; ok {
		return image, nil
	}
	return nil, f.LocalRegistryError
}

// CheckAndPullImage pulls a fake image into the fake registry.
func (f *FakeDocker) CheckAndPullImage(name string) (*api.Image, error) {
	f.CheckAndPullImageName = name
	return f.CheckAndPullImageResult, f.CheckAndPullImageError
}

// PullImage pulls a fake image into the fake registry.
func (f *FakeDocker) PullImage(name string) (*api.Image, error) {
	f.PullImageName = name
	return f.PullImageResult, f.PullImageError
}

// GetImageID returns a fake image ID
func (f *FakeDocker) GetImageID(name string) (string, error) {
	image, err := f.InspectImage(name)
	if err != nil {
		return "", err
	}
	if image == nil {
		return "", nil
	}
	return image.ID, nil
}

// GetImageEntrypoint returns the fake image entrypoint.
func (f *FakeDocker) GetImageEntrypoint(name string) ([]string, error) {
	image, err := f.InspectImage(name)
	if err != nil || image == nil || image.Config == nil {
		return nil, err
	}
	return image.Config.Entrypoint, nil
}

// GetImageEnv returns the fake image environment.
func (f *FakeDocker) GetImageEnv(name string) ([]string, error) {
	image, err := f.InspectImage(name)
	if err != nil || image == nil || image.Config == nil {
		return nil, err
	}
	return image.Config.Env, nil
}

// RemoveImage removes an image from the fake registry.
func (f *FakeDocker) RemoveImage(name string) error {
	f.RemoveImageName = name
	return f.RemoveImageError
}

// BuildImage records the build options.
func (f *FakeDocker) BuildImage(opts BuildImageOptions) error {
	f.BuildImageOpts = opts
	if opts.Stdin != nil {
		_, _ = io.Copy(io.Discard, opts.Stdin)
	}
	return f.BuildImageError
}

// RunContainer runs a fake container, invoking the hooks the way a real
// container run would.
func (f *FakeDocker) RunContainer(opts RunContainerOptions) error {
	f.RunContainerOpts = opts
	if f.RunContainerErrorBeforeStart {
		return f.RunContainerError
	}
	containerID := f.RunContainerContainerID
	if containerID == "" {
		containerID = "fake-container-id"
	}
	if opts.OnCreate != nil {
		if err := opts.OnCreate(containerID); err != nil {
			return err
		}
	}
	if opts.OnStart != nil {
		if err := opts.OnStart(containerID); err != nil {
			return err
		}
	}
	if f.RunContainerError != nil {
		return f.RunContainerError
	}
	if opts.PostExec != nil {
		if err := opts.PostExec(containerID); err != nil {
			return err
		}
	}
	return nil
}

// CommitContainer commits a fake container.
func (f *FakeDocker) CommitContainer(opts CommitContainerOptions) (string, error) {
	f.CommitContainerOpts = opts
	return f.CommitContainerResult, f.CommitContainerError
}

// RemoveContainer removes a fake container.
func (f *FakeDocker) RemoveContainer(id string) error {
	f.RemoveContainerID = id
	return f.RemoveContainerError
}

// UploadToContainer records the upload.
func (f *FakeDocker) UploadToContainer(containerID, destPath string, src io.Reader) error {
	f.UploadToContainerID = containerID
	f.UploadToContainerPath = destPath
	if src != nil {
		_, _ = io.Copy(io.Discard, src)
	}
	return f.UploadToContainerError
}
