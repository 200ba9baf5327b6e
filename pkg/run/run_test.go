package run

import (
	"fmt"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
)

func newFakeRunner() (*DockerRunner, *docker.FakeDocker) {
	fd := &docker.FakeDocker{
		Images: map[string]*api.Image{
			"test/app:latest": {
				ID: "image-id",
				Config: &api.ContainerConfig{
					Env: []string{"PYTHONUNBUFFERED=1", "PATH=/usr/bin"},
				},
			},
		},
	}
	return &DockerRunner{ContainerClient: fd}, fd
}

func TestRun(t *testing.T) {
	runner, fd := newFakeRunner()
	config := &api.Config{
		Tag:          "test/app:latest",
		CGroupLimits: &api.CGroupLimits{MemoryLimitBytes: 1024},
	}
	if err := runner.Run(config); err != nil {
		t.Errorf("Unexpected error returned from Run: %v", err)
	}
	opts := fd.RunContainerOpts
	if opts.Image != config.Tag {
		t.Errorf("Unexpected image run: %s", opts.Image)
	}
	if len(opts.Entrypoint) != 0 || len(opts.Command) != 0 {
		t.Error("Expected the image's own command to run unmodified")
	}
	if opts.CGroupLimits != config.CGroupLimits {
		t.Error("CGroup limits not passed to the container")
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	runner, fd := newFakeRunner()
	fd.RunContainerError = errors.NewContainerError("p2i_test-app_12345678", 3, "boom")
	err := runner.Run(&api.Config{Tag: "test/app:latest"})
	if err == nil {
		t.Fatal("Expected an error when the container exits non-zero")
	}
	ce, ok := err.(errors.ContainerError)
	if !ok {
		t.Fatalf("Expected a ContainerError, got %T", err)
	}
	if ce.ExitCode != 3 {
		t.Errorf("Unexpected exit code: %d", ce.ExitCode)
	}
	ce2, _ := errors.NewContainerError("test/app:latest", 3, "boom").(errors.ContainerError)
	if ce.Message != ce2.Message {
		t.Errorf("Expected the error to name the image tag, got %q", ce.Message)
	}
}

func TestRunOtherError(t *testing.T) {
	runner, fd := newFakeRunner()
	fd.RunContainerError = fmt.Errorf("no daemon")
	err := runner.Run(&api.Config{Tag: "test/app:latest"})
	if err == nil || err.Error() != "no daemon" {
		t.Errorf("Expected the engine error to pass through, got %v", err)
	}
}

func TestRunInspectFailure(t *testing.T) {
	runner, fd := newFakeRunner()
	fd.LocalRegistryError = fmt.Errorf("no such image")
	err := runner.Run(&api.Config{Tag: "missing/app:latest"})
	if err == nil {
		t.Error("Expected an error when the image cannot be inspected")
	}
	if fd.RunContainerOpts.Image != "" {
		t.Error("Container should not run when the image is missing")
	}
}
