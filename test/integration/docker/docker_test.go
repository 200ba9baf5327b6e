//go:build integration

package docker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/build/strategies"
	"github.com/py2image/python-to-image/pkg/create"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/run"
)

const (
	baseImage = "python:3.11-slim"

	tagCleanBuild   = "p2i_test/app"
	tagLayeredBuild = "p2i_test/app-layered"
)

// scaffoldApp bootstraps an application whose entry module exits with the
// given code.
func scaffoldApp(t *testing.T, exitCode string) string {
	t.Helper()
	dir := t.TempDir()
	b := create.New("integration-app", dir)
	b.AddManifest()
	b.AddIgnoreFile()
	b.AddApplication()
	entry := "import sys\nsys.exit(" + exitCode + ")\n"
	if err := os.WriteFile(filepath.Join(dir, "src", "main.py"), []byte(entry), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newConfig(t *testing.T, tag string) *api.Config {
	config := &api.Config{
		BaseImage:    baseImage,
		Source:       scaffoldApp(t, "0"),
		Tag:          tag,
		DockerConfig: docker.GetDefaultDockerConfig(),
	}
	if err := docker.CheckReachable(config); err != nil {
		t.Skipf("Docker daemon not reachable: %v", err)
	}
	return config
}

func removeImage(t *testing.T, config *api.Config) {
	d, err := docker.New(config.DockerConfig, config.PullAuthentication)
	if err != nil {
		t.Logf("Unable to clean up %s: %v", config.Tag, err)
		return
	}
	d.RemoveImage(config.Tag)
}

func TestCleanBuildAndRun(t *testing.T) {
	config := newConfig(t, tagCleanBuild)
	defer removeImage(t, config)

	builder, err := strategies.GetStrategy(config)
	if err != nil {
		t.Fatalf("Cannot create a new builder: %v", err)
	}
	result, err := builder.Build(config)
	if err != nil {
		t.Fatalf("An error occurred during the build: %v", err)
	}
	if !result.Success {
		t.Fatal("The build failed when it should have succeeded")
	}
	if len(result.ImageID) == 0 {
		t.Error("Expected the result to carry the image ID")
	}

	env, err := mustDocker(t, config).GetImageEnv(config.Tag)
	if err != nil {
		t.Fatalf("Unable to inspect the produced image: %v", err)
	}
	if !containsEnv(env, "PYTHONUNBUFFERED=1") {
		t.Errorf("Expected PYTHONUNBUFFERED=1 in the image environment, got %v", env)
	}

	runner, err := run.New(config)
	if err != nil {
		t.Fatalf("Cannot create a runner: %v", err)
	}
	if err := runner.Run(config); err != nil {
		t.Errorf("Expected a clean exit, got %v", err)
	}
}

func TestLayeredBuildPropagatesExitCode(t *testing.T) {
	config := newConfig(t, tagLayeredBuild)
	config.Source = scaffoldApp(t, "3")
	config.Layered = true
	defer removeImage(t, config)

	builder, err := strategies.GetStrategy(config)
	if err != nil {
		t.Fatalf("Cannot create a new builder: %v", err)
	}
	result, err := builder.Build(config)
	if err != nil {
		t.Fatalf("An error occurred during the build: %v", err)
	}
	if !result.Success {
		t.Fatal("The build failed when it should have succeeded")
	}

	runner, err := run.New(config)
	if err != nil {
		t.Fatalf("Cannot create a runner: %v", err)
	}
	err = runner.Run(config)
	ce, ok := err.(errors.ContainerError)
	if !ok {
		t.Fatalf("Expected a ContainerError, got %v", err)
	}
	if ce.ExitCode != 3 {
		t.Errorf("Expected the entry module exit code, got %d", ce.ExitCode)
	}
}

func TestBuildFailureRetainsNoImage(t *testing.T) {
	config := newConfig(t, "p2i_test/app-broken")
	if err := os.WriteFile(filepath.Join(config.Source, "requirements.txt"),
		[]byte("p2i-no-such-package==0.0.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	builder, err := strategies.GetStrategy(config)
	if err != nil {
		t.Fatalf("Cannot create a new builder: %v", err)
	}
	result, err := builder.Build(config)
	if err == nil || result.Success {
		t.Fatal("The build succeeded when it should have failed")
	}

	if exists, _ := mustDocker(t, config).IsImageInLocalRegistry(config.Tag); exists {
		removeImage(t, config)
		t.Error("A partial image was retained after a failed build")
	}
}

func mustDocker(t *testing.T, config *api.Config) docker.Docker {
	t.Helper()
	d, err := docker.New(config.DockerConfig, config.PullAuthentication)
	if err != nil {
		t.Fatalf("Unable to create a docker client: %v", err)
	}
	return d
}

func containsEnv(env []string, want string) bool {
	for _, e := range env {
		if e == want {
			return true
		}
	}
	return false
}
