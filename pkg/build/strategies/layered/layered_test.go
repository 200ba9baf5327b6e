package layered

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/ignore"
	"github.com/py2image/python-to-image/pkg/test"
	"github.com/py2image/python-to-image/pkg/util/status"
)

func newFakeLayered() (*Layered, *docker.FakeDocker) {
	fakeDocker := &docker.FakeDocker{}
	return &Layered{
		docker:  fakeDocker,
		fs:      &test.FakeFileSystem{},
		tar:     &test.FakeTar{},
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}, fakeDocker
}

func newTestConfig(t *testing.T, manifestContent string) *api.Config {
	t.Helper()
	workDir := t.TempDir()
	if len(manifestContent) > 0 {
		err := os.WriteFile(filepath.Join(workDir, "requirements.txt"), []byte(manifestContent), 0600)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return &api.Config{
		BaseImage:  "python:3.11-slim",
		Tag:        "myapp:latest",
		Source:     workDir,
		WorkingDir: workDir,
		// the test owns the temp dir, its removal is not the builder's
		PreserveWorkingDir: true,
	}
}

func TestBuildOK(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	fakeDocker.CommitContainerResult = "image-id"
	config := newTestConfig(t, "requests==2.31.0\nconfluent-kafka==2.3.0\n")

	result, err := l.Build(config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Errorf("expected a successful build")
	}
	if result.ImageID != "image-id" {
		t.Errorf("unexpected image id %q", result.ImageID)
	}
	if fakeDocker.CheckAndPullImageName != "python:3.11-slim" {
		t.Errorf("base image not pulled, got %q", fakeDocker.CheckAndPullImageName)
	}
	if fakeDocker.UploadToContainerPath != "/app" {
		t.Errorf("context uploaded to %q, expected /app", fakeDocker.UploadToContainerPath)
	}

	opts := fakeDocker.CommitContainerOpts
	if opts.Repository != "myapp:latest" {
		t.Errorf("unexpected commit repository %q", opts.Repository)
	}
	if opts.WorkingDir != "/app" {
		t.Errorf("unexpected commit working dir %q", opts.WorkingDir)
	}
	if len(opts.Command) != 3 || opts.Command[0] != "python" || opts.Command[2] != "src.main" {
		t.Errorf("unexpected commit command %v", opts.Command)
	}
	if len(opts.Env) == 0 || opts.Env[0] != "PYTHONUNBUFFERED=1" {
		t.Errorf("unbuffered output not baked into the image env: %v", opts.Env)
	}
}

func TestBuildExcludePattern(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	fakeTar := &test.FakeTar{}
	l.tar = fakeTar
	fakeDocker.CommitContainerResult = "image-id"
	config := newTestConfig(t, "requests==2.31.0\n")
	config.ExcludeRegExp = `secret\.txt`

	if _, err := l.Build(config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pattern := fakeTar.Copy().ExclusionPattern
	if pattern == nil || pattern.String() != `secret\.txt` {
		t.Errorf("exclusion pattern not passed to the context tar: %v", pattern)
	}
}

func TestBuildInvalidExcludePattern(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	config := newTestConfig(t, "requests==2.31.0\n")
	config.ExcludeRegExp = "secret("

	result, err := l.Build(config)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if result.BuildInfo.FailureReason.Reason != status.ReasonFSOperationFailed {
		t.Errorf("unexpected failure reason: %v", result.BuildInfo.FailureReason)
	}
	if fakeDocker.RunContainerOpts.Image != "" {
		t.Errorf("invalid exclusion pattern must not start the install container")
	}
}

func TestBuildUnbufferedNotOverridable(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	config := newTestConfig(t, "requests==2.31.0\n")
	config.Environment = api.EnvironmentList{
		{Name: "PYTHONUNBUFFERED", Value: "0"},
		{Name: "APP_MODE", Value: "prod"},
	}

	if _, err := l.Build(config); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := fakeDocker.CommitContainerOpts.Env
	count := 0
	for _, e := range env {
		if strings.HasPrefix(e, "PYTHONUNBUFFERED=") {
			count++
			if e != "PYTHONUNBUFFERED=1" {
				t.Errorf("unbuffered setting overridden: %q", e)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one PYTHONUNBUFFERED entry, env: %v", env)
	}
	found := false
	for _, e := range env {
		if e == "APP_MODE=prod" {
			found = true
		}
	}
	if !found {
		t.Errorf("user environment lost: %v", env)
	}
}

func TestBuildInstallFailure(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	fakeDocker.RunContainerError = errors.NewContainerError("python:3.11-slim", 1, "")
	config := newTestConfig(t, "no-such-package==0.0.1\n")

	result, err := l.Build(config)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	e, ok := err.(errors.Error)
	if !ok || e.ErrorCode != errors.InstallError {
		t.Errorf("unexpected error: %v", err)
	}
	if result.BuildInfo.FailureReason.Reason != status.ReasonInstallFailed {
		t.Errorf("unexpected failure reason: %v", result.BuildInfo.FailureReason)
	}
	if result.Success {
		t.Errorf("failed install must not produce a successful result")
	}
	// the commit must never happen after a failed installation
	if fakeDocker.CommitContainerOpts.ContainerID != "" {
		t.Errorf("container was committed after a failed install")
	}
}

func TestBuildPullFailure(t *testing.T) {
	l, fakeDocker := newFakeLayered()
	fakeDocker.CheckAndPullImageError = errors.NewPullImageError("python:3.11-slim", nil)
	config := newTestConfig(t, "requests==2.31.0\n")

	result, err := l.Build(config)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if result.BuildInfo.FailureReason.Reason != status.ReasonPullBaseImageFailed {
		t.Errorf("unexpected failure reason: %v", result.BuildInfo.FailureReason)
	}
}

func TestBuildManifestMissing(t *testing.T) {
	l, _ := newFakeLayered()
	config := newTestConfig(t, "")

	result, err := l.Build(config)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	e, ok := err.(errors.Error)
	if !ok || e.ErrorCode != errors.ManifestError {
		t.Errorf("unexpected error: %v", err)
	}
	if result.BuildInfo.FailureReason.Reason != status.ReasonManifestInvalid {
		t.Errorf("unexpected failure reason: %v", result.BuildInfo.FailureReason)
	}
}

func TestBuildPullPolicies(t *testing.T) {
	type testDef struct {
		policy       api.PullPolicy
		expectedCall string
	}
	tests := map[string]testDef{
		"Always":       {api.PullAlways, "pull"},
		"Never":        {api.PullNever, "inspect"},
		"IfNotPresent": {api.PullIfNotPresent, "checkandpull"},
	}

	for testName, def := range tests {
		l, fakeDocker := newFakeLayered()
		fakeDocker.Images = map[string]*api.Image{"python:3.11-slim": {ID: "img"}}
		config := newTestConfig(t, "requests==2.31.0\n")
		config.BasePullPolicy = def.policy

		if _, err := l.Build(config); err != nil {
			t.Errorf("%s: unexpected error: %v", testName, err)
			continue
		}
		switch def.expectedCall {
		case "pull":
			if fakeDocker.PullImageName != "python:3.11-slim" {
				t.Errorf("%s: expected an unconditional pull", testName)
			}
		case "checkandpull":
			if fakeDocker.CheckAndPullImageName != "python:3.11-slim" {
				t.Errorf("%s: expected a conditional pull", testName)
			}
		case "inspect":
			if fakeDocker.PullImageName != "" || fakeDocker.CheckAndPullImageName != "" {
				t.Errorf("%s: pull-policy never must not pull", testName)
			}
		}
	}
}

func TestPipInstallCommand(t *testing.T) {
	cmd := pipInstallCommand("requirements.txt", nil)
	if cmd != "cd /app && pip install --no-cache-dir -r /app/requirements.txt" {
		t.Errorf("unexpected install command: %q", cmd)
	}

	cmd = pipInstallCommand("requirements/prod.txt", []string{"--index-url https://pypi.example.com/simple"})
	if !strings.Contains(cmd, "--index-url https://pypi.example.com/simple") {
		t.Errorf("pip options lost: %q", cmd)
	}
	if !strings.Contains(cmd, "-r /app/requirements/prod.txt") {
		t.Errorf("unexpected manifest path: %q", cmd)
	}
}
