package external

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/ignore"
	"github.com/py2image/python-to-image/pkg/test"
	"github.com/py2image/python-to-image/pkg/util/fs"
)

func newFakeExternal() (*External, *test.FakeCmdRunner, *test.FakeFileSystem) {
	runner := &test.FakeCmdRunner{}
	fakeFS := &test.FakeFileSystem{}
	return &External{
		fs:      fakeFS,
		runner:  runner,
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}, runner, fakeFS
}

func newTestConfig(t *testing.T, manifestContent string) *api.Config {
	t.Helper()
	wd := t.TempDir()
	if err := os.WriteFile(filepath.Join(wd, "requirements.txt"), []byte(manifestContent), 0644); err != nil {
		t.Fatal(err)
	}
	return &api.Config{
		BaseImage:          "python:3.11-slim",
		Tag:                "test/app:latest",
		ContainerManager:   "buildah",
		WorkingDir:         wd,
		PreserveWorkingDir: true,
	}
}

func TestNewValidatesManager(t *testing.T) {
	if _, err := New(&api.Config{ContainerManager: "img"}); err == nil {
		t.Error("Expected an error for an unsupported container manager")
	}
	// docker builds go through the daemon API, not through this strategy
	if _, err := New(&api.Config{ContainerManager: "docker"}); err == nil {
		t.Error("Expected an error for the docker container manager")
	}
	for _, name := range GetBuilders() {
		if _, err := New(&api.Config{ContainerManager: name}); err != nil {
			t.Errorf("Unexpected error for %s: %v", name, err)
		}
	}
}

func TestGetBuilders(t *testing.T) {
	builders := GetBuilders()
	want := []string{"buildah", "podman"}
	if len(builders) != len(want) {
		t.Fatalf("Unexpected builders: %v", builders)
	}
	for i := range want {
		if builders[i] != want[i] {
			t.Errorf("Unexpected builders: %v", builders)
		}
	}
}

func TestBuildRunsManager(t *testing.T) {
	external, runner, fakeFS := newFakeExternal()
	config := newTestConfig(t, "requests==2.31.0\n")
	config.ContainerManager = "podman"

	result, err := external.Build(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success {
		t.Error("Expected a successful result")
	}
	if runner.Name != "podman" {
		t.Errorf("Unexpected command: %s", runner.Name)
	}
	args := strings.Join(runner.Args, " ")
	if !strings.Contains(args, "--tag test/app:latest") {
		t.Errorf("Expected the tag in the command, got %q", args)
	}
	if !strings.Contains(fakeFS.WriteFileName, "Dockerfile.p2i") {
		t.Errorf("Expected the build descriptor to be written, got %q", fakeFS.WriteFileName)
	}
	content := fakeFS.WriteFileContent
	if !strings.Contains(content, "requests==2.31.0") {
		t.Errorf("Expected the manifest entry in the descriptor, got:\n%s", content)
	}
}

func TestBuildCommandFailure(t *testing.T) {
	external, runner, _ := newFakeExternal()
	runner.Err = os.ErrPermission
	config := newTestConfig(t, "requests==2.31.0\n")

	result, err := external.Build(config)
	if err == nil {
		t.Fatal("Expected an error when the external command fails")
	}
	if result.Success {
		t.Error("Expected an unsuccessful result")
	}
	if result.BuildInfo.FailureReason.Reason == "" {
		t.Error("Expected a failure reason to be recorded")
	}
}

func TestBuildManifestError(t *testing.T) {
	external, runner, _ := newFakeExternal()
	config := newTestConfig(t, "requests===broken===\n")

	if _, err := external.Build(config); err == nil {
		t.Fatal("Expected an error for an invalid manifest entry")
	}
	if len(runner.Calls) != 0 {
		t.Errorf("No command should run for an invalid manifest, got %v", runner.Calls)
	}
}

func TestPrepareExcludesFiles(t *testing.T) {
	external := &External{
		fs:      fs.NewFileSystem(),
		runner:  &test.FakeCmdRunner{},
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}
	srcDir := t.TempDir()
	for _, name := range []string{"requirements.txt", "secret.txt"} {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	config := &api.Config{
		Source:             srcDir,
		WorkingDir:         t.TempDir(),
		PreserveWorkingDir: true,
		ExcludeRegExp:      `secret\.txt`,
	}

	if err := external.prepare(config); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(config.WorkingDir, "secret.txt")); !os.IsNotExist(err) {
		t.Error("Excluded file still present in the build context")
	}
	if _, err := os.Stat(filepath.Join(config.WorkingDir, "requirements.txt")); err != nil {
		t.Errorf("Manifest missing from the build context: %v", err)
	}
}

func TestRenderCommand(t *testing.T) {
	external, _, _ := newFakeExternal()
	config := &api.Config{
		ContainerManager: "buildah",
		Tag:              "test/app:latest",
		WorkingDir:       "/tmp/work",
	}
	cmd, err := external.renderCommand(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "buildah bud --tag test/app:latest --file /tmp/work/Dockerfile.p2i /tmp/work"
	if cmd != want {
		t.Errorf("Unexpected command %q, want %q", cmd, want)
	}
}
