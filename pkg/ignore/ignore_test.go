package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
)

func setupWorkspace(t *testing.T, ignoreContent string, files []string) string {
	dir := t.TempDir()
	for _, name := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("content"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	if len(ignoreContent) > 0 {
		if err := os.WriteFile(filepath.Join(dir, constants.IgnoreFile), []byte(ignoreContent), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestMatcher(t *testing.T) {
	tests := []struct {
		name     string
		specs    string
		path     string
		expected bool
	}{
		{"SimpleGlob", "*.pyc\n", "cached.pyc", true},
		{"NoMatch", "*.pyc\n", "src", false},
		{"SubdirExplicit", "src/*.pyc\n", "src/cached.pyc", true},
		{"NotRecursive", "*.pyc\n", "src/cached.pyc", false},
		{"Comment", "#*.pyc\n", "cached.pyc", false},
		{"Override", "*.md\n!README.md\n", "README.md", false},
		{"OverrideOrder", "!README.md\n*.md\n", "README.md", true},
	}
	for _, tc := range tests {
		dir := t.TempDir()
		path := filepath.Join(dir, constants.IgnoreFile)
		if err := os.WriteFile(path, []byte(tc.specs), 0600); err != nil {
			t.Fatal(err)
		}
		m, err := NewMatcher(path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got := m.Match(tc.path); got != tc.expected {
			t.Errorf("%s: Match(%q) = %v, expected %v", tc.name, tc.path, got, tc.expected)
		}
	}
}

func TestIgnore(t *testing.T) {
	dir := setupWorkspace(t, "*.pyc\nlocal.env\n", []string{
		"main.pyc",
		"local.env",
		"requirements.txt",
		"src/main.py",
	})

	ignorer := &DockerIgnorer{}
	if err := ignorer.Ignore(&api.Config{WorkingDir: dir}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"main.pyc", "local.env"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %q to be removed", name)
		}
	}
	for _, name := range []string{"requirements.txt", "src/main.py"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			t.Errorf("expected %q to be kept: %v", name, err)
		}
	}
}

func TestIgnoreNoIgnoreFile(t *testing.T) {
	dir := setupWorkspace(t, "", []string{"src/main.py"})

	ignorer := &DockerIgnorer{}
	if err := ignorer.Ignore(&api.Config{WorkingDir: dir}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "main.py")); err != nil {
		t.Errorf("expected workspace to be untouched: %v", err)
	}
}
