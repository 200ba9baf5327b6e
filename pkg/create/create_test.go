package create

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api/constants"
)

func readScaffolded(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Expected %s to be scaffolded: %v", name, err)
	}
	return string(data)
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	b := New("myapp", dir)
	b.AddManifest()
	b.AddDescriptor()
	b.AddIgnoreFile()
	b.AddApplication()

	manifest := readScaffolded(t, dir, constants.DefaultManifest)
	if !strings.Contains(manifest, "myapp") {
		t.Errorf("Expected the application name in the manifest, got:\n%s", manifest)
	}

	descriptor := readScaffolded(t, dir, constants.DescriptorFile)
	if !strings.Contains(descriptor, "baseImage: "+constants.DefaultBaseImage) {
		t.Errorf("Expected the default base image in the descriptor, got:\n%s", descriptor)
	}
	if !strings.Contains(descriptor, "entryModule: "+constants.DefaultEntryModule) {
		t.Errorf("Expected the default entry module in the descriptor, got:\n%s", descriptor)
	}

	ignore := readScaffolded(t, dir, constants.IgnoreFile)
	if !strings.Contains(ignore, "__pycache__") {
		t.Errorf("Expected python cache entries in the ignore file, got:\n%s", ignore)
	}

	entry := readScaffolded(t, dir, filepath.Join("src", "main.py"))
	if !strings.Contains(entry, "def main()") {
		t.Errorf("Expected a main function in the entry module, got:\n%s", entry)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "__init__.py")); err != nil {
		t.Errorf("Expected the application tree to be a package: %v", err)
	}
}

func TestBootstrapKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, constants.DefaultManifest)
	if err := os.WriteFile(existing, []byte("requests==2.31.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	New("myapp", dir).AddManifest()
	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "requests==2.31.0\n" {
		t.Errorf("Existing manifest overwritten: %q", string(data))
	}
}
