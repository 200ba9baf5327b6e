package config

import (
	"os"
	"testing"

	"github.com/spf13/cobra"

	"github.com/py2image/python-to-image/pkg/api"
)

func inTempDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func newTestCommand(cfg *api.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "build"}
	cmd.Flags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "")
	cmd.Flags().StringVar(&cfg.Tag, "tag", "", "")
	return cmd
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	inTempDir(t)

	saved := &api.Config{
		Source:       "./app",
		BaseImage:    "python:3.11-slim",
		Tag:          "test/app:latest",
		EntryModule:  "src.main",
		ManifestPath: "requirements.txt",
	}
	cmd := newTestCommand(saved)
	if err := cmd.Flags().Set("quiet", "true"); err != nil {
		t.Fatal(err)
	}
	Save(saved, cmd)

	if _, err := os.Stat(DefaultConfigPath); err != nil {
		t.Fatalf("Expected %s to be written: %v", DefaultConfigPath, err)
	}

	restored := &api.Config{}
	Restore(restored, newTestCommand(restored))
	if restored.Source != saved.Source {
		t.Errorf("Unexpected source: %q", restored.Source)
	}
	if restored.BaseImage != saved.BaseImage {
		t.Errorf("Unexpected base image: %q", restored.BaseImage)
	}
	if restored.Tag != saved.Tag {
		t.Errorf("Unexpected tag: %q", restored.Tag)
	}
	if restored.EntryModule != "src.main" {
		t.Errorf("Unexpected entry module: %q", restored.EntryModule)
	}
	if !restored.Quiet {
		t.Error("Expected the quiet flag to be restored")
	}
}

func TestRestoreKeepsExplicitFlags(t *testing.T) {
	inTempDir(t)

	saved := &api.Config{Source: "./app", BaseImage: "python:3.11-slim", Tag: "test/app"}
	cmd := newTestCommand(saved)
	if err := cmd.Flags().Set("quiet", "true"); err != nil {
		t.Fatal(err)
	}
	Save(saved, cmd)

	restored := &api.Config{}
	restoreCmd := newTestCommand(restored)
	if err := restoreCmd.Flags().Set("quiet", "false"); err != nil {
		t.Fatal(err)
	}
	Restore(restored, restoreCmd)
	if restored.Quiet {
		t.Error("Explicit flag overridden by stored value")
	}
}

func TestRestoreMissingFile(t *testing.T) {
	inTempDir(t)

	restored := &api.Config{BaseImage: "unchanged"}
	Restore(restored, newTestCommand(restored))
	if restored.BaseImage != "unchanged" {
		t.Errorf("Config modified without a settings file: %q", restored.BaseImage)
	}
}

func TestRestoreMalformedFile(t *testing.T) {
	inTempDir(t)

	if err := os.WriteFile(DefaultConfigPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	restored := &api.Config{BaseImage: "unchanged"}
	Restore(restored, newTestCommand(restored))
	if restored.BaseImage != "unchanged" {
		t.Errorf("Config modified from a malformed settings file: %q", restored.BaseImage)
	}
}
