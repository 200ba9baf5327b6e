package describe

import (
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
)

func TestDescribeConfig(t *testing.T) {
	config := &api.Config{
		BaseImage:   "python:3.11-slim",
		Source:      "/tmp/app",
		Tag:         "test/app:latest",
		EntryModule: "src.main",
		Environment: api.EnvironmentList{{Name: "APP_MODE", Value: "prod"}},
		Labels:      map[string]string{"vendor": "test"},
	}
	out := Config(config)
	for _, want := range []string{
		"python:3.11-slim",
		"/tmp/app",
		"test/app:latest",
		"src.main",
		"APP_MODE=prod",
		`vendor="test"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected description to contain %q, got:\n%s", want, out)
		}
	}
}

func TestDescribeConfigDefaults(t *testing.T) {
	out := Config(&api.Config{BaseImage: "python:3.11-slim", Tag: "test/app"})
	if !strings.Contains(out, "requirements.txt") {
		t.Errorf("Expected the default manifest in the description, got:\n%s", out)
	}
	if !strings.Contains(out, "src.main") {
		t.Errorf("Expected the default entry module in the description, got:\n%s", out)
	}
}
