package dockerfile

import (
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
)

func TestGenerate(t *testing.T) {
	config := &api.Config{
		BaseImage: "python:3.11-slim",
	}
	out, err := Generate(config, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedLines := []string{
		"FROM python:3.11-slim",
		`ENV PYTHONUNBUFFERED="1"`,
		"WORKDIR /app",
		"COPY requirements.txt /app/requirements.txt",
		"RUN pip install --no-cache-dir -r /app/requirements.txt",
		"COPY src/ /app/src/",
		`CMD ["python", "-m", "src.main"]`,
	}
	for _, line := range expectedLines {
		if !strings.Contains(out, line) {
			t.Errorf("expected generated Dockerfile to contain %q, got:\n%s", line, out)
		}
	}
}

func TestGenerateOrder(t *testing.T) {
	config := &api.Config{BaseImage: "python:3.11-slim"}
	out, err := Generate(config, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dependency installation must happen before the application tree is
	// copied, so source edits do not invalidate the dependency layer.
	install := strings.Index(out, "RUN pip install")
	copySrc := strings.Index(out, "COPY src/")
	cmd := strings.Index(out, "CMD [")
	if install < 0 || copySrc < 0 || cmd < 0 || !(install < copySrc && copySrc < cmd) {
		t.Errorf("unexpected instruction order in:\n%s", out)
	}
}

func TestGenerateCustomConfig(t *testing.T) {
	config := &api.Config{
		BaseImage:    "python:3.12-alpine",
		EntryModule:  "app.worker",
		AppSourceDir: "app",
		ManifestPath: "requirements/prod.txt",
		Environment: api.EnvironmentList{
			{Name: "KAFKA_BROKERS", Value: "kafka:9092"},
		},
	}
	out, err := Generate(config, []string{"--index-url https://pypi.example.com/simple"}, map[string]string{
		"io.p2i.build.entry-module": "app.worker",
		"io.k8s.display-name":       "worker",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedLines := []string{
		"FROM python:3.12-alpine",
		"RUN pip install --no-cache-dir --index-url https://pypi.example.com/simple -r /app/requirements/prod.txt",
		"COPY app/ /app/app/",
		`KAFKA_BROKERS="kafka:9092"`,
		`CMD ["python", "-m", "app.worker"]`,
	}
	for _, line := range expectedLines {
		if !strings.Contains(out, line) {
			t.Errorf("expected generated Dockerfile to contain %q, got:\n%s", line, out)
		}
	}

	// labels emitted in sorted key order
	k8s := strings.Index(out, `"io.k8s.display-name"="worker"`)
	p2i := strings.Index(out, `"io.p2i.build.entry-module"="app.worker"`)
	if k8s < 0 || p2i < 0 || k8s > p2i {
		t.Errorf("expected sorted LABEL instruction, got:\n%s", out)
	}
}

func TestGenerateUnbufferedNotOverridable(t *testing.T) {
	config := &api.Config{
		BaseImage: "python:3.11-slim",
		Environment: api.EnvironmentList{
			{Name: "PYTHONUNBUFFERED", Value: "0"},
		},
	}
	out, err := Generate(config, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `PYTHONUNBUFFERED="1"`) {
		t.Errorf("expected PYTHONUNBUFFERED=1, got:\n%s", out)
	}
	if strings.Contains(out, `PYTHONUNBUFFERED="0"`) {
		t.Errorf("user must not be able to disable unbuffered output:\n%s", out)
	}
}

func TestGenerateInvalidEntryModule(t *testing.T) {
	for _, module := range []string{"src.main;rm -rf /", "1module", "src..main", "src/main"} {
		config := &api.Config{BaseImage: "python:3.11-slim", EntryModule: module}
		if _, err := Generate(config, nil, nil); err == nil {
			t.Errorf("expected error for entry module %q", module)
		}
	}
}

func TestConvertEnvironmentToDocker(t *testing.T) {
	env := api.EnvironmentList{
		{Name: "FOO", Value: "BAR"},
		{Name: "DOLLAR", Value: "${value}"},
		{Name: "QUOTE", Value: `"quoted"`},
		{Name: "BACKSLASH", Value: `windows\path`},
	}
	expected := `ENV FOO="BAR" \
    DOLLAR="\${value}" \
    QUOTE="\"quoted\"" \
    BACKSLASH="windows\\path"`
	if out := ConvertEnvironmentToDocker(env); out != expected {
		t.Errorf("expected environment\n%s\ngot\n%s", expected, out)
	}
}
