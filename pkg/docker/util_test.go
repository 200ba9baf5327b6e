package docker

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
)

func TestGetImageName(t *testing.T) {
	type testDef struct {
		input    string
		expected string
	}
	tests := map[string]testDef{
		"NoTag":      {"python", "python:latest"},
		"WithTag":    {"python:3.11-slim", "python:3.11-slim"},
		"WithDigest": {"python@sha256:ffe35d976fce79d2b3d4d8a7e09e0d3c88ec20e1e5e4f1202b05b0c6cb8795b6", "python@sha256:ffe35d976fce79d2b3d4d8a7e09e0d3c88ec20e1e5e4f1202b05b0c6cb8795b6"},
		"Registry":   {"registry.example.com:5000/team/app", "registry.example.com:5000/team/app:latest"},
		"Invalid":    {"python:", "python:"},
	}

	for testName, def := range tests {
		if got := GetImageName(def.input); got != def.expected {
			t.Errorf("%s: expected %q, got %q", testName, def.expected, got)
		}
	}
}

func TestLoadImageRegistryAuth(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("builder:secret"))
	cfg := `{
		"auths": {
			"registry.example.com": {"auth": "` + encoded + `", "email": "builder@example.com"},
			"https://index.docker.io/v1/": {"username": "hubuser", "password": "hubpass"}
		}
	}`

	auths := LoadImageRegistryAuth(strings.NewReader(cfg))
	if len(auths.Configs) != 2 {
		t.Fatalf("expected 2 credential entries, got %d", len(auths.Configs))
	}

	private := auths.Configs["registry.example.com"]
	if private.Username != "builder" || private.Password != "secret" {
		t.Errorf("unexpected decoded credentials: %+v", private)
	}
	if private.Email != "builder@example.com" {
		t.Errorf("unexpected email: %q", private.Email)
	}

	hub := auths.Configs[registryIndexServer]
	if hub.Username != "hubuser" || hub.Password != "hubpass" {
		t.Errorf("unexpected hub credentials: %+v", hub)
	}
}

func TestLoadImageRegistryAuthMalformed(t *testing.T) {
	auths := LoadImageRegistryAuth(strings.NewReader("not json at all"))
	if len(auths.Configs) != 0 {
		t.Errorf("malformed configuration must yield no credentials, got %+v", auths.Configs)
	}

	auths = LoadImageRegistryAuth(nil)
	if len(auths.Configs) != 0 {
		t.Errorf("nil reader must yield no credentials, got %+v", auths.Configs)
	}
}

func TestGetImageRegistryAuth(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("builder:secret"))
	cfg := `{
		"auths": {
			"registry.example.com": {"auth": "` + encoded + `"},
			"https://index.docker.io/v1/": {"username": "hubuser", "password": "hubpass"}
		}
	}`
	auths := LoadImageRegistryAuth(strings.NewReader(cfg))

	type testDef struct {
		image            string
		expectedUsername string
	}
	tests := map[string]testDef{
		"PrivateRegistry": {"registry.example.com/team/app:1.0", "builder"},
		"DockerHub":       {"python:3.11-slim", "hubuser"},
		"UnknownRegistry": {"quay.io/team/app", ""},
	}

	for testName, def := range tests {
		auth := GetImageRegistryAuth(auths, def.image)
		if auth.Username != def.expectedUsername {
			t.Errorf("%s: expected username %q, got %q", testName, def.expectedUsername, auth.Username)
		}
	}
}

func TestBase64EncodeAuth(t *testing.T) {
	encoded, err := base64EncodeAuth(api.AuthConfig{Username: "builder", Password: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("result is not valid base64: %v", err)
	}
	if !strings.Contains(string(decoded), `"builder"`) || !strings.Contains(string(decoded), `"secret"`) {
		t.Errorf("credentials missing from encoded payload: %s", decoded)
	}
}
