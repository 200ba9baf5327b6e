package util

import (
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/manifest"
)

func TestGenerateOutputImageLabels(t *testing.T) {
	config := &api.Config{
		BaseImage:   "python:3.11-slim",
		Tag:         "risk-worker:latest",
		Description: "risk evaluation worker",
	}
	m := &manifest.Manifest{
		Path: "requirements.txt",
		Requirements: []manifest.Requirement{
			{Name: "requests", Specifier: "==2.31.0"},
			{Name: "kafka-python", Specifier: "==2.0.2"},
		},
	}

	labels := GenerateOutputImageLabels(m, config)

	expected := map[string]string{
		"io.k8s.description":        "risk evaluation worker",
		"io.k8s.display-name":       "risk-worker:latest",
		"io.p2i.build.image":        "python:3.11-slim",
		"io.p2i.build.entry-module": "src.main",
		"io.p2i.build.manifest":     "requirements.txt",
		"io.p2i.build.dependencies": "requests,kafka-python",
	}
	for k, v := range expected {
		if labels[k] != v {
			t.Errorf("expected label %s=%q, got %q", k, v, labels[k])
		}
	}
}

func TestGenerateOutputImageLabelsCustom(t *testing.T) {
	config := &api.Config{
		BaseImage:      "python:3.11-slim",
		EntryModule:    "app.worker",
		LabelNamespace: "com.example.",
		Labels:         map[string]string{"team": "risk"},
	}

	labels := GenerateOutputImageLabels(nil, config)

	if labels["com.example.build.entry-module"] != "app.worker" {
		t.Errorf("unexpected labels: %v", labels)
	}
	if labels["team"] != "risk" {
		t.Errorf("user labels must have precedence: %v", labels)
	}
	if _, ok := labels["io.p2i.build.manifest"]; ok {
		t.Errorf("manifest label set without manifest: %v", labels)
	}
}
