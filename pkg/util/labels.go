package util

import (
	"strings"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/manifest"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// GenerateOutputImageLabels generates the labels based on the config and the
// parsed dependency manifest.
func GenerateOutputImageLabels(m *manifest.Manifest, config *api.Config) map[string]string {
	labels := map[string]string{}
	namespace := constants.DefaultNamespace
	if len(config.LabelNamespace) > 0 {
		namespace = config.LabelNamespace
	}

	labels = GenerateLabelsFromConfig(labels, config, namespace)
	labels = GenerateLabelsFromManifest(labels, m, namespace)

	for k, v := range config.Labels {
		labels[k] = v
	}
	return labels
}

// GenerateLabelsFromConfig generates the labels based on the build config.
func GenerateLabelsFromConfig(labels map[string]string, config *api.Config, namespace string) map[string]string {
	if len(config.Description) > 0 {
		labels[constants.KubernetesDescriptionLabel] = config.Description
	}

	if len(config.DisplayName) > 0 {
		labels[constants.KubernetesDisplayNameLabel] = config.DisplayName
	} else if len(config.Tag) > 0 {
		labels[constants.KubernetesDisplayNameLabel] = config.Tag
	}

	addBuildLabel(labels, "image", config.BaseImage, namespace)
	entryModule := config.EntryModule
	if len(entryModule) == 0 {
		entryModule = constants.DefaultEntryModule
	}
	addBuildLabel(labels, "entry-module", entryModule, namespace)
	return labels
}

// GenerateLabelsFromManifest generates the labels based on the dependency
// manifest.
func GenerateLabelsFromManifest(labels map[string]string, m *manifest.Manifest, namespace string) map[string]string {
	if m == nil {
		log.V(3).Info("Unable to read the dependency manifest, the output image labels will not be set")
		return labels
	}

	addBuildLabel(labels, "manifest", m.Path, namespace)
	addBuildLabel(labels, "dependencies", strings.Join(m.Names(), ","), namespace)
	return labels
}

// addBuildLabel adds a new "*.build.*" label into map when the value of this
// label is not empty
func addBuildLabel(to map[string]string, key, value, namespace string) {
	if len(value) == 0 {
		return
	}
	to[namespace+"build."+key] = value
}
