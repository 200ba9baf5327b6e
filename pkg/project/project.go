// Package project reads the optional p2i.yaml project descriptor. The
// descriptor lets an application carry its build settings next to its source
// so the command line can stay short.
package project

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// DefaultDescriptorPath is the name of the project descriptor inside the
// application source directory.
const DefaultDescriptorPath = constants.DescriptorFile

// Descriptor holds the build settings an application declares for itself.
type Descriptor struct {
	// BaseImage is the image the application is built on. It must carry a
	// python interpreter and pip.
	BaseImage string `yaml:"baseImage"`

	// EntryModule is the python module started as the container's foreground
	// process.
	EntryModule string `yaml:"entryModule"`

	// Manifest is the path of the dependency manifest, relative to the
	// source directory.
	Manifest string `yaml:"manifest"`

	// Environment holds extra environment variables baked into the image.
	Environment map[string]string `yaml:"environment"`

	// Labels holds extra labels applied to the result image.
	Labels map[string]string `yaml:"labels"`
}

// Parse decodes the descriptor at path. A missing file is not an error and
// returns a nil descriptor.
func Parse(path string) (*Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var d Descriptor
	if err := yaml.NewDecoder(file).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Apply reads the descriptor for the configured source directory and fills
// the unset fields of config from it. Command line values always win over
// descriptor values.
func Apply(config *api.Config) error {
	path := config.DescriptorPath
	if len(path) == 0 {
		path = DefaultDescriptorPath
	}
	d, err := Parse(filepath.Join(config.Source, config.ContextDir, path))
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	log.V(2).Infof("Applying project descriptor %s", path)

	if len(config.BaseImage) == 0 {
		config.BaseImage = d.BaseImage
	}
	if len(config.EntryModule) == 0 {
		config.EntryModule = d.EntryModule
	}
	if len(config.ManifestPath) == 0 {
		config.ManifestPath = d.Manifest
	}
	env := config.Environment.AsMap()
	for name, value := range d.Environment {
		if _, ok := env[name]; !ok {
			config.Environment = append(config.Environment, api.EnvironmentSpec{Name: name, Value: value})
		}
	}
	for name, value := range d.Labels {
		if config.Labels == nil {
			config.Labels = map[string]string{}
		}
		if _, ok := config.Labels[name]; !ok {
			config.Labels[name] = value
		}
	}
	return nil
}
