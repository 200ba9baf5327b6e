// Package config persists build settings between invocations. The build
// command can store its options into a file in the current directory and
// restore them on the next run.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// DefaultConfigPath is the name of the settings file written next to the
// application by the --use-config flag.
const DefaultConfigPath = constants.ConfigFile

// Config represents the settings the build command persists.
type Config struct {
	Source       string            `json:"source"`
	BaseImage    string            `json:"baseImage"`
	Tag          string            `json:"tag"`
	EntryModule  string            `json:"entryModule,omitempty"`
	ManifestPath string            `json:"manifestPath,omitempty"`
	ContextDir   string            `json:"contextDir,omitempty"`
	Flags        map[string]string `json:"flags,omitempty"`
}

// Save persists the provided build settings and the explicitly set command
// line flags to the settings file in the current directory.
func Save(config *api.Config, cmd *cobra.Command) {
	c := Config{
		Source:       config.Source,
		BaseImage:    config.BaseImage,
		Tag:          config.Tag,
		EntryModule:  config.EntryModule,
		ManifestPath: config.ManifestPath,
		ContextDir:   config.ContextDir,
		Flags:        map[string]string{},
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		c.Flags[f.Name] = f.Value.String()
	})
	data, err := json.Marshal(c)
	if err != nil {
		log.V(1).Infof("Unable to serialize to %s: %v", DefaultConfigPath, err)
		return
	}
	if err := os.WriteFile(DefaultConfigPath, data, 0644); err != nil {
		log.V(1).Infof("Unable to save %s: %v", DefaultConfigPath, err)
	}
}

// Restore loads the arguments from the settings file and restores them to the
// provided config. Flags the user set on the current invocation keep their
// value.
func Restore(config *api.Config, cmd *cobra.Command) {
	data, err := os.ReadFile(DefaultConfigPath)
	if err != nil {
		log.V(1).Infof("Unable to restore %s: %v", DefaultConfigPath, err)
		return
	}

	c := Config{}
	if err := json.Unmarshal(data, &c); err != nil {
		log.V(1).Infof("Unable to parse %s: %v", DefaultConfigPath, err)
		return
	}

	config.Source = c.Source
	config.BaseImage = c.BaseImage
	config.Tag = c.Tag
	if len(c.EntryModule) > 0 {
		config.EntryModule = c.EntryModule
	}
	if len(c.ManifestPath) > 0 {
		config.ManifestPath = c.ManifestPath
	}
	if len(c.ContextDir) > 0 {
		config.ContextDir = c.ContextDir
	}

	for name, value := range c.Flags {
		// The flags in the settings file are the defaults; the user can
		// override them on the command line.
		if flag := cmd.Flag(name); flag != nil && !flag.Changed {
			if err := cmd.Flags().Set(name, value); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: invalid %s: %v\n", DefaultConfigPath, err)
			}
		}
	}
}
