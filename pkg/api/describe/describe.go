// Package describe formats a build configuration for logging.
package describe

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// Config returns the multi-line description of the provided build
// configuration.
func Config(config *api.Config) string {
	out, err := tabbedString(func(out *tabwriter.Writer) error {
		fmt.Fprintf(out, "Base Image:\t%s\n", config.BaseImage)
		fmt.Fprintf(out, "Source:\t%s\n", config.Source)
		if len(config.ContextDir) > 0 {
			fmt.Fprintf(out, "Context Directory:\t%s\n", config.ContextDir)
		}
		fmt.Fprintf(out, "Output Image Tag:\t%s\n", config.Tag)
		manifest := config.ManifestPath
		if len(manifest) == 0 {
			manifest = constants.DefaultManifest
		}
		fmt.Fprintf(out, "Dependency Manifest:\t%s\n", manifest)
		entryModule := config.EntryModule
		if len(entryModule) == 0 {
			entryModule = constants.DefaultEntryModule
		}
		fmt.Fprintf(out, "Entry Module:\t%s\n", entryModule)
		printEnv(out, config.Environment)
		if len(config.EnvironmentFile) > 0 {
			fmt.Fprintf(out, "Environment File:\t%s\n", config.EnvironmentFile)
		}
		if len(config.Labels) > 0 {
			result := []string{}
			for k, v := range config.Labels {
				result = append(result, fmt.Sprintf("%s=%q", k, v))
			}
			fmt.Fprintf(out, "Labels:\t%s\n", strings.Join(result, ","))
		}
		if len(config.ContainerManager) > 0 {
			fmt.Fprintf(out, "Container Manager:\t%s\n", config.ContainerManager)
		}
		fmt.Fprintf(out, "Layered Build:\t%t\n", config.Layered)
		if len(config.AsDockerfile) > 0 {
			fmt.Fprintf(out, "Output Dockerfile:\t%s\n", config.AsDockerfile)
		}
		fmt.Fprintf(out, "Quiet:\t%t\n", config.Quiet)
		if len(config.BasePullPolicy) > 0 {
			fmt.Fprintf(out, "Base Image Pull Policy:\t%s\n", config.BasePullPolicy)
		}
		if config.CGroupLimits != nil {
			fmt.Fprintf(out, "Memory Limit:\t%d\n", config.CGroupLimits.MemoryLimitBytes)
			if config.CGroupLimits.MemorySwap != 0 {
				fmt.Fprintf(out, "Memory Swap Limit:\t%d\n", config.CGroupLimits.MemorySwap)
			}
		}
		if len(config.DockerCfgPath) > 0 {
			fmt.Fprintf(out, "Docker Config:\t%s\n", config.DockerCfgPath)
		}
		if config.DockerConfig != nil {
			fmt.Fprintf(out, "Docker Endpoint:\t%s\n", config.DockerConfig.Endpoint)
		}
		return nil
	})
	if err != nil {
		log.Errorf("Unable to describe config: %v", err)
		return ""
	}
	return out
}

func printEnv(out *tabwriter.Writer, env api.EnvironmentList) {
	if len(env) == 0 {
		return
	}
	result := []string{}
	for _, e := range env {
		result = append(result, strings.Join([]string{e.Name, e.Value}, "="))
	}
	fmt.Fprintf(out, "Environment:\t%s\n", strings.Join(result, ","))
}

func tabbedString(f func(*tabwriter.Writer) error) (string, error) {
	out := new(tabwriter.Writer)
	buf := &bytes.Buffer{}
	out.Init(buf, 0, 8, 1, '\t', 0)

	err := f(out)
	if err != nil {
		return "", err
	}

	out.Flush()
	str := string(buf.String())
	return str, nil
}
