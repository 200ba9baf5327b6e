package cmd

import (
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/tar"
)

// AddCommonFlags adds the flags shared by the build and generate commands
func AddCommonFlags(c *cobra.Command, cfg *api.Config) {
	c.Flags().BoolVarP(&(cfg.Quiet), "quiet", "q", false,
		"Operate quietly. Suppress all non-error output.")
	c.Flags().VarP(&(cfg.BasePullPolicy), "pull-policy", "p",
		"Specify when to pull the base image (always, never or if-not-present)")
	c.Flags().BoolVar(&(cfg.PreserveWorkingDir), "save-temp-dir", false,
		"Save the temporary directory used by the build instead of deleting it")
	c.Flags().StringVarP(&(cfg.DockerCfgPath), "dockercfg-path", "", filepath.Join(os.Getenv("HOME"), ".docker/config.json"),
		"Specify the path to the Docker configuration file")
	c.Flags().StringVarP(&(cfg.ManifestPath), "manifest", "m", "",
		"Specify the path of the dependency manifest, relative to the source directory (default \""+constants.DefaultManifest+"\")")
	c.Flags().StringVar(&(cfg.EntryModule), "entry-module", "",
		"Specify the python module started as the container's foreground process (default \""+constants.DefaultEntryModule+"\")")
	c.Flags().StringVarP(&(cfg.ContextDir), "context-dir", "", "",
		"Specify the sub-directory inside the source directory with the application")
	c.Flags().StringVarP(&(cfg.ExcludeRegExp), "exclude", "", tar.DefaultExclusionPattern.String(),
		"Regular expression for selecting files from the source tree to exclude from the build, where the default excludes the '.git' directory (see https://golang.org/pkg/regexp for syntax, but note that \"\" will be interpreted as allow all files and exclude no files)")
	c.Flags().VarP(&(cfg.Environment), "env", "e", "Specify an single environment variable in NAME=VALUE format")
	c.Flags().StringVarP(&(cfg.EnvironmentFile), "environment-file", "E", "", "Specify the path to the file with environment")
	c.Flags().StringVarP(&(cfg.DisplayName), "application-name", "n", "", "Specify the display name for the application (default: output image name)")
	c.Flags().StringVarP(&(cfg.Description), "description", "", "", "Specify the description of the application")
}

// AdjustCGroupLimits translates the memory flag value into cgroup limits for
// the build and run containers. Sizes accept the usual binary suffixes
// (128m, 1g). An empty value leaves the limits unset.
func AdjustCGroupLimits(memory string, cfg *api.Config) error {
	if len(memory) == 0 {
		return nil
	}
	mem, err := units.RAMInBytes(memory)
	if err != nil {
		return err
	}
	cfg.CGroupLimits = &api.CGroupLimits{
		MemoryLimitBytes: mem,
		MemorySwap:       mem,
	}
	return nil
}
