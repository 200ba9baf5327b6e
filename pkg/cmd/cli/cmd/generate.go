// Package cmd holds the cli sub-commands that do not need a docker daemon.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	cmdutil "github.com/py2image/python-to-image/pkg/cmd"
	"github.com/py2image/python-to-image/pkg/dockerfile"
	"github.com/py2image/python-to-image/pkg/manifest"
	"github.com/py2image/python-to-image/pkg/project"
	"github.com/py2image/python-to-image/pkg/util"
)

// generateDockerfile renders the build descriptor for the application in
// cfg.Source and writes it to output, or standard output when output is
// empty or "-".
func generateDockerfile(cfg *api.Config, output string) error {
	if err := project.Apply(cfg); err != nil {
		return err
	}
	if len(cfg.BaseImage) == 0 {
		cfg.BaseImage = constants.DefaultBaseImage
	}

	manifestPath := cfg.ManifestPath
	if len(manifestPath) == 0 {
		manifestPath = constants.DefaultManifest
	}
	m, err := manifest.ReadFile(filepath.Join(cfg.Source, cfg.ContextDir, manifestPath))
	if err != nil {
		return err
	}

	labels := util.GenerateOutputImageLabels(m, cfg)
	content, err := dockerfile.Generate(cfg, m.Options, labels)
	if err != nil {
		return err
	}

	if len(output) == 0 || output == "-" {
		fmt.Print(content)
		return nil
	}
	return os.WriteFile(output, []byte(content), 0644)
}

// NewCmdGenerate implements the generate command: it renders the Dockerfile
// the build command would feed to the engine, without building anything.
func NewCmdGenerate(cfg *api.Config) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate <source> [<output file>]",
		Short: "Generate the Dockerfile for an application without building it",
		Long: "Generate the Dockerfile the build command would use for the given " +
			"application directory and write it to the output file, or to standard " +
			"output when no file is given.",
		Example: `
# Print the Dockerfile for the application in the current directory
$ p2i generate .

# Write it to a file instead
$ p2i generate ./app Dockerfile.gen
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return cmd.Help()
			}
			cfg.Source = args[0]
			output := ""
			if len(args) >= 2 {
				output = args[1]
			}
			return generateDockerfile(cfg, output)
		},
	}

	cmdutil.AddCommonFlags(generateCmd, cfg)
	generateCmd.Flags().StringVar(&(cfg.BaseImage), "base-image", "",
		"Specify the base runtime image (default \""+constants.DefaultBaseImage+"\")")

	return generateCmd
}
