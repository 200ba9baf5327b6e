package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/api/describe"
	"github.com/py2image/python-to-image/pkg/api/validation"
	"github.com/py2image/python-to-image/pkg/build/strategies"
	cmdutil "github.com/py2image/python-to-image/pkg/cmd"
	clicmd "github.com/py2image/python-to-image/pkg/cmd/cli/cmd"
	"github.com/py2image/python-to-image/pkg/config"
	"github.com/py2image/python-to-image/pkg/create"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/project"
	"github.com/py2image/python-to-image/pkg/run"
	"github.com/py2image/python-to-image/pkg/util"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
	"github.com/py2image/python-to-image/pkg/version"
)

var log = utillog.StderrLog

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version",
		Long:  "Display version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("p2i %v\n", version.Get())
		},
	}
}

func newCmdBuild(cfg *api.Config) *cobra.Command {
	useConfig := false
	memory := ""

	buildCmd := &cobra.Command{
		Use:   "build <source> [<tag>]",
		Short: "Build a new image",
		Long:  "Build a runnable container image named <tag> from a python application directory holding a dependency manifest and a source tree.",
		Example: `
# Build an image from the application in the current directory
$ p2i build . myapp:latest

# Build on a different base image
$ p2i build ./app myapp:latest --base-image python:3.12-slim
`,
		Run: func(cmd *cobra.Command, args []string) {
			log.V(1).Infof("Running p2i version %q\n", version.Get())

			// Attempt to restore the build command from the configuration file
			if useConfig {
				config.Restore(cfg, cmd)
			}

			// If user specifies the arguments, then we override the stored ones
			if len(args) >= 1 {
				cfg.Source = args[0]
				if len(args) >= 2 {
					cfg.Tag = args[1]
				}
			}

			// The project descriptor fills whatever the command line left unset
			if err := project.Apply(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
				os.Exit(1)
			}

			if len(cfg.BaseImage) == 0 {
				cfg.BaseImage = constants.DefaultBaseImage
			}
			if len(cfg.BasePullPolicy) == 0 {
				cfg.BasePullPolicy = api.DefaultBasePullPolicy
			}
			if len(cfg.Tag) == 0 && len(cfg.AsDockerfile) == 0 {
				fmt.Fprintln(os.Stderr, "ERROR: You must provide a tag for the result image")
				cmd.Help()
				os.Exit(1)
			}

			if errs := validation.ValidateConfig(cfg); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "ERROR: %s\n", e)
				}
				fmt.Println()
				cmd.Help()
				os.Exit(1)
			}

			// Persists the current command line options and config into the
			// settings file
			if useConfig {
				config.Save(cfg, cmd)
			}

			// Attempt to read the .docker/config.json and extract the
			// authentication for the base image pull
			if r, err := os.Open(cfg.DockerCfgPath); err == nil {
				defer r.Close()
				auths := docker.LoadImageRegistryAuth(r)
				cfg.PullAuthentication = docker.GetImageRegistryAuth(auths, cfg.BaseImage)
			}

			if len(cfg.EnvironmentFile) > 0 {
				result, err := util.ReadEnvironmentFile(cfg.EnvironmentFile)
				if err != nil {
					log.Warningf("Unable to read environment file %q: %v", cfg.EnvironmentFile, err)
				} else {
					for name, value := range result {
						cfg.Environment = append(cfg.Environment, api.EnvironmentSpec{Name: name, Value: value})
					}
				}
			}

			if err := cmdutil.AdjustCGroupLimits(memory, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
				os.Exit(1)
			}

			log.V(2).Infof("\n%s\n", describe.Config(cfg))

			// The environment variable is an alternative to the flag; resolve
			// the container manager before deciding whether the daemon must
			// be reachable, since the non-docker managers build without one.
			if len(cfg.ContainerManager) == 0 {
				cfg.ContainerManager = os.Getenv(constants.ContainerManagerEnv)
			}
			usesDaemon := len(cfg.ContainerManager) == 0 || cfg.ContainerManager == constants.DockerContainerManager
			if len(cfg.AsDockerfile) == 0 && usesDaemon {
				err := docker.CheckReachable(cfg)
				if err != nil {
					log.Fatal(err)
				}
			}

			builder, err := strategies.GetStrategy(cfg)
			checkErr(err)
			result, err := builder.Build(cfg)
			checkErr(err)

			for _, message := range result.Messages {
				log.V(1).Infof(message)
			}

			if cfg.RunImage {
				runner, err := run.New(cfg)
				checkErr(err)
				err = runner.Run(cfg)
				checkErr(err)
			}
		},
	}

	cmdutil.AddCommonFlags(buildCmd, cfg)

	buildCmd.Flags().BoolVar(&(cfg.RunImage), "run", false, "Run resulting image as part of invocation of this command")
	buildCmd.Flags().StringVar(&(cfg.BaseImage), "base-image", "", "Specify the base runtime image (default \""+constants.DefaultBaseImage+"\")")
	buildCmd.Flags().BoolVar(&(cfg.Layered), "layered", false, "Build the image by installing the manifest in a container on top of the base image and committing it, instead of a Dockerfile build")
	buildCmd.Flags().StringVar(&(cfg.ContainerManager), "container-manager", "", "Specify the container manager used for the build (docker, buildah or podman); can also be set with the "+constants.ContainerManagerEnv+" environment variable")
	buildCmd.Flags().StringVar(&(cfg.AsDockerfile), "as-dockerfile", "", "Write the Dockerfile and the build context to the given path instead of building an image")
	buildCmd.Flags().BoolVar(&(useConfig), "use-config", false, "Store command line options to "+constants.ConfigFile)
	buildCmd.Flags().BoolVar(&(cfg.NoCache), "no-cache", false, "Build the image with --no-cache")
	buildCmd.Flags().BoolVar(&(cfg.RemoveWithForce), "rm", false, "Remove intermediate containers after unsuccessful builds")
	buildCmd.Flags().StringVar(&(memory), "memory", "", "Memory limit for the build and run containers, with optional binary suffix (128m, 1g)")
	buildCmd.Flags().StringSliceVar(&(cfg.DropCapabilities), "cap-drop", []string{}, "Specify a comma-separated list of capabilities to drop when running Docker containers")

	return buildCmd
}

func newCmdRun(cfg *api.Config) *cobra.Command {
	memory := ""
	runCmd := &cobra.Command{
		Use:   "run <tag>",
		Short: "Run an image built by this tool",
		Long: "Run the given image as the foreground process of a new container. " +
			"The command exits with the exit code of the container's entry module.",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				cmd.Help()
				os.Exit(1)
			}
			cfg.Tag = args[0]

			if err := cmdutil.AdjustCGroupLimits(memory, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
				os.Exit(1)
			}

			runner, err := run.New(cfg)
			checkErr(err)
			err = runner.Run(cfg)
			checkErr(err)
		},
	}
	runCmd.Flags().StringVar(&(memory), "memory", "", "Memory limit for the container, with optional binary suffix (128m, 1g)")
	runCmd.Flags().StringSliceVar(&(cfg.DropCapabilities), "cap-drop", []string{}, "Specify a comma-separated list of capabilities to drop when running Docker containers")
	return runCmd
}

func newCmdCreate() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <destination>",
		Short: "Bootstrap a new application layout",
		Long:  "Bootstrap a new application layout with the given name inside the destination directory: a dependency manifest, a project descriptor, an ignore file and a source tree with the entry module.",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				cmd.Help()
				os.Exit(1)
			}
			b := create.New(args[0], args[1])
			b.AddManifest()
			b.AddDescriptor()
			b.AddIgnoreFile()
			b.AddApplication()
		},
	}
}

func newCmdGenBashCompletion(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "genbashcompletion",
		Short: "Generate Bash completion for the p2i command",
		Long:  "Generate Bash completion for the p2i command into standard output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.GenBashCompletion(os.Stdout)
		},
	}
}

// setupLogging makes --loglevel reflect in klog's -v flag
func setupLogging(flags *pflag.FlagSet) {
	klog.InitFlags(flag.CommandLine)

	from := flag.CommandLine
	if fflag := from.Lookup("v"); fflag != nil {
		level := fflag.Value.(*klog.Level)
		loglevelPtr := (*int32)(level)
		flags.Int32Var(loglevelPtr, "loglevel", 0, "Set the level of log output (0-5)")
	}

	flag.CommandLine.Set("logtostderr", "true")
}

func checkErr(err error) {
	if err == nil {
		return
	}
	if e, ok := err.(errors.ContainerError); ok {
		log.Errorf("An error occurred: %v", e)
		if len(e.Output) > 0 {
			log.V(1).Infof("Output: %s", e.Output)
		}
		os.Exit(e.ExitCode)
	}
	if e, ok := err.(errors.Error); ok {
		log.Errorf("An error occurred: %v", e)
		log.Errorf("Suggested solution: %v", e.Suggestion)
		if e.Details != nil {
			log.V(1).Infof("Details: %v", e.Details)
		}
		log.Error("If the problem persists rerun with --loglevel=3 and file an issue providing the log")
		os.Exit(e.ErrorCode)
	}
	log.Errorf("An error occurred: %v", err)
	os.Exit(1)
}

func main() {
	flag.CommandLine.Parse([]string{})

	cfg := &api.Config{}
	p2iCmd := &cobra.Command{
		Use: "p2i",
		Long: "Python-to-image (p2i) is a tool for building runnable container images from python applications.\n\n" +
			"A command line interface that layers a pinned dependency manifest and an application tree onto a base runtime image.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cfg.DockerConfig = docker.GetDefaultDockerConfig()
	p2iCmd.PersistentFlags().StringVarP(&(cfg.DockerConfig.Endpoint), "url", "U", cfg.DockerConfig.Endpoint, "Set the url of the docker socket to use")
	p2iCmd.PersistentFlags().StringVar(&(cfg.DockerConfig.CertFile), "cert", cfg.DockerConfig.CertFile, "Set the path of the docker TLS certificate file")
	p2iCmd.PersistentFlags().StringVar(&(cfg.DockerConfig.KeyFile), "key", cfg.DockerConfig.KeyFile, "Set the path of the docker TLS key file")
	p2iCmd.PersistentFlags().StringVar(&(cfg.DockerConfig.CAFile), "ca", cfg.DockerConfig.CAFile, "Set the path of the docker TLS ca file")
	p2iCmd.PersistentFlags().BoolVar(&(cfg.DockerConfig.UseTLS), "tls", cfg.DockerConfig.UseTLS, "Use TLS to connect to docker; implied by --tlsverify")
	p2iCmd.PersistentFlags().BoolVar(&(cfg.DockerConfig.TLSVerify), "tlsverify", cfg.DockerConfig.TLSVerify, "Use TLS to connect to docker and verify the remote")
	p2iCmd.AddCommand(newCmdVersion())
	p2iCmd.AddCommand(newCmdBuild(cfg))
	p2iCmd.AddCommand(newCmdRun(&api.Config{DockerConfig: cfg.DockerConfig}))
	p2iCmd.AddCommand(clicmd.NewCmdGenerate(&api.Config{}))
	p2iCmd.AddCommand(newCmdCreate())
	setupLogging(p2iCmd.PersistentFlags())

	p2iCmd.AddCommand(newCmdGenBashCompletion(p2iCmd))

	err := p2iCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
