// Package external shells out to a local container manager executable
// (buildah or podman) to build the image from the generated build
// descriptor, so a build can run without a docker daemon.
package external

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/buildah"
	dockerfilegen "github.com/py2image/python-to-image/pkg/dockerfile"
	"github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/ignore"
	"github.com/py2image/python-to-image/pkg/manifest"
	"github.com/py2image/python-to-image/pkg/util"
	utilcmd "github.com/py2image/python-to-image/pkg/util/cmd"
	"github.com/py2image/python-to-image/pkg/util/fs"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
	"github.com/py2image/python-to-image/pkg/util/status"
)

var (
	log = utillog.StderrLog

	// supported external build commands, templates evaluated against
	// commandData. Docker is absent: docker builds go through the daemon
	// API, not through the CLI.
	commands = map[string]string{
		constants.BuildahContainerManager: `buildah bud --tag {{.Tag}} --file {{.Dockerfile}} {{.ContextDir}}`,
		constants.PodmanContainerManager:  `podman build --tag {{.Tag}} --file {{.Dockerfile}} {{.ContextDir}}`,
	}
)

type commandData struct {
	Tag        string
	Dockerfile string
	ContextDir string
}

// External builds the image by generating the build descriptor into the
// working directory and handing the directory to a container manager CLI.
type External struct {
	fs      fs.FileSystem
	runner  utilcmd.CommandRunner
	ignorer *ignore.DockerIgnorer
	result  *api.Result
}

// New returns an External builder.
func New(config *api.Config) (*External, error) {
	if !ValidBuilderName(config.ContainerManager) {
		return nil, fmt.Errorf("unsupported container manager %q, pick one of %v",
			config.ContainerManager, GetBuilders())
	}
	return &External{
		fs:      fs.NewFileSystem(),
		runner:  utilcmd.NewCommandRunner(),
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}, nil
}

// GetBuilders returns the sorted list of supported container manager names.
func GetBuilders() []string {
	builders := []string{}
	for k := range commands {
		builders = append(builders, k)
	}
	sort.Strings(builders)
	return builders
}

// ValidBuilderName returns whether the name is a supported container
// manager.
func ValidBuilderName(name string) bool {
	_, exists := commands[name]
	return exists
}

// Build produces the application image described by config with the selected
// container manager.
func (e *External) Build(config *api.Config) (*api.Result, error) {
	defer e.cleanup(config)

	if err := e.prepare(config); err != nil {
		e.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonFSOperationFailed,
			status.ReasonMessageFSOperationFailed,
		)
		return e.result, err
	}

	m, err := e.readManifest(config)
	if err != nil {
		e.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonManifestInvalid,
			status.ReasonMessageManifestInvalid,
		)
		return e.result, err
	}

	if err := e.createDockerfile(config, m); err != nil {
		e.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonDockerfileCreateFailed,
			status.ReasonMessageDockerfileCreateFailed,
		)
		return e.result, err
	}

	if err := e.execute(config); err != nil {
		e.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonDockerImageBuildFailed,
			status.ReasonMessageDockerImageBuildFailed,
		)
		return e.result, err
	}

	if config.ContainerManager == constants.BuildahContainerManager {
		if id, err := buildah.New().GetImageID(config.Tag); err == nil {
			e.result.ImageID = id
		}
	}

	e.result.Success = true
	e.result.Messages = append(e.result.Messages, "Built image "+config.Tag)
	return e.result, nil
}

func (e *External) prepare(config *api.Config) error {
	var err error
	if len(config.WorkingDir) == 0 {
		if config.WorkingDir, err = e.fs.CreateWorkingDirectory(); err != nil {
			return errors.NewWorkDirError(config.WorkingDir, err)
		}
	}

	contextDir := config.Source
	if len(config.ContextDir) > 0 {
		contextDir = filepath.Join(config.Source, config.ContextDir)
	}
	if err := e.fs.CopyContents(contextDir, config.WorkingDir, nil); err != nil {
		return errors.NewWorkDirError(config.WorkingDir, err)
	}

	if err := e.ignorer.Ignore(config); err != nil {
		return err
	}

	if len(config.ExcludeRegExp) > 0 {
		exclusionPattern, err := regexp.Compile(config.ExcludeRegExp)
		if err != nil {
			return err
		}
		return e.pruneExcluded(config.WorkingDir, exclusionPattern)
	}
	return nil
}

// pruneExcluded removes the files matching the exclusion pattern from the
// working directory, so they never reach the container manager's build
// context. The pattern is matched against UNIX-style (/) paths, as with the
// tar-streamed build context.
func (e *External) pruneExcluded(dir string, pattern *regexp.Regexp) error {
	var prune []string
	err := e.fs.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if pattern.MatchString(filepath.ToSlash(path)) {
			prune = append(prune, path)
			if info.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, path := range prune {
		if err := e.fs.RemoveDirectory(path); err != nil {
			return err
		}
	}
	return nil
}

func (e *External) cleanup(config *api.Config) {
	if config.PreserveWorkingDir || len(config.WorkingDir) == 0 {
		return
	}
	if err := e.fs.RemoveDirectory(config.WorkingDir); err != nil {
		log.Warningf("Error removing temporary directory %q: %v", config.WorkingDir, err)
	}
}

func (e *External) readManifest(config *api.Config) (*manifest.Manifest, error) {
	manifestPath := config.ManifestPath
	if len(manifestPath) == 0 {
		manifestPath = constants.DefaultManifest
	}
	m, err := manifest.ReadFile(filepath.Join(config.WorkingDir, manifestPath))
	if err != nil {
		return nil, errors.NewManifestError(manifestPath, err)
	}
	return m, nil
}

func (e *External) createDockerfile(config *api.Config, m *manifest.Manifest) error {
	labels := util.GenerateOutputImageLabels(m, config)
	content, err := dockerfilegen.Generate(config, m.Options, labels)
	if err != nil {
		return err
	}
	return e.fs.WriteFile(filepath.Join(config.WorkingDir, constants.GeneratedDockerfile), []byte(content))
}

// renderCommand renders the shell command for the selected container
// manager.
func (e *External) renderCommand(config *api.Config) (string, error) {
	commandTemplate := commands[config.ContainerManager]
	t, err := template.New("external-command").Parse(commandTemplate)
	if err != nil {
		return "", err
	}
	var output bytes.Buffer
	err = t.Execute(&output, commandData{
		Tag:        config.Tag,
		Dockerfile: filepath.Join(config.WorkingDir, constants.GeneratedDockerfile),
		ContextDir: config.WorkingDir,
	})
	if err != nil {
		return "", err
	}
	return output.String(), nil
}

// execute runs the rendered external build command, streaming its output. A
// non-zero exit makes the build fail, so no image is tagged.
func (e *External) execute(config *api.Config) error {
	externalCommand, err := e.renderCommand(config)
	if err != nil {
		return err
	}
	log.V(0).Infof("Executing external build command: '%s'", externalCommand)
	e.result.Messages = append(e.result.Messages, "Running command: "+externalCommand)

	startTime := time.Now()
	parts := strings.Split(externalCommand, " ")
	opts := utilcmd.CommandOpts{Stdout: os.Stdout, Stderr: os.Stderr}
	err = e.runner.RunWithOptions(opts, parts[0], parts[1:]...)
	e.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
		e.result.BuildInfo.Stages,
		api.StageBuild, api.StepBuildImage, startTime, time.Now())
	if err != nil {
		return errors.NewBuildError(config.Tag, err)
	}
	return nil
}
