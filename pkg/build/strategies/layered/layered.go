// Package layered implements the daemonless-Dockerfile build flow: the base
// image is pulled, a container is created from it with the application
// context uploaded, the dependency manifest is installed inside it, and the
// stopped container is committed as the result image. A failing installation
// aborts the build before the commit, so no partial image is retained.
package layered

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/docker"
	"github.com/py2image/python-to-image/pkg/errors"
	"github.com/py2image/python-to-image/pkg/ignore"
	"github.com/py2image/python-to-image/pkg/manifest"
	"github.com/py2image/python-to-image/pkg/tar"
	"github.com/py2image/python-to-image/pkg/util"
	"github.com/py2image/python-to-image/pkg/util/fs"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
	"github.com/py2image/python-to-image/pkg/util/status"
)

var log = utillog.StderrLog

// Layered builds the application image by installing the dependency manifest
// inside a container layered on the base image and committing the result.
type Layered struct {
	docker  docker.Docker
	fs      fs.FileSystem
	tar     tar.Tar
	ignorer *ignore.DockerIgnorer
	result  *api.Result
}

// New returns a Layered builder using the docker daemon from the config.
func New(config *api.Config) (*Layered, error) {
	dkr, err := docker.New(config.DockerConfig, config.PullAuthentication)
	if err != nil {
		return nil, err
	}
	fileSystem := fs.NewFileSystem()
	return &Layered{
		docker:  dkr,
		fs:      fileSystem,
		tar:     tar.New(fileSystem),
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}, nil
}

// Build produces the application image described by config.
func (builder *Layered) Build(config *api.Config) (*api.Result, error) {
	defer builder.Cleanup(config)

	if _, err := builder.pullBaseImage(config); err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonPullBaseImageFailed,
			status.ReasonMessagePullBaseImageFailed,
		)
		return builder.result, err
	}

	if err := builder.prepare(config); err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonFSOperationFailed,
			status.ReasonMessageFSOperationFailed,
		)
		return builder.result, err
	}

	m, err := builder.readManifest(config)
	if err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonManifestInvalid,
			status.ReasonMessageManifestInvalid,
		)
		return builder.result, err
	}

	imageID, err := builder.installAndCommit(config, m)
	if err != nil {
		return builder.result, err
	}

	builder.result.Success = true
	builder.result.ImageID = imageID
	builder.result.Messages = append(builder.result.Messages,
		"Built image "+config.Tag)
	return builder.result, nil
}

// Cleanup removes the temporary working directory unless its preservation
// was requested.
func (builder *Layered) Cleanup(config *api.Config) {
	if config.PreserveWorkingDir || len(config.WorkingDir) == 0 {
		return
	}
	log.V(2).Infof("Removing temporary directory %s", config.WorkingDir)
	if err := builder.fs.RemoveDirectory(config.WorkingDir); err != nil {
		log.Warningf("Error removing temporary directory %q: %v", config.WorkingDir, err)
	}
}

func (builder *Layered) pullBaseImage(config *api.Config) (*api.Image, error) {
	startTime := time.Now()
	defer func() {
		builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
			builder.result.BuildInfo.Stages,
			api.StagePullImages, api.StepPullBaseImage, startTime, time.Now())
	}()

	switch config.BasePullPolicy {
	case api.PullAlways:
		return builder.docker.PullImage(config.BaseImage)
	case api.PullNever:
		image, err := builder.docker.InspectImage(config.BaseImage)
		if err != nil {
			return nil, err
		}
		return image, nil
	default:
		return builder.docker.CheckAndPullImage(config.BaseImage)
	}
}

func (builder *Layered) prepare(config *api.Config) error {
	var err error
	if len(config.WorkingDir) == 0 {
		if config.WorkingDir, err = builder.fs.CreateWorkingDirectory(); err != nil {
			return errors.NewWorkDirError(config.WorkingDir, err)
		}
	}

	if len(config.ExcludeRegExp) > 0 {
		exclusionPattern, err := regexp.Compile(config.ExcludeRegExp)
		if err != nil {
			return err
		}
		builder.tar.SetExclusionPattern(exclusionPattern)
	}

	contextDir := config.Source
	if len(config.ContextDir) > 0 {
		contextDir = filepath.Join(config.Source, config.ContextDir)
	}
	log.V(2).Infof("Copying sources from %q to %q", contextDir, config.WorkingDir)
	if err := builder.fs.CopyContents(contextDir, config.WorkingDir, nil); err != nil {
		return errors.NewWorkDirError(config.WorkingDir, err)
	}

	return builder.ignorer.Ignore(config)
}

func (builder *Layered) readManifest(config *api.Config) (*manifest.Manifest, error) {
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

// installAndCommit runs the dependency installation inside a container
// created from the base image and commits the stopped container with the
// runtime contract baked in: working directory AppDir, PYTHONUNBUFFERED=1 in
// the environment and the entry module as the command.
func (builder *Layered) installAndCommit(config *api.Config, m *manifest.Manifest) (string, error) {
	manifestPath := config.ManifestPath
	if len(manifestPath) == 0 {
		manifestPath = constants.DefaultManifest
	}

	installCmd := []string{"/bin/sh", "-c", pipInstallCommand(manifestPath, m.Options)}
	env := buildEnvironment(config)
	labels := util.GenerateOutputImageLabels(m, config)

	outReader, outWriter := io.Pipe()
	defer outReader.Close()
	errReader, errWriter := io.Pipe()
	defer errReader.Close()
	var errOutput string
	outDone := docker.StreamContainerIO(outReader, nil, log.Info)
	errDone := docker.StreamContainerIO(errReader, &errOutput, log.Info)

	var imageID string
	startTime := time.Now()
	opts := docker.RunContainerOptions{
		Image:        config.BaseImage,
		Command:      installCmd,
		Env:          env,
		WorkingDir:   constants.AppDir,
		Stdout:       outWriter,
		Stderr:       errWriter,
		CGroupLimits: config.CGroupLimits,
		CapDrop:      config.DropCapabilities,
		OnCreate: func(containerID string) error {
			return builder.uploadContext(config, containerID)
		},
		PostExec: func(containerID string) error {
			return builder.commit(config, containerID, env, labels, &imageID)
		},
	}

	err := builder.docker.RunContainer(opts)
	outWriter.Close()
	errWriter.Close()
	<-outDone
	<-errDone
	builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
		builder.result.BuildInfo.Stages,
		api.StageBuild, api.StepInstallDependencies, startTime, time.Now())

	if e, ok := err.(errors.ContainerError); ok {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonInstallFailed,
			status.ReasonMessageInstallFailed,
		)
		return "", errors.NewInstallError(manifestPath,
			errors.NewContainerError(config.BaseImage, e.ExitCode, errOutput))
	}
	if err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonGenericBuildFailed,
			status.ReasonMessageGenericBuildFailed,
		)
		return "", err
	}
	return imageID, nil
}

// uploadContext streams the prepared working directory into the container's
// application directory, preserving the relative layout.
func (builder *Layered) uploadContext(config *api.Config, containerID string) error {
	tarReader, tarWriter := io.Pipe()
	go func() {
		tarWriter.CloseWithError(builder.tar.CreateTarStream(config.WorkingDir, false, tarWriter))
	}()
	if err := builder.docker.UploadToContainer(containerID, constants.AppDir, tarReader); err != nil {
		return errors.NewTarError(config.WorkingDir, err)
	}
	return nil
}

func (builder *Layered) commit(config *api.Config, containerID string, env []string, labels map[string]string, imageID *string) error {
	entryModule := config.EntryModule
	if len(entryModule) == 0 {
		entryModule = constants.DefaultEntryModule
	}

	startTime := time.Now()
	id, err := builder.docker.CommitContainer(docker.CommitContainerOptions{
		ContainerID: containerID,
		Repository:  config.Tag,
		Command:     []string{constants.PythonInterpreter, "-m", entryModule},
		Entrypoint:  nil,
		Env:         env,
		WorkingDir:  constants.AppDir,
		Labels:      labels,
	})
	builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
		builder.result.BuildInfo.Stages,
		api.StageCommit, api.StepCommitContainer, startTime, time.Now())
	if err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonCommitContainerFailed,
			status.ReasonMessageCommitContainerFailed,
		)
		return err
	}
	*imageID = id
	return nil
}

// buildEnvironment returns the container environment: PYTHONUNBUFFERED=1
// first, followed by the user environment. The unbuffered setting cannot be
// overridden.
func buildEnvironment(config *api.Config) []string {
	env := []string{constants.PythonUnbufferedEnv + "=" + constants.PythonUnbufferedValue}
	for _, e := range config.Environment {
		if e.Name == constants.PythonUnbufferedEnv {
			continue
		}
		env = append(env, e.Name+"="+e.Value)
	}
	return env
}

// pipInstallCommand renders the shell command installing the dependency
// manifest inside the build container.
func pipInstallCommand(manifestPath string, pipOptions []string) string {
	args := []string{"pip", "install", "--no-cache-dir"}
	args = append(args, pipOptions...)
	args = append(args, "-r", filepath.ToSlash(filepath.Join(constants.AppDir, manifestPath)))
	return fmt.Sprintf("cd %s && %s", constants.AppDir, strings.Join(args, " "))
}
