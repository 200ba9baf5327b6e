// Package dockerfile implements the default build strategy: generate the
// build descriptor for the application and feed it to the docker engine as a
// single build. The engine never tags a failed build, so a failing
// dependency installation leaves no partial image behind.
package dockerfile

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/docker"
	dockerfilegen "github.com/py2image/python-to-image/pkg/dockerfile"
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

// Builder performs a build of the application image by generating the build
// descriptor into the working directory and streaming the directory as the
// build context to the docker engine.
type Builder struct {
	docker  docker.Docker
	fs      fs.FileSystem
	tar     tar.Tar
	ignorer *ignore.DockerIgnorer
	result  *api.Result
}

// New returns a Builder using the docker daemon from the config. No daemon
// connection is made for the Dockerfile generation flow.
func New(config *api.Config) (*Builder, error) {
	fileSystem := fs.NewFileSystem()
	builder := &Builder{
		fs:      fileSystem,
		tar:     tar.New(fileSystem),
		ignorer: &ignore.DockerIgnorer{},
		result:  &api.Result{},
	}
	if len(config.AsDockerfile) == 0 {
		dkr, err := docker.New(config.DockerConfig, config.PullAuthentication)
		if err != nil {
			return nil, err
		}
		builder.docker = dkr
	}
	return builder, nil
}

// Build produces the application image described by config.
func (builder *Builder) Build(config *api.Config) (*api.Result, error) {
	defer builder.Cleanup(config)

	if err := builder.Prepare(config); err != nil {
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

	if err := builder.createDockerfile(config, m); err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonDockerfileCreateFailed,
			status.ReasonMessageDockerfileCreateFailed,
		)
		return builder.result, err
	}

	if len(config.AsDockerfile) > 0 {
		// Dockerfile generation flow, no engine build requested.
		builder.result.Success = true
		builder.result.Messages = append(builder.result.Messages,
			"Build descriptor written to "+config.AsDockerfile)
		return builder.result, nil
	}

	if config.BasePullPolicy == api.PullNever {
		exists, err := builder.docker.IsImageInLocalRegistry(config.BaseImage)
		if err != nil {
			return builder.result, err
		}
		if !exists {
			builder.result.BuildInfo.FailureReason = status.NewFailureReason(
				status.ReasonPullBaseImageFailed,
				status.ReasonMessagePullBaseImageFailed,
			)
			return builder.result, errors.NewInspectImageError(config.BaseImage, nil)
		}
	}

	if err := builder.buildImage(config); err != nil {
		builder.result.BuildInfo.FailureReason = status.NewFailureReason(
			status.ReasonDockerImageBuildFailed,
			status.ReasonMessageDockerImageBuildFailed,
		)
		return builder.result, err
	}

	imageID, err := builder.docker.GetImageID(config.Tag)
	if err != nil {
		return builder.result, err
	}

	builder.result.Success = true
	builder.result.ImageID = imageID
	builder.result.Messages = append(builder.result.Messages,
		"Built image "+config.Tag)
	return builder.result, nil
}

// Prepare assembles the build context in a temporary working directory: the
// application source is copied in, the ignore rules are applied and the
// exclusion pattern for the context tar is set.
func (builder *Builder) Prepare(config *api.Config) error {
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

// Cleanup removes the temporary working directory unless its preservation
// was requested.
func (builder *Builder) Cleanup(config *api.Config) {
	if config.PreserveWorkingDir || len(config.WorkingDir) == 0 {
		return
	}
	log.V(2).Infof("Removing temporary directory %s", config.WorkingDir)
	if err := builder.fs.RemoveDirectory(config.WorkingDir); err != nil {
		log.Warningf("Error removing temporary directory %q: %v", config.WorkingDir, err)
	}
}

func (builder *Builder) readManifest(config *api.Config) (*manifest.Manifest, error) {
	startTime := time.Now()
	manifestPath := config.ManifestPath
	if len(manifestPath) == 0 {
		manifestPath = constants.DefaultManifest
	}
	m, err := manifest.ReadFile(filepath.Join(config.WorkingDir, manifestPath))
	builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
		builder.result.BuildInfo.Stages,
		api.StageGenerateDockerfile, api.StepReadManifest, startTime, time.Now())
	if err != nil {
		return nil, errors.NewManifestError(manifestPath, err)
	}
	log.V(2).Infof("Dependency manifest lists %d requirements", len(m.Requirements))
	return m, nil
}

func (builder *Builder) createDockerfile(config *api.Config, m *manifest.Manifest) error {
	startTime := time.Now()
	labels := util.GenerateOutputImageLabels(m, config)
	content, err := dockerfilegen.Generate(config, m.Options, labels)
	builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
		builder.result.BuildInfo.Stages,
		api.StageGenerateDockerfile, api.StepGenerateDockerfile, startTime, time.Now())
	if err != nil {
		return err
	}

	path := filepath.Join(config.WorkingDir, constants.GeneratedDockerfile)
	if len(config.AsDockerfile) > 0 {
		path = config.AsDockerfile
	}
	log.V(2).Infof("Writing build descriptor to %q", path)
	return builder.fs.WriteFile(path, []byte(content))
}

func (builder *Builder) buildImage(config *api.Config) error {
	startTime := time.Now()
	defer func() {
		builder.result.BuildInfo.Stages = api.RecordStageAndStepInfo(
			builder.result.BuildInfo.Stages,
			api.StageBuild, api.StepBuildImage, startTime, time.Now())
	}()

	tarReader, tarWriter := io.Pipe()
	go func() {
		tarWriter.CloseWithError(builder.tar.CreateTarStream(config.WorkingDir, false, tarWriter))
	}()

	var outWriter io.Writer = io.Discard
	if !config.Quiet {
		outWriter = os.Stdout
	}

	opts := docker.BuildImageOptions{
		Name:         config.Tag,
		Stdin:        tarReader,
		Stdout:       outWriter,
		Dockerfile:   constants.GeneratedDockerfile,
		NoCache:      config.NoCache,
		ForceRemove:  config.RemoveWithForce,
		PullParent:   config.BasePullPolicy == api.PullAlways,
		CGroupLimits: config.CGroupLimits,
	}
	log.V(1).Infof("Building image %q from %q", config.Tag, config.BaseImage)
	return builder.docker.BuildImage(opts)
}
