package strategies

import (
	"os"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/build"
	"github.com/py2image/python-to-image/pkg/build/strategies/dockerfile"
	"github.com/py2image/python-to-image/pkg/build/strategies/external"
	"github.com/py2image/python-to-image/pkg/build/strategies/layered"
)

// GetStrategy decides what build strategy will be used for the build.
func GetStrategy(config *api.Config) (build.Builder, error) {
	if len(config.ContainerManager) == 0 {
		config.ContainerManager = os.Getenv(constants.ContainerManagerEnv)
	}
	if len(config.ContainerManager) > 0 && config.ContainerManager != constants.DockerContainerManager {
		return external.New(config)
	}
	if config.Layered {
		return layered.New(config)
	}
	return dockerfile.New(config)
}
