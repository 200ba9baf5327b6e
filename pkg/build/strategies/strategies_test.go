package strategies

import (
	"testing"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/build/strategies/dockerfile"
	"github.com/py2image/python-to-image/pkg/build/strategies/external"
	"github.com/py2image/python-to-image/pkg/build/strategies/layered"
)

func newStrategyConfig() *api.Config {
	return &api.Config{
		DockerConfig: &api.DockerConfig{Endpoint: constants.DefaultDockerSocket},
	}
}

func TestGetStrategyDefault(t *testing.T) {
	t.Setenv(constants.ContainerManagerEnv, "")
	config := newStrategyConfig()
	builder, err := GetStrategy(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := builder.(*dockerfile.Builder); !ok {
		t.Errorf("Unexpected strategy %T", builder)
	}
}

func TestGetStrategyDockerManager(t *testing.T) {
	config := newStrategyConfig()
	config.ContainerManager = constants.DockerContainerManager
	builder, err := GetStrategy(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := builder.(*dockerfile.Builder); !ok {
		t.Errorf("Unexpected strategy %T", builder)
	}
}

func TestGetStrategyLayered(t *testing.T) {
	t.Setenv(constants.ContainerManagerEnv, "")
	config := newStrategyConfig()
	config.Layered = true
	builder, err := GetStrategy(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := builder.(*layered.Layered); !ok {
		t.Errorf("Unexpected strategy %T", builder)
	}
}

func TestGetStrategyExternal(t *testing.T) {
	config := newStrategyConfig()
	config.ContainerManager = constants.BuildahContainerManager
	builder, err := GetStrategy(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := builder.(*external.External); !ok {
		t.Errorf("Unexpected strategy %T", builder)
	}
}

func TestGetStrategyManagerFromEnvironment(t *testing.T) {
	t.Setenv(constants.ContainerManagerEnv, constants.PodmanContainerManager)
	config := newStrategyConfig()
	builder, err := GetStrategy(config)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := builder.(*external.External); !ok {
		t.Errorf("Unexpected strategy %T", builder)
	}
	// the resolved manager must be visible to the caller, so the command
	// can decide whether a reachable docker daemon is required
	if config.ContainerManager != constants.PodmanContainerManager {
		t.Errorf("Container manager not resolved on the config: %q", config.ContainerManager)
	}
}

func TestGetStrategyInvalidManager(t *testing.T) {
	config := newStrategyConfig()
	config.ContainerManager = "img"
	if _, err := GetStrategy(config); err == nil {
		t.Error("Expected an error for an unsupported container manager")
	}
}
