package buildah

import (
	"encoding/json"

	utilcmd "github.com/py2image/python-to-image/pkg/util/cmd"
)

// Inspect holds the parsed outcome of a "buildah inspect" call.
type Inspect struct {
	FromImageID string        `json:"FromImageID"`
	Docker      InspectDocker `json:"Docker"`
}

// InspectDocker is the docker section of the inspect output.
type InspectDocker struct {
	Config InspectDockerConfig `json:"config"`
}

// InspectDockerConfig is the config section inside the docker section.
type InspectDockerConfig struct {
	User       string            `json:"User"`
	Env        []string          `json:"Env"`
	WorkingDir string            `json:"WorkingDir"`
	Entrypoint []string          `json:"Entrypoint"`
	Cmd        []string          `json:"Cmd"`
	Labels     map[string]string `json:"Labels"`
}

// inspectImage runs "buildah inspect" and parses the returned json into an
// Inspect instance. It can return error when buildah does, or when the output
// cannot be parsed.
func inspectImage(runner utilcmd.CommandRunner, image string) (*Inspect, error) {
	log.V(3).Infof("Inspecting image '%s' with buildah...", image)
	output, err := execute(runner, []string{"inspect", image}, false)
	if err != nil {
		return nil, err
	}

	imageMetadata := &Inspect{}
	if err := json.Unmarshal(output, imageMetadata); err != nil {
		log.Errorf("Error parsing JSON output '%s': '%q'", output, err)
		return nil, err
	}
	return imageMetadata, nil
}
