package docker

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/distribution/reference"

	"github.com/py2image/python-to-image/pkg/api"
)

// registryIndexServer is the default registry of the docker CLI, keyed as
// such in .docker/config.json.
const registryIndexServer = "https://index.docker.io/v1/"

// AuthConfigurations maps registry hostnames to the credentials stored for
// them in the docker configuration file.
type AuthConfigurations struct {
	Configs map[string]api.AuthConfig
}

// dockerConfigFile mirrors the on-disk layout of .docker/config.json.
type dockerConfigFile struct {
	Auths map[string]dockerConfigEntry `json:"auths"`
}

type dockerConfigEntry struct {
	Auth     string `json:"auth"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// GetImageName checks the image name and adds the :latest tag if a tag or
// digest is missing. The original spelling of the reference is preserved.
func GetImageName(name string) string {
	ref, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return name
	}
	if _, tagged := ref.(reference.Tagged); tagged {
		return name
	}
	if _, digested := ref.(reference.Digested); digested {
		return name
	}
	return name + ":latest"
}

// LoadImageRegistryAuth loads and returns the set of registry credentials
// from a reader holding a .docker/config.json file. Parse errors yield an
// empty configuration: a build against public images must not fail on a
// malformed credential store.
func LoadImageRegistryAuth(dockerCfg io.Reader) *AuthConfigurations {
	auths := &AuthConfigurations{Configs: map[string]api.AuthConfig{}}
	if dockerCfg == nil {
		return auths
	}

	var cfg dockerConfigFile
	if err := json.NewDecoder(dockerCfg).Decode(&cfg); err != nil {
		log.V(0).Infof("warning: Unable to read docker configuration: %v", err)
		return auths
	}

	for server, entry := range cfg.Auths {
		auth := api.AuthConfig{
			Username:      entry.Username,
			Password:      entry.Password,
			Email:         entry.Email,
			ServerAddress: server,
		}
		if len(entry.Auth) > 0 {
			username, password, err := decodeAuth(entry.Auth)
			if err != nil {
				log.V(0).Infof("warning: Unable to decode credentials for %q: %v", server, err)
				continue
			}
			auth.Username = username
			auth.Password = password
		}
		auths.Configs[server] = auth
	}
	return auths
}

// GetImageRegistryAuth retrieves the credentials for the registry of the
// given image name out of the loaded configurations.
func GetImageRegistryAuth(auths *AuthConfigurations, imageName string) api.AuthConfig {
	if auths == nil {
		return api.AuthConfig{}
	}
	ref, err := reference.ParseNormalizedNamed(imageName)
	if err != nil {
		log.V(0).Infof("warning: Unable to parse the image name %q: %v", imageName, err)
		return api.AuthConfig{}
	}
	domain := reference.Domain(ref)
	if auth, ok := auths.Configs[domain]; ok {
		log.V(5).Infof("Using %s[%s] credentials for pulling %s", auth.Email, domain, imageName)
		return auth
	}
	if domain == "docker.io" {
		if auth, ok := auths.Configs[registryIndexServer]; ok {
			log.V(5).Infof("Using %s credentials for pulling %s", auth.Email, imageName)
			return auth
		}
	}
	return api.AuthConfig{}
}

// decodeAuth unpacks the base64 "auth" field of a docker configuration
// entry into a username and password.
func decodeAuth(auth string) (string, string, error) {
	decoded, err := base64.StdEncoding.DecodeString(auth)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unexpected credential format")
	}
	return parts[0], strings.TrimSpace(parts[1]), nil
}

// base64EncodeAuth encodes the credentials the way the engine API expects
// them in the X-Registry-Auth header.
func base64EncodeAuth(auth api.AuthConfig) (string, error) {
	buf, err := json.Marshal(auth)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
