// Package dockerfile generates the build descriptor fed to the container
// engine. The descriptor implements the whole bootstrap contract: it layers
// the dependency manifest onto the base runtime image, copies the application
// tree to its fixed destination, bakes in unbuffered output mode and declares
// the entry module as the image command.
package dockerfile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/py2image/python-to-image/pkg/api"
	"github.com/py2image/python-to-image/pkg/api/constants"
	p2ierr "github.com/py2image/python-to-image/pkg/errors"
)

// moduleRegexp matches a dotted python module path, e.g. "src.main".
var moduleRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

const dockerfileTemplate = `FROM {{.BaseImage}}

{{.EnvBlock}}
WORKDIR {{.AppDir}}

COPY {{.Manifest}} {{.AppDir}}/{{.Manifest}}
RUN pip install --no-cache-dir{{range .PipOptions}} {{.}}{{end}} -r {{.AppDir}}/{{.Manifest}}

COPY {{.AppSourceDir}}/ {{.AppDir}}/{{.AppSourceDir}}/
{{if .LabelBlock}}
{{.LabelBlock}}{{end}}
CMD ["{{.Interpreter}}", "-m", "{{.EntryModule}}"]
`

type templateData struct {
	BaseImage    string
	EnvBlock     string
	AppDir       string
	Manifest     string
	PipOptions   []string
	AppSourceDir string
	LabelBlock   string
	Interpreter  string
	EntryModule  string
}

// Generate renders the build descriptor for the given config. Labels and pip
// options are emitted in a stable order. PYTHONUNBUFFERED=1 is always set
// and cannot be overridden by the user environment.
func Generate(config *api.Config, pipOptions []string, labels map[string]string) (string, error) {
	entryModule := config.EntryModule
	if len(entryModule) == 0 {
		entryModule = constants.DefaultEntryModule
	}
	if !moduleRegexp.MatchString(entryModule) {
		return "", p2ierr.NewDockerfileError(fmt.Errorf("invalid entry module %q", entryModule))
	}

	appSourceDir := config.AppSourceDir
	if len(appSourceDir) == 0 {
		appSourceDir = constants.DefaultAppSourceDir
	}
	manifest := config.ManifestPath
	if len(manifest) == 0 {
		manifest = constants.DefaultManifest
	}

	env := api.EnvironmentList{{Name: constants.PythonUnbufferedEnv, Value: constants.PythonUnbufferedValue}}
	for _, e := range config.Environment {
		if e.Name == constants.PythonUnbufferedEnv {
			continue
		}
		env = append(env, e)
	}

	data := templateData{
		BaseImage:    config.BaseImage,
		EnvBlock:     ConvertEnvironmentToDocker(env),
		AppDir:       constants.AppDir,
		Manifest:     manifest,
		PipOptions:   pipOptions,
		AppSourceDir: appSourceDir,
		LabelBlock:   convertLabelsToDocker(labels),
		Interpreter:  constants.PythonInterpreter,
		EntryModule:  entryModule,
	}

	tmpl, err := template.New("Dockerfile").Parse(dockerfileTemplate)
	if err != nil {
		return "", p2ierr.NewDockerfileError(err)
	}
	out := &strings.Builder{}
	if err := tmpl.Execute(out, data); err != nil {
		return "", p2ierr.NewDockerfileError(err)
	}
	return out.String(), nil
}

// ConvertEnvironmentToDocker converts the environment list into a Dockerfile
// ENV instruction.
func ConvertEnvironmentToDocker(env api.EnvironmentList) string {
	result := ""
	for i, e := range env {
		if i == 0 {
			result += fmt.Sprintf("ENV %s=\"%s\"", e.Name, escapeValue(e.Value))
		} else {
			result += fmt.Sprintf(" \\\n    %s=\"%s\"", e.Name, escapeValue(e.Value))
		}
	}
	return result
}

// convertLabelsToDocker converts the label map into a single LABEL
// instruction with keys in sorted order.
func convertLabelsToDocker(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := ""
	for i, k := range keys {
		if i == 0 {
			result += fmt.Sprintf("LABEL \"%s\"=\"%s\"", k, escapeValue(labels[k]))
		} else {
			result += fmt.Sprintf(" \\\n      \"%s\"=\"%s\"", k, escapeValue(labels[k]))
		}
	}
	return result
}

// escapeValue escapes the quotes, backslashes and $ signs so the value
// survives the Dockerfile instruction verbatim.
func escapeValue(s string) string {
	result := ""
	for _, ch := range s {
		switch ch {
		case '$', '"', '\\':
			result += "\\"
		}
		result += string(ch)
	}
	return result
}
