// Package create bootstraps a new application layout that the build command
// can containerize without further setup.
package create

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/py2image/python-to-image/pkg/api/constants"
	"github.com/py2image/python-to-image/pkg/create/templates"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// Bootstrap defines parameters for the template processing
type Bootstrap struct {
	DestinationDir string

	// Name is the application name used in the scaffolded files.
	Name string

	// BaseImage is the runtime image the descriptor pins.
	BaseImage string

	// EntryModule is the module started as the container's foreground
	// process.
	EntryModule string
}

// New returns a new bootstrap for given application name and destination
// directory
func New(name, dst string) *Bootstrap {
	return &Bootstrap{
		Name:           name,
		DestinationDir: dst,
		BaseImage:      constants.DefaultBaseImage,
		EntryModule:    constants.DefaultEntryModule,
	}
}

// AddManifest writes the initial dependency manifest
func (b *Bootstrap) AddManifest() {
	b.process(templates.Manifest, constants.DefaultManifest)
}

// AddDescriptor writes the initial project descriptor
func (b *Bootstrap) AddDescriptor() {
	b.process(templates.Descriptor, constants.DescriptorFile)
}

// AddIgnoreFile writes the initial build context ignore file
func (b *Bootstrap) AddIgnoreFile() {
	b.process(templates.IgnoreFile, constants.IgnoreFile)
}

// AddApplication writes the initial application tree with the entry module
func (b *Bootstrap) AddApplication() {
	parts := strings.Split(b.EntryModule, ".")
	dir := filepath.Join(parts[:len(parts)-1]...)
	for i := range parts[:len(parts)-1] {
		b.process(templates.PackageInit, filepath.Join(filepath.Join(parts[:i+1]...), "__init__.py"))
	}
	b.process(templates.EntryModule, filepath.Join(dir, parts[len(parts)-1]+".py"))
}

func (b *Bootstrap) process(t string, chdir string) {
	tpl := template.Must(template.New("").Parse(t))
	buf := bytes.Buffer{}
	if err := tpl.Execute(&buf, b); err != nil {
		log.Errorf("Unable to process template: %v", err)
		return
	}
	name := filepath.Join(b.DestinationDir, chdir)
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		log.Errorf("Unable to create directory for %s: %v", name, err)
		return
	}
	if _, err := os.Stat(name); err == nil {
		log.Errorf("File already exists: %s", name)
		return
	}
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		log.Errorf("Unable to write %s: %v", name, err)
	}
}
