// Package manifest reads pip dependency manifests (requirements files). The
// manifest is consumed once at build time; every entry must either parse as a
// package-with-optional-version requirement or be one of the pip directives
// we pass through verbatim.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	p2ierr "github.com/py2image/python-to-image/pkg/errors"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// nameRegexp matches a PEP 508 project name with optional extras, e.g.
// "requests" or "uvicorn[standard]".
var nameRegexp = regexp.MustCompile(`^([A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?)(\[[A-Za-z0-9._,\s-]+\])?`)

// specifierRegexp matches a comma separated version specifier set, e.g.
// "==2.31.0" or ">=1.0,<2.0".
var specifierRegexp = regexp.MustCompile(`^(\s*(==|!=|<=|>=|<|>|~=|===)\s*[A-Za-z0-9._*+!-]+\s*)(,\s*(==|!=|<=|>=|<|>|~=|===)\s*[A-Za-z0-9._*+!-]+\s*)*$`)

// Requirement is a single entry of the dependency manifest.
type Requirement struct {
	// Name is the canonical project name. Empty for pass-through entries
	// (editable installs, URLs and pip options).
	Name string

	// Extras are the optional features requested for the project.
	Extras []string

	// Specifier is the version specifier set, e.g. "==2.31.0". Empty means
	// any version.
	Specifier string

	// Markers carries an environment marker expression, verbatim.
	Markers string

	// Raw is the manifest line as written, used to reproduce the entry.
	Raw string

	// Editable is true for -e entries.
	Editable bool
}

// Pinned returns the exact version the requirement is pinned to, if the
// specifier is a single == clause.
func (r Requirement) Pinned() (string, bool) {
	s := strings.TrimSpace(r.Specifier)
	if !strings.HasPrefix(s, "==") || strings.Contains(s, ",") {
		return "", false
	}
	version := strings.TrimSpace(strings.TrimPrefix(s, "=="))
	if strings.HasPrefix(version, "=") {
		// "===" arbitrary equality
		version = strings.TrimSpace(strings.TrimPrefix(version, "="))
	}
	return version, true
}

// Manifest is the parsed dependency manifest.
type Manifest struct {
	// Path is the location the manifest was read from.
	Path string

	// Requirements are the parsed entries in file order, including entries
	// pulled in through -r includes.
	Requirements []Requirement

	// Options are global pip options (e.g. --index-url) in file order.
	Options []string
}

// Names returns the project names of all named requirements in file order.
func (m *Manifest) Names() []string {
	names := []string{}
	for _, r := range m.Requirements {
		if len(r.Name) > 0 {
			names = append(names, r.Name)
		}
	}
	return names
}

// ReadFile reads and parses the manifest at path, following -r includes
// relative to the manifest's directory.
func ReadFile(path string) (*Manifest, error) {
	seen := map[string]bool{}
	m, err := readFile(path, seen)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func readFile(path string, seen map[string]bool) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, p2ierr.NewManifestError(path, err)
	}
	if seen[abs] {
		return nil, p2ierr.NewManifestError(path, fmt.Errorf("circular -r include of %s", path))
	}
	seen[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return nil, p2ierr.NewManifestError(path, err)
	}
	defer f.Close()

	m, err := parse(f, filepath.Dir(path), seen)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse parses manifest content from r. Includes are resolved relative to
// the current directory.
func Parse(r io.Reader) (*Manifest, error) {
	return parse(r, ".", map[string]bool{})
}

func parse(r io.Reader, dir string, seen map[string]bool) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)

	line := ""
	lineNo := 0
	firstLineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if len(line) == 0 {
			firstLineNo = lineNo
		}
		// Logical lines continue over a trailing backslash.
		if strings.HasSuffix(text, "\\") {
			line += strings.TrimSuffix(text, "\\")
			continue
		}
		line += text

		if err := m.parseLine(line, firstLineNo, dir, seen); err != nil {
			return nil, err
		}
		line = ""
	}
	if len(line) > 0 {
		if err := m.parseLine(line, firstLineNo, dir, seen); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, p2ierr.NewManifestError("", err)
	}
	return m, nil
}

func (m *Manifest) parseLine(line string, lineNo int, dir string, seen map[string]bool) error {
	line = stripComment(line)
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	switch {
	case strings.HasPrefix(line, "-r ") || strings.HasPrefix(line, "--requirement "):
		include := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "-r"), "--requirement"))
		included, err := readFile(filepath.Join(dir, include), seen)
		if err != nil {
			return err
		}
		m.Requirements = append(m.Requirements, included.Requirements...)
		m.Options = append(m.Options, included.Options...)
		return nil

	case strings.HasPrefix(line, "-e ") || strings.HasPrefix(line, "--editable "):
		m.Requirements = append(m.Requirements, Requirement{Raw: line, Editable: true})
		return nil

	case strings.HasPrefix(line, "-"):
		// Global pip option such as --index-url. Passed through verbatim.
		m.Options = append(m.Options, line)
		return nil

	case strings.Contains(line, "://") || strings.HasPrefix(line, "./") || strings.HasPrefix(line, "../"):
		// Direct URL or local path reference.
		m.Requirements = append(m.Requirements, Requirement{Raw: line})
		return nil
	}

	req, err := parseRequirement(line)
	if err != nil {
		return p2ierr.NewManifestError("", fmt.Errorf("line %d: %v", lineNo, err))
	}
	m.Requirements = append(m.Requirements, req)
	return nil
}

func parseRequirement(line string) (Requirement, error) {
	req := Requirement{Raw: line}

	rest := line
	if i := strings.Index(rest, ";"); i >= 0 {
		req.Markers = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}

	match := nameRegexp.FindStringSubmatch(rest)
	if match == nil {
		return req, fmt.Errorf("invalid requirement %q", line)
	}
	req.Name = match[1]
	if len(match[3]) > 0 {
		extras := strings.Trim(match[3], "[]")
		for _, e := range strings.Split(extras, ",") {
			req.Extras = append(req.Extras, strings.TrimSpace(e))
		}
	}

	spec := strings.TrimSpace(rest[len(match[0]):])
	// pip allows parenthesized specifiers
	spec = strings.TrimSpace(strings.Trim(spec, "()"))
	if len(spec) > 0 {
		if !specifierRegexp.MatchString(spec) {
			return req, fmt.Errorf("invalid version specifier %q in requirement %q", spec, line)
		}
		req.Specifier = strings.Join(splitTrimmed(spec), ",")
	}

	log.V(5).Infof("Parsed requirement %q as name=%q specifier=%q", line, req.Name, req.Specifier)
	return req, nil
}

func splitTrimmed(spec string) []string {
	parts := strings.Split(spec, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// stripComment removes a trailing # comment. A # inside a URL fragment
// (preceded by a non-space rune) does not start a comment, matching pip.
func stripComment(line string) string {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return ""
	}
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	return line
}
