package test

import (
	"io"
	"regexp"
	"sync"

	"github.com/py2image/python-to-image/pkg/tar"
)

// FakeTar provides a fake tar creator
type FakeTar struct {
	CreateTarDir     string
	CreateTarResult  string
	CreateTarError   error
	ExclusionPattern *regexp.Regexp

	lock sync.Mutex
}

// Copy returns a copy of the fake tar, to avoid data races the fake is not
// shared between goroutines.
func (f *FakeTar) Copy() *FakeTar {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := &FakeTar{
		CreateTarDir:     f.CreateTarDir,
		CreateTarResult:  f.CreateTarResult,
		CreateTarError:   f.CreateTarError,
		ExclusionPattern: f.ExclusionPattern,
	}
	return n
}

// SetExclusionPattern sets the exclusion pattern
func (f *FakeTar) SetExclusionPattern(p *regexp.Regexp) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ExclusionPattern = p
}

// CreateTarStream creates a fake tar stream
func (f *FakeTar) CreateTarStream(dir string, includeDirInPath bool, writer io.Writer) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.CreateTarDir = dir
	return f.CreateTarError
}

// CreateTarStreamToTarWriter creates a fake tar stream to a tar writer
func (f *FakeTar) CreateTarStreamToTarWriter(dir string, includeDirInPath bool, writer tar.Writer) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.CreateTarDir = dir
	return f.CreateTarError
}
