// Package tar streams the build context to the container engine. Relative
// paths inside the streamed directory are preserved so the application tree
// lands at its fixed destination byte- and path-identical.
package tar

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/py2image/python-to-image/pkg/util/fs"
	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// DefaultExclusionPattern is the pattern of files that will not be included
// in a tar file when creating one. By default it is any file inside a .git
// metadata directory.
var DefaultExclusionPattern = regexp.MustCompile(`(^|/)\.git(/|$)`)

// Tar writes a tar stream of a directory.
type Tar interface {
	// SetExclusionPattern sets the exclusion pattern for tar creation. The
	// exclusion pattern always uses UNIX-style (/) path separators, even on
	// Windows.
	SetExclusionPattern(*regexp.Regexp)

	// CreateTarStream creates a tar from the given directory and streams it
	// to the given writer.
	CreateTarStream(dir string, includeDirInPath bool, writer io.Writer) error

	// CreateTarStreamToTarWriter creates a tar from the given directory to
	// the given TarWriter.
	CreateTarStreamToTarWriter(dir string, includeDirInPath bool, writer Writer) error
}

// Writer is the part of the archive/tar.Writer this package uses, extracted
// for testing.
type Writer interface {
	Close() error
	Flush() error
	Write(b []byte) (int, error)
	WriteHeader(hdr *tar.Header) error
}

// New creates a new Tar that uses the given FileSystem.
func New(fileSystem fs.FileSystem) Tar {
	return &p2iTar{
		FileSystem: fileSystem,
		exclude:    DefaultExclusionPattern,
		timeout:    defaultTimeout,
	}
}

const defaultTimeout = 300 * time.Second

// p2iTar is an implementation of the Tar interface
type p2iTar struct {
	fs.FileSystem
	timeout time.Duration
	exclude *regexp.Regexp
}

// SetExclusionPattern sets the exclusion pattern for tar creation
func (t *p2iTar) SetExclusionPattern(p *regexp.Regexp) {
	t.exclude = p
}

// shouldExclude returns whether the path should be excluded
func (t *p2iTar) shouldExclude(path string) bool {
	return t.exclude != nil && t.exclude.String() != "" && t.exclude.MatchString(filepath.ToSlash(path))
}

// CreateTarStream creates a tar stream on the given writer from the given
// directory while excluding files that match the exclusion pattern.
func (t *p2iTar) CreateTarStream(dir string, includeDirInPath bool, writer io.Writer) error {
	tarWriter := tar.NewWriter(writer)
	defer tarWriter.Close()
	return t.CreateTarStreamToTarWriter(dir, includeDirInPath, tarWriter)
}

// CreateTarStreamToTarWriter creates a tar stream on the given writer from
// the given directory while excluding files that match the exclusion pattern.
func (t *p2iTar) CreateTarStreamToTarWriter(dir string, includeDirInPath bool, tarWriter Writer) error {
	dir = filepath.Clean(dir) // remove relative paths and extraneous slashes
	log.V(5).Infof("Adding %q to tar ...", dir)
	err := t.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// on Windows, directory symlinks report as a directory and as a symlink.
		// They should be treated as symlinks.
		if !t.shouldExclude(path) {
			// if file is a link just writing header info is enough
			if info.Mode()&os.ModeSymlink != 0 {
				if dir == path {
					return nil
				}
				if err = t.writeTarHeader(tarWriter, dir, path, info, includeDirInPath); err != nil {
					log.Errorf("Error writing header for %q: %v", info.Name(), err)
				}
				// on Windows, filepath.Walk recurses into directory symlinks when
				// it shouldn't. https://github.com/golang/go/issues/17540
				if err == nil && info.Mode()&os.ModeDir != 0 {
					return filepath.SkipDir
				}
				return err
			}
			if info.IsDir() {
				if dir == path {
					return nil
				}
				if err = t.writeTarHeader(tarWriter, dir, path, info, includeDirInPath); err != nil {
					log.Errorf("Error writing header for %q: %v", info.Name(), err)
				}
				return err
			}

			// regular file
			err = t.writeTarHeader(tarWriter, dir, path, info, includeDirInPath)
			if err != nil {
				log.Errorf("Error writing header for %q: %v", info.Name(), err)
				return err
			}
			file, err := t.Open(path)
			if err != nil {
				log.Errorf("Error opening file %q: %v", path, err)
				return err
			}
			defer file.Close()
			if _, err = io.Copy(tarWriter, file); err != nil {
				log.Errorf("Error copying file %q to tar: %v", path, err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("Error writing tar: %v", err)
		return err
	}
	return nil
}

// writeTarHeader writes tar header for given file, returns error if operation fails
func (t *p2iTar) writeTarHeader(tarWriter Writer, dir string, path string, info os.FileInfo, includeDirInPath bool) error {
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		var err error
		link, err = os.Readlink(path)
		if err != nil {
			return err
		}
	}
	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	// on Windows, tar.FileInfoHeader incorrectly interprets directory symlinks
	// as directories
	if info.Mode()&os.ModeSymlink != 0 && info.Mode()&os.ModeDir != 0 {
		header.Typeflag = tar.TypeSymlink
		header.Mode &^= 040000 // c_ISDIR
		header.Mode |= 0120000 // c_ISLNK
		header.Linkname = link
	}
	prefix := dir
	if includeDirInPath {
		prefix = filepath.Dir(prefix)
	}
	fileName := path
	if prefix != "." {
		fileName = path[1+len(prefix):]
	}
	header.Name = filepath.ToSlash(fileName)
	// Trims any local user names from the tar header
	header.Uname = ""
	header.Gname = ""
	log.V(5).Infof("Adding to tar: %s as %s", path, header.Name)
	return tarWriter.WriteHeader(header)
}
