package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	utillog "github.com/py2image/python-to-image/pkg/util/log"
)

var log = utillog.StderrLog

// FileSystem allows mocking the file system during testing.
type FileSystem interface {
	Chmod(file string, mode os.FileMode) error
	Rename(from, to string) error
	MkdirAll(dirname string) error
	Mkdir(dirname string) error
	Exists(file string) bool
	Copy(sourcePath, targetPath string, filesToIgnore map[string]string) error
	CopyContents(sourcePath, targetPath string, filesToIgnore map[string]string) error
	RemoveDirectory(dir string) error
	CreateWorkingDirectory() (string, error)
	Open(file string) (io.ReadCloser, error)
	Create(file string) (io.WriteCloser, error)
	WriteFile(file string, data []byte) error
	ReadDir(string) ([]os.FileInfo, error)
	Stat(string) (os.FileInfo, error)
	Walk(root string, walkFn filepath.WalkFunc) error
}

// NewFileSystem creates a new instance of the default FileSystem
// implementation.
func NewFileSystem() FileSystem {
	return &fs{}
}

type fs struct{}

// Chmod sets the file mode
func (h *fs) Chmod(file string, mode os.FileMode) error {
	return os.Chmod(file, mode)
}

// Rename renames or moves a file
func (h *fs) Rename(from, to string) error {
	return os.Rename(from, to)
}

// MkdirAll creates the directory and all its parents
func (h *fs) MkdirAll(dirname string) error {
	return os.MkdirAll(dirname, 0700)
}

// Mkdir creates the specified directory
func (h *fs) Mkdir(dirname string) error {
	return os.Mkdir(dirname, 0700)
}

// Exists returns true if the file exists
func (h *fs) Exists(file string) bool {
	_, err := os.Stat(file)
	return err == nil
}

// Copy copies the source to a destination. If the source is a file, then the
// destination has to be a file as well, otherwise error is returned.
func (h *fs) Copy(source string, dest string, filesToIgnore map[string]string) (err error) {
	return doCopy(h, source, dest, filesToIgnore)
}

func doCopy(h FileSystem, source, dest string, filesToIgnore map[string]string) (err error) {
	sourceFile, err := h.Stat(source)
	if err != nil {
		return err
	}

	if sourceFile.IsDir() {
		if err = h.MkdirAll(dest); err != nil {
			return err
		}
		return h.CopyContents(source, dest, filesToIgnore)
	}

	if sourceFile.Mode()&os.ModeSymlink != 0 {
		// best effort, only fully materialized trees are copied
		log.V(5).Infof("skipping symlink %q", source)
		return nil
	}

	in, err := h.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := h.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return h.Chmod(dest, sourceFile.Mode())
}

// CopyContents copies the content of the source directory to a destination
// directory. If the destination directory does not exist, it will be created.
// The source directory itself will not be copied, only its content. If source
// is not a directory, an error will be returned.
func (h *fs) CopyContents(src string, dest string, filesToIgnore map[string]string) (err error) {
	sourceInfo, err := h.Stat(src)
	if err != nil {
		return err
	}
	if !sourceInfo.IsDir() {
		return fmt.Errorf("%q is not a directory", src)
	}
	if err = h.MkdirAll(dest); err != nil {
		return err
	}

	entries, err := h.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		sourcePath := filepath.Join(src, entry.Name())
		if _, ok := filesToIgnore[sourcePath]; ok {
			log.V(5).Infof("ignoring file %q", sourcePath)
			continue
		}
		targetPath := filepath.Join(dest, entry.Name())
		if err = doCopy(h, sourcePath, targetPath, filesToIgnore); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDirectory removes the specified directory and all its contents
func (h *fs) RemoveDirectory(dir string) error {
	log.V(2).Infof("Removing directory '%s'", dir)

	err := os.RemoveAll(dir)
	if err != nil {
		log.Errorf("Error removing directory '%s': %v", dir, err)
		return err
	}
	return nil
}

// CreateWorkingDirectory creates a directory to be used for the build
func (h *fs) CreateWorkingDirectory() (directory string, err error) {
	directory, err = os.MkdirTemp("", "p2i")
	if err != nil {
		return "", fmt.Errorf("error creating temporary directory: %v", err)
	}
	return directory, err
}

// Open opens a file and returns a ReadCloser interface to that file
func (h *fs) Open(filename string) (io.ReadCloser, error) {
	return os.Open(filename)
}

// Create creates a file and returns a WriteCloser interface to that file
func (h *fs) Create(filename string) (io.WriteCloser, error) {
	return os.Create(filename)
}

// WriteFile opens a file and writes data to it, returning error if such
// occurred
func (h *fs) WriteFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, 0600)
}

// ReadDir reads the files in specified directory
func (h *fs) ReadDir(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Stat returns a FileInfo describing the named file
func (h *fs) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Walk walks the file tree rooted at root
func (h *fs) Walk(root string, walkFn filepath.WalkFunc) error {
	return filepath.Walk(root, walkFn)
}

// StripSeparator removes a trailing path separator
func StripSeparator(path string) string {
	return strings.TrimSuffix(path, string(filepath.Separator))
}
