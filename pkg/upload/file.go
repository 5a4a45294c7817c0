package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultAcceptedTypes is the advisory extension filter offered by file pickers.
// Nothing in this package enforces it.
var DefaultAcceptedTypes = []string{".pdf", ".txt", ".docx"}

// File is a handle on something that can be uploaded: a display name and a
// way to read its content. Open may be called once per transfer.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type LocalFile struct {
	path string
}

func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

func (f *LocalFile) Name() string {
	return filepath.Base(f.path)
}

func (f *LocalFile) Path() string {
	return f.path
}

func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type MemoryFile struct {
	name    string
	content []byte
}

func NewMemoryFile(name string, content []byte) *MemoryFile {
	return &MemoryFile{name: name, content: content}
}

func (f *MemoryFile) Name() string {
	return f.name
}

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

// IsAccepted reports whether name carries one of the accepted extensions.
// An empty list accepts everything.
func IsAccepted(name string, accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range accepted {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}
