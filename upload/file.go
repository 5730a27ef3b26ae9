package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is a local file handle awaiting upload. Pending entries are
// deduplicated by file identity; files of a non-comparable type are never
// treated as duplicates.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// MemoryFile is a File held in memory.
type MemoryFile struct {
	name        string
	contentType string
	data        []byte
}

// NewMemoryFile wraps data. An empty contentType is sniffed from the content.
func NewMemoryFile(name string, data []byte, contentType string) *MemoryFile {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &MemoryFile{name: name, contentType: contentType, data: data}
}

func (f *MemoryFile) Name() string        { return f.name }
func (f *MemoryFile) Size() int64         { return int64(len(f.data)) }
func (f *MemoryFile) ContentType() string { return f.contentType }
func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// DiskFile is a File read from the local filesystem on Open.
type DiskFile struct {
	path        string
	size        int64
	contentType string
}

// OpenDiskFile stats path and sniffs its content type.
func OpenDiskFile(path string) (*DiskFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("upload: %s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("upload: detect content type of %s: %w", path, err)
	}
	return &DiskFile{path: path, size: st.Size(), contentType: mt.String()}, nil
}

func (f *DiskFile) Name() string                 { return filepath.Base(f.path) }
func (f *DiskFile) Size() int64                  { return f.size }
func (f *DiskFile) ContentType() string          { return f.contentType }
func (f *DiskFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// Accepts reports whether f matches one of the accepted patterns. Patterns are
// MIME types ("image/png"), MIME wildcards ("image/*") or extensions (".pdf").
// No patterns accepts everything.
func Accepts(f File, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	ct := strings.ToLower(f.ContentType())
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext := strings.ToLower(filepath.Ext(f.Name()))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "":
			continue
		case strings.HasPrefix(p, "."):
			if ext == p {
				return true
			}
		case strings.HasSuffix(p, "/*"):
			if strings.HasPrefix(ct, strings.TrimSuffix(p, "*")) {
				return true
			}
		case ct == p:
			return true
		}
	}
	return false
}
