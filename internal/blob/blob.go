package blob

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// PublicMount is the URL prefix under which stored attachments are
// served.
const PublicMount = "/uploads/"

// Store persists uploaded binary blobs under caller-chosen names.
// Concurrent writes to distinct names must not interfere.
type Store interface {
	Write(name string, data []byte) error
}

// DirStore writes blobs into a public-servable directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir. The directory is created
// lazily on first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Dir reports the directory blobs are written to.
func (s *DirStore) Dir() string {
	return s.dir
}

// Write stores data under name inside the store directory.
func (s *DirStore) Write(name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty blob name")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
}

// StorageName derives the stored name for an upload: a millisecond
// timestamp prefix followed by the sanitized original name. The
// timestamp keeps concurrent uploads of the same file apart as long as
// throughput stays below sub-millisecond bursts.
func StorageName(originalName string) string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + SanitizeName(originalName)
}

// SanitizeName strips directory components from an untrusted filename
// so it cannot escape the storage directory.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return "file"
	}
	return name
}

// PublicPath derives the retrieval path for a stored name. Pure string
// derivation, not a store operation.
func PublicPath(name string) string {
	return PublicMount + name
}
