// Package blob stores uploaded document and cover image payloads.
//
// Blobs are addressed by a flat generated name. Records in the database
// reference them by the relative path uploads/<name>; Path and NameFromPath
// convert between the two.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strings"
	"time"
)

// Prefix is the leading directory of every stored path.
const Prefix = "uploads"

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidName is returned for empty names or names that could
	// escape the storage root.
	ErrInvalidName = errors.New("invalid blob name")
)

// Info describes a stored blob.
type Info struct {
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Store is implemented by the local filesystem and MinIO backends.
type Store interface {
	// Put writes r under name. size may be -1 when unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns a seekable reader so callers can serve range requests.
	Open(ctx context.Context, name string) (io.ReadSeekCloser, Info, error)
	// Remove deletes name, returning ErrNotFound if it is absent.
	Remove(ctx context.Context, name string) error
}

// NewName returns <unix-millis>-<random in [0,1e9)><ext>, where ext is taken
// from the client supplied filename.
func NewName(original string) string {
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.IntN(1_000_000_000), safeExt(original))
}

// Path returns the relative path recorded in the database for name.
func Path(name string) string {
	return Prefix + "/" + name
}

// NameFromPath is the inverse of Path.
func NameFromPath(p string) string {
	return path.Base(p)
}

// ValidName reports whether name is a single safe path element.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsRune(name, 0)
}

// safeExt keeps the extension only if it is short and alphanumeric.
func safeExt(filename string) string {
	ext := path.Ext(strings.ReplaceAll(filename, `\`, "/"))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
