// Package attach stores document blobs outside the database.
package attach

import (
	"context"
	"errors"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no blob exists under a key.
var ErrNotFound = errors.New("blob not found")

// Store holds document blobs by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh storage key for a document of an asset, keeping the
// original file extension.
func NewKey(assetID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("assets", strconv.FormatInt(assetID, 10), uuid.NewString()+ext)
}
