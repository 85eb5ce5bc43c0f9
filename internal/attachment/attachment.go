package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmpty is returned for a zero-length upload.
	ErrEmpty = errors.New("attachment is empty")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("attachment exceeds size limit")
	// ErrNotImage is returned when the detected content type is not image/*.
	ErrNotImage = errors.New("attachment is not an image")
)

// Store turns uploaded bytes into an image reference usable in
// Product.Images, Sale.ProofPhoto or StockLog.Photo.
type Store interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
}

// sniff checks size and content type and returns the detected image MIME.
func sniff(data []byte, maxBytes int64) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), maxBytes)
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mime.String())
	}
	return mime, nil
}

// DataURLStore inlines images as base64 data URLs.
type DataURLStore struct {
	maxBytes int64
}

// NewDataURLStore creates a store rejecting uploads over maxBytes. A
// non-positive maxBytes disables the limit.
func NewDataURLStore(maxBytes int64) *DataURLStore {
	return &DataURLStore{maxBytes: maxBytes}
}

// Store returns data as a data:<mime>;base64 reference.
func (s *DataURLStore) Store(_ context.Context, _ string, data []byte) (string, error) {
	mime, err := sniff(data, s.maxBytes)
	if err != nil {
		return "", err
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
