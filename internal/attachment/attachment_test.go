package attachment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func TestDataURLStore(t *testing.T) {
	s := NewDataURLStore(1024)

	ref, err := s.Store(context.Background(), "pixel.gif", gifBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "data:image/gif;base64,R0lGODlh"), ref)
}

func TestDataURLStoreRejects(t *testing.T) {
	s := NewDataURLStore(16)
	ctx := context.Background()

	_, err := s.Store(ctx, "empty.png", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = s.Store(ctx, "pixel.gif", gifBytes)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Store(ctx, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotImage)
}

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, key string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.bucket, f.key, f.contentType, f.body = bucket, key, opts.ContentType, body
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func TestMinioStoreUploads(t *testing.T) {
	putter := &fakePutter{}
	s := newMinioStore(putter, "stockpro", 1024, zaptest.NewLogger(t))
	s.newKey = func() string { return "fixed" }

	ref, err := s.Store(context.Background(), "pixel.gif", gifBytes)
	require.NoError(t, err)
	assert.Equal(t, "s3://stockpro/fixed.gif", ref)
	assert.Equal(t, "stockpro", putter.bucket)
	assert.Equal(t, "image/gif", putter.contentType)
	assert.Equal(t, gifBytes, putter.body)
}

func TestMinioStoreErrors(t *testing.T) {
	putter := &fakePutter{err: errors.New("connection refused")}
	s := newMinioStore(putter, "stockpro", 1024, zaptest.NewLogger(t))

	_, err := s.Store(context.Background(), "pixel.gif", gifBytes)
	assert.ErrorContains(t, err, "connection refused")

	_, err = s.Store(context.Background(), "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Empty(t, putter.key)
}
