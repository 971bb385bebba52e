package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		wantType string
		wantExt  string
		wantErr  error
	}{
		{name: "png", file: "cover.PNG", data: pngHeader, wantType: "image/png", wantExt: ".png"},
		{name: "gif", file: "a.gif", data: gifHeader, wantType: "image/gif", wantExt: ".gif"},
		{name: "jpeg keeps jpeg ext", file: "photo.jpeg", data: jpegHeader, wantType: "image/jpeg", wantExt: ".jpeg"},
		{name: "lying extension", file: "cover.gif", data: pngHeader, wantType: "image/png", wantExt: ".png"},
		{name: "no extension", file: "cover", data: gifHeader, wantType: "image/gif", wantExt: ".gif"},
		{name: "text", file: "evil.png", data: []byte("<script>alert(1)</script>"), wantErr: ErrUnsupportedImage},
		{name: "empty", file: "x.png", data: nil, wantErr: ErrEmptyImage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ct, ext, err := Detect(tc.file, tc.data)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, ct)
			assert.Equal(t, tc.wantExt, ext)
		})
	}
}

func TestLocalStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	path, err := s.Save(context.Background(), "cover.png", pngHeader)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, UploadsPrefix+"/"))
	require.True(t, strings.HasSuffix(path, ".png"))

	onDisk, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(path, UploadsPrefix+"/")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, onDisk)

	other, err := s.Save(context.Background(), "cover.png", pngHeader)
	require.NoError(t, err)
	assert.NotEqual(t, path, other)

	_, err = s.Save(context.Background(), "notes.txt", []byte("hello"))
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

type fakeS3 struct {
	in      *s3.PutObjectInput
	deleted *s3.DeleteObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Store(fake, S3Config{Bucket: "covers", Endpoint: "http://minio:9000/"})

	url, err := s.Save(context.Background(), "a.gif", gifHeader)
	require.NoError(t, err)

	require.NotNil(t, fake.in)
	assert.Equal(t, "covers", *fake.in.Bucket)
	assert.Equal(t, "image/gif", *fake.in.ContentType)
	assert.True(t, strings.HasPrefix(*fake.in.Key, s3KeyPrefix))
	assert.Equal(t, "http://minio:9000/covers/"+*fake.in.Key, url)
}

func TestS3Store_PublicURLAndErrors(t *testing.T) {
	fake := &fakeS3{err: errors.New("boom")}
	s := newS3Store(fake, S3Config{Bucket: "b", Region: "eu-west-1", PublicURL: "https://cdn.example/"})
	assert.Equal(t, "https://cdn.example", s.publicURL)

	_, err := s.Save(context.Background(), "a.png", pngHeader)
	require.ErrorContains(t, err, "boom")

	_, err = s.Save(context.Background(), "a.txt", []byte("plain"))
	require.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Nil(t, fake.in)

	aws := newS3Store(fake, S3Config{Bucket: "b", Region: "eu-west-1"})
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", aws.publicURL)
}

func TestLocalStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := s.Save(ctx, "cover.png", pngHeader)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// already gone
	require.NoError(t, s.Delete(ctx, path))

	for _, loc := range []string{"/assets/1984.jpg", UploadsPrefix + "/../secret", UploadsPrefix + "/"} {
		require.ErrorIs(t, s.Delete(ctx, loc), ErrForeignLocation, loc)
	}
}

func TestS3Store_Delete(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Store(fake, S3Config{Bucket: "covers", PublicURL: "https://cdn.example"})
	ctx := context.Background()

	url, err := s.Save(ctx, "a.png", pngHeader)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, url))
	require.NotNil(t, fake.deleted)
	assert.Equal(t, "covers", *fake.deleted.Bucket)
	assert.Equal(t, *fake.in.Key, *fake.deleted.Key)

	fake.deleted = nil
	require.ErrorIs(t, s.Delete(ctx, "https://elsewhere.example/covers/x.png"), ErrForeignLocation)
	require.ErrorIs(t, s.Delete(ctx, "https://cdn.example/other/x.png"), ErrForeignLocation)
	assert.Nil(t, fake.deleted)

	fake.err = errors.New("boom")
	require.ErrorContains(t, s.Delete(ctx, url), "boom")
}
