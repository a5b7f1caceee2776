package publish

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmscraper/pkg/errors"
	"tmscraper/pkg/logger"
)

type fakeS3 struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	tgt, err := ParseS3URL("s3://models/datasets/animals")
	require.NoError(t, err)
	assert.Equal(t, Target{Bucket: "models", Prefix: "datasets/animals"}, tgt)

	tgt, err = ParseS3URL("s3://models")
	require.NoError(t, err)
	assert.Equal(t, "", tgt.Prefix)

	for _, bad := range []string{"https://models/x", "s3:///x", "models/x"} {
		_, err := ParseS3URL(bad)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), bad)
	}
}

func TestTargetKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "animals.tm"},
		{"datasets/", "datasets/animals.tm"},
		{"datasets", "datasets/animals.tm"},
		{"datasets/v2.tm", "datasets/v2.tm"},
	}
	for _, tt := range tests {
		got := Target{Bucket: "b", Prefix: tt.prefix}.Key("/tmp/out/animals.tm")
		assert.Equal(t, tt.want, got, tt.prefix)
	}
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animals.tm")
	require.NoError(t, os.WriteFile(path, []byte("PK-archive"), 0644))

	fake := &fakeS3{}
	u := NewUploader(fake, logger.NewNopLogger())
	key, err := u.Upload(context.Background(), path, Target{Bucket: "models", Prefix: "sets"})
	require.NoError(t, err)

	assert.Equal(t, "sets/animals.tm", key)
	assert.Equal(t, "models", fake.bucket)
	assert.Equal(t, ArchiveContentType, fake.contentType)
	assert.Equal(t, "PK-archive", string(fake.body))
}

func TestUploadFailures(t *testing.T) {
	u := NewUploader(&fakeS3{err: stderrors.New("denied")}, logger.NewNopLogger())

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.tm"), Target{Bucket: "b"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))

	path := filepath.Join(t.TempDir(), "a.tm")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err = u.Upload(context.Background(), path, Target{Bucket: "b"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}
