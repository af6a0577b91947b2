package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")

	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, storage.Dir())

	name, err := storage.Save(ctx, "b1_report.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "b1_report.pdf", name)
	assert.FileExists(t, filepath.Join(dir, "b1_report.pdf"))

	_, err = storage.Save(ctx, "b1_report.pdf", strings.NewReader("other-bytes"))
	assert.ErrorIs(t, err, ErrObjectExists, "existing report is never replaced")

	rc, err := storage.Open(ctx, name)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pdf-bytes", string(content))

	_, err = storage.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, storage.Delete(ctx, name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, storage.Delete(ctx, name), "deleting twice is fine")
}

func TestLocalStorageStaysInDirectory(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "passwd"), storage.Path("../../etc/passwd"))
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if _, exists := f.objects[key]; exists && aws.ToString(in.IfNoneMatch) == "*" {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = body
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3()
	storage := NewS3StorageWithClient(client, "lab-reports")

	name, err := storage.Save(ctx, "b1_report.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "b1_report.pdf", name)
	assert.Contains(t, client.objects, "lab-reports/reports/b1_report.pdf")
	assert.Equal(t, "application/pdf", client.types["reports/b1_report.pdf"])

	_, err = storage.Save(ctx, "b1_report.pdf", strings.NewReader("other-bytes"))
	assert.ErrorIs(t, err, ErrObjectExists)
	assert.Equal(t, []byte("pdf-bytes"), client.objects["lab-reports/reports/b1_report.pdf"])

	rc, err := storage.Open(ctx, name)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(content))

	_, err = storage.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, storage.Delete(ctx, name))
	assert.Empty(t, client.objects)

	client.err = errors.New("access denied")
	_, err = storage.Save(ctx, "b2_report.pdf", strings.NewReader("x"))
	assert.ErrorContains(t, err, "access denied")
}
