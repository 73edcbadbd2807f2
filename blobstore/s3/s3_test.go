package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbuild/blobstore"
)

// fakeClient implements Client over a map. Ranged GetObject honors the
// "bytes=start-end" header format the blob reader emits.
type fakeClient struct {
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeClient) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	start, end := 0, len(data)-1
	if rng := aws.ToString(params.Range); rng != "" {
		if _, err := fmt.Sscanf(rng, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		if end >= len(data) {
			end = len(data) - 1
		}
	}

	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data[start : end+1])),
	}, nil
}

func (f *fakeClient) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(params.Prefix)
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (f *fakeClient) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (f *fakeClient) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func (f *fakeClient) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("multipart not supported by fake")
}

func newTestStore(t *testing.T, prefix string) (*Store, *fakeClient) {
	t.Helper()

	client := newFakeClient()
	store, err := New(context.Background(), "test-bucket",
		WithClient(client),
		WithPrefix(prefix),
	)
	require.NoError(t, err)
	return store, client
}

func TestStorePutOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "indexes")

	payload := []byte(strings.Repeat("posting-data-", 100))
	require.NoError(t, store.Put(ctx, "a/codes.bin", payload))

	blob, err := store.Open(ctx, "a/codes.bin")
	require.NoError(t, err)
	defer func() { _ = blob.Close() }()

	assert.Equal(t, int64(len(payload)), blob.Size())

	got, err := blobstore.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStoreRangedReadAt(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "")

	var payload []byte
	for i := 0; i < 100; i++ {
		payload = append(payload, []byte(strconv.Itoa(i%10))...)
	}
	require.NoError(t, store.Put(ctx, "blob", payload))

	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)

	p := make([]byte, 10)
	n, err := blob.ReadAt(p, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, payload[5:15], p)

	// Read past the end.
	_, err = blob.ReadAt(p, blob.Size())
	assert.ErrorIs(t, err, io.EOF)
}

func TestStoreOpenMissing(t *testing.T) {
	store, _ := newTestStore(t, "indexes")

	_, err := store.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStoreListStripsPrefix(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "indexes")

	require.NoError(t, store.Put(ctx, "a/manifest.json", []byte("{}")))
	require.NoError(t, store.Put(ctx, "a/codes.bin", []byte("x")))
	require.NoError(t, store.Put(ctx, "b/manifest.json", []byte("{}")))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/codes.bin", "a/manifest.json"}, names)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, "indexes")

	require.NoError(t, store.Put(ctx, "a", []byte("x")))
	require.NoError(t, store.Delete(ctx, "a"))

	_, err := store.Open(ctx, "a")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
