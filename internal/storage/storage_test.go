package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 emulates the conditional-put behaviour of S3.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]*s3.PutObjectInput{}}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := f.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = body
	f.meta[key] = in
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestObjectStoreContract(t *testing.T) {
	backends := map[string]func() ObjectStore{
		"memory": func() ObjectStore { return NewMemoryStore() },
		"s3":     func() ObjectStore { return NewS3Store(newFakeS3(), "bucket") },
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("immutable put refuses overwrite", func(t *testing.T) {
				store := newStore()
				require.NoError(t, store.PutImmutable(ctx, "a/blobs/1.json", []byte("one"), PutOptions{}))
				err := store.PutImmutable(ctx, "a/blobs/1.json", []byte("two"), PutOptions{})
				assert.ErrorIs(t, err, ErrObjectExists)

				got, err := store.Get(ctx, "a/blobs/1.json")
				require.NoError(t, err)
				assert.Equal(t, "one", string(got))
			})

			t.Run("mutable put overwrites", func(t *testing.T) {
				store := newStore()
				require.NoError(t, store.PutMutable(ctx, "a/latest.json", []byte("v1"), PutOptions{}))
				require.NoError(t, store.PutMutable(ctx, "a/latest.json", []byte("v2"), PutOptions{}))

				got, err := store.Get(ctx, "a/latest.json")
				require.NoError(t, err)
				assert.Equal(t, "v2", string(got))
			})

			t.Run("delete", func(t *testing.T) {
				store := newStore()
				require.NoError(t, store.PutMutable(ctx, "hosts/a/latest.json", []byte("{}"), PutOptions{}))
				require.NoError(t, store.Delete(ctx, "hosts/a/latest.json"))
				require.NoError(t, store.Delete(ctx, "hosts/a/latest.json"))

				_, err := store.Get(ctx, "hosts/a/latest.json")
				assert.ErrorIs(t, err, ErrObjectNotFound)
			})

			t.Run("missing key", func(t *testing.T) {
				store := newStore()
				_, err := store.Get(ctx, "nope")
				assert.ErrorIs(t, err, ErrObjectNotFound)
			})
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	body := []byte("abc")
	require.NoError(t, store.PutMutable(ctx, "k", body, PutOptions{CacheControl: "no-cache"}))
	body[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))

	obj, ok := store.Object("k")
	require.True(t, ok)
	assert.Equal(t, "no-cache", obj.CacheControl)
	assert.Equal(t, []string{"k"}, store.Keys(""))
}

func TestS3StoreSendsMetadata(t *testing.T) {
	client := newFakeS3()
	store := NewS3Store(client, "bucket")
	opts := PutOptions{ContentType: "application/json", CacheControl: "public, max-age=5"}

	require.NoError(t, store.PutMutable(context.Background(), "hosts/docs.example.com/latest.json", []byte("{}"), opts))

	in := client.meta["hosts/docs.example.com/latest.json"]
	require.NotNil(t, in)
	assert.Equal(t, "bucket", aws.ToString(in.Bucket))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "public, max-age=5", aws.ToString(in.CacheControl))
	assert.Nil(t, in.IfNoneMatch)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/p1/latest.json", PublicURL("https://cdn.example.com/", "/p1/latest.json"))
	assert.Equal(t, "https://cdn.example.com/p1/latest.json", PublicURL("https://cdn.example.com", "p1/latest.json"))
}
