package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string][]byte
	inputs  []*s3.PutObjectInput
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*in.Key] = data
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestArchiveManifest_CompressesUnderRunKey(t *testing.T) {
	fake := &fakeS3{}
	a := NewS3Archive(fake, "backup-archive")
	manifest := []byte(`[{"file_name": "12.jpg", "size": "z", "url": "https://disk.yandex.ru/client/disk/backup/12.jpg"}]`)

	key, err := a.ArchiveManifest(context.Background(), "run-1", manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "manifests/run-1.json.zst" {
		t.Errorf("unexpected key %q", key)
	}
	in := fake.inputs[0]
	if *in.Bucket != "backup-archive" || *in.ContentEncoding != "zstd" {
		t.Errorf("unexpected put input: bucket=%s encoding=%s", *in.Bucket, *in.ContentEncoding)
	}
	if bytes.Equal(fake.objects[key], manifest) {
		t.Error("stored object should be compressed")
	}

	got, err := a.FetchManifest(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(got, manifest) {
		t.Errorf("round trip mismatch: %s", got)
	}
}

func TestArchiveManifest_PutError(t *testing.T) {
	a := NewS3Archive(&fakeS3{err: errors.New("access denied")}, "b")
	if _, err := a.ArchiveManifest(context.Background(), "run-1", []byte("[]")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFetchManifest_Missing(t *testing.T) {
	a := NewS3Archive(&fakeS3{}, "b")
	if _, err := a.FetchManifest(context.Background(), "manifests/none.json.zst"); err == nil {
		t.Fatal("expected error")
	}
}
