// Package archive keeps a compressed copy of every run's upload manifest in
// S3, so the local uploaded_photos.json is not the only record of a run.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// KeyPrefix is the S3 prefix under which manifests are stored.
const KeyPrefix = "manifests/"

// S3API is the subset of the S3 client the archive uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive writes zstd-compressed manifests to one bucket.
type S3Archive struct {
	client S3API
	bucket string
}

// NewS3Archive creates an S3Archive for bucket.
func NewS3Archive(client S3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

// Key returns the object key for a run's manifest.
func Key(runID string) string {
	return KeyPrefix + runID + ".json.zst"
}

// ArchiveManifest compresses manifest and uploads it under Key(runID).
func (a *S3Archive) ArchiveManifest(ctx context.Context, runID string, manifest []byte) (string, error) {
	key := Key(runID)

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(manifest); err != nil {
		enc.Close()
		return "", fmt.Errorf("compress manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("compress manifest: %w", err)
	}

	contentType := "application/json"
	contentEncoding := "zstd"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          &a.bucket,
		Key:             &key,
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     &contentType,
		ContentEncoding: &contentEncoding,
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s: %w", key, err)
	}

	log.Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Int("rawBytes", len(manifest)).
		Int("compressedBytes", buf.Len()).
		Msg("Manifest archived to S3")
	return key, nil
}

// FetchManifest downloads and decompresses an archived manifest. key may be
// a full object key or a bare run ID.
func (a *S3Archive) FetchManifest(ctx context.Context, key string) ([]byte, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		key = Key(key)
	}
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer result.Body.Close()

	dec, err := zstd.NewReader(result.Body)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return data, nil
}
