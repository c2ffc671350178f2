package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Store spools uploads in an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := upload.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "spool/")
type S3Store struct {
	client S3API
	bucket string
	prefix string

	// tempDir stages a part on disk so PutObject gets a seekable body with
	// a known length. Empty means os.TempDir().
	tempDir string
}

// NewS3Store creates a new S3 spool store.
//
// Parameters:
//   - client: AWS S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: Key prefix for spool objects (e.g., "uploads/spool/")
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// WithTempDir sets the local staging directory.
func (s *S3Store) WithTempDir(dir string) *S3Store {
	s.tempDir = dir
	return s
}

// Save stages r on local disk, uploads it and removes the staged copy.
func (s *S3Store) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, int64, error) {
	staged, err := os.CreateTemp(s.tempDir, "filebridge-s3-*")
	if err != nil {
		return "", 0, err
	}
	defer func() {
		staged.Close()
		os.Remove(staged.Name())
	}()

	size, err := io.Copy(staged, r)
	if err != nil {
		return "", 0, err
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return "", 0, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	tempID := uuid.NewString()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.prefix + tempID),
		Body:          staged,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filename,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("upload: s3 put failed: %w", err)
	}

	return tempID, size, nil
}

// Claim streams a spooled object. The object is deleted when the reader is
// closed.
func (s *S3Store) Claim(ctx context.Context, tempID string) (io.ReadCloser, error) {
	key := s.prefix + tempID
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	return &s3ClaimReader{ReadCloser: out.Body, store: s, key: key}, nil
}

// Discard deletes a spooled object that was never claimed.
func (s *S3Store) Discard(ctx context.Context, tempID string) error {
	return s.delete(ctx, s.prefix+tempID)
}

// Cleanup removes spool objects older than maxAge.
func (s *S3Store) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var toDelete []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}

		for _, obj := range page.Contents {
			if obj.LastModified != nil && obj.LastModified.Before(cutoff) && obj.Key != nil {
				toDelete = append(toDelete, *obj.Key)
			}
		}
	}

	for _, key := range toDelete {
		if err := s.delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

func (s *S3Store) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("upload: s3 delete %s: %w", key, err)
	}
	return nil
}

type s3ClaimReader struct {
	io.ReadCloser
	store *S3Store
	key   string
}

func (r *s3ClaimReader) Close() error {
	err := r.ReadCloser.Close()
	if derr := r.store.delete(context.Background(), r.key); err == nil {
		err = derr
	}
	return err
}
