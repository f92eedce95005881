package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Store uploads artifacts to an S3 bucket under an optional prefix.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Store parses an s3://bucket/prefix URI and builds a client from the
// default AWS config chain (region from env or shared config).
func NewS3Store(ctx context.Context, uri string) (*S3Store, error) {
	bucket, prefix, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)

	return &S3Store{
		client:   cli,
		uploader: manager.NewUploader(cli),
		bucket:   bucket,
		prefix:   prefix,
	}, nil
}

// ParseS3URI splits s3://bucket/prefix into bucket and trimmed prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	if rest == uri || rest == "" {
		return "", "", fmt.Errorf("invalid s3 uri: %s", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}

// Put uploads one object with the supplied content type.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	fullKey := joinKey(s.prefix, key)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &StorageError{Key: fullKey, Err: err}
	}
	log.Debug().Str("bucket", s.bucket).Str("key", fullKey).Int("bytes", len(body)).Msg("uploaded artifact")
	return nil
}

// TextURI returns the s3:// location recorded in datalake_text_uri.
func (s *S3Store) TextURI(docID string) string {
	return "s3://" + s.bucket + "/" + joinKey(s.prefix, docID+"/extracted_text")
}

// Bucket exposes the bucket name (used by status checks).
func (s *S3Store) Bucket() string { return s.bucket }

func joinKey(segments ...string) string {
	var parts []string
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}
