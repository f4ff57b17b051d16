// s3.go - Upload artifacts to an S3 (or S3-compatible) bucket.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/xob0t/textstamp/pkg/compositor"
	"github.com/xob0t/textstamp/pkg/generator"
)

// S3Config locates the bucket.
type S3Config struct {
	Region         string
	Bucket         string
	EndpointURL    string // custom endpoint (MinIO, LocalStack)
	ForcePathStyle bool
	Prefix         string // key prefix; a run ID is appended per sink
}

// PutObjectAPI is the part of the S3 client the sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads every artifact under Prefix/RunID/Name.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
	runID  string
	keys   []string
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = cfg.ForcePathStyle
		}
	}), nil
}

// NewS3 returns a sink uploading through client. Each sink gets a fresh run
// ID so repeated batches never overwrite each other.
func NewS3(client PutObjectAPI, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket name is required")
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		runID:  uuid.NewString(),
	}, nil
}

// RunID returns the key segment shared by this sink's uploads.
func (s *S3) RunID() string { return s.runID }

// Keys returns the object keys uploaded so far.
func (s *S3) Keys() []string { return append([]string(nil), s.keys...) }

// Deliver uploads one artifact.
func (s *S3) Deliver(ctx context.Context, art *compositor.Artifact) error {
	key := path.Join(s.prefix, s.runID, art.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(art.Data),
		ContentLength: aws.Int64(int64(len(art.Data))),
		ContentType:   aws.String(generator.ContentType(art.Format)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.keys = append(s.keys, key)
	return nil
}
