// Package s3archive exports records to an S3 (or S3-compatible) bucket.
//
// Unlike the repository destinations this one has no curation semantics: it
// archives the raw record file under a session-keyed prefix so the record
// survives even when every networked repository is down.
package s3archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/datasophos/NexusLIMS-sub001/destination"
	"github.com/datasophos/NexusLIMS-sub001/iox"
	"github.com/datasophos/NexusLIMS-sub001/types"
)

// DestinationName is the stable registry name.
const DestinationName = "s3archive"

// DefaultPriority places the archive below every repository destination.
const DefaultPriority = 50

// DefaultTimeout bounds each S3 call so Export always returns.
const DefaultTimeout = 60 * time.Second

// Config configures the S3 archive destination.
type Config struct {
	// Bucket is the target bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
	// Priority overrides DefaultPriority when non-zero.
	Priority int
	// Timeout is the per-call timeout (default 60s).
	Timeout time.Duration
}

// Client is the subset of the S3 API the destination uses.
// The concrete *s3.Client satisfies it; tests substitute a stub.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Destination archives records to S3.
type Destination struct {
	config Config
	client Client
}

// New creates an S3 archive destination using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func New(ctx context.Context, cfg Config) (*Destination, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3archive: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewWithClient(cfg, s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// NewWithClient creates a destination with an explicit S3 client.
func NewWithClient(cfg Config, client Client) *Destination {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Destination{config: cfg, client: client}
}

// Name implements destination.Destination.
func (d *Destination) Name() string { return DestinationName }

// Priority implements destination.Destination.
func (d *Destination) Priority() int {
	if d.config.Priority != 0 {
		return d.config.Priority
	}
	return DefaultPriority
}

// Enabled reports whether a bucket is configured.
func (d *Destination) Enabled() bool {
	return d.config.Bucket != ""
}

// Validate confirms the bucket exists and is reachable with the current
// credentials.
func (d *Destination) Validate(ctx context.Context) error {
	if !d.Enabled() {
		return errors.New("s3archive: bucket is required")
	}

	headCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	if _, err := d.client.HeadBucket(headCtx, &s3.HeadBucketInput{Bucket: &d.config.Bucket}); err != nil {
		return fmt.Errorf("s3archive: bucket %s unreachable: %w", d.config.Bucket, err)
	}
	return nil
}

// Export uploads the record file under {prefix}/{session}/{filename}.
// All failures are folded into a failed result.
func (d *Destination) Export(ctx context.Context, ectx *types.ExportContext) *types.ExportResult {
	if !d.Enabled() {
		return types.NewFailure(DestinationName, "destination not configured")
	}

	f, err := os.Open(ectx.FilePath)
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("open record file: %v", err))
	}
	defer iox.DiscardClose(f)

	key := d.objectKey(ectx)
	contentType := "application/xml"

	putCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	_, err = d.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:      &d.config.Bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	})
	if err != nil {
		return types.NewFailure(DestinationName, fmt.Sprintf("put object %s: %v", key, err))
	}

	location := fmt.Sprintf("s3://%s/%s", d.config.Bucket, key)
	return types.NewSuccess(DestinationName, key, location).
		WithMetadata(map[string]any{"bucket": d.config.Bucket})
}

// objectKey builds the session-keyed object key for the record file.
func (d *Destination) objectKey(ectx *types.ExportContext) string {
	segments := []string{}
	if p := strings.Trim(d.config.Prefix, "/"); p != "" {
		segments = append(segments, p)
	}
	if ectx.SessionID != "" {
		segments = append(segments, ectx.SessionID)
	}
	segments = append(segments, filepath.Base(ectx.FilePath))
	return path.Join(segments...)
}

// Verify Destination implements the destination interface.
var _ destination.Destination = (*Destination)(nil)
