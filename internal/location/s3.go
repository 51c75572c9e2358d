package location

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 is a bucket/prefix endpoint. S3 emits no notifications we consume,
// so it is always monitored by polling. Keys under the prefix are flat
// file names; "directory" placeholder keys are skipped.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ PollOnly = (*S3)(nil)

// NewS3 builds the client and verifies the bucket is reachable. Static
// credentials from the selector take precedence over the default chain.
// SYNCBOX_S3_ENDPOINT points the client at an S3-compatible server.
func NewS3(ctx context.Context, sel *Selector) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if sel.User != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sel.User, sel.Password, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := os.Getenv("SYNCBOX_S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	loc := &S3{client: client, bucket: sel.Bucket, prefix: sel.Path}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(sel.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("s3 bucket %s: %w", sel.Bucket, err)
	}
	return loc, nil
}

func (l *S3) key(name string) string {
	if l.prefix == "" {
		return name
	}
	return l.prefix + "/" + name
}

func (l *S3) List(ctx context.Context) ([]string, error) {
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
	}
	if l.prefix != "" {
		input.Prefix = aws.String(l.prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(l.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if l.prefix != "" {
				key = strings.TrimPrefix(key, l.prefix+"/")
			}
			// Placeholder keys and nested objects are not ours.
			if key == "" || strings.HasSuffix(key, "/") || strings.Contains(key, "/") {
				continue
			}
			names = append(names, key)
		}
	}
	return names, nil
}

func (l *S3) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", name, mapS3Err(err))
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", name, err)
	}
	return content, nil
}

// Write uploads the content; modTime is ignored, since S3 assigns
// LastModified server-side. Converged-pair detection falls back to
// content comparison for this backend.
func (l *S3) Write(ctx context.Context, name string, content []byte, modTime time.Time) error {
	_, err := l.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(name)),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("s3 write %s: %w", name, err)
	}
	return nil
}

// Delete is idempotent on S3; a missing key deletes successfully, which
// satisfies callers that tolerate ErrNotFound anyway.
func (l *S3) Delete(ctx context.Context, name string) error {
	_, err := l.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(name)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", name, err)
	}
	return nil
}

func (l *S3) ModTime(ctx context.Context, name string) time.Time {
	out, err := l.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key(name)),
	})
	if err != nil || out.LastModified == nil {
		return time.Time{}
	}
	return *out.LastModified
}

func (l *S3) PollOnly() {}

func (l *S3) String() string {
	if l.prefix != "" {
		return "s3:" + l.bucket + "/" + l.prefix
	}
	return "s3:" + l.bucket
}

// mapS3Err turns a missing-key reply into ErrNotFound.
func mapS3Err(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}
	return err
}
