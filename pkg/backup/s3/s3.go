// Package s3 stores backups in Amazon S3 or any S3-compatible service.
package s3

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/hostsolo/hostsolo/pkg/backup"
	"github.com/hostsolo/hostsolo/pkg/errdefs"
)

// deleteBatchSize is the DeleteObjects limit.
const deleteBatchSize = 1000

// Config holds the connection settings for a bucket.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS
	AccessKeyID     string
	SecretAccessKey string
}

// Provider implements backup.Provider on S3.
type Provider struct {
	bucket     string
	client     s3iface.S3API
	uploader   s3manageriface.UploaderAPI
	downloader s3manageriface.DownloaderAPI
}

var _ backup.Provider = (*Provider)(nil)

// NewProvider builds a session from static credentials.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Bucket == "" {
		return nil, errdefs.Invalid("backup.bucket", "is required for S3 backups")
	}

	awsCfg := aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")).
		WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		// MinIO, B2 and friends expect path-style addressing.
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSessionWithOptions(session.Options{Config: *awsCfg})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := s3.New(sess)
	return NewWithClient(cfg.Bucket, client), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(bucket string, client s3iface.S3API) *Provider {
	return &Provider{
		bucket:     bucket,
		client:     client,
		uploader:   s3manager.NewUploaderWithClient(client),
		downloader: s3manager.NewDownloaderWithClient(client),
	}
}

func (p *Provider) external(op string, err error) error {
	return &errdefs.ExternalError{Op: fmt.Sprintf("s3 %s (bucket %s)", op, p.bucket), Err: err}
}

// UploadFile stores one local file under key.
func (p *Provider) UploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return p.external("upload "+key, err)
	}
	return nil
}

// UploadDirectory walks localDir and uploads every regular file below
// prefix. A file path is uploaded as a single object under prefix+basename.
func (p *Provider) UploadDirectory(ctx context.Context, localDir, prefix string) (int, error) {
	info, err := os.Stat(localDir)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", localDir, err)
	}
	prefix = withSlash(prefix)

	if !info.IsDir() {
		if err := p.UploadFile(ctx, localDir, prefix+filepath.Base(localDir)); err != nil {
			return 0, err
		}
		return 1, nil
	}

	count := 0
	err = filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		if err := p.UploadFile(ctx, path, prefix+filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// DownloadFile writes the object at key to localPath, creating parents.
func (p *Provider) DownloadFile(ctx context.Context, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(localPath), err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}

	_, err = p.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err != nil {
		return p.external("download "+key, err)
	}
	return closeErr
}

// DownloadDirectory restores every object below prefix into localDir.
func (p *Provider) DownloadDirectory(ctx context.Context, prefix, localDir string) (int, error) {
	prefix = withSlash(prefix)
	objects, err := p.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, obj := range objects {
		target, ok := backup.RelativeKey(prefix, obj.Key, localDir)
		if !ok || strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if err := p.DownloadFile(ctx, obj.Key, target); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// List returns every object below prefix.
func (p *Provider) List(ctx context.Context, prefix string) ([]backup.Object, error) {
	var objects []backup.Object
	err := p.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			objects = append(objects, backup.Object{
				Key:          aws.StringValue(obj.Key),
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, p.external("list "+prefix, err)
	}
	return objects, nil
}

// Delete removes every object below prefix in batches of 1000 keys.
func (p *Provider) Delete(ctx context.Context, prefix string) (int, error) {
	objects, err := p.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(objects); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(objects) {
			end = len(objects)
		}

		ids := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, obj := range objects[start:end] {
			ids = append(ids, &s3.ObjectIdentifier{Key: aws.String(obj.Key)})
		}

		out, err := p.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &s3.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, p.external("delete "+prefix, err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return deleted, p.external("delete "+prefix, fmt.Errorf("%d objects failed, first %s: %s",
				len(out.Errors), aws.StringValue(first.Key), aws.StringValue(first.Message)))
		}
		deleted += len(ids)
	}
	return deleted, nil
}

func withSlash(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}
