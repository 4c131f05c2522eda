// Package s3archive archives periodic diagnostic snapshot batches to an
// S3-compatible bucket, mirroring the teacher's internal/infra/blob/s3/store.go
// (including its custom-endpoint support for MinIO-style local testing).
// This is archival, not a sink of record: losing connectivity to the
// bucket never blocks or fails a commit.
package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fusioncore/internal/diagnostics"
	fsync "fusioncore/pkg/sync"
)

// Config describes how to reach the archive bucket. Endpoint is optional
// and, when set, points the client at an S3-compatible service (MinIO,
// LocalStack) instead of AWS.
type Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// Archive uploads one JSON object per Record call under bucket/prefix.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds an Archive from cfg.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics/s3archive: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Record implements diagnostics.Sink by uploading the batch as a single
// JSON object, keyed by upload time so successive batches never collide.
func (a *Archive) Record(ctx context.Context, snapshots []fsync.CellSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([]diagnostics.Row, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, diagnostics.ToRow(snap))
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("diagnostics/s3archive: marshal batch: %w", err)
	}

	key := fmt.Sprintf("%s%s.json", a.prefix, time.Now().UTC().Format("20060102T150405.000000000Z"))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("diagnostics/s3archive: put object %s: %w", key, err)
	}
	return nil
}

// Close implements diagnostics.Sink; the S3 client holds no resources that
// need releasing.
func (a *Archive) Close() error { return nil }
