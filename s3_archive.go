package driftwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveConfig configures the S3 report archive.
type ArchiveConfig struct {
	Bucket   string
	Region   string
	Endpoint string // For S3-compatible services (MinIO, etc.)
	// AccessKeyID for authentication. Prefer using IAM roles, instance
	// profiles, or environment variables (AWS_ACCESS_KEY_ID,
	// AWS_SECRET_ACCESS_KEY) instead of setting these directly.
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // Key prefix for all objects
	UsePathStyle    bool   // Use path-style addressing

	// MaxRetries is the max retry attempts for S3 operations (default: 3).
	MaxRetries int
}

// s3Client is the subset of the S3 API the archiver uses.
// It is implemented by *s3.Client and can be mocked in tests.
type s3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ReportArchiver uploads analysis reports to S3-compatible storage so an
// alerting or audit consumer can replay past detection output.
type ReportArchiver struct {
	client  s3Client
	config  ArchiveConfig
	retryer *Retryer
}

// NewReportArchiver creates an archiver against S3 or an S3-compatible
// endpoint.
func NewReportArchiver(cfg ArchiveConfig) (*ReportArchiver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return &ReportArchiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
		retryer: NewRetryer(RetryConfig{
			MaxAttempts:       cfg.MaxRetries,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            0.1,
		}),
	}, nil
}

// Archive uploads a report as JSON and returns the object key. Keys are
// date-partitioned so lifecycle rules can expire old reports.
func (a *ReportArchiver) Archive(ctx context.Context, report AnalysisReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	t := time.UnixMilli(report.GeneratedAt).UTC()
	key := fmt.Sprintf("%sreports/%04d/%02d/%02d/report-%d.json",
		a.config.Prefix, t.Year(), t.Month(), t.Day(), report.GeneratedAt)

	err = a.retryer.Do(ctx, func() error {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.config.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveUpload, err)
	}
	return key, nil
}

// Fetch downloads a previously archived report by key.
func (a *ReportArchiver) Fetch(ctx context.Context, key string) (AnalysisReport, error) {
	var report AnalysisReport

	var data []byte
	err := a.retryer.Do(ctx, func() error {
		resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(a.config.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("fetch report %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	return report, nil
}
