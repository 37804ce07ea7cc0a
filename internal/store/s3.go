package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"fpl-cache-api/internal/snapshot"
)

// S3API is the subset of the S3 client the store needs.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Options struct {
	Bucket          string
	Region          string
	Prefix          string // key prefix above cache/, e.g. "fplcache/"
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store reads snapshots mirrored into an S3 bucket. Handles are object keys.
type S3Store struct {
	api          S3API
	bucket       string
	prefix       string
	decompressor Decompressor
}

func NewS3Store(ctx context.Context, opts S3Options, d Decompressor) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	return NewS3StoreWithClient(client, opts.Bucket, opts.Prefix, d), nil
}

func NewS3StoreWithClient(api S3API, bucket, prefix string, d Decompressor) *S3Store {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{api: api, bucket: bucket, prefix: prefix, decompressor: d}
}

func (s *S3Store) List(ctx context.Context) ([]snapshot.Ref, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + CacheDir + "/"),
	})
	var refs []snapshot.Ref
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			if isMissingBucket(err) {
				return nil, fmt.Errorf("%w: bucket %s: %v", snapshot.ErrStoreUnavailable, s.bucket, err)
			}
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, snapshot.Suffix) {
				continue
			}
			ref, err := snapshot.NewRef(key)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
	}
	snapshot.SortRefs(refs)
	return refs, nil
}

func (s *S3Store) Load(ctx context.Context, handle string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, handle, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, handle, err)
	}
	raw, err := s.decompressor.Decompress(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", handle, err)
	}
	return raw, nil
}

func isMissingBucket(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchBucket"
	}
	return false
}
