package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
)

// S3 property names, as the host engine forwards them.
const (
	S3AccessKey    = "AWS_ACCESS_KEY"
	S3SecretKey    = "AWS_SECRET_KEY"
	S3SessionToken = "AWS_TOKEN"
	S3Region       = "AWS_REGION"
	S3Endpoint     = "AWS_ENDPOINT"
	S3PathStyle    = "use_path_style"

	defaultS3Region = "us-east-1"
)

// s3API is the part of the S3 client the reader needs.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// newS3Client is replaced in tests.
var newS3Client = func(ctx context.Context, props hiveconf.Properties) (s3API, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(props.Get(S3Region, defaultS3Region)),
	}
	if ak := props[S3AccessKey]; ak != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, props[S3SecretKey], props[S3SessionToken]),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := props[S3Endpoint]
	pathStyle := props.Bool(S3PathStyle, false)
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(endpoint))
		}
		o.UsePathStyle = pathStyle
	}), nil
}

func withScheme(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

func openS3(ctx context.Context, uri string, props hiveconf.Properties, active ContextSource) (File, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(ctx, props)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", uri, err)
	}

	return &rangeFile{
		name:   uri,
		size:   aws.ToInt64(head.ContentLength),
		src:    &s3Object{client: client, bucket: loc.Bucket, key: loc.Key},
		active: active,
	}, nil
}

type s3Object struct {
	client s3API
	bucket string
	key    string
}

func (o *s3Object) readRange(ctx context.Context, off, n int64) (io.ReadCloser, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+n-1)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (o *s3Object) close() error { return nil }
