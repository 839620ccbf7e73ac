package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/hivescan/pkg/hiveconf"
)

// GCS property names.
const (
	GCSCredentialsFile = "gcs.credentials_file"
	GCSAccessToken     = "gcs.access_token"
	GCSEndpoint        = "gcs.endpoint"
	GCSAnonymous       = "gcs.anonymous"
)

// gcsClientOptions translates scan properties into client options.
func gcsClientOptions(props hiveconf.Properties) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case props.Bool(GCSAnonymous, false):
		opts = append(opts, option.WithoutAuthentication())
	case props[GCSAccessToken] != "":
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: props[GCSAccessToken],
			TokenType:   "Bearer",
		})))
	case props[GCSCredentialsFile] != "":
		opts = append(opts, option.WithCredentialsFile(props[GCSCredentialsFile]))
	}
	if ep := props[GCSEndpoint]; ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts
}

func openGCS(ctx context.Context, uri string, props hiveconf.Properties, active ContextSource) (File, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, gcsClientOptions(props)...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	obj := client.Bucket(loc.Bucket).Object(loc.Key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("stat %s: %w", uri, err)
	}

	return &rangeFile{
		name:   uri,
		size:   attrs.Size,
		src:    &gcsObject{client: client, obj: obj},
		active: active,
	}, nil
}

type gcsObject struct {
	client *storage.Client
	obj    *storage.ObjectHandle
}

func (o *gcsObject) readRange(ctx context.Context, off, n int64) (io.ReadCloser, error) {
	r, err := o.obj.NewRangeReader(ctx, off, n)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (o *gcsObject) close() error { return o.client.Close() }
