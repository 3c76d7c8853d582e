package fetch

import (
	"context"
	"net/url"
	"strings"

	"github.com/advdv/bsplice"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// S3API is the part of the S3 client the source uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 fetches fragments from objects addressed as s3://bucket/key.
type S3 struct {
	client S3API
}

// NewS3 creates the source.
func NewS3(client S3API) *S3 {
	return &S3{client: client}
}

// Fetch implements [bsplice.Source].
func (s *S3) Fetch(ctx context.Context, loc *url.URL) (*bsplice.Fragment, error) {
	bucket, key := loc.Host, strings.TrimPrefix(loc.Path, "/")
	if bucket == "" || key == "" {
		return nil, bsplice.NewError(bsplice.CodeBadRequest, errors.Newf("locator %q has no bucket or key", loc.String()))
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})

	var nsk *types.NoSuchKey
	switch {
	case errors.As(err, &nsk):
		return nil, bsplice.NewError(bsplice.CodeNotFound, errors.Wrapf(err, "object %s/%s", bucket, key))
	case err != nil:
		return nil, errors.Wrapf(err, "get object %s/%s", bucket, key)
	}
	defer out.Body.Close()

	body, err := readBody(out.Body)
	if err != nil {
		return nil, err
	}

	return &bsplice.Fragment{Body: body, ContentType: aws.ToString(out.ContentType)}, nil
}
