package fetch

import (
	"context"
	"net/url"

	"github.com/advdv/bsplice"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// SecretReader abstracts secret retrieval for testability.
type SecretReader interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// AWSSecretReader implements SecretReader using the Secrets Manager caching client.
type AWSSecretReader struct {
	cache *secretcache.Cache
}

// NewAWSSecretReader creates a new AWSSecretReader using the provided AWS config.
func NewAWSSecretReader(cfg aws.Config) (*AWSSecretReader, error) {
	client := secretsmanager.NewFromConfig(cfg)
	cache, err := secretcache.New(func(c *secretcache.Cache) {
		c.Client = client
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create secret cache")
	}

	return &AWSSecretReader{cache: cache}, nil
}

// GetSecretString retrieves a secret value with caching.
func (r *AWSSecretReader) GetSecretString(ctx context.Context, secretID string) (string, error) {
	secret, err := r.cache.GetSecretStringWithContext(ctx, secretID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get secret %q", secretID)
	}

	return secret, nil
}

// Secrets fetches fragments from Secrets Manager. The locator secretsmanager://widgets/chat#html reads the "html" field
// of the JSON secret "widgets/chat". Whatever it returns is published in the page, so a locator must point at a value
// meant for every visitor; a JSON object or array, e.g. the whole secret, is refused.
type Secrets struct {
	reader SecretReader
}

// NewSecrets creates the source.
func NewSecrets(reader SecretReader) *Secrets {
	return &Secrets{reader: reader}
}

// Fetch implements [bsplice.Source].
func (s *Secrets) Fetch(ctx context.Context, loc *url.URL) (*bsplice.Fragment, error) {
	id := nameOf(loc)
	if id == "" {
		return nil, bsplice.NewError(bsplice.CodeBadRequest, errors.Newf("locator %q has no secret id", loc.String()))
	}

	secret, err := s.reader.GetSecretString(ctx, id)
	if err != nil {
		return nil, err
	}

	value, err := extract(secret, loc.Fragment, "secret "+id)
	if err != nil {
		return nil, err
	}

	if isDocument(value) {
		return nil, bsplice.NewError(bsplice.CodeBadRequest,
			errors.Newf("locator %q selects a json document of secret %q, not a single value", loc.Redacted(), id))
	}

	return &bsplice.Fragment{Body: []byte(value)}, nil
}

func isDocument(value string) bool {
	if !gjson.Valid(value) {
		return false
	}

	res := gjson.Parse(value)
	return res.IsObject() || res.IsArray()
}
