package fetch

import (
	"context"
	"net/url"

	"github.com/advdv/bsplice"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/cockroachdb/errors"
)

// SSMAPI is the part of the SSM client the source uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM fetches fragments from parameters in the SSM parameter store. The locator ssm:///site/banner reads the
// parameter "/site/banner"; a URL fragment such as #html.footer selects a gjson path within a JSON value.
type SSM struct {
	client SSMAPI
}

// NewSSM creates the source.
func NewSSM(client SSMAPI) *SSM {
	return &SSM{client: client}
}

// Fetch implements [bsplice.Source]. SecureString parameters are decrypted.
func (s *SSM) Fetch(ctx context.Context, loc *url.URL) (*bsplice.Fragment, error) {
	name := nameOf(loc)
	if name == "" {
		return nil, bsplice.NewError(bsplice.CodeBadRequest, errors.Newf("locator %q has no parameter name", loc.String()))
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})

	var nf *types.ParameterNotFound
	switch {
	case errors.As(err, &nf):
		return nil, bsplice.NewError(bsplice.CodeNotFound, errors.Wrapf(err, "parameter %q", name))
	case err != nil:
		return nil, errors.Wrapf(err, "get parameter %q", name)
	}

	if out.Parameter == nil {
		return nil, errors.Newf("parameter %q has no value", name)
	}

	value, err := extract(aws.ToString(out.Parameter.Value), loc.Fragment, "parameter "+name)
	if err != nil {
		return nil, err
	}

	return &bsplice.Fragment{Body: []byte(value)}, nil
}

// nameOf joins host and path, both ssm:///a/b and ssm://a/b are accepted.
func nameOf(loc *url.URL) string {
	if loc.Opaque != "" {
		return loc.Opaque
	}

	return loc.Host + loc.Path
}
