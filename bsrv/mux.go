package bsrv

import (
	"net/http"

	"github.com/advdv/bsplice"
	"github.com/advdv/bsplice/addition"
	"github.com/advdv/bsplice/fetch"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Mux is an alias for bsplice.ServeMux.
type Mux = bsplice.ServeMux

// MuxParams holds the dependencies of the mux.
type MuxParams struct {
	fx.In

	Env        Environment
	Logger     *zap.Logger
	TracerProv trace.TracerProvider
	Transport  http.RoundTripper
	Metrics    *bsplice.Metrics
	S3         fetch.S3API
	SSM        fetch.SSMAPI
	Secrets    fetch.SecretReader
}

// NewMux creates the mux with the addition filter and a fragment source for every supported locator scheme.
// Secrets are cached by the secret reader itself, the other sources for BS_FRAGMENT_CACHE_TTL.
func NewMux(p MuxParams) *Mux {
	ttl := p.Env.fragmentCacheTTL()
	web := fetch.Cached(fetch.NewHTTP(p.Transport), ttl)

	return bsplice.NewServeMuxWith(
		newZapBsplice(p.Logger),
		http.NewServeMux(),
		bsplice.NewScope("server"),
		bsplice.NewPipeline(addition.New(p.Logger)),
		bsplice.WithSource("http", web),
		bsplice.WithSource("https", web),
		bsplice.WithSource("s3", fetch.Cached(fetch.NewS3(p.S3), ttl)),
		bsplice.WithSource("ssm", fetch.Cached(fetch.NewSSM(p.SSM), ttl)),
		bsplice.WithSource("secretsmanager", fetch.NewSecrets(p.Secrets)),
		bsplice.WithSubrequestLimit(p.Env.maxSubrequests()),
		bsplice.WithRequestTimeout(p.Env.requestTimeout()),
		bsplice.WithTracerProvider(p.TracerProv),
		bsplice.WithMetrics(p.Metrics),
	)
}
