// Package bsrv runs a bsplice server: a site of locations whose html pages get content added before and after
// their body.
//
// # Overview
//
// bsrv handles the boilerplate of setting up the server: environment parsing, structured logging,
// OpenTelemetry tracing, prometheus metrics, AWS SDK clients for fragment sources, the site configuration and
// graceful shutdown. A complete server is created in a single call:
//
//	bsrv.NewApp[bsrv.BaseEnvironment](func(m *bsrv.Mux) {}).Run()
//
// # Environment Configuration
//
// Define your environment by embedding [BaseEnvironment]:
//
//	type Env struct {
//	    bsrv.BaseEnvironment
//	    SearchURL string `env:"SEARCH_URL,required"`
//	}
//
// BaseEnvironment provides the following environment variables:
//
//	| Variable                     | Required | Default  | Description                                         |
//	|------------------------------|----------|----------|-----------------------------------------------------|
//	| BS_PORT                      | Yes      | -        | Port the HTTP server listens on                     |
//	| BS_SERVICE_NAME              | Yes      | -        | Service name for logging and tracing                |
//	| BS_SITE_CONFIG               | Yes      | -        | Path of the YAML site configuration                 |
//	| BS_READINESS_CHECK_PATH      | No       | /health  | Health check endpoint path                          |
//	| BS_METRICS_PATH              | No       | /metrics | Prometheus endpoint path                            |
//	| BS_LOG_LEVEL                 | No       | info     | Log level (debug, info, warn, error)                |
//	| BS_OTEL_EXPORTER             | No       | stdout   | Trace exporter: "stdout", "xrayudp" or "none"       |
//	| BS_REQUEST_TIMEOUT           | No       | 30s      | Bound of a request and its nested requests          |
//	| BS_FRAGMENT_CACHE_TTL        | No       | 1m       | How long external fragments are cached, 0 disables  |
//	| BS_MAX_SUBREQUESTS           | No       | 50       | Nested requests one request may start               |
//	| BS_GATEWAY_ACCESS_LOG_GROUP  | No       | -        | API Gateway access log group for X-Ray correlation  |
//
// # Site
//
// The site configuration lists the locations, see [Site]. The locators of added content are paths served by the
// server itself, or URLs with one of the schemes http, https, s3, ssm and secretsmanager, see package fetch.
//
// # Logging
//
// [Log] returns a request-scoped zap logger carrying the trace and span ids:
//
//	func hello(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
//	    bsrv.Log(ctx).Info("hello")
//	    ...
//	}
//
// # Testing
//
// Package bsrvtest builds the same dependency graph on top of fxtest.
package bsrv
